package forms

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the per-file limit the upload endpoint enforces.
const MaxUploadBytes int64 = 10 << 20

// AllowedImageTypes are the content types the upload endpoint accepts.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/jpg", "image/webp", "image/gif"}

// StagedFile is a file accepted for upload.
type StagedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f StagedFile) Size() int64 { return int64(len(f.Data)) }

// LoadFile reads a file from disk and detects its content type from the bytes.
func LoadFile(path string) (StagedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StagedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	mtype := mimetype.Detect(data)
	return StagedFile{
		Name:        filepath.Base(path),
		ContentType: strings.SplitN(mtype.String(), ";", 2)[0],
		Data:        data,
	}, nil
}

// StageUploads admits the whole batch or nothing: every type is checked
// before any size, and one failure rejects all files.
func StageUploads(files []StagedFile) ([]StagedFile, error) {
	if len(files) == 0 {
		return nil, invalid("files", "At least one file is required")
	}
	for _, f := range files {
		if !allowedType(f.ContentType) {
			return nil, invalid("files", fmt.Sprintf("Invalid file type: %s. Allowed types: %s",
				f.ContentType, strings.Join(AllowedImageTypes, ", ")))
		}
	}
	for _, f := range files {
		if f.Size() > MaxUploadBytes {
			return nil, invalid("files", fmt.Sprintf("File %s is too large. Maximum size is %dMB.", f.Name, MaxUploadBytes>>20))
		}
	}
	staged := make([]StagedFile, len(files))
	copy(staged, files)
	return staged, nil
}

func allowedType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, allowed := range AllowedImageTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}
