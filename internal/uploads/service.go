// Package uploads validates image batches and stores them in the object store.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/brandinbox/pkg/config"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/storage"
	"github.com/angelmondragon/brandinbox/pkg/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const defaultMaxFileBytes = 10 * 1024 * 1024

// AllowedContentTypes lists the accepted declared content types, in message order.
var AllowedContentTypes = []string{"image/jpeg", "image/png", "image/jpg", "image/webp", "image/gif"}

// sniffedImageTypes are the detected types accepted for the allowed declarations.
var sniffedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

type objectUploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader, size int64) (string, error)
}

// Service stores validated image batches.
type Service struct {
	store        objectUploader
	folder       string
	maxFileBytes int64
	maxFiles     int
	concurrency  int
	logg         *logger.Logger
}

// NewService builds an upload service over the configured object store.
func NewService(store objectUploader, storageCfg config.StorageConfig, uploadCfg config.UploadConfig, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	maxBytes := uploadCfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	concurrency := uploadCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		store:        store,
		folder:       storageCfg.Folder,
		maxFileBytes: maxBytes,
		maxFiles:     uploadCfg.MaxFiles,
		concurrency:  concurrency,
		logg:         logg,
	}, nil
}

// MaxFileBytes is the per-file limit; handlers size their multipart buffers from it.
func (s *Service) MaxFileBytes() int64 {
	return s.maxFileBytes
}

type preparedFile struct {
	header      *multipart.FileHeader
	contentType string
	ext         string
}

// UploadImages validates every file before storing any of them. One bad file
// rejects the whole batch.
func (s *Service) UploadImages(ctx context.Context, files []*multipart.FileHeader) (*types.UploadResult, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "At least one file is required")
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Too many files. Maximum is %d.", s.maxFiles)
	}

	for _, fh := range files {
		declared := declaredType(fh)
		if !isAllowedType(declared) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Invalid file type: %s. Allowed types: %s", declared, strings.Join(AllowedContentTypes, ", "))
		}
	}
	for _, fh := range files {
		if fh.Size > s.maxFileBytes {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "File %s is too large. Maximum size is %s.", fh.Filename, humanSize(s.maxFileBytes))
		}
	}

	prepared := make([]preparedFile, 0, len(files))
	for _, fh := range files {
		p, err := s.sniff(fh)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}

	urls := make([]string, len(prepared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range prepared {
		g.Go(func() error {
			url, err := s.putObject(gctx, p)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to upload images: "+err.Error())
	}

	s.logg.Info(s.logg.WithField(ctx, "count", len(urls)), "uploads.images_stored")
	return &types.UploadResult{URLs: urls, Count: len(urls)}, nil
}

// sniff checks the file content really is an image.
func (s *Service) sniff(fh *multipart.FileHeader) (result preparedFile, err error) {
	f, err := fh.Open()
	if err != nil {
		return preparedFile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("File %s could not be read", fh.Filename))
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return preparedFile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("File %s could not be read", fh.Filename))
	}
	if !mimetype.EqualsAny(detected.String(), sniffedImageTypes...) {
		return preparedFile{}, pkgerrors.Newf(pkgerrors.CodeValidation, "File %s is not a valid image", fh.Filename)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = detected.Extension()
	}
	return preparedFile{header: fh, contentType: detected.String(), ext: ext}, nil
}

func (s *Service) putObject(ctx context.Context, p preparedFile) (url string, err error) {
	f, err := p.header.Open()
	if err != nil {
		return "", err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	object := storage.ObjectName(s.folder, p.ext)
	return s.store.Upload(ctx, object, p.contentType, f, p.header.Size)
}

func declaredType(fh *multipart.FileHeader) string {
	raw := fh.Header.Get("Content-Type")
	if raw == "" {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(mediaType)
}

func isAllowedType(contentType string) bool {
	for _, allowed := range AllowedContentTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
