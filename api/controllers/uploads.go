package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/brandinbox/api/responses"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

const (
	uploadFormField       = "files"
	defaultMaxUploadFiles = 10
)

type imageUploader interface {
	UploadImages(ctx context.Context, files []*multipart.FileHeader) (*types.UploadResult, error)
	MaxFileBytes() int64
}

// UploadImages accepts a multipart batch under the "files" field.
func UploadImages(svc imageUploader, maxFiles int, logg *logger.Logger) http.HandlerFunc {
	if maxFiles <= 0 {
		maxFiles = defaultMaxUploadFiles
	}
	// Per-file size is enforced by the service so the whole batch fails with
	// a named file; this cap only bounds the request as a whole.
	limit := svc.MaxFileBytes()*int64(maxFiles+1) + 1<<20

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeTooLarge, err, "Upload exceeds the maximum request size"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		result, err := svc.UploadImages(r.Context(), r.MultipartForm.File[uploadFormField])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
