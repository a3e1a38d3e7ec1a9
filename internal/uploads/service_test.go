package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/angelmondragon/brandinbox/pkg/config"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func (f *fakeStore) Upload(_ context.Context, object, contentType string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[object] = contentType
	return "https://cdn.example.com/" + object, nil
}

type formFile struct {
	name        string
	contentType string
	body        []byte
}

func multipartFiles(t *testing.T, files ...formFile) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/upload/images", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["files"]
}

func newTestService(t *testing.T, store *fakeStore, maxBytes int64) *Service {
	t.Helper()
	svc, err := NewService(store, config.StorageConfig{Folder: "listings"}, config.UploadConfig{MaxFileBytes: maxBytes, MaxFiles: 3, Concurrency: 2}, nil)
	require.NoError(t, err)
	return svc
}

func TestUploadImagesStoresBatchInOrder(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, 0)

	files := multipartFiles(t,
		formFile{name: "front.PNG", contentType: "image/png", body: pngBytes},
		formFile{name: "back", contentType: "image/png", body: pngBytes},
	)
	result, err := svc.UploadImages(context.Background(), files)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	require.Len(t, result.URLs, 2)
	for _, url := range result.URLs {
		require.True(t, strings.HasPrefix(url, "https://cdn.example.com/listings/"), url)
		require.True(t, strings.HasSuffix(url, ".png"), url)
	}
	require.Len(t, store.objects, 2)
	for _, contentType := range store.objects {
		require.Equal(t, "image/png", contentType)
	}
}

func TestUploadImagesRejectsDeclaredType(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 0)

	files := multipartFiles(t, formFile{name: "notes.txt", contentType: "text/plain", body: []byte("hello")})
	_, err := svc.UploadImages(context.Background(), files)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "Invalid file type: text/plain. Allowed types: image/jpeg, image/png, image/jpg, image/webp, image/gif", pkgerrors.As(err).Message())
}

func TestUploadImagesRejectsWholeBatchWhenOneFileTooLarge(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, int64(len(pngBytes)))

	files := multipartFiles(t,
		formFile{name: "ok.png", contentType: "image/png", body: pngBytes},
		formFile{name: "big.png", contentType: "image/png", body: append(append([]byte{}, pngBytes...), 0)},
	)
	_, err := svc.UploadImages(context.Background(), files)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Contains(t, pkgerrors.As(err).Message(), "File big.png is too large")
	require.Empty(t, store.objects)
}

func TestUploadImagesDefaultLimitMessage(t *testing.T) {
	require.Equal(t, "10MB", humanSize(defaultMaxFileBytes))
}

func TestUploadImagesRejectsSpoofedContent(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 0)

	files := multipartFiles(t, formFile{name: "fake.png", contentType: "image/png", body: []byte("plain text pretending")})
	_, err := svc.UploadImages(context.Background(), files)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadImagesRequiresFiles(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 0)

	_, err := svc.UploadImages(context.Background(), nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	many := make([]formFile, 4)
	for i := range many {
		many[i] = formFile{name: fmt.Sprintf("%d.png", i), contentType: "image/png", body: pngBytes}
	}
	_, err = svc.UploadImages(context.Background(), multipartFiles(t, many...))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadImagesStoreFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{err: errors.New("bucket unavailable")}, 0)

	files := multipartFiles(t, formFile{name: "a.png", contentType: "image/png", body: pngBytes})
	_, err := svc.UploadImages(context.Background(), files)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Equal(t, "Failed to upload images: bucket unavailable", pkgerrors.As(err).Message())
}
