// Package storage selects the object store that backs image uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/angelmondragon/brandinbox/pkg/config"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/storage/gcs"
	"github.com/angelmondragon/brandinbox/pkg/storage/minio"
	"github.com/google/uuid"
)

// ObjectStore persists uploaded objects and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader, size int64) (string, error)
	Ping(ctx context.Context) error
}

// New builds the object store for the configured driver.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (ObjectStore, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, cfg.Storage.PublicBaseURL, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.StorageDriverMinIO:
		client, err := minio.NewClient(ctx, cfg.MinIO, cfg.Storage.PublicBaseURL, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.StorageDriverNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// ObjectName returns "<folder>/<uuid><ext>" with a lower-cased extension.
func ObjectName(folder, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// Disabled rejects every upload; used when no storage driver is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader, int64) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeDependency, "file storage is not configured")
}

func (Disabled) Ping(context.Context) error {
	return nil
}
