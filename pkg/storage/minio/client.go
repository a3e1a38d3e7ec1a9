package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client stores uploads in an S3-compatible bucket.
type Client struct {
	client     *miniogo.Client
	bucket     string
	region     string
	publicBase string
}

// NewClient connects to the endpoint and creates the bucket when missing.
func NewClient(ctx context.Context, cfg config.MinIOConfig, publicBase string, logg *logger.Logger) (*Client, error) {
	client, err := newClient(cfg, publicBase)
	if err != nil {
		return nil, err
	}
	if err := client.ensureBucket(ctx); err != nil {
		return nil, err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket})
		logg.Info(ctx, "minio client initialized")
	}
	return client, nil
}

func newClient(cfg config.MinIOConfig, publicBase string) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}

	mc, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &Client{
		client:     mc,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, miniogo.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", c.bucket, err)
	}
	return nil
}

// Upload puts the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader, size int64) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("minio client not initialized")
	}
	if size <= 0 {
		size = -1
	}
	_, err := c.client.PutObject(ctx, c.bucket, object, body, size, miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio put %q: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// PublicURL returns the path-style URL for an object.
func (c *Client) PublicURL(object string) string {
	base := c.publicBase
	if base == "" {
		base = strings.TrimRight(c.client.EndpointURL().String(), "/") + "/" + c.bucket
	}
	return base + "/" + strings.TrimLeft(object, "/")
}

// Ping confirms the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("minio client not initialized")
	}
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}
