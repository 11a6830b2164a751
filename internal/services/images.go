package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"lemonade/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ObjectStore is the part of *minio.Client the image store uses.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ImageStore uploads product pictures to a public bucket.
type ImageStore struct {
	client ObjectStore
	bucket string
	base   string
}

func NewImageStore(client ObjectStore, cfg config.Minio) *ImageStore {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &ImageStore{client: client, bucket: cfg.Bucket, base: base}
}

// Upload stores the image under products/<id>/<uuid><ext> and returns
// its public URL.
func (s *ImageStore) Upload(ctx context.Context, productID int, filename, contentType string, r io.Reader, size int64) (string, error) {
	object := fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return s.URL(object), nil
}

// Remove deletes an image previously returned by Upload. URLs from other
// hosts are ignored.
func (s *ImageStore) Remove(ctx context.Context, url string) error {
	object, ok := s.objectOf(url)
	if !ok {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{})
}

func (s *ImageStore) URL(object string) string {
	return s.base + "/" + s.bucket + "/" + object
}

func (s *ImageStore) objectOf(url string) (string, bool) {
	prefix := s.base + "/" + s.bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
