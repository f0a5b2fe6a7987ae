package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/oshokin/mesos-packager/internal/config"
	"github.com/oshokin/mesos-packager/internal/logger"
)

// Publisher uploads package files and returns their object keys.
type Publisher interface {
	Publish(ctx context.Context, files []string) ([]string, error)
}

var (
	// errUploadNotConfigured is returned when no upload settings are given.
	errUploadNotConfigured = errors.New("upload is not configured")
	// errBucketMissing is returned when the target bucket does not exist.
	errBucketMissing = errors.New("bucket does not exist")
)

// ObjectStorePublisher uploads files with minio-go.
type ObjectStorePublisher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectStorePublisher creates a publisher from validated upload settings.
func NewObjectStorePublisher(cfg *config.Upload) (*ObjectStorePublisher, error) {
	if cfg == nil {
		return nil, errUploadNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &ObjectStorePublisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Publish uploads every file under the configured prefix.
func (p *ObjectStorePublisher) Publish(ctx context.Context, files []string) ([]string, error) {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", errBucketMissing, p.bucket)
	}

	keys := make([]string, 0, len(files))

	for _, file := range files {
		key := ObjectKey(p.prefix, file)

		info, err := p.client.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{
			ContentType: ContentType(file),
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s: %w", file, err)
		}

		logger.InfoKV(ctx, "Uploaded package", "bucket", p.bucket, "key", key, "size", info.Size, "etag", info.ETag)

		keys = append(keys, key)
	}

	return keys, nil
}

// ObjectKey joins prefix and the file's base name with forward slashes.
func ObjectKey(prefix, file string) string {
	return path.Join(strings.Trim(prefix, "/"), filepath.Base(file))
}

// ContentType returns the MIME type for a package file.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".deb":
		return "application/vnd.debian.binary-package"
	case ".rpm":
		return "application/x-rpm"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
