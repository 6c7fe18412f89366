package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/snowtistics-etl/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeBin  = "application/octet-stream"
)

// objectClient is the subset of *minio.Client used by Uploader.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Uploader copies finished output files to an S3-compatible bucket under a
// per-run prefix.
type Uploader struct {
	client objectClient
	bucket string
	prefix string
	logger *slog.Logger
}

// NewUploader creates an uploader for the configured endpoint and bucket.
// Objects are stored under prefix, typically the run ID.
func NewUploader(cfg *config.Config, prefix string, logger *slog.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Uploader{client: client, bucket: cfg.S3Bucket, prefix: prefix, logger: logger}, nil
}

// Upload ensures the bucket exists and uploads each file. It stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, paths ...string) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", u.bucket, err)
		}
		u.logger.Info("created bucket", "bucket", u.bucket)
	}

	for _, p := range paths {
		key := ObjectKey(u.prefix, p)
		info, err := u.client.FPutObject(ctx, u.bucket, key, p, minio.PutObjectOptions{
			ContentType: contentTypeFor(p),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", p, err)
		}
		u.logger.Info("uploaded output", "bucket", u.bucket, "key", key, "size", info.Size)
	}
	return nil
}

// ObjectKey returns the object name for a local file: prefix/basename.
func ObjectKey(prefix, filePath string) string {
	base := filepath.Base(filePath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

func contentTypeFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return contentTypeCSV
	case ".xlsx":
		return contentTypeXLSX
	default:
		return contentTypeBin
	}
}
