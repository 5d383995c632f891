// Package objectstore mirrors archived files into an S3-compatible bucket
// under the same relative path they have on disk.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/alexmgee/patron-hub/internal/config"
)

type MinioMirror struct {
	client *minio.Client
	bucket string
}

func NewMinioMirror(ctx context.Context, cfg config.MirrorConfig) (*MinioMirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioMirror{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the file at filePath as key.
func (m *MinioMirror) Put(ctx context.Context, key, filePath, contentType string) error {
	key = ObjectKey(key)
	_, err := m.client.FPutObject(ctx, m.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: GuessContentType(key, contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// ObjectKey normalises an archive-relative path into a bucket key.
func ObjectKey(localPath string) string {
	key := path.Clean("/" + strings.ReplaceAll(localPath, "\\", "/"))
	return strings.TrimPrefix(key, "/")
}

func GuessContentType(filename, fallback string) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	if ext := path.Ext(filename); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}
