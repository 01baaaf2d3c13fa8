package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/iliyamo/library-catalog/internal/config"
)

// Minio stores covers as objects in a single bucket.
type Minio struct {
	Client *minio.Client
	Bucket string
}

// NewMinio connects to the configured endpoint and makes sure the bucket
// exists. Failing to create the bucket is logged, not fatal.
func NewMinio(cfg config.StorageConfig, log *slog.Logger) (*Minio, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		log.Warn("failed to check bucket existence", "bucket", cfg.MinioBucket, "error", err)
	} else if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			log.Warn("failed to create bucket", "bucket", cfg.MinioBucket, "error", err)
		} else {
			log.Info("created bucket", "bucket", cfg.MinioBucket)
		}
	}

	return &Minio{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (m *Minio) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := NewKey(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := m.Client.PutObject(ctx, m.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return PublicPrefix + key, nil
}

func (m *Minio) Delete(ctx context.Context, publicPath string) error {
	key, ok := KeyOf(publicPath)
	if !ok {
		return nil
	}
	// RemoveObject reports success for keys that do not exist.
	return m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *Minio) Open(ctx context.Context, key string) (*Object, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{Body: obj, Size: info.Size, ContentType: info.ContentType}, nil
}
