package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/qs3c/rfq_alchemy/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Store 原始 PDF 的对象存储
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New 按 storage.backend 选择实现
func New(ctx context.Context, cfg *config.StorageConfig, localDir string) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(localDir)
	case "oss":
		return NewOSSStore(&cfg.OSS)
	case "minio":
		return NewMinIOStore(ctx, &cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// ObjectKey 文档原文的存储路径
func ObjectKey(documentID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", documentID, filename)
}
