package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/qs3c/rfq_alchemy/config"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record 一个文档块及其向量
type Record struct {
	DocumentID string
	ChunkIndex int
	Content    string
	Vector     []float32
}

// Hit 检索结果，Score 越大越相似
type Hit struct {
	DocumentID string
	ChunkIndex int
	Content    string
	Score      float64
}

// Index 向量索引
type Index interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Delete(ctx context.Context, documentID string) error
	Reset(ctx context.Context) error
	Close() error
}

// New 按 vector.backend 选择实现
func New(ctx context.Context, cfg *config.VectorConfig) (Index, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryIndex(), nil
	case "qdrant":
		return NewQdrantIndex(ctx, QdrantOptions{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		}), nil
	case "pgvector":
		return NewPgIndex(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.Backend)
	}
}
