package embedding

import (
	"context"
	"log"

	"github.com/qs3c/rfq_alchemy/config"
)

// Embedder 文本向量化
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// New 按配置选择实现；openai 没有 key 时退回 hash
func New(cfg *config.EmbeddingConfig) Embedder {
	if cfg.Provider == "hash" {
		return NewHashEmbedder(HashDimension)
	}
	if cfg.APIKey == "" {
		log.Printf("Warning: embedding.api_key not configured, using hash embedder")
		return NewHashEmbedder(HashDimension)
	}
	return NewOpenAIEmbedder(cfg)
}
