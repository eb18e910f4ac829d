package llm

import (
	"context"
	"log"
	"strings"

	"github.com/qs3c/rfq_alchemy/config"
)

// Request 一次补全请求
type Request struct {
	System      string
	User        string
	JSON        bool // 要求模型只输出 JSON 对象
	MaxTokens   int
	Temperature float32
}

// Client 大模型调用
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// New 按配置创建客户端；没有 API Key 时退回 mock
func New(cfg *config.LLMConfig) Client {
	provider := strings.ToLower(cfg.Provider)
	if provider == "mock" {
		return NewMockClient()
	}
	if cfg.APIKey == "" {
		log.Printf("Warning: llm.api_key not configured, using mock LLM client")
		return NewMockClient()
	}
	return NewOpenAIClient(cfg)
}
