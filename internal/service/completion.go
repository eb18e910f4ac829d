package service

import (
	"context"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
)

// completer 按配置填充 token 上限和温度；超时由 llm 客户端负责
type completer struct {
	client llm.Client
	cfg    config.LLMConfig
}

func (c completer) complete(ctx context.Context, p prompt.Prompt, jsonMode bool) (string, error) {
	return c.client.Complete(ctx, llm.Request{
		System:      p.System,
		User:        p.User,
		JSON:        jsonMode,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
}
