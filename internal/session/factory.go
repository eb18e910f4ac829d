package session

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/rfq_alchemy/config"
)

// New 根据配置选择会话存储；redis 后端需要传入 client
func New(cfg *config.SessionConfig, client *redis.Client) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("session backend redis requires a redis client")
		}
		return NewRedisStore(client, time.Duration(cfg.TTLHours)*time.Hour), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
