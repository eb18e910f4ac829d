package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/pkg/ws"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client // 未配置时为 nil
	hub   *ws.Hub
	model string
	cfg   *config.Config
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, hub *ws.Hub, model string, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, hub: hub, model: model, cfg: cfg}
}

// Check 各组件状态；数据库不可用时返回 503
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	components := gin.H{
		"database": "ok",
		"redis":    "disabled",
		"llm":      h.model,
		"vector":   h.cfg.Vector.Backend,
		"storage":  h.cfg.Storage.Backend,
		"sessions": h.cfg.Session.Backend,
	}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		components["database"] = "unavailable"
		healthy = false
	}
	if h.redis != nil {
		components["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "unavailable"
		}
	}

	data := gin.H{
		"status":                "healthy",
		"components":            components,
		"websocket_connections": h.hub.ConnectionCount(),
		"timestamp":             time.Now().Format(time.RFC3339),
	}
	if !healthy {
		data["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    response.CodeServerError,
			Message: "unhealthy",
			Data:    data,
		})
		return
	}
	response.Success(c, data)
}
