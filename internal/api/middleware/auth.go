package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/pkg/jwt"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
)

const (
	SessionIDKey = "sessionID"
)

// SessionTicket 校验分析会话票据；WebSocket 握手无法带头部，优先读 ?token=
func SessionTicket(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				tokenString = ""
			}
		}
		if tokenString == "" {
			response.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}

// GetSessionID 从上下文获取票据里的会话 ID
func GetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
