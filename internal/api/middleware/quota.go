package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
)

// clientLimiters 按客户端 IP 维护令牌桶
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (l *clientLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// AnalysisQuota 限制每个客户端每分钟发起的模型调用类请求，perMinute<=0 时不限
func AnalysisQuota(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			response.TooManyRequests(c, "analysis request limit reached, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
