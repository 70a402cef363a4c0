package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tutorhub/backend/pkg/response"
)

// WindowCounter 分布式滑动窗口计数（pkg/redis.Client 实现）
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// localLimiters 进程内令牌桶，按客户端 IP 分桶
type localLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newLocalLimiters(limit int, window time.Duration) *localLimiters {
	return &localLimiters{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit 速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 窗口时长
// counter 为 nil 或 Redis 出错时改用进程内令牌桶（golang.org/x/time/rate）
func RateLimit(counter WindowCounter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiters(limit, window)

	return func(c *gin.Context) {
		allowed := true
		useLocal := counter == nil

		if counter != nil {
			key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
			ok, err := counter.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err != nil {
				logger.Warn("Redis 限流失败，改用本地限流", zap.Error(err))
				useLocal = true
			} else {
				allowed = ok
			}
		}
		if useLocal {
			allowed = local.allow(c.ClientIP())
		}

		if !allowed {
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
