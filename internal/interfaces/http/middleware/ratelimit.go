package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// RateLimiter 分布式限流器
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// Scope 限流维度，写入 Redis key
	Scope  string
	Limit  int
	Window time.Duration
	// Burst 本地回退令牌桶容量
	Burst int
}

// localLimiters 本地令牌桶，Redis 不可用时兜底
type localLimiters struct {
	cache *expirable.LRU[string, *rate.Limiter]
	every rate.Limit
	burst int
}

func newLocalLimiters(cfg RateLimitConfig) *localLimiters {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Limit
	}
	return &localLimiters{
		cache: expirable.NewLRU[string, *rate.Limiter](10000, nil, cfg.Window*10),
		every: rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds()),
		burst: burst,
	}
}

func (l *localLimiters) allow(key string) bool {
	lim, ok := l.cache.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.cache.Add(key, lim)
	}
	return lim.Allow()
}

// RateLimit 按会话限流；Redis 出错时退回本地令牌桶
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.Scope == "" {
		cfg.Scope = "api"
	}
	local := newLocalLimiters(cfg)

	return func(c *gin.Context) {
		subject := c.GetString("session_id")
		if subject == "" {
			subject = c.ClientIP()
		}
		key := "ratelimit:" + cfg.Scope + ":" + subject

		allowed := false
		if limiter != nil {
			ok, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.Warn(c.Request.Context(), "distributed rate limiter unavailable", "error", err.Error())
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			c.Header("Retry-After", retryAfter(cfg.Window))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Success: false,
				Error:   apperrors.ErrTooManyRequests.Message,
				Code:    string(apperrors.CodeTooManyRequests),
				TraceID: c.GetString("trace_id"),
			})
			return
		}
		c.Next()
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
