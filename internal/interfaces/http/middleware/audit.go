package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/infrastructure/messaging"
	"eduflow-api/pkg/logger"
)

// AuditSink 审计记录去向
type AuditSink interface {
	PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error)
}

// AuditConfig 审计配置
type AuditConfig struct {
	Enabled   bool
	SkipPaths []string
	// WritesOnly 只记录写请求
	WritesOnly bool
}

// DefaultAuditSkipPaths 默认不审计的路径前缀
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Audit 记录请求审计日志，sink 非空时同时写入审计流
func Audit(cfg AuditConfig, sink AuditSink) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		if cfg.WritesOnly && (c.Request.Method == "GET" || c.Request.Method == "OPTIONS" || c.Request.Method == "HEAD") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		entry := &messaging.AuditLogMessage{
			UserID:     c.GetString("user_id"),
			SessionID:  c.GetString("session_id"),
			CourseID:   c.Param("cid"),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Route:      c.FullPath(),
			Status:     c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			RequestID:  c.GetString("request_id"),
			TraceID:    c.GetString("trace_id"),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}

		ctx := c.Request.Context()
		logger.Info(ctx, "api audit",
			"method", entry.Method,
			"route", entry.Route,
			"status", entry.Status,
			"duration_ms", entry.DurationMs,
			"ip", entry.IPAddress,
		)

		if sink != nil {
			if _, err := sink.PublishAuditLog(context.WithoutCancel(ctx), entry); err != nil {
				logger.Warn(ctx, "publish audit log failed", "error", err.Error())
			}
		}
	}
}
