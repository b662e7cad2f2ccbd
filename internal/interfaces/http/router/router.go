// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eduflow-api/internal/config"
	"eduflow-api/internal/interfaces/http/handler"
	"eduflow-api/internal/interfaces/http/middleware"
)

// Handlers 路由使用的处理器，Ledger 可为空
type Handlers struct {
	Health    *handler.HealthHandler
	Proxy     *handler.ProxyHandler
	Course    *handler.CourseHandler
	Chapter   *handler.ChapterHandler
	Editor    *handler.EditorHandler
	Workspace *handler.WorkspaceHandler
	Export    *handler.ExportHandler
	Ledger    *handler.LedgerHandler
}

// Dependencies 中间件依赖，均可为空
type Dependencies struct {
	Limiter middleware.RateLimiter
	Audit   middleware.AuditSink
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	deps     Dependencies
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, deps Dependencies) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	r.engine.Use(middleware.Auth(middleware.AuthConfig{
		Secret:    r.cfg.Security.JWT.Secret,
		Issuer:    r.cfg.Security.JWT.Issuer,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   r.cfg.AuthEnabled(),
	}))
	r.engine.Use(middleware.Session())

	rl := r.cfg.Security.RateLimit
	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   "api",
		Limit:   rl.RequestsPerSecond,
		Window:  time.Second,
		Burst:   rl.Burst,
	}, r.deps.Limiter))

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:    true,
		SkipPaths:  middleware.DefaultAuditSkipPaths,
		WritesOnly: true,
	}, r.deps.Audit))
}

// generationLimit 生成类接口的每会话限流
func (r *Router) generationLimit() gin.HandlerFunc {
	rl := r.cfg.Security.RateLimit
	return middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: rl.Enabled,
		Scope:   "generation",
		Limit:   rl.GenerationPerMinute,
		Window:  time.Minute,
		Burst:   rl.GenerationPerMinute,
	}, r.deps.Limiter)
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	generation := r.generationLimit()
	RegisterBrowserRoutes(r.engine.Group("/api"), h.Proxy, generation)
	RegisterV1Routes(r.engine.Group("/v1"), h, generation)
}
