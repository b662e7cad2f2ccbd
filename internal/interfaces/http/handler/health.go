// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/domain/service"
)

// HealthChecker 基础设施连通性检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg        HealthChecker
	redis     HealthChecker
	upstreams map[string]service.HealthReporter
	version   string
}

// NewHealthHandler 创建健康检查处理器
//
// upstreams 为外部服务健康检查，失败时只标记 degraded，不影响就绪态。
func NewHealthHandler(pg, redisClient HealthChecker, upstreams map[string]service.HealthReporter, version string) *HealthHandler {
	return &HealthHandler{
		pg:        pg,
		redis:     redisClient,
		upstreams: upstreams,
		version:   version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"postgres": required(ctx, h.pg, "postgres"),
		"redis":    required(ctx, h.redis, "redis"),
	}
	ready := checks["postgres"].Status == "ok" && checks["redis"].Status == "ok"

	// 外部服务（可选，不影响就绪态）
	for name, up := range h.upstreams {
		check := &readinessCheck{Status: "ok"}
		start := time.Now()
		_, err := up.Health(ctx)
		check.LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			check.Status = "degraded"
			check.Error = err.Error()
		}
		checks[name] = check
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func required(ctx context.Context, checker HealthChecker, name string) *readinessCheck {
	if checker == nil {
		return &readinessCheck{Status: "missing", Error: name + " client not configured"}
	}
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
