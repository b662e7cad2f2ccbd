package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"eduflow-api/internal/domain/service"
	"eduflow-api/internal/infrastructure/upstream"
	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// maxProxyBody 章节生成请求体上限
const maxProxyBody = 8 << 20

// GenerationGateway 浏览器可直接访问的生成服务能力
type GenerationGateway interface {
	service.HealthReporter
	BackendStatus(ctx context.Context) (json.RawMessage, error)
	Metrics(ctx context.Context) (json.RawMessage, error)
	ForwardBookChapter(ctx context.Context, body []byte) (*upstream.Response, error)
}

// ProxyHandler 浏览器面向的健康检查与生成代理
type ProxyHandler struct {
	ai    GenerationGateway
	store service.HealthReporter
}

// NewProxyHandler 创建代理处理器
func NewProxyHandler(ai GenerationGateway, store service.HealthReporter) *ProxyHandler {
	return &ProxyHandler{ai: ai, store: store}
}

// AIHealth 生成服务健康检查
// @Summary 生成服务健康检查
// @Tags Browser
// @Produce json
// @Success 200 {object} dto.HealthStatusResponse
// @Failure 503 {object} dto.HealthStatusResponse
// @Router /api/health/ai [get]
func (h *ProxyHandler) AIHealth(c *gin.Context) {
	h.checkHealth(c, h.ai, "ok")
}

// BackendHealth 存储服务健康检查
// @Summary 存储服务健康检查
// @Tags Browser
// @Produce json
// @Success 200 {object} dto.HealthStatusResponse
// @Failure 503 {object} dto.HealthStatusResponse
// @Router /api/health/backend [get]
func (h *ProxyHandler) BackendHealth(c *gin.Context) {
	h.checkHealth(c, h.store, "ok", "healthy")
}

func (h *ProxyHandler) checkHealth(c *gin.Context, p service.HealthReporter, healthy ...string) {
	ctx := c.Request.Context()
	raw, err := p.Health(ctx)
	if err != nil {
		logger.Warn(ctx, "health check failed", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, dto.HealthStatusResponse{Status: "error", Details: errorText(err)})
		return
	}
	status := gjson.GetBytes(raw, "status").String()
	for _, s := range healthy {
		if status == s {
			c.JSON(http.StatusOK, dto.HealthStatusResponse{Status: "ok"})
			return
		}
	}
	c.JSON(http.StatusServiceUnavailable, dto.HealthStatusResponse{Status: "error", Details: raw})
}

// BackendStatus 生成服务后端连通状态
// @Summary 生成服务后端连通状态
// @Tags Browser
// @Produce json
// @Router /api/ai/backend-status [get]
func (h *ProxyHandler) BackendStatus(c *gin.Context) {
	h.passThrough(c, h.ai.BackendStatus)
}

// AIMetrics 生成服务指标
// @Summary 生成服务指标
// @Tags Browser
// @Produce json
// @Router /api/ai/metrics [get]
func (h *ProxyHandler) AIMetrics(c *gin.Context) {
	h.passThrough(c, h.ai.Metrics)
}

func (h *ProxyHandler) passThrough(c *gin.Context, fetch func(context.Context) (json.RawMessage, error)) {
	raw, err := fetch(c.Request.Context())
	if err != nil {
		dto.Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// BookChapter 转发章节生成请求
// @Summary 章节生成代理
// @Description 将请求体原样转发给生成服务，最长等待 15 分钟
// @Tags Browser
// @Accept json
// @Produce json
// @Success 200 {object} object
// @Failure 504 {object} dto.ProxyErrorResponse
// @Router /api/books/chapter [post]
func (h *ProxyHandler) BookChapter(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, dto.ProxyErrorResponse{Error: "invalid JSON body"})
		return
	}

	resp, err := h.ai.ForwardBookChapter(ctx, body)
	if err != nil {
		if apperrors.IsTimeout(err) {
			c.JSON(http.StatusGatewayTimeout, dto.ProxyErrorResponse{Error: "timeout waiting for the generation service"})
			return
		}
		logger.Error(ctx, "book chapter proxy failed", err)
		c.JSON(http.StatusInternalServerError, dto.ProxyErrorResponse{Error: errorText(err)})
		return
	}

	if !resp.OK() {
		text := string(resp.Body)
		if text == "" {
			text = "generation service error"
		}
		c.JSON(resp.StatusCode, dto.ProxyErrorResponse{Error: text})
		return
	}
	if !json.Valid(resp.Body) {
		c.JSON(http.StatusInternalServerError, dto.ProxyErrorResponse{Error: "invalid JSON from generation service"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Body)
}

// errorText 面向用户的错误文本
func errorText(err error) string {
	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err).UserMessage()
	}
	return err.Error()
}
