// Package aiservice 实现内容生成服务的 HTTP 客户端
package aiservice

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"eduflow-api/internal/application/normalize"
	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/service"
	"eduflow-api/internal/infrastructure/upstream"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/metrics"
)

// 生成服务端点
const (
	PathHealth             = "/v1/health"
	PathBackendStatus      = "/v1/incremental/backend-status"
	PathMetrics            = "/v1/metrics"
	PathCreateChapter      = "/v1/incremental/create-chapter"
	PathContinueChapter    = "/v1/incremental/continue-chapter"
	PathGenerateSubchapter = "/v1/incremental/generate-subchapter"
	PathBookChapter        = "/v1/books/chapter"
)

// Client 内容生成服务客户端
type Client struct {
	http          *upstream.Client
	healthTimeout time.Duration
	proxyTimeout  time.Duration
}

var _ service.ContentGenerator = (*Client)(nil)

// NewClient 由配置创建客户端
func NewClient(cfg config.AIServiceConfig, hc *http.Client) *Client {
	return &Client{
		http: upstream.New(upstream.Options{
			Service:    "ai-service",
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			HTTPClient: hc,
		}),
		healthTimeout: cfg.HealthTimeout,
		proxyTimeout:  cfg.ProxyTimeout,
	}
}

// CreateChapter 生成导论或章节初始内容
func (c *Client) CreateChapter(ctx context.Context, req *service.CreateChapterRequest) (*entity.Chapter, error) {
	kind := "chapter"
	if req.IsIntroduction {
		kind = "introduction"
	}
	return c.generate(ctx, PathCreateChapter, kind, req)
}

// ContinueChapter 按指令续写章节
func (c *Client) ContinueChapter(ctx context.Context, req *service.ContinueChapterRequest) (*entity.Chapter, error) {
	return c.generate(ctx, PathContinueChapter, string(req.ContinueType), req)
}

// GenerateSubchapter 追加一个子章节
func (c *Client) GenerateSubchapter(ctx context.Context, req *service.GenerateSubchapterRequest) (*entity.Chapter, error) {
	return c.generate(ctx, PathGenerateSubchapter, "subchapter", req)
}

func (c *Client) generate(ctx context.Context, path, kind string, body any) (*entity.Chapter, error) {
	start := time.Now()
	raw, err := c.http.SendJSON(ctx, http.MethodPost, path, body)
	if err != nil {
		logger.Error(ctx, "generation request failed", err, "path", path, "kind", kind,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if err := rejected(raw); err != nil {
		return nil, err
	}

	ch := normalize.Chapter(raw)
	metrics.GeneratedWordCount.WithLabelValues(kind).Observe(float64(ch.Metrics.WordCount))
	logger.Info(ctx, "generation completed",
		"kind", kind,
		"chapter_id", ch.ID,
		"word_count", ch.Metrics.WordCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ch, nil
}

// rejected 处理 200 但 success=false 的响应
func rejected(raw []byte) error {
	r := gjson.ParseBytes(raw)
	if s := r.Get("success"); s.Exists() && s.Type == gjson.False {
		msg := r.Get("error").String()
		if msg == "" {
			msg = r.Get("message").String()
		}
		if msg == "" {
			msg = "generation service reported failure"
		}
		return apperrors.ErrGenerationFailed.WithDetail(msg)
	}
	return nil
}

// Health 探测生成服务健康状态
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.fetchStatus(ctx, PathHealth)
}

// BackendStatus 查询生成服务与其后端的连通状态
func (c *Client) BackendStatus(ctx context.Context) (json.RawMessage, error) {
	return c.fetchStatus(ctx, PathBackendStatus)
}

// Metrics 获取生成服务指标
func (c *Client) Metrics(ctx context.Context) (json.RawMessage, error) {
	return c.fetchStatus(ctx, PathMetrics)
}

func (c *Client) fetchStatus(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.http.Do(ctx, upstream.Request{
		Method:  http.MethodGet,
		Path:    path,
		Timeout: c.healthTimeout,
		NoRetry: true,
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return json.RawMessage(`null`), nil
	}
	return resp.Body, nil
}

// ForwardBookChapter 将浏览器的章节生成请求原样转发
func (c *Client) ForwardBookChapter(ctx context.Context, body []byte) (*upstream.Response, error) {
	return c.http.Forward(ctx, upstream.Request{
		Method:  http.MethodPost,
		Path:    PathBookChapter,
		Body:    body,
		Timeout: c.proxyTimeout,
	})
}
