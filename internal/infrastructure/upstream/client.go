// Package upstream 提供访问外部 JSON 服务的 HTTP 客户端
//
// 负责 x-api-key 头、单次请求超时、GET 的 5xx 重试以及错误转换。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/metrics"
)

const (
	// APIKeyHeader 外部服务鉴权头
	APIKeyHeader = "x-api-key"
	// RequestIDHeader 请求 ID 透传头
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 32 << 20
)

// errRequestTimeout 作为超时 context 的 cause，用于区分自身超时与调用方取消
var errRequestTimeout = errors.New("upstream request timeout")

// Options 客户端配置
type Options struct {
	// Service 服务名，用于日志、指标与错误信息
	Service string
	BaseURL string
	APIKey  string
	// Timeout 默认单次请求超时，0 表示不限
	Timeout time.Duration
	// RetryBackoffs GET 请求遇到 5xx 时的重试间隔，长度即最大重试次数
	RetryBackoffs []time.Duration
	HTTPClient    *http.Client
	// Sleep 可替换的等待函数
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client 外部服务客户端
type Client struct {
	service  string
	baseURL  string
	apiKey   string
	timeout  time.Duration
	backoffs []time.Duration
	http     *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
}

// New 创建客户端
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	service := opts.Service
	if service == "" {
		service = "upstream"
	}
	return &Client{
		service:  service,
		baseURL:  strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		backoffs: append([]time.Duration(nil), opts.RetryBackoffs...),
		http:     hc,
		sleep:    sleep,
	}
}

// Service 返回服务名
func (c *Client) Service() string {
	return c.service
}

// Request 一次调用
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body 为 []byte 或 json.RawMessage 时原样发送，否则编码为 JSON
	Body any
	// Timeout 覆盖默认超时
	Timeout time.Duration
	// NoRetry 禁止重试
	NoRetry bool
	Header  http.Header
}

// Response 上游响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK 是否为 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do 发送请求，非 2xx 响应转换为 AppError
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, translateStatus(c.service, resp)
	}
	return resp, nil
}

// Forward 发送请求并原样返回任意状态码的响应，仅在网络错误或超时时返回错误
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	req.NoRetry = true
	return c.send(ctx, req)
}

// GetJSON 发送 GET 并返回响应体
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SendJSON 发送带 JSON 体的请求并返回响应体
func (c *Client) SendJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request body: %w", c.service, err)
	}

	retryable := req.Method == http.MethodGet && !req.NoRetry
	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, req, payload)
		if err != nil {
			return nil, err
		}
		if !retryable || resp.StatusCode < 500 || attempt >= len(c.backoffs) {
			return resp, nil
		}

		delay := c.backoffs[attempt]
		metrics.UpstreamRetriesTotal.WithLabelValues(c.service).Inc()
		logger.Warn(ctx, "upstream GET failed, retrying",
			"service", c.service,
			"path", req.Path,
			"status", resp.StatusCode,
			"attempt", attempt+1,
			"backoff", delay.String(),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, c.transportError(ctx, ctx, err, req)
		}
	}
}

func (c *Client) attempt(ctx context.Context, req Request, payload []byte) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeoutCause(ctx, timeout, errRequestTimeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.service, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set(APIKeyHeader, c.apiKey)
	}
	if rid := logger.StringFromContext(ctx, logger.RequestIDKey); rid != "" && httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, rid)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Method, start, statusLabel(reqCtx, 0))
		return nil, c.transportError(ctx, reqCtx, err, req)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		c.observe(req.Method, start, statusLabel(reqCtx, 0))
		return nil, c.transportError(ctx, reqCtx, err, req)
	}
	c.observe(req.Method, start, strconv.Itoa(httpResp.StatusCode))

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func (c *Client) observe(method string, start time.Time, status string) {
	metrics.UpstreamRequestsTotal.WithLabelValues(c.service, method, status).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(c.service, method).Observe(time.Since(start).Seconds())
}

func statusLabel(reqCtx context.Context, code int) string {
	if code > 0 {
		return strconv.Itoa(code)
	}
	if reqCtx.Err() != nil {
		return "timeout"
	}
	return "error"
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
