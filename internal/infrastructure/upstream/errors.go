package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	apperrors "eduflow-api/pkg/errors"
)

const maxDetailLen = 500

// StatusError 上游返回的非 2xx 响应
type StatusError struct {
	Service    string
	StatusCode int
	Body       []byte
}

// Error 实现 error 接口
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d %s", e.Service, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCodeOf 提取错误链中的上游状态码，不存在时返回 0
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// translateStatus 将非 2xx 响应转换为面向用户的错误
func translateStatus(service string, resp *Response) error {
	se := &StatusError{Service: service, StatusCode: resp.StatusCode, Body: resp.Body}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.Wrap(se, apperrors.CodeUpstreamUnauthorized,
			fmt.Sprintf("invalid API key for %s", service))
	case http.StatusNotFound:
		return apperrors.Wrap(se, apperrors.CodeNotFound, "resource not found").
			WithDetail(bodyMessage(resp.Body))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Wrap(se, apperrors.CodeValidationFailed, "invalid data").
			WithDetail(bodyMessage(resp.Body))
	case http.StatusServiceUnavailable:
		return apperrors.Wrap(se, apperrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s is temporarily unavailable, try again in a few seconds", service))
	default:
		return apperrors.Wrap(se, apperrors.CodeUpstreamError,
			fmt.Sprintf("%d %s. %s", resp.StatusCode, http.StatusText(resp.StatusCode), truncate(string(resp.Body))))
	}
}

// bodyMessage 从错误响应体中提取可读信息
//
// 兼容 {message: string|[]string}、{error: string}、{detail: string|[{msg}]}。
func bodyMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return truncate(strings.TrimSpace(string(body)))
	}
	r := gjson.ParseBytes(body)
	for _, key := range []string{"message", "error", "detail", "errors"} {
		v := r.Get(key)
		if !v.Exists() {
			continue
		}
		if msg := flatten(v); msg != "" {
			return truncate(msg)
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func flatten(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return strings.TrimSpace(v.Str)
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case v.IsObject():
		for _, key := range []string{"msg", "message", "error"} {
			if s := v.Get(key); s.Type == gjson.String {
				return strings.TrimSpace(s.Str)
			}
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	// 退回到字符边界，避免截断多字节字符
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// transportError 转换网络层错误，区分超时与调用方取消
func (c *Client) transportError(parent, reqCtx context.Context, err error, req Request) error {
	switch {
	case errors.Is(context.Cause(reqCtx), errRequestTimeout),
		errors.Is(parent.Err(), context.DeadlineExceeded):
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = c.timeout
		}
		msg := fmt.Sprintf("timeout: %s did not respond in time", c.service)
		if timeout > 0 {
			msg = fmt.Sprintf("timeout: %s did not respond within %s", c.service, timeout)
		}
		return apperrors.Wrap(err, apperrors.CodeUpstreamTimeout, msg)
	case errors.Is(parent.Err(), context.Canceled):
		return apperrors.Wrap(err, apperrors.CodeUpstreamNetwork, fmt.Sprintf("request to %s was canceled", c.service))
	default:
		return apperrors.Wrap(err, apperrors.CodeUpstreamNetwork, fmt.Sprintf("%s request failed: %v", c.service, err))
	}
}
