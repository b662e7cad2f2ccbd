// Package dto HTTP 层请求与响应结构
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/course"
	apperrors "eduflow-api/pkg/errors"
)

// Response 统一成功响应，与动作结果保持同一形状
type Response[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{Success: true, Data: data, TraceID: c.GetString("trace_id")})
}

// SuccessWithPage 200 带分页
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	c.JSON(http.StatusOK, Response[T]{Success: true, Data: data, Meta: meta, TraceID: c.GetString("trace_id")})
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	c.JSON(http.StatusCreated, Response[T]{Success: true, Data: data, TraceID: c.GetString("trace_id")})
}

// Error 按状态码返回错误
func Error(c *gin.Context, status int, code apperrors.ErrorCode, message string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    string(code),
		TraceID: c.GetString("trace_id"),
	})
}

// Fail 按错误码映射状态码
func Fail(c *gin.Context, err error) {
	if !apperrors.IsAppError(err) {
		Error(c, http.StatusInternalServerError, apperrors.CodeInternalError, err.Error())
		return
	}
	e := apperrors.AsAppError(err)
	status := e.HTTPStatus
	if status == 0 {
		status = apperrors.StatusOf(e.Code)
	}
	Error(c, status, e.Code, e.UserMessage())
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, apperrors.CodeInvalidParam, message)
}

// Result 输出动作结果，失败时按结果中的状态码返回
func Result[T any](c *gin.Context, res course.Result[T]) {
	ResultWithStatus(c, res, http.StatusOK)
}

// ResultWithStatus 成功时使用指定状态码
func ResultWithStatus[T any](c *gin.Context, res course.Result[T], status int) {
	if res.Success {
		c.JSON(status, Response[T]{Success: true, Data: res.Data, TraceID: c.GetString("trace_id")})
		return
	}
	code := res.Status
	if code == 0 {
		code = apperrors.StatusOf(res.Code)
	}
	Error(c, code, res.Code, res.Error)
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize int, total int64, totalPages int) *PageMeta {
	return &PageMeta{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}
