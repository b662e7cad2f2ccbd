// Package course 实现课程编写动作层：校验输入、调用存储服务与生成服务，
// 并把所有失败转换为统一的结果对象。
package course

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/metrics"
)

// Result 动作结果，任何动作都不会把错误抛出自身边界
type Result[T any] struct {
	Success bool                `json:"success"`
	Data    T                   `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	// Status 建议的 HTTP 状态码
	Status int `json:"-"`
}

// Err 失败时还原为 AppError
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return apperrors.New(r.Code, r.Error)
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, Status: http.StatusOK}
}

func failure[T any](err error) Result[T] {
	var appErr *apperrors.AppError
	if apperrors.IsAppError(err) {
		appErr = apperrors.AsAppError(err)
	} else {
		// 非应用错误原样透传消息
		appErr = apperrors.Wrap(err, apperrors.CodeInternalError, err.Error())
	}
	return Result[T]{
		Error:  appErr.UserMessage(),
		Code:   appErr.Code,
		Status: appErr.HTTPStatus,
	}
}

// run 执行动作并统一处理错误、panic、日志与指标
func run[T any](ctx context.Context, action string, fn func(ctx context.Context) (T, error)) (res Result[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.ErrInternalError.WithDetail(fmt.Sprint(r))
			logger.Error(ctx, "action panicked", err, "action", action)
			res = failure[T](err)
		}
		status := "success"
		if !res.Success {
			status = "failure"
		}
		metrics.ActionsTotal.WithLabelValues(action, status).Inc()
		metrics.ActionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}()

	data, err := fn(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeValidationFailed, apperrors.CodeSelectionAbsent, apperrors.CodeInvalidParam) {
			logger.Warn(ctx, "action rejected", "action", action, "error", err.Error())
		} else {
			logger.Error(ctx, "action failed", err, "action", action,
				"duration_ms", time.Since(start).Milliseconds())
		}
		return failure[T](err)
	}
	return ok(data)
}
