package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/utils"
)

// AuthConfig 鉴权配置
type AuthConfig struct {
	Secret    string
	Issuer    string
	SkipPaths []string
	Enabled   bool
}

// DefaultSkipPaths 无需鉴权的路径前缀
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/api/health",
}

// Auth Bearer JWT 鉴权，未启用时直接放行
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortUnauthorized(c, apperrors.ErrTokenMissing)
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abortUnauthorized(c, apperrors.ErrTokenExpired)
				return
			}
			abortUnauthorized(c, apperrors.ErrTokenInvalid)
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.Subject))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, e *apperrors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Success: false,
		Error:   e.Message,
		Code:    string(e.Code),
		TraceID: c.GetString("trace_id"),
	})
}
