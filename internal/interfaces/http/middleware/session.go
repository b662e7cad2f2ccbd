package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eduflow-api/pkg/logger"
)

// SessionIDHeader 浏览器会话头，工作区与活动章节按会话隔离
const SessionIDHeader = "X-Session-ID"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Session 解析会话：请求头优先，其次是已认证用户，都没有时分配新会话
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if !sessionIDPattern.MatchString(sessionID) {
			sessionID = c.GetString("user_id")
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		c.Set("session_id", sessionID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.SessionIDKey, sessionID))
		c.Header(SessionIDHeader, sessionID)

		c.Next()
	}
}
