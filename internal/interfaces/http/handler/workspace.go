package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/workspace"
	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// streamHeartbeat SSE 心跳间隔
const streamHeartbeat = 15 * time.Second

// WorkspaceHandler 课程工作区处理器，会话由 X-Session-ID 区分
type WorkspaceHandler struct {
	manager   *workspace.Manager
	heartbeat time.Duration
}

// NewWorkspaceHandler 创建工作区处理器
func NewWorkspaceHandler(manager *workspace.Manager) *WorkspaceHandler {
	return &WorkspaceHandler{manager: manager, heartbeat: streamHeartbeat}
}

func (h *WorkspaceHandler) open(c *gin.Context) (*workspace.Session, bool) {
	return h.manager.Open(c.GetString("session_id"), dto.CourseID(c))
}

// Open 打开工作区并显式加载课程
// @Summary 打开工作区
// @Description 进入 loading 状态并等待课程加载完成
// @Tags Workspace
// @Produce json
// @Param cid path string true "课程 ID"
// @Param X-Session-ID header string false "会话 ID"
// @Success 200 {object} dto.Response[workspace.Snapshot]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/workspace [post]
func (h *WorkspaceHandler) Open(c *gin.Context) {
	s, _ := h.open(c)
	snap, err := s.Load(c.Request.Context())
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, snap)
}

// Get 返回当前工作区状态，新会话会先加载一次
// @Summary 获取工作区状态
// @Tags Workspace
// @Produce json
// @Param cid path string true "课程 ID"
// @Success 200 {object} dto.Response[workspace.Snapshot]
// @Router /v1/courses/{cid}/workspace [get]
func (h *WorkspaceHandler) Get(c *gin.Context) {
	s, created := h.open(c)
	if created {
		// 加载失败已体现在快照状态中
		_, _ = s.Load(c.Request.Context())
	}
	dto.Success(c, s.Snapshot())
}

// Refresh 安排一次静默刷新
// @Summary 静默刷新工作区
// @Tags Workspace
// @Produce json
// @Success 202 {object} dto.Response[workspace.Snapshot]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/workspace/refresh [post]
func (h *WorkspaceHandler) Refresh(c *gin.Context) {
	s, ok := h.manager.Get(c.GetString("session_id"), dto.CourseID(c))
	if !ok {
		dto.Fail(c, apperrors.ErrNotFound.WithDetail("workspace is not open"))
		return
	}
	s.Refresh()
	c.JSON(http.StatusAccepted, dto.Response[workspace.Snapshot]{Success: true, Data: s.Snapshot(), TraceID: c.GetString("trace_id")})
}

// SelectChapter 切换活动章节
// @Summary 切换活动章节
// @Tags Workspace
// @Accept json
// @Produce json
// @Param body body dto.SelectChapterRequest true "章节 ID"
// @Success 200 {object} dto.Response[workspace.Snapshot]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/workspace/active-chapter [put]
func (h *WorkspaceHandler) SelectChapter(c *gin.Context) {
	var req dto.SelectChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	s, created := h.open(c)
	if created {
		if _, err := s.Load(ctx); err != nil {
			dto.Fail(c, err)
			return
		}
	}
	snap, err := s.SelectChapter(ctx, req.ChapterID)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, snap)
}

// Close 关闭工作区
// @Summary 关闭工作区
// @Tags Workspace
// @Success 204
// @Router /v1/courses/{cid}/workspace [delete]
func (h *WorkspaceHandler) Close(c *gin.Context) {
	h.manager.Remove(c.GetString("session_id"), dto.CourseID(c))
	c.Status(http.StatusNoContent)
}

// Stream 以 SSE 推送工作区快照
// @Summary 订阅工作区状态
// @Description 每次状态变化推送 snapshot 事件，空闲时推送 ping
// @Tags Workspace
// @Produce text/event-stream
// @Param cid path string true "课程 ID"
// @Success 200 "SSE stream"
// @Router /v1/courses/{cid}/workspace/stream [get]
func (h *WorkspaceHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	s, created := h.open(c)
	if created {
		go func() {
			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if _, err := s.Load(loadCtx); err != nil {
				logger.Warn(ctx, "workspace initial load failed", "error", err.Error())
			}
		}()
	}

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-updates:
			if !ok {
				c.SSEvent("closed", gin.H{"sessionId": s.ID()})
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
