package handler

import (
	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
)

// EditorHandler 选区定位与指令推荐
type EditorHandler struct {
	courses *course.Service
	limits  editor.Limits
}

// NewEditorHandler 创建编辑器处理器
func NewEditorHandler(courses *course.Service, limits editor.Limits) *EditorHandler {
	if limits.Min <= 0 && limits.Max <= 0 {
		limits = editor.DefaultLimits
	}
	return &EditorHandler{courses: courses, limits: limits}
}

// Locate 在章节内容中定位选区并返回高亮后的 HTML，长度不合规的选区只返回校验结果
// @Summary 定位选区
// @Tags Editor
// @Accept json
// @Produce json
// @Param body body dto.SelectionRequest true "选区"
// @Success 200 {object} dto.Response[dto.LocateResponse]
// @Router /v1/courses/{cid}/chapters/{chid}/selection [post]
func (h *EditorHandler) Locate(c *gin.Context) {
	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	res := h.courses.GetChapter(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c))
	if !res.Success {
		dto.Result(c, res)
		return
	}

	out := dto.LocateResponse{Valid: true}
	if err := editor.ValidateSelection(req.Selection, h.limits); err != nil {
		out.Valid = false
		out.Issue = apperrors.AsAppError(err).UserMessage()
		// 无效选区直接丢弃，不做定位
		dto.Success(c, out)
		return
	}
	if m, ok := editor.Locate(res.Data.Content, req.Selection); ok {
		out.Found = true
		out.Match = &m
		out.Highlighted = editor.Highlight(res.Data.Content, m)
	}
	dto.Success(c, out)
}

// Suggest 根据选区推荐续写指令
// @Summary 推荐指令
// @Tags Editor
// @Accept json
// @Produce json
// @Param body body dto.SelectionRequest true "选区"
// @Success 200 {object} dto.Response[dto.SuggestResponse]
// @Router /v1/editor/suggestions [post]
func (h *EditorHandler) Suggest(c *gin.Context) {
	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	dto.Success(c, dto.SuggestResponse{Directives: editor.SuggestDirectives(req.Selection)})
}
