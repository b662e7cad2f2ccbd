package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/interfaces/http/dto"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	courses *course.Service
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(courses *course.Service) *ChapterHandler {
	return &ChapterHandler{courses: courses}
}

// GetChapter 获取章节
// @Summary 获取章节
// @Tags Chapters
// @Produce json
// @Param cid path string true "课程 ID"
// @Param chid path string true "章节 ID"
// @Success 200 {object} dto.Response[entity.Chapter]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/chapters/{chid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	dto.Result(c, h.courses.GetChapter(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c)))
}

// ListResources 获取章节小节、活动或测评
// @Summary 获取章节子资源
// @Tags Chapters
// @Produce json
// @Param kind path string true "sections | activities | assessments"
// @Router /v1/courses/{cid}/chapters/{chid}/resources/{kind} [get]
func (h *ChapterHandler) ListResources(c *gin.Context) {
	kind := repository.ChapterResourceKind(c.Param("kind"))
	dto.Result(c, h.courses.ChapterResources(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c), kind))
}

// GenerateSubchapter 生成下一个子章节
// @Summary 生成子章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.GenerateSubchapterRequest false "章节编号"
// @Success 201 {object} dto.Response[entity.Chapter]
// @Router /v1/courses/{cid}/chapters/{chid}/subchapters [post]
func (h *ChapterHandler) GenerateSubchapter(c *gin.Context) {
	var req dto.GenerateSubchapterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, err.Error())
			return
		}
	}
	res := h.courses.GenerateSubchapter(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c), req.ChapterNumber)
	dto.ResultWithStatus(c, res, http.StatusCreated)
}

// Transform 对选区执行续写指令
// @Summary 执行续写指令
// @Description directive 为 expand、simplify、assess、exemplify、add_section、add_activities、add_assessments
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.TransformRequest true "指令与选区"
// @Success 200 {object} dto.Response[entity.Chapter]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/chapters/{chid}/transform [post]
func (h *ChapterHandler) Transform(c *gin.Context) {
	var req dto.TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	h.transform(c, req.Directive, &req)
}

// Directive 以路径指定指令，兼容 question、example 别名
// @Summary 执行指定续写指令
// @Tags Chapters
// @Accept json
// @Produce json
// @Param directive path string true "指令"
// @Router /v1/courses/{cid}/chapters/{chid}/directives/{directive} [post]
func (h *ChapterHandler) Directive(c *gin.Context) {
	var body dto.SelectionBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			dto.BadRequest(c, err.Error())
			return
		}
	}
	req := dto.TransformRequest{Directive: c.Param("directive"), Selection: body.Selection, Instructions: body.Instructions}
	h.transform(c, req.Directive, &req)
}

func (h *ChapterHandler) transform(c *gin.Context, name string, req *dto.TransformRequest) {
	directive, err := course.ParseDirective(name)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	in := req.Input(dto.CourseID(c), dto.ChapterID(c))
	dto.Result(c, h.courses.Transform(c.Request.Context(), directive, in))
}

// UpdateContent 修改章节内容
// @Summary 修改章节内容
// @Description 整体替换，或按偏移/首次出现替换选区；找不到原文时不写回
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.ContentEditRequest true "修改内容"
// @Success 200 {object} dto.Response[course.ContentUpdate]
// @Router /v1/courses/{cid}/chapters/{chid}/content [put]
func (h *ChapterHandler) UpdateContent(c *gin.Context) {
	var req dto.ContentEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	dto.Result(c, h.courses.UpdateChapterContent(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c), req.Edit()))
}

// InsertImage 在选区后插入图片占位
// @Summary 插入图片占位
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.ImagePlaceholderRequest true "图片描述"
// @Success 200 {object} dto.Response[course.ContentUpdate]
// @Router /v1/courses/{cid}/chapters/{chid}/images [post]
func (h *ChapterHandler) InsertImage(c *gin.Context) {
	var req dto.ImagePlaceholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	res := h.courses.InsertImagePlaceholder(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c), req.Selection, req.Range, req.Description)
	dto.Result(c, res)
}

// GetDraft 获取章节的草稿文本
// @Summary 获取草稿
// @Tags Editor
// @Produce json
// @Success 200 {object} dto.Response[dto.DraftResponse]
// @Router /v1/courses/{cid}/chapters/{chid}/draft [get]
func (h *ChapterHandler) GetDraft(c *gin.Context) {
	res := h.courses.GetChapter(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c))
	if !res.Success {
		dto.Result(c, res)
		return
	}
	dto.Success(c, dto.DraftResponse{ChapterID: res.Data.ID, Draft: editor.ToDraft(res.Data.Content)})
}

// SaveDraft 以草稿文本整体替换章节内容
// @Summary 保存草稿
// @Tags Editor
// @Accept json
// @Produce json
// @Param body body dto.DraftRequest true "草稿"
// @Success 200 {object} dto.Response[course.ContentUpdate]
// @Router /v1/courses/{cid}/chapters/{chid}/draft [put]
func (h *ChapterHandler) SaveDraft(c *gin.Context) {
	var req dto.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	dto.Result(c, h.courses.SaveDraft(c.Request.Context(), dto.CourseID(c), dto.ChapterID(c), req.Draft))
}
