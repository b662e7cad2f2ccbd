package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/interfaces/http/dto"
)

// maxCourseBody 创建课程请求体上限
const maxCourseBody = 4 << 20

// CourseHandler 课程处理器
type CourseHandler struct {
	courses *course.Service
}

// NewCourseHandler 创建课程处理器
func NewCourseHandler(courses *course.Service) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// ListCourses 获取课程列表
// @Summary 获取课程列表
// @Tags Courses
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param subject query string false "学科"
// @Param status query string false "状态"
// @Param search query string false "关键词"
// @Success 200 {object} dto.Response[[]entity.Course]
// @Router /v1/courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.CourseListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	res := h.courses.ListCourses(ctx, q.Filter(), dto.BindPage(c))
	if !res.Success {
		dto.Result(c, res)
		return
	}
	page := res.Data
	dto.SuccessWithPage(c, page.Items, dto.NewPageMeta(page.Page, page.PageSize, page.Total, page.TotalPages))
}

// CreateCourse 创建课程并生成导论
// @Summary 创建课程
// @Description 校验课程草稿，写入存储服务后生成导论章节
// @Tags Courses
// @Accept json
// @Produce json
// @Success 201 {object} dto.Response[course.CreateCourseOutput]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCourseBody))
	if err != nil {
		dto.BadRequest(c, "failed to read request body")
		return
	}
	dto.ResultWithStatus(c, h.courses.CreateCourse(c.Request.Context(), raw), http.StatusCreated)
}

// GetCourse 获取课程详情
// @Summary 获取课程详情
// @Tags Courses
// @Produce json
// @Param cid path string true "课程 ID"
// @Success 200 {object} dto.Response[entity.Course]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	dto.Result(c, h.courses.GetCourse(c.Request.Context(), dto.CourseID(c)))
}

// UpdateCourse 更新课程
// @Summary 更新课程
// @Tags Courses
// @Accept json
// @Produce json
// @Param cid path string true "课程 ID"
// @Param body body repository.CoursePatch true "修改内容"
// @Success 200 {object} dto.Response[entity.Course]
// @Router /v1/courses/{cid} [patch]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var patch repository.CoursePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	dto.Result(c, h.courses.UpdateCourse(c.Request.Context(), dto.CourseID(c), &patch))
}

// GenerateIntroduction 重新生成导论
// @Summary 生成导论
// @Description 为缺少导论的课程补生成导论章节
// @Tags Courses
// @Produce json
// @Param cid path string true "课程 ID"
// @Success 201 {object} dto.Response[entity.Chapter]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/introduction [post]
func (h *CourseHandler) GenerateIntroduction(c *gin.Context) {
	dto.ResultWithStatus(c, h.courses.GenerateIntroduction(c.Request.Context(), dto.CourseID(c)), http.StatusCreated)
}

// GenerateChapter 按大纲生成章节
// @Summary 按大纲生成章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path string true "课程 ID"
// @Param body body dto.GenerateChapterRequest true "大纲编号"
// @Success 201 {object} dto.Response[entity.Chapter]
// @Router /v1/courses/{cid}/chapters [post]
func (h *CourseHandler) GenerateChapter(c *gin.Context) {
	var req dto.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	dto.ResultWithStatus(c, h.courses.GenerateChapterFromOutline(c.Request.Context(), dto.CourseID(c), req.ChapterNumber), http.StatusCreated)
}
