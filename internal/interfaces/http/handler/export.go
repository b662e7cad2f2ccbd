package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/export"
	"eduflow-api/internal/interfaces/http/dto"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportHandler 课程导出
type ExportHandler struct {
	courses *course.Service
	opts    export.Options
}

// NewExportHandler 创建导出处理器
func NewExportHandler(courses *course.Service, opts export.Options) *ExportHandler {
	return &ExportHandler{courses: courses, opts: opts}
}

// Export 将课程导出为独立 HTML 文档或 Word 文档
// @Summary 导出课程
// @Tags Courses
// @Produce html
// @Produce application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param cid path string true "课程 ID"
// @Param format query string false "导出格式" Enums(html, docx) default(html)
// @Param download query bool false "以附件形式下载，docx 始终为附件"
// @Success 200 {string} string "文档内容"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/courses/{cid}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	format := strings.ToLower(c.DefaultQuery("format", "html"))
	if format != "html" && format != "docx" {
		dto.Fail(c, apperrors.ErrInvalidParam.WithDetail("format must be html or docx"))
		return
	}

	res := h.courses.GetCourse(ctx, dto.CourseID(c))
	if !res.Success {
		dto.Result(c, res)
		return
	}
	name := fileName(res.Data.Title, res.Data.ID)

	if format == "docx" {
		doc, err := export.CourseDOCX(res.Data, h.opts)
		if err != nil {
			logger.Error(ctx, "failed to export course", err, "format", format)
			dto.Fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.docx"`, name))
		c.Data(http.StatusOK, export.DocxContentType, doc)
		return
	}

	doc, err := export.CourseHTML(res.Data, h.opts)
	if err != nil {
		logger.Error(ctx, "failed to export course", err, "format", format)
		dto.Fail(c, err)
		return
	}

	if c.Query("download") == "true" || c.Query("download") == "1" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.html"`, name))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

func fileName(title, fallback string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(title), "-"), "-.")
	if name == "" {
		return fallback
	}
	return name
}
