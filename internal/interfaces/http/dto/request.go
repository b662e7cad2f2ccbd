package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
)

// PageRequest 分页参数，limit 与 page_size 等价
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
	Limit    int `form:"limit"`
}

// BindPage 解析分页参数
func BindPage(c *gin.Context) repository.Pagination {
	var req PageRequest
	_ = c.ShouldBindQuery(&req)
	size := req.PageSize
	if size == 0 {
		size = req.Limit
	}
	return repository.NewPagination(req.Page, size)
}

// CourseListQuery 课程列表查询
type CourseListQuery struct {
	Subject          string `form:"subject"`
	EducationalLevel string `form:"educationalLevel"`
	Status           string `form:"status" binding:"omitempty,oneof=draft published archived"`
	Search           string `form:"search"`
	SortBy           string `form:"sortBy" binding:"omitempty,oneof=createdAt updatedAt title"`
	SortOrder        string `form:"sortOrder" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// Filter 转换为仓储过滤条件
func (q *CourseListQuery) Filter() *repository.CourseFilter {
	f := &repository.CourseFilter{
		Subject:          strings.TrimSpace(q.Subject),
		EducationalLevel: strings.TrimSpace(q.EducationalLevel),
		Status:           entity.CourseStatus(q.Status),
		Search:           strings.TrimSpace(q.Search),
		SortBy:           q.SortBy,
	}
	if q.SortOrder != "" {
		f.SortOrder = repository.ParseSortOrder(q.SortOrder)
	}
	return f
}

// LedgerQuery 台账查询
type LedgerQuery struct {
	ChapterID string `form:"chapterId"`
	Kind      string `form:"kind"`
	Status    string `form:"status" binding:"omitempty,oneof=succeeded failed"`
	Since     string `form:"since"`
}

// Filter 转换为台账过滤条件，since 为 RFC3339 时间
func (q *LedgerQuery) Filter() (*repository.GenerationEventFilter, error) {
	f := &repository.GenerationEventFilter{
		ChapterID: q.ChapterID,
		Kind:      entity.GenerationEventKind(q.Kind),
		Status:    entity.GenerationEventStatus(q.Status),
	}
	if q.Since != "" {
		t, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			return nil, err
		}
		f.Since = t
	}
	return f, nil
}

// CourseID 路径中的课程 ID
func CourseID(c *gin.Context) string {
	return c.Param("cid")
}

// ChapterID 路径中的章节 ID
func ChapterID(c *gin.Context) string {
	return c.Param("chid")
}

// QueryInt 读取整型查询参数，非法时返回默认值
func QueryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
