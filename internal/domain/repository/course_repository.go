package repository

import (
	"context"
	"encoding/json"

	"eduflow-api/internal/domain/entity"
)

// CourseFilter 课程列表过滤条件
type CourseFilter struct {
	Subject          string
	EducationalLevel string
	Status           entity.CourseStatus
	Search           string
	SortBy           string
	SortOrder        SortOrder
}

// CoursePatch 课程部分更新，nil 字段不修改
type CoursePatch struct {
	Title              *string                    `json:"title,omitempty"`
	Description        *string                    `json:"description,omitempty"`
	Subject            *string                    `json:"subject,omitempty"`
	EducationalLevel   *string                    `json:"educationalLevel,omitempty"`
	TargetAudience     *string                    `json:"targetAudience,omitempty"`
	Template           *string                    `json:"template,omitempty"`
	Philosophy         *string                    `json:"philosophy,omitempty"`
	Status             *entity.CourseStatus       `json:"status,omitempty"`
	ChapterOutlines    []entity.ChapterOutline    `json:"chapterOutlines,omitempty"`
	SubchapterTemplate *entity.SubchapterTemplate `json:"subchapterTemplate,omitempty"`
	Bibliography       []entity.BibliographyItem  `json:"bibliography,omitempty"`
}

// ChapterPatch 章节部分更新
type ChapterPatch struct {
	Title   *string               `json:"title,omitempty"`
	Content *string               `json:"content,omitempty"`
	Status  *entity.ChapterStatus `json:"status,omitempty"`
}

// ChapterResourceKind 章节子资源
type ChapterResourceKind string

const (
	ChapterSections    ChapterResourceKind = "sections"
	ChapterActivities  ChapterResourceKind = "activities"
	ChapterAssessments ChapterResourceKind = "assessments"
)

// Valid 是否为已知子资源
func (k ChapterResourceKind) Valid() bool {
	switch k {
	case ChapterSections, ChapterActivities, ChapterAssessments:
		return true
	}
	return false
}

// CourseRepository 课程存储仓储接口，权威数据位于外部存储服务
type CourseRepository interface {
	// List 分页获取课程列表（不含章节）
	List(ctx context.Context, filter *CourseFilter, pagination Pagination) (*PagedResult[*entity.Course], error)

	// GetByID 获取课程及其章节
	GetByID(ctx context.Context, id string) (*entity.Course, error)

	// Create 创建课程
	Create(ctx context.Context, course *entity.Course) (*entity.Course, error)

	// Update 更新课程
	Update(ctx context.Context, id string, patch *CoursePatch) (*entity.Course, error)

	// ListChapters 获取课程章节
	ListChapters(ctx context.Context, courseID string) ([]*entity.Chapter, error)

	// GetChapter 获取章节
	GetChapter(ctx context.Context, id string) (*entity.Chapter, error)

	// UpdateChapter 更新章节
	UpdateChapter(ctx context.Context, id string, patch *ChapterPatch) (*entity.Chapter, error)

	// ListChapterResources 获取章节子资源原始数据
	ListChapterResources(ctx context.Context, chapterID string, kind ChapterResourceKind) ([]json.RawMessage, error)
}
