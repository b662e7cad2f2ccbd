package repository

import (
	"context"
	"time"

	"eduflow-api/internal/domain/entity"
)

// GenerationEventFilter 台账查询条件
type GenerationEventFilter struct {
	ChapterID string
	Kind      entity.GenerationEventKind
	Status    entity.GenerationEventStatus
	Since     time.Time
}

// GenerationEventRepository 生成台账仓储接口
type GenerationEventRepository interface {
	// Create 写入事件，重复 ID 视为已写入
	Create(ctx context.Context, event *entity.GenerationEvent) error

	// CreateBatch 同一事务内写入多条事件
	CreateBatch(ctx context.Context, events []*entity.GenerationEvent) error

	// ListByCourse 按发生时间倒序获取课程事件
	ListByCourse(ctx context.Context, courseID string, filter *GenerationEventFilter, pagination Pagination) (*PagedResult[*entity.GenerationEvent], error)

	// ListOrphanedCourses 导论生成失败且之后未成功的课程 ID
	ListOrphanedCourses(ctx context.Context, limit int) ([]string, error)
}
