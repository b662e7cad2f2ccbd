package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	apperrors "eduflow-api/pkg/errors"
)

// GenerationEventRepository 生成台账仓储
type GenerationEventRepository struct {
	client *Client
}

// NewGenerationEventRepository 创建台账仓储
func NewGenerationEventRepository(client *Client) *GenerationEventRepository {
	return &GenerationEventRepository{client: client}
}

// Create 写入事件，主键冲突时忽略，重复投递不会产生重复记录
func (r *GenerationEventRepository) Create(ctx context.Context, event *entity.GenerationEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationEventRepository.Create")
	defer span.End()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	err := getDB(ctx, r.client.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(event).Error
	if err != nil {
		span.RecordError(err)
		return apperrors.ErrDatabase.WithDetail("create generation event").WithError(err)
	}
	return nil
}

// CreateBatch 在同一事务内写入多条事件
func (r *GenerationEventRepository) CreateBatch(ctx context.Context, events []*entity.GenerationEvent) error {
	return r.client.WithTransaction(ctx, func(ctx context.Context) error {
		for _, ev := range events {
			if err := r.Create(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByCourse 按发生时间倒序分页
func (r *GenerationEventRepository) ListByCourse(ctx context.Context, courseID string, filter *repository.GenerationEventFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationEvent], error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationEventRepository.ListByCourse")
	defer span.End()

	q := getDB(ctx, r.client.db).Model(&entity.GenerationEvent{}).Where("course_id = ?", courseID)
	if filter != nil {
		if filter.ChapterID != "" {
			q = q.Where("chapter_id = ?", filter.ChapterID)
		}
		if filter.Kind != "" {
			q = q.Where("kind = ?", filter.Kind)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if !filter.Since.IsZero() {
			q = q.Where("occurred_at >= ?", filter.Since)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithDetail("count generation events").WithError(err)
	}

	var events []*entity.GenerationEvent
	err := q.Order("occurred_at DESC").Order("id").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&events).Error
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithDetail("list generation events").WithError(err)
	}
	return repository.NewPagedResult(events, total, pagination), nil
}

// ListOrphanedCourses 最近一次导论生成失败的课程，最近失败的在前
func (r *GenerationEventRepository) ListOrphanedCourses(ctx context.Context, limit int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationEventRepository.ListOrphanedCourses")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	var ids []string
	err := getDB(ctx, r.client.db).Model(&entity.GenerationEvent{}).
		Select("course_id").
		Where("kind IN ?", []entity.GenerationEventKind{entity.EventIntroductionFailed, entity.EventIntroductionGenerated}).
		Group("course_id").
		Having("MAX(CASE WHEN kind = ? THEN occurred_at END) IS NULL OR MAX(CASE WHEN kind = ? THEN occurred_at END) > MAX(CASE WHEN kind = ? THEN occurred_at END)",
			entity.EventIntroductionGenerated, entity.EventIntroductionFailed, entity.EventIntroductionGenerated).
		Order("MAX(occurred_at) DESC").
		Limit(limit).
		Pluck("course_id", &ids).Error
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithDetail("list orphaned courses").WithError(err)
	}
	return ids, nil
}
