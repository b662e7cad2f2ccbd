// Package ledger 课程生成台账：记录每次写操作的结果，并找出缺少导论的课程
package ledger

import (
	"context"
	"time"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

const recordTimeout = 3 * time.Second

// Service 台账服务
type Service struct {
	events repository.GenerationEventRepository
}

// NewService 创建台账服务
func NewService(events repository.GenerationEventRepository) *Service {
	return &Service{events: events}
}

// Record 写入一条事件
func (s *Service) Record(ctx context.Context, ev *entity.GenerationEvent) error {
	if ev == nil || ev.CourseID == "" || ev.Kind == "" {
		return apperrors.ErrInvalidParam.WithDetail("generation event requires course id and kind")
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return err
	}
	logger.Debug(ctx, "generation event recorded", "event_id", ev.ID, "kind", ev.Kind, "status", ev.Status)
	return nil
}

// RecordBatch 批量写入，用于死信回放
func (s *Service) RecordBatch(ctx context.Context, events []*entity.GenerationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.events.CreateBatch(ctx, events)
}

// CourseMutated 未启用事件流时直接写台账
func (s *Service) CourseMutated(ctx context.Context, m course.Mutation) {
	ev := FromMutation(ctx, m)
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.Record(recCtx, ev); err != nil {
		logger.Error(ctx, "record generation event failed", err, "kind", ev.Kind)
	}
}

// History 课程的事件历史
func (s *Service) History(ctx context.Context, courseID string, filter *repository.GenerationEventFilter, p repository.Pagination) (*repository.PagedResult[*entity.GenerationEvent], error) {
	if courseID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("course id is required")
	}
	return s.events.ListByCourse(ctx, courseID, filter, p)
}

// Orphaned 已创建但导论生成失败的课程
func (s *Service) Orphaned(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.events.ListOrphanedCourses(ctx, limit)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// FromMutation 由写操作构造台账记录
func FromMutation(ctx context.Context, m course.Mutation) *entity.GenerationEvent {
	status := entity.EventStatusSucceeded
	if m.Failed() {
		status = entity.EventStatusFailed
	}
	ev := entity.NewGenerationEvent(m.CourseID, m.Kind, status)
	ev.ChapterID = m.ChapterID
	ev.Directive = m.Directive
	ev.DurationMs = m.Duration.Milliseconds()
	ev.RequestID = logger.StringFromContext(ctx, logger.RequestIDKey)
	ev.SessionID = logger.StringFromContext(ctx, logger.SessionIDKey)
	if m.Failed() {
		ev.Error = m.Err.Error()
		if apperrors.IsAppError(m.Err) {
			ae := apperrors.AsAppError(m.Err)
			ev.Error = ae.UserMessage()
			ev.Tags = append(ev.Tags, "code:"+string(ae.Code))
		}
	}
	if m.Directive != "" {
		ev.Tags = append(ev.Tags, "directive:"+m.Directive)
	}
	return ev
}
