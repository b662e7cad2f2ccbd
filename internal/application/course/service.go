package course

import (
	"context"
	"time"

	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/domain/service"
	"eduflow-api/pkg/logger"
)

// Mutation 一次成功或失败的写操作，供缓存、工作区与台账订阅
type Mutation struct {
	CourseID  string
	ChapterID string
	Kind      entity.GenerationEventKind
	Directive string
	Err       error
	Duration  time.Duration
}

// Failed 是否为失败记录
func (m Mutation) Failed() bool {
	return m.Err != nil
}

// MutationObserver 写操作订阅者
type MutationObserver interface {
	CourseMutated(ctx context.Context, m Mutation)
}

// ObserverFunc 函数适配器
type ObserverFunc func(ctx context.Context, m Mutation)

// CourseMutated 实现 MutationObserver
func (f ObserverFunc) CourseMutated(ctx context.Context, m Mutation) {
	f(ctx, m)
}

// Observers 订阅者集合
type Observers []MutationObserver

// Options 动作层参数
type Options struct {
	Selection editor.Limits
}

// Service 课程动作层
type Service struct {
	courses   repository.CourseRepository
	generator service.ContentGenerator
	observers Observers
	selection editor.Limits
}

// NewService 创建动作层
func NewService(courses repository.CourseRepository, generator service.ContentGenerator, opts Options, observers Observers) *Service {
	limits := opts.Selection
	if limits.Min <= 0 && limits.Max <= 0 {
		limits = editor.DefaultLimits
	}
	return &Service{
		courses:   courses,
		generator: generator,
		observers: observers,
		selection: limits,
	}
}

// Observe 追加订阅者
func (s *Service) Observe(o MutationObserver) {
	s.observers = append(s.observers, o)
}

// notify 通知全部订阅者，单个订阅者 panic 不影响其余订阅者
func (s *Service) notify(ctx context.Context, m Mutation) {
	for _, o := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn(ctx, "mutation observer panicked", "course_id", m.CourseID, "panic", r)
				}
			}()
			o.CourseMutated(ctx, m)
		}()
	}
}

// loadCourse 读取课程并附带日志上下文
func (s *Service) loadCourse(ctx context.Context, courseID string) (context.Context, *entity.Course, error) {
	ctx = logger.WithContext(ctx, logger.CourseIDKey, courseID)
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, c, nil
}
