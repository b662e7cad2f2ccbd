package messaging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/ledger"
	"eduflow-api/pkg/logger"
)

const publishTimeout = 2 * time.Second

// EventPublisher 把课程写操作发布到台账流
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher 创建发布者
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// CourseMutated 实现 course.MutationObserver，发布失败只记录日志
func (p *EventPublisher) CourseMutated(ctx context.Context, m course.Mutation) {
	ev := EventFromMutation(ctx, m)

	// 请求结束后仍需完成发布
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := p.producer.PublishCourseEvent(pubCtx, ev); err != nil {
		logger.Error(ctx, "publish course event failed", err, "kind", ev.Kind, "event_id", ev.EventID)
	}
}

// EventFromMutation 由写操作构造事件
func EventFromMutation(ctx context.Context, m course.Mutation) *CourseEventMessage {
	msg := NewCourseEventMessage(ledger.FromMutation(ctx, m))
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.TraceID = sc.TraceID().String()
	}
	return msg
}
