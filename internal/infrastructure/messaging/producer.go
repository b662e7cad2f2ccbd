package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eduflow-api/internal/domain/entity"
	apperrors "eduflow-api/pkg/errors"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 100000

// Producer 写入 Redis Stream
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建生产者，maxLen 为流的近似长度上限
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 发布消息，返回流内消息 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.ErrMessaging.WithDetail("encode message").WithError(err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", apperrors.ErrMessaging.WithDetail("publish to " + string(stream)).WithError(err)
	}

	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// PublishCourseEvent 发布课程台账事件，消息 ID 即事件 ID
func (p *Producer) PublishCourseEvent(ctx context.Context, ev *CourseEventMessage) (string, error) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	msg, err := NewMessage(ev.EventID, MessageTypeCourseEvent, ev.CourseID, ev)
	if err != nil {
		return "", err
	}
	msg.SessionID = ev.SessionID
	msg.SetMetadata("request_id", ev.RequestID)
	msg.SetMetadata("trace_id", ev.TraceID)
	return p.Publish(ctx, StreamCourseEvents, msg)
}

// PublishAuditLog 发布审计日志
func (p *Producer) PublishAuditLog(ctx context.Context, log *AuditLogMessage) (string, error) {
	id := log.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	msg, err := NewMessage(id, MessageTypeAudit, log.CourseID, log)
	if err != nil {
		return "", err
	}
	msg.SessionID = log.SessionID
	msg.SetMetadata("request_id", log.RequestID)
	msg.SetMetadata("trace_id", log.TraceID)
	return p.Publish(ctx, StreamAuditLog, msg)
}

// CourseEventMessage 课程写操作事件
type CourseEventMessage struct {
	EventID    string    `json:"event_id"`
	CourseID   string    `json:"course_id"`
	ChapterID  string    `json:"chapter_id,omitempty"`
	Kind       string    `json:"kind"`
	Directive  string    `json:"directive,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	RequestID  string    `json:"request_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCourseEventMessage 由台账记录构造消息
func NewCourseEventMessage(ev *entity.GenerationEvent) *CourseEventMessage {
	return &CourseEventMessage{
		EventID:    ev.ID,
		CourseID:   ev.CourseID,
		ChapterID:  ev.ChapterID,
		Kind:       string(ev.Kind),
		Directive:  ev.Directive,
		Status:     string(ev.Status),
		Error:      ev.Error,
		DurationMs: ev.DurationMs,
		RequestID:  ev.RequestID,
		SessionID:  ev.SessionID,
		Tags:       ev.Tags,
		OccurredAt: ev.OccurredAt,
	}
}

// ToEntity 转换为台账记录
func (m *CourseEventMessage) ToEntity() *entity.GenerationEvent {
	ev := entity.NewGenerationEvent(m.CourseID, entity.GenerationEventKind(m.Kind), entity.GenerationEventStatus(m.Status))
	if m.EventID != "" {
		ev.ID = m.EventID
	}
	ev.ChapterID = m.ChapterID
	ev.Directive = m.Directive
	ev.Error = m.Error
	ev.DurationMs = m.DurationMs
	ev.RequestID = m.RequestID
	ev.SessionID = m.SessionID
	if len(m.Tags) > 0 {
		ev.Tags = append(ev.Tags, m.Tags...)
	}
	if !m.OccurredAt.IsZero() {
		ev.OccurredAt = m.OccurredAt.UTC()
	}
	return ev
}

// DecodeCourseEvent 从消息中解析台账记录
func DecodeCourseEvent(msg *Message) (*entity.GenerationEvent, error) {
	var payload CourseEventMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return nil, apperrors.ErrMessaging.WithDetail("decode course event " + msg.ID).WithError(err)
	}
	if payload.EventID == "" {
		payload.EventID = msg.ID
	}
	if payload.CourseID == "" {
		payload.CourseID = msg.CourseID
	}
	if payload.CourseID == "" || payload.Kind == "" {
		return nil, apperrors.ErrMessaging.WithDetail("course event " + msg.ID + " misses course id or kind")
	}
	return payload.ToEntity(), nil
}

// AuditLogMessage 审计日志
type AuditLogMessage struct {
	UserID     string `json:"user_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	CourseID   string `json:"course_id,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Route      string `json:"route,omitempty"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	RequestID  string `json:"request_id"`
	TraceID    string `json:"trace_id,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}
