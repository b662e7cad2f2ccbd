package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// GenerationEventKind 生成台账事件类型
type GenerationEventKind string

const (
	EventCourseCreated         GenerationEventKind = "course_created"
	EventIntroductionGenerated GenerationEventKind = "introduction_generated"
	EventIntroductionFailed    GenerationEventKind = "introduction_failed"
	EventChapterGenerated      GenerationEventKind = "chapter_generated"
	EventSubchapterGenerated   GenerationEventKind = "subchapter_generated"
	EventChapterTransformed    GenerationEventKind = "chapter_transformed"
	EventContentUpdated        GenerationEventKind = "content_updated"
)

// GenerationEventStatus 事件结果
type GenerationEventStatus string

const (
	EventStatusSucceeded GenerationEventStatus = "succeeded"
	EventStatusFailed    GenerationEventStatus = "failed"
)

// GenerationEvent 课程生成台账记录
type GenerationEvent struct {
	ID         string                `json:"id" gorm:"type:varchar(36);primaryKey"`
	CourseID   string                `json:"course_id" gorm:"type:varchar(64);index;not null"`
	ChapterID  string                `json:"chapter_id,omitempty" gorm:"type:varchar(64);index"`
	Kind       GenerationEventKind   `json:"kind" gorm:"type:varchar(32);index;not null"`
	Directive  string                `json:"directive,omitempty" gorm:"type:varchar(32)"`
	Status     GenerationEventStatus `json:"status" gorm:"type:varchar(16);not null"`
	Error      string                `json:"error,omitempty" gorm:"type:text"`
	DurationMs int64                 `json:"duration_ms" gorm:"not null;default:0"`
	RequestID  string                `json:"request_id,omitempty" gorm:"type:varchar(64)"`
	SessionID  string                `json:"session_id,omitempty" gorm:"type:varchar(64)"`
	// Tags 以 {a,b} 数组字面量存为 text，sqlite 与 postgres 共用一套结构
	Tags       pq.StringArray `json:"tags,omitempty" gorm:"type:text"`
	OccurredAt time.Time      `json:"occurred_at" gorm:"index;not null"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (GenerationEvent) TableName() string {
	return "generation_events"
}

// NewGenerationEvent 创建台账记录
func NewGenerationEvent(courseID string, kind GenerationEventKind, status GenerationEventStatus) *GenerationEvent {
	return &GenerationEvent{
		ID:         uuid.NewString(),
		CourseID:   courseID,
		Kind:       kind,
		Status:     status,
		Tags:       pq.StringArray{},
		OccurredAt: time.Now().UTC(),
	}
}

// Failed 是否为失败事件
func (e *GenerationEvent) Failed() bool {
	return e.Status == EventStatusFailed
}
