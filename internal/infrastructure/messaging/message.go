// Package messaging 基于 Redis Streams 的课程事件队列
package messaging

import (
	"encoding/json"
	"time"
)

// 消息类型
const (
	MessageTypeCourseEvent = "course_event"
	MessageTypeAudit       = "audit"
)

// Message 队列消息信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	CourseID  string            `json:"course_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建消息
func NewMessage(id, msgType, courseID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		CourseID:  courseID,
		Payload:   raw,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据，空值忽略
func (m *Message) SetMetadata(key, value string) {
	if value == "" {
		return
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解析载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream 流名称
type Stream string

const (
	StreamCourseEvents Stream = "stream:course:events"
	StreamAuditLog     Stream = "stream:audit:log"
)

// DLQStream 对应的死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

const (
	ConsumerGroupLedger ConsumerGroup = "cg-ledger-writer"
)

// WithPrefix 追加部署前缀，便于多环境共用一个 Redis
func (g ConsumerGroup) WithPrefix(prefix string) ConsumerGroup {
	if prefix == "" {
		return g
	}
	return ConsumerGroup(prefix + "-" + string(g))
}

// BackoffConfig 重试退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 第 retryCount 次重试前的等待时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	d := c.Initial
	for i := 0; i < retryCount; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.Max {
			return c.Max
		}
	}
	return d
}
