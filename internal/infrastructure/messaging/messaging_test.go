package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/domain/entity"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(10))
}

func TestPublishCourseEvent(t *testing.T) {
	rdb := newRedis(t)
	p := NewProducer(rdb, 0)

	ev := &CourseEventMessage{CourseID: "c1", Kind: string(entity.EventChapterGenerated), Status: "succeeded", RequestID: "req-1"}
	_, err := p.PublishCourseEvent(context.Background(), ev)
	require.NoError(t, err)
	require.NotEmpty(t, ev.EventID)

	entries, err := rdb.XRange(context.Background(), string(StreamCourseEvents), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &msg))
	assert.Equal(t, ev.EventID, msg.ID)
	assert.Equal(t, MessageTypeCourseEvent, msg.Type)
	assert.Equal(t, "req-1", msg.GetMetadata("request_id"))

	decoded, err := DecodeCourseEvent(&msg)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.ID)
	assert.Equal(t, entity.EventChapterGenerated, decoded.Kind)
	assert.Equal(t, "c1", decoded.CourseID)
}

func TestDecodeCourseEventRejectsIncomplete(t *testing.T) {
	msg, err := NewMessage("m1", MessageTypeCourseEvent, "", map[string]string{"status": "failed"})
	require.NoError(t, err)

	_, err = DecodeCourseEvent(msg)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMessagingError))
}

func TestEventFromMutation(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-9")
	ctx = logger.WithContext(ctx, logger.SessionIDKey, "sess-1")

	ok := EventFromMutation(ctx, course.Mutation{CourseID: "c1", ChapterID: "ch1", Kind: entity.EventChapterTransformed, Directive: "expand", Duration: 1500 * time.Millisecond})
	assert.Equal(t, "succeeded", ok.Status)
	assert.Equal(t, int64(1500), ok.DurationMs)
	assert.Equal(t, "req-9", ok.RequestID)
	assert.Equal(t, "sess-1", ok.SessionID)
	assert.Contains(t, ok.Tags, "directive:expand")

	failed := EventFromMutation(ctx, course.Mutation{
		CourseID: "c1",
		Kind:     entity.EventIntroductionFailed,
		Err:      apperrors.ErrUpstreamTimeout,
	})
	assert.Equal(t, "failed", failed.Status)
	assert.Contains(t, failed.Error, "timeout")
	assert.Contains(t, failed.Tags, "code:"+string(apperrors.CodeUpstreamTimeout))

	plain := EventFromMutation(ctx, course.Mutation{CourseID: "c1", Kind: entity.EventContentUpdated, Err: errors.New("disk full")})
	assert.Equal(t, "disk full", plain.Error)
}

func TestEventPublisherWritesStream(t *testing.T) {
	rdb := newRedis(t)
	pub := NewEventPublisher(NewProducer(rdb, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.CourseMutated(ctx, course.Mutation{CourseID: "c1", Kind: entity.EventCourseCreated})

	n, err := rdb.XLen(context.Background(), string(StreamCourseEvents)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConsumerDeliversToHandler(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamCourseEvents,
		Group:        ConsumerGroupLedger,
		ConsumerName: "test-1",
		BlockTimeout: 20 * time.Millisecond,
	})
	got := make(chan *entity.GenerationEvent, 1)
	c.RegisterHandler(MessageTypeCourseEvent, func(ctx context.Context, msg *Message) error {
		ev, err := DecodeCourseEvent(msg)
		if err != nil {
			return err
		}
		got <- ev
		return nil
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()
	require.Error(t, c.Start(ctx))

	_, err := NewProducer(rdb, 0).PublishCourseEvent(ctx, &CourseEventMessage{CourseID: "c7", Kind: "course_created", Status: "succeeded"})
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, "c7", ev.CourseID)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}

	assert.Eventually(t, func() bool {
		p, err := rdb.XPending(ctx, string(StreamCourseEvents), string(ConsumerGroupLedger)).Result()
		return err == nil && p.Count == 0
	}, time.Second, 20*time.Millisecond)
}

func TestConsumerMovesExhaustedMessageToDLQ(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamCourseEvents,
		Group:        ConsumerGroupLedger,
		ConsumerName: "test-1",
		BlockTimeout: 20 * time.Millisecond,
		RetryLimit:   1,
	})
	var calls atomic.Int32
	c.RegisterHandler(MessageTypeCourseEvent, func(ctx context.Context, msg *Message) error {
		calls.Add(1)
		return errors.New("postgres down")
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	_, err := NewProducer(rdb, 0).PublishCourseEvent(ctx, &CourseEventMessage{CourseID: "c1", Kind: "course_created", Status: "succeeded"})
	require.NoError(t, err)

	dlq := StreamCourseEvents.DLQStream()
	assert.Eventually(t, func() bool {
		n, err := rdb.XLen(ctx, dlq).Result()
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())

	entries, err := rdb.XRange(ctx, dlq, "-", "+").Result()
	require.NoError(t, err)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &entry))
	assert.Equal(t, "postgres down", entry.Error)
	assert.Equal(t, string(StreamCourseEvents), entry.OriginalStream)
}

func TestConsumerAcksUnknownTypes(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{Stream: StreamAuditLog, Group: "cg-test", ConsumerName: "t", BlockTimeout: 20 * time.Millisecond})
	seen := make(chan string, 1)
	c.RegisterHandler("marker", func(ctx context.Context, msg *Message) error {
		seen <- msg.ID
		return nil
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	p := NewProducer(rdb, 0)
	_, err := p.PublishAuditLog(ctx, &AuditLogMessage{Method: "GET", Path: "/v1/courses", Status: 200, RequestID: "r1"})
	require.NoError(t, err)
	marker, err := NewMessage("m-2", "marker", "", struct{}{})
	require.NoError(t, err)
	_, err = p.Publish(ctx, StreamAuditLog, marker)
	require.NoError(t, err)

	select {
	case id := <-seen:
		assert.Equal(t, "m-2", id)
	case <-time.After(2 * time.Second):
		t.Fatal("marker was not delivered")
	}

	assert.Eventually(t, func() bool {
		p, err := rdb.XPending(ctx, string(StreamAuditLog), "cg-test").Result()
		return err == nil && p.Count == 0
	}, time.Second, 20*time.Millisecond)
}
