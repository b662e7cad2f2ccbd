package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/metrics"
)

// MessageHandler 消息处理函数，返回错误时消息留在 pending 等待重试
type MessageHandler func(ctx context.Context, msg *Message) error

var errRetriesExhausted = errors.New("message exceeded max retries")

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// Consumer 消费者组成员
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	// reclaimIdle 其他成员的消息空闲多久后接管
	reclaimIdle time.Duration

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewConsumer 创建消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return &Consumer{
		client:      client,
		cfg:         cfg,
		reclaimIdle: max(5*time.Minute, cfg.Backoff.Max*2),
		handlers:    make(map[string]MessageHandler),
	}
}

// RegisterHandler 注册消息处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 创建消费者组并启动消费循环
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("consumer %s already running", c.cfg.ConsumerName)
	}

	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run(ctx, c.stopCh, c.doneCh)
	return nil
}

// Stop 停止消费循环并等待当前批次结束
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.doneCh
	c.mu.Unlock()
	<-done
}

func (c *Consumer) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	logger.Info(ctx, "consumer started",
		"stream", c.cfg.Stream,
		"group", c.cfg.Group,
		"consumer", c.cfg.ConsumerName,
	)

	lastClaim := time.Now().Add(-c.cfg.ClaimInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "consumer stopped", "reason", ctx.Err().Error())
			return
		case <-stop:
			logger.Info(ctx, "consumer stopped")
			return
		default:
		}

		c.processDuePending(ctx)
		if time.Since(lastClaim) >= c.cfg.ClaimInterval {
			c.reclaimStale(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.cfg.Group),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{string(c.cfg.Stream), ">"},
			Count:    10,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error(ctx, "read from stream failed", err, "stream", c.cfg.Stream)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, xmsg := range s.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

func decodeStreamMessage(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no data field", xmsg.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", xmsg.ID, err)
	}
	return &msg, nil
}

func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.cfg.Stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, err := decodeStreamMessage(xmsg)
	if err != nil {
		// 无法解析的消息重试也没有意义
		logger.Error(ctx, "invalid stream message", err)
		c.record("invalid")
		c.ack(ctx, xmsg.ID)
		return
	}

	if msg.CourseID != "" {
		ctx = logger.WithContext(ctx, logger.CourseIDKey, msg.CourseID)
	}
	if msg.SessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, msg.SessionID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("course_id", msg.CourseID),
	)

	c.mu.RLock()
	handler, ok := c.handlers[msg.Type]
	c.mu.RUnlock()
	if !ok {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		c.record("skipped")
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "message handler failed", err, "message_id", msg.ID)
		c.handleFailure(ctx, xmsg.ID, msg, err)
		return
	}
	c.record("success")
	c.ack(ctx, xmsg.ID)
}

func (c *Consumer) record(status string) {
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), status).Inc()
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), id).Err(); err != nil {
		logger.Error(ctx, "ack message failed", err, "message_id", id)
	}
}

func (c *Consumer) handleFailure(ctx context.Context, streamID string, msg *Message, cause error) {
	retries := c.deliveryCount(ctx, streamID)
	if retries >= c.cfg.RetryLimit {
		logger.Warn(ctx, "message moved to DLQ", "message_id", msg.ID, "retry_count", retries)
		c.moveToDLQ(ctx, msg, cause)
		c.ack(ctx, streamID)
		return
	}
	c.record("retry")
	logger.Info(ctx, "message left pending for retry", "message_id", msg.ID, "retry_count", retries)
}

func (c *Consumer) deliveryCount(ctx context.Context, streamID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.cfg.Stream),
		Group:  string(c.cfg.Group),
		Start:  streamID,
		End:    streamID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// DLQEntry 死信记录
type DLQEntry struct {
	OriginalStream string   `json:"original_stream"`
	Data           *Message `json:"data"`
	Error          string   `json:"error"`
	FailedAt       int64    `json:"failed_at"`
}

func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, cause error) {
	entry := DLQEntry{
		OriginalStream: string(c.cfg.Stream),
		Data:           msg,
		Error:          cause.Error(),
		FailedAt:       time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Error(ctx, "encode DLQ entry failed", err, "message_id", msg.ID)
		return
	}
	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: map[string]any{"data": string(data)},
	}).Err()
	if err != nil {
		logger.Error(ctx, "write DLQ failed", err, "message_id", msg.ID)
		return
	}
	c.record("dead_letter")
}

// claim 把 pending 消息转到本消费者名下
func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		logger.Error(ctx, "claim pending message failed", err, "message_id", id)
		return nil
	}
	return claimed
}

// deadLetter 超过重试上限的消息直接进入死信
func (c *Consumer) deadLetter(ctx context.Context, claimed []redis.XMessage) {
	for _, xmsg := range claimed {
		if msg, err := decodeStreamMessage(xmsg); err == nil {
			c.moveToDLQ(ctx, msg, errRetriesExhausted)
		}
		c.ack(ctx, xmsg.ID)
	}
}

func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Error(ctx, "query pending messages failed", err)
		}
		return nil
	}
	return pending
}

// processDuePending 按退避时间重投本消费者的失败消息
func (c *Consumer) processDuePending(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		retries := int(p.RetryCount)
		if retries >= c.cfg.RetryLimit {
			c.deadLetter(ctx, c.claim(ctx, p.ID, 0))
			continue
		}
		backoff := c.cfg.Backoff.CalculateBackoff(retries)
		if p.Idle < backoff {
			continue
		}
		for _, xmsg := range c.claim(ctx, p.ID, backoff) {
			c.processMessage(ctx, xmsg)
		}
	}
}

// reclaimStale 接管已失联消费者的消息
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if p.Consumer == c.cfg.ConsumerName || p.Idle < c.reclaimIdle {
			continue
		}
		claimed := c.claim(ctx, p.ID, c.reclaimIdle)
		if int(p.RetryCount) >= c.cfg.RetryLimit {
			c.deadLetter(ctx, claimed)
			continue
		}
		for _, xmsg := range claimed {
			c.processMessage(ctx, xmsg)
		}
	}
}

// MonitorDLQ 定期检查死信长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, interval time.Duration, alertThreshold int64) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dlq := c.cfg.Stream.DLQStream()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.client.XLen(ctx, dlq).Result()
			if err != nil {
				continue
			}
			if n > alertThreshold {
				logger.Warn(ctx, "DLQ has pending messages", "stream", dlq, "count", n)
			}
		}
	}
}
