package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduflow-api/internal/domain/repository"
)

// SelectionStore 按会话保存每门课程的活动章节
//
// 键为 workspace:{session}:activeChapter_{courseId}，值为 JSON 编码的章节 ID。
type SelectionStore struct {
	client *Client
	ttl    time.Duration
}

var _ repository.SelectionStore = (*SelectionStore)(nil)

// NewSelectionStore 创建活动章节存储，ttl 为 0 表示不过期
func NewSelectionStore(client *Client, ttl time.Duration) *SelectionStore {
	return &SelectionStore{client: client, ttl: ttl}
}

// SelectionKey 活动章节键
func SelectionKey(sessionID, courseID string) string {
	return fmt.Sprintf("workspace:%s:activeChapter_%s", sessionID, courseID)
}

// GetActiveChapter 读取活动章节
func (s *SelectionStore) GetActiveChapter(ctx context.Context, sessionID, courseID string) (string, error) {
	ctx, span := tracer.Start(ctx, "selection.Get")
	defer span.End()

	raw, err := s.client.rdb.Get(ctx, SelectionKey(sessionID, courseID)).Bytes()
	if err != nil {
		if IsNil(err) {
			return "", nil
		}
		span.RecordError(err)
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		// 非法值视为未选择
		return "", nil
	}
	return id, nil
}

// SetActiveChapter 保存活动章节
func (s *SelectionStore) SetActiveChapter(ctx context.Context, sessionID, courseID, chapterID string) error {
	ctx, span := tracer.Start(ctx, "selection.Set")
	defer span.End()

	raw, err := json.Marshal(chapterID)
	if err != nil {
		return err
	}
	return s.client.rdb.Set(ctx, SelectionKey(sessionID, courseID), raw, s.ttl).Err()
}

// ClearActiveChapter 清除活动章节
func (s *SelectionStore) ClearActiveChapter(ctx context.Context, sessionID, courseID string) error {
	ctx, span := tracer.Start(ctx, "selection.Clear")
	defer span.End()

	return s.client.rdb.Del(ctx, SelectionKey(sessionID, courseID)).Err()
}
