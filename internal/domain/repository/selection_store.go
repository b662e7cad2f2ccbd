package repository

import "context"

// SelectionStore 按会话与课程保存活动章节
type SelectionStore interface {
	// GetActiveChapter 读取活动章节，不存在时返回空字符串
	GetActiveChapter(ctx context.Context, sessionID, courseID string) (string, error)

	// SetActiveChapter 保存活动章节
	SetActiveChapter(ctx context.Context, sessionID, courseID, chapterID string) error

	// ClearActiveChapter 清除活动章节
	ClearActiveChapter(ctx context.Context, sessionID, courseID string) error
}
