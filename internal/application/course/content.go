package course

import (
	"context"
	"strings"
	"time"

	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// ContentEdit 章节内容修改请求
type ContentEdit struct {
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
	IsFullEdit bool   `json:"isFullEdit"`
	// Range 选区定位时得到的偏移
	Range *editor.Range `json:"range,omitempty"`
}

// ContentUpdate 内容修改结果，Replaced 为 false 时未写回存储服务
type ContentUpdate struct {
	Chapter  *entity.Chapter `json:"chapter"`
	Replaced bool            `json:"replaced"`
	Mode     editor.EditMode `json:"mode"`
}

// UpdateChapterContent 读取章节当前内容，整体替换或替换选区后写回
//
// 非整体编辑只替换第一处匹配；找不到原文时内容保持不变。
func (s *Service) UpdateChapterContent(ctx context.Context, courseID, chapterID string, edit ContentEdit) Result[*ContentUpdate] {
	return run(ctx, "update_content", func(ctx context.Context) (*ContentUpdate, error) {
		if edit.IsFullEdit && strings.TrimSpace(edit.NewContent) == "" {
			return nil, apperrors.ErrValidationFailed.WithDetail("chapter content cannot be empty")
		}
		return s.applyEdit(ctx, courseID, chapterID, editor.Edit{
			Old:      edit.OldContent,
			New:      edit.NewContent,
			FullEdit: edit.IsFullEdit,
			At:       edit.Range,
		}, "")
	})
}

// InsertImagePlaceholder 在选区之后插入图片占位块，无选区时追加到末尾
func (s *Service) InsertImagePlaceholder(ctx context.Context, courseID, chapterID, selection string, at *editor.Range, description string) Result[*ContentUpdate] {
	return run(ctx, "insert_image", func(ctx context.Context) (*ContentUpdate, error) {
		description = strings.TrimSpace(description)
		if len([]rune(description)) < 3 {
			return nil, apperrors.ErrValidationFailed.WithDetail("image description must have at least 3 characters")
		}
		block := editor.ImagePlaceholder(description)
		if selection == "" {
			return s.applyWith(ctx, courseID, chapterID, "image", func(content string) editor.Edit {
				return editor.Edit{New: content + block, FullEdit: true}
			})
		}
		return s.applyEdit(ctx, courseID, chapterID, editor.Edit{
			Old: selection,
			New: selection + block,
			At:  at,
		}, "image")
	})
}

// SaveDraft 将整体编辑的草稿转换回 HTML 并保存
func (s *Service) SaveDraft(ctx context.Context, courseID, chapterID, draft string) Result[*ContentUpdate] {
	return run(ctx, "save_draft", func(ctx context.Context) (*ContentUpdate, error) {
		content := editor.FromDraft(draft)
		if strings.TrimSpace(content) == "" {
			return nil, apperrors.ErrValidationFailed.WithDetail("draft is empty")
		}
		return s.applyEdit(ctx, courseID, chapterID, editor.Edit{New: content, FullEdit: true}, "draft")
	})
}

func (s *Service) applyEdit(ctx context.Context, courseID, chapterID string, e editor.Edit, directive string) (*ContentUpdate, error) {
	return s.applyWith(ctx, courseID, chapterID, directive, func(string) editor.Edit { return e })
}

// applyWith 读取最新章节内容，由 build 生成修改，仅在内容变化时写回
func (s *Service) applyWith(ctx context.Context, courseID, chapterID, directive string, build func(content string) editor.Edit) (*ContentUpdate, error) {
	ctx = logger.WithContext(ctx, logger.CourseIDKey, courseID)
	ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapterID)

	ch, err := s.courseChapter(ctx, courseID, chapterID)
	if err != nil {
		return nil, err
	}
	res := editor.Apply(ch.Content, build(ch.Content))
	if !res.Replaced {
		logger.Info(ctx, "chapter content left unchanged", "mode", res.Mode)
		return &ContentUpdate{Chapter: ch, Mode: res.Mode}, nil
	}

	start := time.Now()
	updated, err := s.courses.UpdateChapter(ctx, ch.ID, &repository.ChapterPatch{Content: &res.Content})
	m := Mutation{
		CourseID:  courseID,
		ChapterID: ch.ID,
		Kind:      entity.EventContentUpdated,
		Directive: directive,
		Duration:  time.Since(start),
	}
	if m.Directive == "" {
		m.Directive = string(res.Mode)
	}
	if err != nil {
		m.Err = err
		s.notify(ctx, m)
		return nil, err
	}
	// 存储服务可能只返回确认信息
	if updated == nil || updated.Content == "" {
		merged := *ch
		merged.Content = res.Content
		updated = &merged
	}
	s.notify(ctx, m)
	return &ContentUpdate{Chapter: updated, Replaced: true, Mode: res.Mode}, nil
}
