package course

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/service"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// TransformInput 针对选区的续写请求
type TransformInput struct {
	CourseID  string `json:"courseId" validate:"required"`
	ChapterID string `json:"chapterId" validate:"required"`
	// Selection 选中的 HTML 或纯文本
	Selection string `json:"selection"`
	// Instructions 用户补充说明，可为空
	Instructions string `json:"instructions"`
}

// 各指令的提示语，{selection} 为选中文本
var directivePrompts = map[entity.ContinueType]string{
	entity.ContinueExpand:         "Expand the following passage with more depth, detail and explanation, keeping the tone of the chapter",
	entity.ContinueSimplify:       "Rewrite the following passage in simpler, more accessible language without losing the key ideas",
	entity.ContinueAssess:         "Write assessment questions, with answers, that check understanding of the following passage",
	entity.ContinueExemplify:      "Create a concrete, practical example that illustrates the following passage",
	entity.ContinueAddSection:     "Add a new section to the chapter",
	entity.ContinueAddActivities:  "Add learning activities to the chapter",
	entity.ContinueAddAssessments: "Add assessments to the chapter",
}

// needsSelection 这些指令必须附带选区
func needsSelection(t entity.ContinueType) bool {
	switch t {
	case entity.ContinueExpand, entity.ContinueSimplify, entity.ContinueAssess, entity.ContinueExemplify:
		return true
	}
	return false
}

// Directive 把选区与补充说明组合为发往生成服务的自然语言指令
func Directive(t entity.ContinueType, selection, instructions string) string {
	var b strings.Builder
	b.WriteString(directivePrompts[t])
	if text := editor.PlainText(selection); text != "" {
		b.WriteString(":\n\n\"")
		b.WriteString(text)
		b.WriteString("\"")
	} else {
		b.WriteString(".")
	}
	if extra := strings.TrimSpace(instructions); extra != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(extra)
	}
	return b.String()
}

// Transform 以指定指令续写章节
func (s *Service) Transform(ctx context.Context, directive entity.ContinueType, in TransformInput) Result[*entity.Chapter] {
	return run(ctx, "transform_"+string(directive), func(ctx context.Context) (*entity.Chapter, error) {
		if !directive.Valid() {
			return nil, apperrors.ErrValidationFailed.WithDetail("unknown continue type: " + string(directive))
		}
		if err := check("transform", in); err != nil {
			return nil, err
		}
		if needsSelection(directive) {
			if err := editor.ValidateSelection(in.Selection, s.selection); err != nil {
				return nil, err
			}
		}
		ctx = logger.WithContext(ctx, logger.CourseIDKey, in.CourseID)
		ctx = logger.WithContext(ctx, logger.ChapterIDKey, in.ChapterID)

		start := time.Now()
		ch, err := s.generator.ContinueChapter(ctx, &service.ContinueChapterRequest{
			ChapterID:         in.ChapterID,
			ContinueType:      directive,
			AdditionalContext: Directive(directive, in.Selection, in.Instructions),
		})
		m := Mutation{
			CourseID:  in.CourseID,
			ChapterID: in.ChapterID,
			Kind:      entity.EventChapterTransformed,
			Directive: string(directive),
			Duration:  time.Since(start),
		}
		if err != nil {
			m.Err = err
			s.notify(ctx, m)
			return nil, err
		}
		if ch.ID == "" {
			ch.ID = in.ChapterID
		}
		if ch.CourseID == "" {
			ch.CourseID = in.CourseID
		}
		s.notify(ctx, m)
		return ch, nil
	})
}

// Expand 扩写选区
func (s *Service) Expand(ctx context.Context, in TransformInput) Result[*entity.Chapter] {
	return s.Transform(ctx, entity.ContinueExpand, in)
}

// Simplify 简化选区
func (s *Service) Simplify(ctx context.Context, in TransformInput) Result[*entity.Chapter] {
	return s.Transform(ctx, entity.ContinueSimplify, in)
}

// GenerateQuestion 针对选区出题
func (s *Service) GenerateQuestion(ctx context.Context, in TransformInput) Result[*entity.Chapter] {
	return s.Transform(ctx, entity.ContinueAssess, in)
}

// CreateExample 为选区生成示例
func (s *Service) CreateExample(ctx context.Context, in TransformInput) Result[*entity.Chapter] {
	return s.Transform(ctx, entity.ContinueExemplify, in)
}

// ParseDirective 解析 URL 或表单中的指令名，兼容 question/example 别名
func ParseDirective(name string) (entity.ContinueType, error) {
	switch t := entity.ContinueType(strings.ToLower(strings.TrimSpace(name))); t {
	case "question":
		return entity.ContinueAssess, nil
	case "example":
		return entity.ContinueExemplify, nil
	default:
		if t.Valid() {
			return t, nil
		}
	}
	return "", apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("unknown directive %q", name))
}
