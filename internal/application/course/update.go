package course

import (
	"context"
	"time"

	"eduflow-api/internal/application/normalize"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// patchInput 课程部分更新的校验视图，nil 字段跳过
type patchInput struct {
	Title              *string        `json:"title" validate:"omitnil,min=5"`
	Description        *string        `json:"description" validate:"omitnil,min=20"`
	Subject            *string        `json:"subject" validate:"omitnil,min=3"`
	Template           *string        `json:"template" validate:"omitnil,min=10"`
	Philosophy         *string        `json:"philosophy" validate:"omitnil,min=10"`
	ChapterOutlines    []outlineInput `json:"chapterOutlines" validate:"omitempty,unique=Number,dive"`
	SubchapterTemplate *templateInput `json:"subchapterTemplate" validate:"omitnil"`
}

// UpdateCourse 部分更新课程元数据、大纲或子章节模板
func (s *Service) UpdateCourse(ctx context.Context, courseID string, patch *repository.CoursePatch) Result[*entity.Course] {
	return run(ctx, "update_course", func(ctx context.Context) (*entity.Course, error) {
		if patch == nil {
			return nil, apperrors.ErrValidationFailed.WithDetail("empty update")
		}
		if patch.Status != nil && *patch.Status != entity.CourseStatusDraft &&
			*patch.Status != entity.CourseStatusPublished && *patch.Status != entity.CourseStatusArchived {
			return nil, apperrors.ErrValidationFailed.WithDetail("unknown course status: " + string(*patch.Status))
		}
		if patch.ChapterOutlines != nil {
			patch.ChapterOutlines = normalize.CanonicalOutlines(patch.ChapterOutlines)
		}

		in := &patchInput{
			Title:       patch.Title,
			Description: patch.Description,
			Subject:     patch.Subject,
			Template:    patch.Template,
			Philosophy:  patch.Philosophy,
		}
		for _, o := range patch.ChapterOutlines {
			in.ChapterOutlines = append(in.ChapterOutlines, outlineInput(o))
		}
		if t := patch.SubchapterTemplate; t != nil {
			in.SubchapterTemplate = &templateInput{
				Structure:              t.Structure,
				MinSubchapters:         t.MinSubchapters,
				MaxSubchapters:         t.MaxSubchapters,
				WordCountPerSubchapter: t.WordCountPerSubchapter,
			}
		}
		if err := check("course_patch", in); err != nil {
			return nil, err
		}

		ctx = logger.WithContext(ctx, logger.CourseIDKey, courseID)
		start := time.Now()
		updated, err := s.courses.Update(ctx, courseID, patch)
		if err != nil {
			return nil, err
		}
		if updated.ID == "" {
			updated.ID = courseID
		}
		s.notify(ctx, Mutation{
			CourseID:  courseID,
			Kind:      entity.EventContentUpdated,
			Directive: "course",
			Duration:  time.Since(start),
		})
		return updated, nil
	})
}
