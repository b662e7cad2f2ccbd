package course

import (
	"context"
	"fmt"
	"time"

	"eduflow-api/internal/application/normalize"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/service"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// IntroductionTitle 导论章节标题
const IntroductionTitle = "Introduction"

// CreateCourseOutput 创建课程结果
type CreateCourseOutput struct {
	Course       *entity.Course  `json:"course"`
	Introduction *entity.Chapter `json:"introduction"`
}

// CreateCourse 校验并创建课程，随后生成导论
//
// 校验失败不会访问任何外部服务。导论生成失败时课程保留，
// 返回的错误包含课程 ID，可通过 GenerateIntroduction 重试。
func (s *Service) CreateCourse(ctx context.Context, raw []byte) Result[*CreateCourseOutput] {
	return run(ctx, "create_course", func(ctx context.Context) (*CreateCourseOutput, error) {
		draft := normalize.Course(raw)
		if err := check("course", newCourseInput(draft)); err != nil {
			return nil, err
		}
		draft.Status = entity.CourseStatusDraft

		start := time.Now()
		created, err := s.courses.Create(ctx, draft)
		if err != nil {
			return nil, err
		}
		course := withDraft(created, draft)
		ctx = logger.WithContext(ctx, logger.CourseIDKey, course.ID)
		s.notify(ctx, Mutation{
			CourseID: course.ID,
			Kind:     entity.EventCourseCreated,
			Duration: time.Since(start),
		})
		logger.Info(ctx, "course created", "outlines", len(course.ChapterOutlines))

		intro, err := s.introduce(ctx, course)
		if err != nil {
			return nil, introductionFailed(course.ID, err)
		}
		course.Chapters = append(course.Chapters, intro)
		return &CreateCourseOutput{Course: course, Introduction: intro}, nil
	})
}

// GenerateIntroduction 为已存在但缺少导论的课程重新生成导论
func (s *Service) GenerateIntroduction(ctx context.Context, courseID string) Result[*entity.Chapter] {
	return run(ctx, "generate_introduction", func(ctx context.Context) (*entity.Chapter, error) {
		ctx, course, err := s.loadCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if _, exists := course.Introduction(); exists {
			return nil, apperrors.ErrConflict.WithDetail("course already has an introduction")
		}
		if len(course.ChapterOutlines) == 0 {
			return nil, apperrors.ErrValidationFailed.WithDetail("course has no chapter outlines")
		}
		return s.introduce(ctx, course)
	})
}

func (s *Service) introduce(ctx context.Context, course *entity.Course) (*entity.Chapter, error) {
	req := &service.CreateChapterRequest{
		CourseID:           course.ID,
		CourseTitle:        course.Title,
		CourseDescription:  course.Description,
		Subject:            course.Subject,
		EducationalLevel:   course.EducationalLevel,
		TargetAudience:     course.TargetAudience,
		Template:           course.Template,
		Philosophy:         course.Philosophy,
		Title:              IntroductionTitle,
		ChapterNumber:      entity.IntroductionNumber,
		IsIntroduction:     true,
		ChapterOutlines:    course.ChapterOutlines,
		SubchapterTemplate: course.SubchapterTemplate,
		Bibliography:       course.Bibliography,
	}

	start := time.Now()
	intro, err := s.generator.CreateChapter(ctx, req)
	m := Mutation{CourseID: course.ID, Kind: entity.EventIntroductionGenerated, Duration: time.Since(start)}
	if err != nil {
		m.Kind = entity.EventIntroductionFailed
		m.Err = err
		s.notify(ctx, m)
		return nil, err
	}
	intro.IsIntroduction = true
	intro.ChapterNumber = entity.IntroductionNumber
	if intro.CourseID == "" {
		intro.CourseID = course.ID
	}
	m.ChapterID = intro.ID
	s.notify(ctx, m)
	return intro, nil
}

// withDraft 存储服务可能只返回部分字段，用提交的内容补齐
func withDraft(created, draft *entity.Course) *entity.Course {
	out := *draft
	out.ID = created.ID
	out.Chapters = []*entity.Chapter{}
	if created.Status != "" {
		out.Status = created.Status
	}
	if len(created.ChapterOutlines) > 0 {
		out.ChapterOutlines = created.ChapterOutlines
	}
	if created.SubchapterTemplate != nil {
		out.SubchapterTemplate = created.SubchapterTemplate
	}
	if len(created.Bibliography) > 0 {
		out.Bibliography = created.Bibliography
	}
	out.CreatedAt = created.CreatedAt
	out.UpdatedAt = created.UpdatedAt
	return &out
}

func introductionFailed(courseID string, err error) error {
	appErr := apperrors.AsAppError(err)
	detail := fmt.Sprintf("course %s was created without an introduction", courseID)
	if appErr.Detail != "" {
		detail = appErr.Detail + "; " + detail
	}
	return appErr.WithDetail(detail)
}
