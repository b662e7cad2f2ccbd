package course

import (
	"context"
	"fmt"
	"time"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/service"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

// GenerateChapterFromOutline 按大纲条目生成章节初始结构
func (s *Service) GenerateChapterFromOutline(ctx context.Context, courseID string, chapterNumber int) Result[*entity.Chapter] {
	return run(ctx, "generate_chapter", func(ctx context.Context) (*entity.Chapter, error) {
		if chapterNumber < 1 {
			return nil, apperrors.ErrValidationFailed.WithDetail("chapter number must be a positive integer")
		}
		ctx, course, err := s.loadCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if err := requireTemplate(course); err != nil {
			return nil, err
		}
		outline, ok := course.OutlineByNumber(chapterNumber)
		if !ok {
			return nil, apperrors.ErrOutlineNotFound.WithDetail(fmt.Sprintf("no outline for chapter %d", chapterNumber))
		}
		for _, ch := range course.Chapters {
			if !ch.IsIntro() && ch.ChapterNumber == chapterNumber {
				return nil, apperrors.ErrConflict.WithDetail(fmt.Sprintf("chapter %d already exists", chapterNumber))
			}
		}

		req := &service.CreateChapterRequest{
			CourseID:           course.ID,
			CourseTitle:        course.Title,
			CourseDescription:  course.Description,
			Subject:            course.Subject,
			EducationalLevel:   course.EducationalLevel,
			TargetAudience:     course.TargetAudience,
			Template:           course.Template,
			Philosophy:         course.Philosophy,
			Title:              outline.Title,
			ChapterNumber:      chapterNumber,
			ChapterOutline:     &outline,
			SubchapterTemplate: course.SubchapterTemplate,
			Bibliography:       course.Bibliography,
		}

		start := time.Now()
		ch, err := s.generator.CreateChapter(ctx, req)
		m := Mutation{CourseID: course.ID, Kind: entity.EventChapterGenerated, Duration: time.Since(start)}
		if err != nil {
			m.Err = err
			s.notify(ctx, m)
			return nil, err
		}
		if ch.CourseID == "" {
			ch.CourseID = course.ID
		}
		if ch.ChapterNumber == 0 && !ch.IsIntroduction {
			ch.ChapterNumber = chapterNumber
		}
		m.ChapterID = ch.ID
		s.notify(ctx, m)
		return ch, nil
	})
}

// GenerateSubchapter 为章节追加下一个子章节
//
// chapterNumber 为 0 时使用章节记录中的编号。
func (s *Service) GenerateSubchapter(ctx context.Context, courseID, chapterID string, chapterNumber int) Result[*entity.Chapter] {
	return run(ctx, "generate_subchapter", func(ctx context.Context) (*entity.Chapter, error) {
		ctx, course, err := s.loadCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapterID)
		ch, err := s.courseChapter(ctx, course.ID, chapterID)
		if err != nil {
			return nil, err
		}
		if ch.IsIntro() {
			return nil, apperrors.ErrValidationFailed.WithDetail("the introduction does not take subchapters")
		}
		if chapterNumber < 1 {
			chapterNumber = ch.ChapterNumber
		}
		if err := requireTemplate(course); err != nil {
			return nil, err
		}
		outline, ok := course.OutlineByNumber(chapterNumber)
		if !ok {
			return nil, apperrors.ErrOutlineNotFound.WithDetail(fmt.Sprintf("no outline for chapter %d", chapterNumber))
		}

		tpl := *course.SubchapterTemplate
		next := ch.NextSubchapterNumber()
		if tpl.MaxSubchapters > 0 && next > tpl.MaxSubchapters {
			return nil, apperrors.ErrLimitReached.WithDetail(
				fmt.Sprintf("chapter already has the maximum of %d subchapters", tpl.MaxSubchapters))
		}

		existing := make([]service.ExistingSubchapter, 0, len(ch.Subchapters))
		for _, sc := range ch.OrderedSubchapters() {
			existing = append(existing, service.ExistingSubchapter{
				Number:  sc.SubchapterNumber,
				Title:   sc.Title,
				Content: sc.Content,
			})
		}
		var introContent string
		if intro, ok := course.Introduction(); ok {
			introContent = intro.Content
		}
		wordCount := tpl.WordCountPerSubchapter
		if wordCount <= 0 {
			wordCount = outline.WordCount
		}

		chapterTitle := ch.Title
		if chapterTitle == "" {
			chapterTitle = outline.Title
		}
		req := &service.GenerateSubchapterRequest{
			CourseID:            course.ID,
			ChapterID:           ch.ID,
			ChapterNumber:       chapterNumber,
			ChapterTitle:        chapterTitle,
			SubchapterNumber:    next,
			CourseTitle:         course.Title,
			CourseDescription:   course.Description,
			Subject:             course.Subject,
			EducationalLevel:    course.EducationalLevel,
			TargetAudience:      course.TargetAudience,
			Template:            course.Template,
			Philosophy:          course.Philosophy,
			ChapterOutline:      outline,
			SubchapterTemplate:  tpl,
			WordCount:           wordCount,
			ExistingSubchapters: existing,
			IntroductionContent: introContent,
			Bibliography:        course.Bibliography,
		}

		start := time.Now()
		updated, err := s.generator.GenerateSubchapter(ctx, req)
		m := Mutation{
			CourseID:  course.ID,
			ChapterID: ch.ID,
			Kind:      entity.EventSubchapterGenerated,
			Directive: fmt.Sprintf("subchapter_%d", next),
			Duration:  time.Since(start),
		}
		if err != nil {
			m.Err = err
			s.notify(ctx, m)
			return nil, err
		}
		if updated.ID == "" {
			updated.ID = ch.ID
		}
		if updated.CourseID == "" {
			updated.CourseID = course.ID
		}
		s.notify(ctx, m)
		return updated, nil
	})
}

// courseChapter 读取章节并确认其属于课程
func (s *Service) courseChapter(ctx context.Context, courseID, chapterID string) (*entity.Chapter, error) {
	if chapterID == "" {
		return nil, apperrors.ErrValidationFailed.WithDetail("chapter id is required")
	}
	ch, err := s.courses.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if ch.CourseID != "" && ch.CourseID != courseID {
		return nil, apperrors.ErrChapterNotFound.WithDetail("chapter does not belong to course " + courseID)
	}
	if ch.ID == "" {
		ch.ID = chapterID
	}
	return ch, nil
}
