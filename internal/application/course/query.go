package course

import (
	"context"
	"encoding/json"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
)

// ListCourses 分页获取课程
func (s *Service) ListCourses(ctx context.Context, filter *repository.CourseFilter, page repository.Pagination) Result[*repository.PagedResult[*entity.Course]] {
	return run(ctx, "list_courses", func(ctx context.Context) (*repository.PagedResult[*entity.Course], error) {
		return s.courses.List(ctx, filter, page)
	})
}

// GetCourse 获取课程及章节
func (s *Service) GetCourse(ctx context.Context, courseID string) Result[*entity.Course] {
	return run(ctx, "get_course", func(ctx context.Context) (*entity.Course, error) {
		_, c, err := s.loadCourse(ctx, courseID)
		return c, err
	})
}

// GetChapter 获取属于课程的章节
func (s *Service) GetChapter(ctx context.Context, courseID, chapterID string) Result[*entity.Chapter] {
	return run(ctx, "get_chapter", func(ctx context.Context) (*entity.Chapter, error) {
		return s.courseChapter(ctx, courseID, chapterID)
	})
}

// ChapterResources 获取章节的小节、活动或测评
func (s *Service) ChapterResources(ctx context.Context, courseID, chapterID string, kind repository.ChapterResourceKind) Result[[]json.RawMessage] {
	return run(ctx, "chapter_resources", func(ctx context.Context) ([]json.RawMessage, error) {
		if _, err := s.courseChapter(ctx, courseID, chapterID); err != nil {
			return nil, err
		}
		return s.courses.ListChapterResources(ctx, chapterID, kind)
	})
}
