package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/pkg/logger"
)

const (
	courseKeyPrefix     = "course:"
	courseListKeyPrefix = "course:list:"
)

// CachedCourseRepository 在存储服务前加一层课程读缓存
//
// 只缓存课程详情与列表；章节读取始终直达存储服务，保证编辑基于最新内容。
type CachedCourseRepository struct {
	next    repository.CourseRepository
	cache   *Cache
	ttl     time.Duration
	listTTL time.Duration
}

var (
	_ repository.CourseRepository = (*CachedCourseRepository)(nil)
	_ course.MutationObserver     = (*CachedCourseRepository)(nil)
)

// NewCachedCourseRepository 创建缓存装饰器，ttl 为 0 时不缓存对应读取
func NewCachedCourseRepository(next repository.CourseRepository, cache *Cache, ttl, listTTL time.Duration) *CachedCourseRepository {
	return &CachedCourseRepository{next: next, cache: cache, ttl: ttl, listTTL: listTTL}
}

// CourseKey 课程详情缓存键
func CourseKey(id string) string {
	return courseKeyPrefix + id
}

func listKey(filter *repository.CourseFilter, p repository.Pagination) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("size", strconv.Itoa(p.PageSize))
	if filter != nil {
		q.Set("subject", filter.Subject)
		q.Set("level", filter.EducationalLevel)
		q.Set("status", string(filter.Status))
		q.Set("search", filter.Search)
		q.Set("sort", filter.SortBy)
		q.Set("order", string(filter.SortOrder))
	}
	sum := sha1.Sum([]byte(q.Encode()))
	return courseListKeyPrefix + hex.EncodeToString(sum[:8])
}

// List 分页列表
func (r *CachedCourseRepository) List(ctx context.Context, filter *repository.CourseFilter, p repository.Pagination) (*repository.PagedResult[*entity.Course], error) {
	if r.listTTL <= 0 {
		return r.next.List(ctx, filter, p)
	}
	raw, err := r.cache.Load(ctx, "course_list", listKey(filter, p), r.listTTL, func(ctx context.Context) (any, error) {
		return r.next.List(ctx, filter, p)
	})
	if err != nil {
		return nil, err
	}
	var out repository.PagedResult[*entity.Course]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode cached course list: %w", err)
	}
	return &out, nil
}

// GetByID 课程详情
func (r *CachedCourseRepository) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	if r.ttl <= 0 {
		return r.next.GetByID(ctx, id)
	}
	raw, err := r.cache.Load(ctx, "course", CourseKey(id), r.ttl, func(ctx context.Context) (any, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	var c entity.Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cached course: %w", err)
	}
	return &c, nil
}

// Create 创建课程并清理列表缓存
func (r *CachedCourseRepository) Create(ctx context.Context, c *entity.Course) (*entity.Course, error) {
	created, err := r.next.Create(ctx, c)
	if err == nil {
		r.invalidate(ctx, "")
	}
	return created, err
}

// Update 更新课程
func (r *CachedCourseRepository) Update(ctx context.Context, id string, patch *repository.CoursePatch) (*entity.Course, error) {
	updated, err := r.next.Update(ctx, id, patch)
	if err == nil {
		r.invalidate(ctx, id)
	}
	return updated, err
}

// ListChapters 直达存储服务
func (r *CachedCourseRepository) ListChapters(ctx context.Context, courseID string) ([]*entity.Chapter, error) {
	return r.next.ListChapters(ctx, courseID)
}

// GetChapter 直达存储服务
func (r *CachedCourseRepository) GetChapter(ctx context.Context, id string) (*entity.Chapter, error) {
	return r.next.GetChapter(ctx, id)
}

// UpdateChapter 更新章节并清理所属课程缓存
func (r *CachedCourseRepository) UpdateChapter(ctx context.Context, id string, patch *repository.ChapterPatch) (*entity.Chapter, error) {
	ch, err := r.next.UpdateChapter(ctx, id, patch)
	if err == nil && ch != nil && ch.CourseID != "" {
		r.invalidate(ctx, ch.CourseID)
	}
	return ch, err
}

// ListChapterResources 直达存储服务
func (r *CachedCourseRepository) ListChapterResources(ctx context.Context, chapterID string, kind repository.ChapterResourceKind) ([]json.RawMessage, error) {
	return r.next.ListChapterResources(ctx, chapterID, kind)
}

// CourseMutated 生成服务会直接写回存储服务，任何写操作后都清理缓存
func (r *CachedCourseRepository) CourseMutated(ctx context.Context, m course.Mutation) {
	r.invalidate(ctx, m.CourseID)
}

func (r *CachedCourseRepository) invalidate(ctx context.Context, courseID string) {
	if courseID != "" {
		if err := r.cache.Delete(ctx, CourseKey(courseID)); err != nil {
			logger.Warn(ctx, "invalidate course cache failed", "course_id", courseID, "error", err.Error())
		}
	}
	if err := r.cache.InvalidatePattern(ctx, courseListKeyPrefix+"*"); err != nil {
		logger.Warn(ctx, "invalidate course list cache failed", "error", err.Error())
	}
}
