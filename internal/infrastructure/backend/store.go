// Package backend 实现课程存储服务客户端
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"eduflow-api/internal/application/normalize"
	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/infrastructure/upstream"
	apperrors "eduflow-api/pkg/errors"
)

// CourseStore 基于存储服务 HTTP API 的课程仓储
type CourseStore struct {
	http *upstream.Client
}

var _ repository.CourseRepository = (*CourseStore)(nil)

// NewCourseStore 创建存储客户端
func NewCourseStore(cfg config.BackendConfig, hc *http.Client) *CourseStore {
	return &CourseStore{
		http: upstream.New(upstream.Options{
			Service:       "store",
			BaseURL:       cfg.BaseURL,
			APIKey:        cfg.APIKey,
			Timeout:       cfg.Timeout,
			RetryBackoffs: cfg.RetryBackoffs,
			HTTPClient:    hc,
		}),
	}
}

// newCourseStoreWith 测试用
func newCourseStoreWith(c *upstream.Client) *CourseStore {
	return &CourseStore{http: c}
}

// createCourseBody 创建课程请求体
type createCourseBody struct {
	Title              string                     `json:"title"`
	Description        string                     `json:"description"`
	Subject            string                     `json:"subject"`
	EducationalLevel   string                     `json:"educationalLevel,omitempty"`
	TargetAudience     string                     `json:"targetAudience,omitempty"`
	Template           string                     `json:"template"`
	Philosophy         string                     `json:"philosophy"`
	Status             entity.CourseStatus        `json:"status"`
	ChapterOutlines    []entity.ChapterOutline    `json:"chapterOutlines"`
	SubchapterTemplate *entity.SubchapterTemplate `json:"subchapterTemplate,omitempty"`
	Bibliography       []entity.BibliographyItem  `json:"bibliography,omitempty"`
}

// List 分页获取课程列表
func (s *CourseStore) List(ctx context.Context, filter *repository.CourseFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Course], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pagination.Page))
	q.Set("limit", strconv.Itoa(pagination.Limit()))
	if filter != nil {
		setIf(q, "subject", filter.Subject)
		setIf(q, "educationalLevel", filter.EducationalLevel)
		setIf(q, "status", string(filter.Status))
		setIf(q, "search", filter.Search)
		setIf(q, "sortBy", filter.SortBy)
		setIf(q, "sortOrder", string(filter.SortOrder))
	}

	raw, err := s.http.GetJSON(ctx, "/courses", q)
	if err != nil {
		return nil, err
	}
	items := normalize.Courses(raw)
	return repository.NewPagedResult(items, listTotal(raw, len(items)), pagination), nil
}

// listTotal 兼容 pagination.total、total、meta.total 三种位置
func listTotal(raw []byte, fallback int) int64 {
	r := gjson.ParseBytes(raw)
	for _, path := range []string{"pagination.total", "total", "meta.total", "data.pagination.total", "data.total"} {
		if v := r.Get(path); v.Exists() && v.Type == gjson.Number {
			return v.Int()
		}
	}
	return int64(fallback)
}

// GetByID 并发获取课程与章节
func (s *CourseStore) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	var (
		course   *entity.Course
		chapters []*entity.Chapter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.http.GetJSON(gctx, "/courses/"+url.PathEscape(id), nil)
		if err != nil {
			return notFoundAs(err, apperrors.ErrCourseNotFound)
		}
		course = normalize.Course(raw)
		return nil
	})
	g.Go(func() error {
		var err error
		chapters, err = s.ListChapters(gctx, id)
		if apperrors.IsNotFound(err) {
			chapters = nil
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if course.ID == "" {
		course.ID = id
	}
	// 课程详情自带章节时以独立章节接口为准
	if len(chapters) > 0 || len(course.Chapters) == 0 {
		for _, ch := range chapters {
			if ch.CourseID == "" {
				ch.CourseID = course.ID
			}
		}
		if chapters == nil {
			chapters = []*entity.Chapter{}
		}
		course.Chapters = chapters
	}
	return course, nil
}

// Create 创建课程
func (s *CourseStore) Create(ctx context.Context, course *entity.Course) (*entity.Course, error) {
	body := createCourseBody{
		Title:              course.Title,
		Description:        course.Description,
		Subject:            course.Subject,
		EducationalLevel:   course.EducationalLevel,
		TargetAudience:     course.TargetAudience,
		Template:           course.Template,
		Philosophy:         course.Philosophy,
		Status:             course.Status,
		ChapterOutlines:    course.ChapterOutlines,
		SubchapterTemplate: course.SubchapterTemplate,
		Bibliography:       course.Bibliography,
	}
	if body.Status == "" {
		body.Status = entity.CourseStatusDraft
	}
	raw, err := s.http.SendJSON(ctx, http.MethodPost, "/courses", body)
	if err != nil {
		return nil, err
	}
	created := normalize.Course(raw)
	if created.ID == "" {
		return nil, apperrors.ErrUpstreamError.WithDetail("store returned a course without id")
	}
	return created, nil
}

// Update 更新课程
func (s *CourseStore) Update(ctx context.Context, id string, patch *repository.CoursePatch) (*entity.Course, error) {
	raw, err := s.http.SendJSON(ctx, http.MethodPut, "/courses/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, notFoundAs(err, apperrors.ErrCourseNotFound)
	}
	return normalize.Course(raw), nil
}

// ListChapters 获取课程章节
func (s *CourseStore) ListChapters(ctx context.Context, courseID string) ([]*entity.Chapter, error) {
	raw, err := s.http.GetJSON(ctx, "/courses/"+url.PathEscape(courseID)+"/chapters", nil)
	if err != nil {
		return nil, notFoundAs(err, apperrors.ErrCourseNotFound)
	}
	chapters := normalize.Chapters(raw)
	for _, ch := range chapters {
		if ch.CourseID == "" {
			ch.CourseID = courseID
		}
	}
	return chapters, nil
}

// GetChapter 获取章节
func (s *CourseStore) GetChapter(ctx context.Context, id string) (*entity.Chapter, error) {
	raw, err := s.http.GetJSON(ctx, "/chapters/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, notFoundAs(err, apperrors.ErrChapterNotFound)
	}
	return normalize.Chapter(raw), nil
}

// UpdateChapter 更新章节
func (s *CourseStore) UpdateChapter(ctx context.Context, id string, patch *repository.ChapterPatch) (*entity.Chapter, error) {
	raw, err := s.http.SendJSON(ctx, http.MethodPut, "/chapters/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, notFoundAs(err, apperrors.ErrChapterNotFound)
	}
	ch := normalize.Chapter(raw)
	if ch.ID == "" {
		ch.ID = id
	}
	return ch, nil
}

// ListChapterResources 获取章节的小节、活动或测评
func (s *CourseStore) ListChapterResources(ctx context.Context, chapterID string, kind repository.ChapterResourceKind) ([]json.RawMessage, error) {
	if !kind.Valid() {
		return nil, apperrors.ErrValidationFailed.WithDetail("unknown chapter resource: " + string(kind))
	}
	raw, err := s.http.GetJSON(ctx, "/chapters/"+url.PathEscape(chapterID)+"/"+string(kind), nil)
	if err != nil {
		return nil, notFoundAs(err, apperrors.ErrChapterNotFound)
	}
	r := normalize.Envelope(raw)
	if !r.IsArray() {
		r = r.Get(string(kind))
	}
	out := []json.RawMessage{}
	for _, item := range r.Array() {
		out = append(out, json.RawMessage(item.Raw))
	}
	return out, nil
}

// Health 探测存储服务健康状态
func (s *CourseStore) Health(ctx context.Context) (json.RawMessage, error) {
	resp, err := s.http.Do(ctx, upstream.Request{Method: http.MethodGet, Path: "/health", NoRetry: true})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return json.RawMessage(`null`), nil
	}
	return resp.Body, nil
}

func notFoundAs(err error, sentinel *apperrors.AppError) error {
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return sentinel.WithError(err)
	}
	return err
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
