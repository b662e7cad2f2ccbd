package handler

import (
	"context"
	"encoding/json"
	"sync"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/domain/service"
	"eduflow-api/internal/infrastructure/upstream"
	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

const chapterHTML = "<h2>Light</h2><p>Photosynthesis converts <strong>light energy</strong> into chemical energy.</p>"

type memStore struct {
	mu       sync.Mutex
	courses  map[string]*entity.Course
	chapters map[string]*entity.Chapter
	writes   int
}

func newMemStore() *memStore {
	s := &memStore{courses: map[string]*entity.Course{}, chapters: map[string]*entity.Chapter{}}
	s.courses["c1"] = &entity.Course{
		ID:      "c1",
		Title:   "Plant Biology",
		Subject: "Biology",
		ChapterOutlines: []entity.ChapterOutline{
			{Number: 1, Title: "Photosynthesis", Description: "How plants convert light into sugar."},
		},
	}
	s.chapters["intro"] = &entity.Chapter{ID: "intro", CourseID: "c1", Title: "Introduction", IsIntroduction: true, Content: "<p>Welcome to plant biology.</p>"}
	s.chapters["ch1"] = &entity.Chapter{ID: "ch1", CourseID: "c1", ChapterNumber: 1, Title: "Photosynthesis", Content: chapterHTML}
	return s
}

func (s *memStore) List(ctx context.Context, filter *repository.CourseFilter, p repository.Pagination) (*repository.PagedResult[*entity.Course], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*entity.Course, 0, len(s.courses))
	for _, c := range s.courses {
		items = append(items, c)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	cp.Chapters = nil
	for _, ch := range s.chapters {
		if ch.CourseID == id {
			chCopy := *ch
			cp.Chapters = append(cp.Chapters, &chCopy)
		}
	}
	return &cp, nil
}

func (s *memStore) Create(ctx context.Context, c *entity.Course) (*entity.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.ID = "c2"
	s.courses[cp.ID] = &cp
	return &cp, nil
}

func (s *memStore) Update(ctx context.Context, id string, patch *repository.CoursePatch) (*entity.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListChapters(ctx context.Context, courseID string) ([]*entity.Chapter, error) {
	c, err := s.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return c.Chapters, nil
}

func (s *memStore) GetChapter(ctx context.Context, id string) (*entity.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chapters[id]
	if !ok {
		return nil, apperrors.ErrChapterNotFound
	}
	cp := *ch
	return &cp, nil
}

func (s *memStore) UpdateChapter(ctx context.Context, id string, patch *repository.ChapterPatch) (*entity.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chapters[id]
	if !ok {
		return nil, apperrors.ErrChapterNotFound
	}
	s.writes++
	if patch.Content != nil {
		ch.Content = *patch.Content
	}
	cp := *ch
	return &cp, nil
}

func (s *memStore) ListChapterResources(ctx context.Context, chapterID string, kind repository.ChapterResourceKind) ([]json.RawMessage, error) {
	return []json.RawMessage{json.RawMessage(`{"kind":"` + string(kind) + `"}`)}, nil
}

func (s *memStore) content(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters[id].Content
}

type stubGenerator struct{}

func (stubGenerator) CreateChapter(ctx context.Context, req *service.CreateChapterRequest) (*entity.Chapter, error) {
	return &entity.Chapter{ID: "gen", Title: req.Title, ChapterNumber: req.ChapterNumber, IsIntroduction: req.IsIntroduction}, nil
}

func (stubGenerator) ContinueChapter(ctx context.Context, req *service.ContinueChapterRequest) (*entity.Chapter, error) {
	return &entity.Chapter{ID: req.ChapterID, Content: "<p>expanded</p>"}, nil
}

func (stubGenerator) GenerateSubchapter(ctx context.Context, req *service.GenerateSubchapterRequest) (*entity.Chapter, error) {
	return &entity.Chapter{ID: req.ChapterID}, nil
}

type memSelections struct {
	mu     sync.Mutex
	active map[string]string
}

func newMemSelections() *memSelections {
	return &memSelections{active: map[string]string{}}
}

func (m *memSelections) GetActiveChapter(ctx context.Context, sessionID, courseID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[sessionID+"/"+courseID], nil
}

func (m *memSelections) SetActiveChapter(ctx context.Context, sessionID, courseID, chapterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sessionID+"/"+courseID] = chapterID
	return nil
}

func (m *memSelections) ClearActiveChapter(ctx context.Context, sessionID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, sessionID+"/"+courseID)
	return nil
}

type stubHealth struct {
	raw json.RawMessage
	err error
}

func (p stubHealth) Health(ctx context.Context) (json.RawMessage, error) {
	return p.raw, p.err
}

type stubGateway struct {
	stubHealth
	resp      *upstream.Response
	forwarded []byte
	requestID string
	err       error
}

func (g *stubGateway) BackendStatus(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"backend":"connected"}`), nil
}

func (g *stubGateway) Metrics(ctx context.Context) (json.RawMessage, error) {
	return nil, apperrors.ErrUpstreamError.WithDetail("503 Service Unavailable")
}

func (g *stubGateway) ForwardBookChapter(ctx context.Context, body []byte) (*upstream.Response, error) {
	g.forwarded = body
	g.requestID = logger.StringFromContext(ctx, logger.RequestIDKey)
	return g.resp, g.err
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(ctx context.Context) error { return c.err }

var entityChapterOfOtherCourse = entity.Chapter{ID: "foreign", CourseID: "c9", Title: "Elsewhere"}
