package course

import (
	"context"
	"encoding/json"
	"sync"

	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/domain/service"
	apperrors "eduflow-api/pkg/errors"
)

type fakeStore struct {
	mu       sync.Mutex
	courses  map[string]*entity.Course
	chapters map[string]*entity.Chapter
	calls    int
	updates  []repository.ChapterPatch
	createFn func(*entity.Course) (*entity.Course, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{courses: map[string]*entity.Course{}, chapters: map[string]*entity.Chapter{}}
}

func (f *fakeStore) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) List(ctx context.Context, filter *repository.CourseFilter, p repository.Pagination) (*repository.PagedResult[*entity.Course], error) {
	f.hit()
	items := make([]*entity.Course, 0, len(f.courses))
	for _, c := range f.courses {
		items = append(items, c)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	f.hit()
	c, ok := f.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	cp.Chapters = nil
	for _, ch := range f.chapters {
		if ch.CourseID == id {
			cp.Chapters = append(cp.Chapters, ch)
		}
	}
	return &cp, nil
}

func (f *fakeStore) Create(ctx context.Context, c *entity.Course) (*entity.Course, error) {
	f.hit()
	if f.createFn != nil {
		return f.createFn(c)
	}
	cp := *c
	cp.ID = "course-1"
	f.courses[cp.ID] = &cp
	return &entity.Course{ID: cp.ID}, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, patch *repository.CoursePatch) (*entity.Course, error) {
	f.hit()
	c, ok := f.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.ChapterOutlines != nil {
		c.ChapterOutlines = patch.ChapterOutlines
	}
	return c, nil
}

func (f *fakeStore) ListChapters(ctx context.Context, courseID string) ([]*entity.Chapter, error) {
	f.hit()
	var out []*entity.Chapter
	for _, ch := range f.chapters {
		if ch.CourseID == courseID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeStore) GetChapter(ctx context.Context, id string) (*entity.Chapter, error) {
	f.hit()
	ch, ok := f.chapters[id]
	if !ok {
		return nil, apperrors.ErrChapterNotFound
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeStore) UpdateChapter(ctx context.Context, id string, patch *repository.ChapterPatch) (*entity.Chapter, error) {
	f.hit()
	f.updates = append(f.updates, *patch)
	ch := f.chapters[id]
	if patch.Content != nil {
		ch.Content = *patch.Content
	}
	return &entity.Chapter{ID: id}, nil
}

func (f *fakeStore) ListChapterResources(ctx context.Context, chapterID string, kind repository.ChapterResourceKind) ([]json.RawMessage, error) {
	f.hit()
	return []json.RawMessage{json.RawMessage(`{"id":"r1"}`)}, nil
}

type fakeGenerator struct {
	mu          sync.Mutex
	calls       int
	creates     []*service.CreateChapterRequest
	continues   []*service.ContinueChapterRequest
	subchapters []*service.GenerateSubchapterRequest
	err         error
}

func (g *fakeGenerator) CreateChapter(ctx context.Context, req *service.CreateChapterRequest) (*entity.Chapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.creates = append(g.creates, req)
	if g.err != nil {
		return nil, g.err
	}
	return &entity.Chapter{ID: "gen-" + req.Title, Title: req.Title, ChapterNumber: req.ChapterNumber}, nil
}

func (g *fakeGenerator) ContinueChapter(ctx context.Context, req *service.ContinueChapterRequest) (*entity.Chapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.continues = append(g.continues, req)
	if g.err != nil {
		return nil, g.err
	}
	return &entity.Chapter{ID: req.ChapterID, Content: "<p>continued</p>"}, nil
}

func (g *fakeGenerator) GenerateSubchapter(ctx context.Context, req *service.GenerateSubchapterRequest) (*entity.Chapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.subchapters = append(g.subchapters, req)
	if g.err != nil {
		return nil, g.err
	}
	return &entity.Chapter{ID: req.ChapterID}, nil
}

type recorder struct {
	mu        sync.Mutex
	mutations []Mutation
}

func (r *recorder) CourseMutated(ctx context.Context, m Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, m)
}

func (r *recorder) kinds() []entity.GenerationEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.GenerationEventKind, 0, len(r.mutations))
	for _, m := range r.mutations {
		out = append(out, m.Kind)
	}
	return out
}
