package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/entity"
	"eduflow-api/internal/domain/repository"
	"eduflow-api/internal/infrastructure/upstream"
	apperrors "eduflow-api/pkg/errors"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *CourseStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCourseStore(config.BackendConfig{
		BaseURL: srv.URL,
		APIKey:  "store-key",
		Timeout: time.Second,
	}, srv.Client())
}

func TestListSendsFiltersAndReadsTotal(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "math", q.Get("subject"))
		assert.Equal(t, "asc", q.Get("sortOrder"))
		assert.Empty(t, q.Get("search"))
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"c1","title":"Algebra"},{"_id":"c2","title":"Geometry"}],"pagination":{"total":12}}`)
	})

	res, err := store.List(context.Background(),
		&repository.CourseFilter{Subject: "math", SortOrder: repository.SortOrderAsc},
		repository.NewPagination(2, 10))

	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "c2", res.Items[1].ID)
	assert.EqualValues(t, 12, res.Total)
	assert.Equal(t, 2, res.TotalPages)
}

func TestListTotalFallsBackToItemCount(t *testing.T) {
	assert.EqualValues(t, 3, listTotal([]byte(`[{},{},{}]`), 3))
	assert.EqualValues(t, 7, listTotal([]byte(`{"meta":{"total":7},"items":[]}`), 0))
	assert.EqualValues(t, 9, listTotal([]byte(`{"total":9}`), 0))
}

func TestGetByIDMergesChapters(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "store-key", r.Header.Get("x-api-key"))
		switch r.URL.Path {
		case "/courses/c1":
			_, _ = io.WriteString(w, `{"data":{"id":"c1","title":"Algebra","chapter_outlines":[{"number":2,"title":"B"},{"number":1,"title":"A"}]}}`)
		case "/courses/c1/chapters":
			_, _ = io.WriteString(w, `{"data":[{"id":"ch2","chapter_number":1,"title":"A"},{"id":"intro","chapter_number":0,"title":"Introduction"}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	course, err := store.GetByID(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, "Algebra", course.Title)
	require.Len(t, course.ChapterOutlines, 2)
	assert.Equal(t, "A", course.ChapterOutlines[0].Title)
	require.Len(t, course.Chapters, 2)
	for _, ch := range course.Chapters {
		assert.Equal(t, "c1", ch.CourseID)
	}
	intro, ok := course.Introduction()
	require.True(t, ok)
	assert.Equal(t, "intro", intro.ID)
}

func TestGetByIDNotFound(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := store.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCourseNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.AsAppError(err).HTTPStatus)
}

func TestCreateRequiresID(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "draft", body["status"])
		assert.NotContains(t, body, "chapters")
		_, _ = io.WriteString(w, `{"success":true,"data":{"title":"no id"}}`)
	})

	_, err := store.Create(context.Background(), &entity.Course{Title: "Algebra basics"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamError))
}

func TestUpdateChapterSendsPatch(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/chapters/ch%201", r.URL.EscapedPath())
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"content":"<p>new</p>"}`, string(raw))
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	content := "<p>new</p>"
	ch, err := store.UpdateChapter(context.Background(), "ch 1", &repository.ChapterPatch{Content: &content})

	require.NoError(t, err)
	assert.Equal(t, "ch 1", ch.ID)
}

func TestListChapterResources(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chapters/ch1/activities", r.URL.Path)
		_, _ = io.WriteString(w, `{"activities":[{"id":"a1"},{"id":"a2"}]}`)
	})

	items, err := store.ListChapterResources(context.Background(), "ch1", repository.ChapterActivities)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = store.ListChapterResources(context.Background(), "ch1", "videos")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestListRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	store := newCourseStoreWith(upstream.New(upstream.Options{
		Service:       "store",
		BaseURL:       srv.URL,
		HTTPClient:    srv.Client(),
		RetryBackoffs: []time.Duration{time.Millisecond},
		Sleep:         func(context.Context, time.Duration) error { return nil },
	}))

	res, err := store.List(context.Background(), nil, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 2, calls)
}
