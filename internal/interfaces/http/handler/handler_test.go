package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/application/export"
	"eduflow-api/internal/application/workspace"
	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/service"
	"eduflow-api/internal/infrastructure/upstream"
	"eduflow-api/internal/interfaces/http/middleware"
	apperrors "eduflow-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	engine     *gin.Engine
	store      *memStore
	selections *memSelections
	gateway    *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      newMemStore(),
		selections: newMemSelections(),
		gateway:    &stubGateway{stubHealth: stubHealth{raw: json.RawMessage(`{"status":"ok"}`)}},
	}
	manager := workspace.NewManager(env.store, env.selections, config.WorkspaceConfig{})
	t.Cleanup(manager.Close)

	courses := course.NewService(env.store, stubGenerator{}, course.Options{}, course.Observers{manager})
	courseH := NewCourseHandler(courses)
	chapterH := NewChapterHandler(courses)
	editorH := NewEditorHandler(courses, editor.Limits{})
	workspaceH := NewWorkspaceHandler(manager)
	exportH := NewExportHandler(courses, export.Options{Lang: "en"})
	proxyH := NewProxyHandler(env.gateway, stubHealth{raw: json.RawMessage(`{"status":"healthy"}`)})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Session())
	r.GET("/api/health/ai", proxyH.AIHealth)
	r.GET("/api/health/backend", proxyH.BackendHealth)
	r.POST("/api/books/chapter", proxyH.BookChapter)
	r.GET("/api/ai/backend-status", proxyH.BackendStatus)
	r.GET("/api/ai/metrics", proxyH.AIMetrics)
	r.GET("/v1/courses", courseH.ListCourses)
	r.GET("/v1/courses/:cid", courseH.GetCourse)
	r.GET("/v1/courses/:cid/export", exportH.Export)
	r.GET("/v1/courses/:cid/chapters/:chid", chapterH.GetChapter)
	r.POST("/v1/courses/:cid/chapters/:chid/directives/:directive", chapterH.Directive)
	r.PUT("/v1/courses/:cid/chapters/:chid/content", chapterH.UpdateContent)
	r.GET("/v1/courses/:cid/chapters/:chid/draft", chapterH.GetDraft)
	r.POST("/v1/courses/:cid/chapters/:chid/selection", editorH.Locate)
	r.POST("/v1/editor/suggestions", editorH.Suggest)
	r.POST("/v1/courses/:cid/workspace", workspaceH.Open)
	r.GET("/v1/courses/:cid/workspace", workspaceH.Get)
	r.PUT("/v1/courses/:cid/workspace/active-chapter", workspaceH.SelectChapter)
	r.POST("/v1/courses/:cid/workspace/refresh", workspaceH.Refresh)
	r.DELETE("/v1/courses/:cid/workspace", workspaceH.Close)
	env.engine = r
	return env
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAIHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/health/ai", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	env.gateway.raw = json.RawMessage(`{"status":"degraded","llm":"down"}`)
	w = env.do(http.MethodGet, "/api/health/ai", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","details":{"status":"degraded","llm":"down"}}`, w.Body.String())

	env.gateway.err = errors.New("connection refused")
	w = env.do(http.MethodGet, "/api/health/ai", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","details":"connection refused"}`, w.Body.String())
}

func TestBackendHealthAcceptsHealthy(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/health/backend", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPassThroughEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/ai/backend-status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"backend":"connected"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/ai/metrics", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(apperrors.CodeUpstreamError), decode(t, w)["code"])
}

func TestBookChapterProxy(t *testing.T) {
	t.Run("success forwards body and request id", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateway.resp = &upstream.Response{StatusCode: http.StatusOK, Body: []byte(`{"chapter":{"title":"One"}}`)}

		w := env.do(http.MethodPost, "/api/books/chapter", `{"title":"One"}`, middleware.RequestIDHeader, "req-42")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"chapter":{"title":"One"}}`, w.Body.String())
		assert.JSONEq(t, `{"title":"One"}`, string(env.gateway.forwarded))
		assert.Equal(t, "req-42", env.gateway.requestID)
	})

	t.Run("upstream status passes through", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateway.resp = &upstream.Response{StatusCode: http.StatusUnprocessableEntity, Body: []byte("outline missing")}

		w := env.do(http.MethodPost, "/api/books/chapter", `{}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"error":"outline missing"}`, w.Body.String())
	})

	t.Run("empty upstream error body", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateway.resp = &upstream.Response{StatusCode: http.StatusBadGateway}

		w := env.do(http.MethodPost, "/api/books/chapter", `{}`)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "generation service error", decode(t, w)["error"])
	})

	t.Run("timeout", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateway.err = apperrors.ErrUpstreamTimeout

		w := env.do(http.MethodPost, "/api/books/chapter", `{}`)

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, decode(t, w)["error"], "timeout")
	})

	t.Run("transport failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateway.err = errors.New("dial tcp: refused")

		w := env.do(http.MethodPost, "/api/books/chapter", `{}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "dial tcp: refused", decode(t, w)["error"])
	})

	t.Run("invalid body", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(http.MethodPost, "/api/books/chapter", `{not json`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, env.gateway.forwarded)
	})
}

func TestGetCourse(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses/c1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Plant Biology", data["title"])
	assert.Len(t, data["chapters"], 2)

	w = env.do(http.MethodGet, "/v1/courses/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(apperrors.CodeCourseNotFound), body["code"])
}

func TestListCoursesReturnsPageMeta(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses?page=1&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	meta := decode(t, w)["meta"].(map[string]any)
	assert.EqualValues(t, 5, meta["page_size"])
	assert.EqualValues(t, 1, meta["total"])

	w = env.do(http.MethodGet, "/v1/courses?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChapterOfOtherCourseIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.store.chapters["foreign"] = &entityChapterOfOtherCourse

	w := env.do(http.MethodGet, "/v1/courses/c1/chapters/foreign", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateContentReplacesFirstOccurrence(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/v1/courses/c1/chapters/ch1/content", map[string]any{
		"oldContent": "chemical energy",
		"newContent": "stored chemical energy",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["replaced"])
	assert.Contains(t, env.store.content("ch1"), "into stored chemical energy.")
	assert.Equal(t, 1, env.store.writes)

	// 找不到原文时不写回
	w = env.do(http.MethodPut, "/v1/courses/c1/chapters/ch1/content", map[string]any{
		"oldContent": "mitochondria",
		"newContent": "x",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]any)["replaced"])
	assert.Equal(t, 1, env.store.writes)
}

func TestDirectiveRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/courses/c1/chapters/ch1/directives/question", map[string]any{
		"selection": "Photosynthesis converts light energy into chemical energy.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ch1", decode(t, w)["data"].(map[string]any)["id"])

	w = env.do(http.MethodPost, "/v1/courses/c1/chapters/ch1/directives/summarize", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeValidationFailed), decode(t, w)["code"])

	// 选区过短
	w = env.do(http.MethodPost, "/v1/courses/c1/chapters/ch1/directives/expand", map[string]any{"selection": "<b>light</b>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocateHighlightsAcrossTags(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/courses/c1/chapters/ch1/selection", map[string]any{
		"selection": "converts light energy into",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["found"])
	assert.Equal(t, true, data["valid"])
	match := data["match"].(map[string]any)
	assert.Equal(t, false, match["exact"])
	assert.Equal(t, "converts <strong>light energy</strong> into", match["html"])
	assert.Contains(t, data["highlighted"], `<mark class="selection-highlight">`)
}

func TestLocateDiscardsInvalidSelection(t *testing.T) {
	env := newTestEnv(t)

	// "light" 在章节中存在，但不足 10 个字符
	w := env.do(http.MethodPost, "/v1/courses/c1/chapters/ch1/selection", map[string]any{"selection": "light"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.NotEmpty(t, data["issue"])
	assert.Equal(t, false, data["found"])
	assert.Empty(t, data["highlighted"])
	assert.Nil(t, data["match"])
}

func TestSuggestDirectives(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/editor/suggestions", map[string]any{"selection": "short text"})

	require.Equal(t, http.StatusOK, w.Code)
	dirs := decode(t, w)["data"].(map[string]any)["directives"].([]any)
	assert.NotEmpty(t, dirs)
}

func TestGetDraft(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses/c1/chapters/ch1/draft", nil)

	require.Equal(t, http.StatusOK, w.Code)
	draft := decode(t, w)["data"].(map[string]any)["draft"].(string)
	assert.True(t, strings.HasPrefix(draft, "## Light"), draft)
}

func TestExportCourseHTML(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses/c1/export?download=1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, `attachment; filename="plant-biology.html"`, w.Header().Get("Content-Disposition"))
	body := w.Body.String()
	assert.Contains(t, body, "Plant Biology")
	assert.Less(t, strings.Index(body, "Welcome to plant biology"), strings.Index(body, "Photosynthesis converts"))
}

func TestExportCourseDOCX(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses/c1/export?format=docx", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, export.DocxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="plant-biology.docx"`, w.Header().Get("Content-Disposition"))
	// zip 包头
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK\x03\x04")))
}

func TestExportUnknownFormat(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/courses/c1/export?format=pdf", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeInvalidParam), decode(t, w)["code"])
}

func TestWorkspaceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	session := []string{middleware.SessionIDHeader, "tab-1"}

	w := env.do(http.MethodPost, "/v1/courses/c1/workspace", nil, session...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "loaded", snap["state"])
	assert.Equal(t, "tab-1", snap["sessionId"])
	// 无持久化选择时回退到导论
	assert.Equal(t, "intro", snap["activeChapterId"])

	w = env.do(http.MethodPut, "/v1/courses/c1/workspace/active-chapter", map[string]any{"chapterId": "ch1"}, session...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ch1", decode(t, w)["data"].(map[string]any)["activeChapterId"])
	assert.Equal(t, "ch1", env.selections.active["tab-1/c1"])

	w = env.do(http.MethodPut, "/v1/courses/c1/workspace/active-chapter", map[string]any{"chapterId": "nope"}, session...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 另一会话互不影响
	w = env.do(http.MethodGet, "/v1/courses/c1/workspace", nil, middleware.SessionIDHeader, "tab-2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "intro", decode(t, w)["data"].(map[string]any)["activeChapterId"])

	w = env.do(http.MethodPost, "/v1/courses/c1/workspace/refresh", nil, session...)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(http.MethodDelete, "/v1/courses/c1/workspace", nil, session...)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodPost, "/v1/courses/c1/workspace/refresh", nil, session...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkspaceOpenMissingCourse(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/courses/ghost/workspace", nil, middleware.SessionIDHeader, "tab-1")

	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/v1/courses/ghost/workspace", nil, middleware.SessionIDHeader, "tab-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["data"].(map[string]any)["state"])
}

func TestReady(t *testing.T) {
	ok := stubChecker{}
	upstreams := map[string]service.HealthReporter{"ai_service": stubHealth{err: errors.New("down")}}

	r := gin.New()
	h := NewHealthHandler(ok, ok, upstreams, "v1")
	r.GET("/ready", h.Ready)
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "degraded", checks["ai_service"].(map[string]any)["status"])

	h = NewHealthHandler(ok, stubChecker{err: errors.New("redis down")}, nil, "v1")
	r = gin.New()
	r.GET("/ready", h.Ready)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode(t, w)["status"])

	h = NewHealthHandler(nil, ok, nil, "")
	r = gin.New()
	r.GET("/ready", h.Ready)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
