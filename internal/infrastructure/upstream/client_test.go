package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduflow-api/pkg/errors"
	"eduflow-api/pkg/logger"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

var storeBackoffs = []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond, 2000 * time.Millisecond}

func newTestClient(t *testing.T, srv *httptest.Server, rec *sleepRecorder) *Client {
	t.Helper()
	return New(Options{
		Service:       "store",
		BaseURL:       srv.URL + "/",
		APIKey:        "secret-key",
		Timeout:       time.Second,
		RetryBackoffs: storeBackoffs,
		HTTPClient:    srv.Client(),
		Sleep:         rec.sleep,
	})
}

func TestGetRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get(APIKeyHeader))
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"c1"}}`)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	body, err := newTestClient(t, srv, rec).GetJSON(context.Background(), "/courses/c1", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"id":"c1"}}`, string(body))
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, storeBackoffs, rec.delays)
	assert.Equal(t, 3500*time.Millisecond, rec.total())
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, &sleepRecorder{}).GetJSON(context.Background(), "/courses", nil)

	require.Error(t, err)
	assert.EqualValues(t, 4, calls.Load())
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeUpstreamError, appErr.Code)
	assert.Equal(t, "502 Bad Gateway. upstream exploded", appErr.Message)
	assert.Equal(t, http.StatusBadGateway, StatusCodeOf(err))
}

func TestPostIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	_, err := newTestClient(t, srv, rec).SendJSON(context.Background(), http.MethodPost, "/courses", map[string]string{"title": "x"})

	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, rec.delays)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, &sleepRecorder{}).GetJSON(context.Background(), "/courses/none", nil)
	assert.True(t, apperrors.IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestStatusTranslation(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		code    apperrors.ErrorCode
		message string
	}{
		{http.StatusUnauthorized, `{}`, apperrors.CodeUpstreamUnauthorized, "invalid API key for store"},
		{http.StatusBadRequest, `{"message":["title too short","outline missing"]}`, apperrors.CodeValidationFailed, "invalid data: title too short; outline missing"},
		{http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, apperrors.CodeValidationFailed, "invalid data: field required"},
		{http.StatusServiceUnavailable, ``, apperrors.CodeUpstreamUnavailable, "store is temporarily unavailable, try again in a few seconds"},
		{http.StatusTeapot, `short and stout`, apperrors.CodeUpstreamError, "418 I'm a teapot. short and stout"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, &sleepRecorder{}).SendJSON(context.Background(), http.MethodPut, "/chapters/1", nil)
			appErr := apperrors.AsAppError(err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.message, appErr.UserMessage())
		})
	}
}

func TestTimeoutIsDistinguishable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{Service: "ai-service", BaseURL: srv.URL, Timeout: 50 * time.Millisecond, HTTPClient: srv.Client()})
	_, err := c.SendJSON(context.Background(), http.MethodPost, "/v1/incremental/create-chapter", map[string]any{})

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Contains(t, apperrors.AsAppError(err).UserMessage(), "timeout")
	assert.Equal(t, http.StatusGatewayTimeout, apperrors.AsAppError(err).HTTPStatus)
}

func TestNetworkErrorIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{Service: "store", BaseURL: url, Timeout: time.Second})
	_, err := c.SendJSON(context.Background(), http.MethodPost, "/courses", nil)

	require.Error(t, err)
	assert.False(t, apperrors.IsTimeout(err))
	assert.Equal(t, apperrors.CodeUpstreamNetwork, apperrors.AsAppError(err).Code)
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	c := New(Options{Service: "store", BaseURL: srv.URL, Timeout: 5 * time.Second, HTTPClient: srv.Client()})
	_, err := c.SendJSON(ctx, http.MethodPost, "/courses", nil)
	require.Error(t, err)
	assert.False(t, apperrors.IsTimeout(err))
}

func TestForwardReturnsNon2xxAndPropagatesRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-77", r.Header.Get(RequestIDHeader))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"topic":"x"}`, string(body))
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"busy"}`)
	}))
	defer srv.Close()

	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-77")
	c := New(Options{Service: "ai-service", BaseURL: srv.URL, HTTPClient: srv.Client()})
	resp, err := c.Forward(ctx, Request{Method: http.MethodPost, Path: "/v1/books/chapter", Body: []byte(`{"topic":"x"}`)})

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.JSONEq(t, `{"error":"busy"}`, string(resp.Body))
}
