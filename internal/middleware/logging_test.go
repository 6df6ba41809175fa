package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/metrics"
)

// captureLog routes the default logger into a buffer for one test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLoggerRecordsRequest(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		bytes   int
		level   string
	}{
		{"implicit 200", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) }, http.StatusOK, 5, "INFO"},
		{"no body", func(w http.ResponseWriter, r *http.Request) {}, http.StatusOK, 0, "INFO"},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, http.StatusNotFound, 0, "INFO"},
		{"server error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) }, http.StatusInternalServerError, 5, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			rr := httptest.NewRecorder()
			Logger(tt.handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/posts/3", nil))

			assert.Equal(t, tt.status, rr.Code)
			entry := lastEntry(t, buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "http request", entry["msg"])
			assert.EqualValues(t, tt.status, entry["status"])
			assert.EqualValues(t, tt.bytes, entry["bytes"])
			assert.Equal(t, "/posts/3", entry["path"])
			assert.Equal(t, "unmatched", entry["route"])
			assert.Equal(t, rr.Header().Get(RequestIDHeader), entry["request_id"])
		})
	}
}

func TestLoggerRequestID(t *testing.T) {
	captureLog(t)

	var seen string
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromCtx(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "upstream-123", seen)
	assert.Equal(t, "upstream-123", rr.Header().Get(RequestIDHeader))
}

func TestLoggerMetricsUseRoutePattern(t *testing.T) {
	captureLog(t)

	r := chi.NewRouter()
	r.Use(Logger)
	r.Get("/metrics-probe/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/metrics-probe/{id}", "202")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-probe/"+id, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestStatusRecorder(t *testing.T) {
	t.Run("first WriteHeader wins", func(t *testing.T) {
		rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		rec.WriteHeader(http.StatusCreated)
		rec.WriteHeader(http.StatusInternalServerError)
		rec.Write([]byte("created"))
		assert.Equal(t, http.StatusCreated, rec.code())
		assert.Equal(t, 7, rec.bytes)
	})

	t.Run("defaults to 200", func(t *testing.T) {
		rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		assert.Equal(t, http.StatusOK, rec.code())
		n, err := rec.Write([]byte("test"))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, http.StatusOK, rec.status)
	})

	t.Run("unwraps for ResponseController", func(t *testing.T) {
		rr := httptest.NewRecorder()
		rec := &statusRecorder{ResponseWriter: rr}
		assert.Same(t, rr, rec.Unwrap())
		assert.NoError(t, http.NewResponseController(rec).Flush())
		assert.True(t, rr.Flushed)
	})
}
