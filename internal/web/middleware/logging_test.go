package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/querydesk/internal/logging"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logging.Setup("debug", "json", &buf)
	return &buf
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		body      string
		wantLevel string
	}{
		{"ok request", "/api/state", http.StatusOK, `{"tables":[]}`, "INFO"},
		{"client error", "/api/query", http.StatusBadRequest, `{"code":"QRY001"}`, "INFO"},
		{"server error", "/api/tables/refresh", http.StatusBadGateway, `{"code":"HTTP002"}`, "WARN"},
		{"event stream", "/api/events", http.StatusOK, "event: state\n\n", "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			h := middleware.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.EqualValues(t, tt.status, entry["status"])
			assert.EqualValues(t, len(tt.body), entry["bytes"])
			assert.NotEmpty(t, entry["request_id"])
		})
	}
}

func TestResponseWriter_FlushAndImplicitStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	_, err := ww.Write([]byte("data: {}\n\n"))
	require.NoError(t, err)
	ww.WriteHeader(http.StatusTeapot) // ignored after the first write
	ww.Flush()

	assert.Equal(t, http.StatusOK, ww.status)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, ww.Unwrap())
}
