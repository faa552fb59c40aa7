package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestFrom_IncludesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithCorrelation(context.Background(), Correlation{RunID: "run-1", ScenarioID: "TC010"})
	ctx = WithCorrelation(ctx, Correlation{FixtureKey: "key-1", Channel: "API"})
	From(ctx).Info("hello")

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "TC010", entry["scenario_id"])
	assert.Equal(t, "key-1", entry["fixture_key"])
	assert.Equal(t, "API", entry["channel"])
	assert.NotContains(t, entry, "request_id")
}

func TestCorrelationFromContext_NilAndEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Correlation{}, CorrelationFromContext(nil))
	assert.Equal(t, Correlation{}, CorrelationFromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestRequestContextMiddleware_AdoptsClientCorrelation(t *testing.T) {
	var seen Correlation
	handler := RequestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	sent := Correlation{RunID: "run-1", ScenarioID: "TC001", FixtureKey: "k1", Channel: "API"}
	req := httptest.NewRequest(http.MethodGet, "/notes/api/health-check", nil)
	SetCorrelationHeaders(req.Header, sent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "run-1", seen.RunID)
	assert.Equal(t, "TC001", seen.ScenarioID)
	assert.Equal(t, "k1", seen.FixtureKey)
	assert.Empty(t, seen.Channel, "channel is not sent over the wire")
	assert.NotEmpty(t, seen.RequestID)
	assert.Equal(t, req.Header.Get(HeaderRequestID), seen.RequestID)
	assert.Equal(t, seen.RequestID, rec.Header().Get(HeaderRequestID))
}

func TestRequestContextMiddleware_GeneratesRequestID(t *testing.T) {
	var seen Correlation
	handler := RequestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, strings.HasPrefix(seen.RequestID, "req-"), seen.RequestID)
	assert.Empty(t, seen.ScenarioID)
	assert.Equal(t, seen.RequestID, rec.Header().Get(HeaderRequestID))
}

func TestSetCorrelationHeaders_SkipsEmptyFields(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	SetCorrelationHeaders(h, Correlation{ScenarioID: "TC210", RequestID: "r1"})
	assert.Equal(t, "TC210", h.Get(HeaderScenarioID))
	assert.Equal(t, "r1", h.Get(HeaderRequestID))
	assert.Empty(t, h.Values(HeaderRunID))
	assert.Empty(t, h.Values(HeaderFixtureKey))
	assert.Equal(t, Correlation{ScenarioID: "TC210", RequestID: "r1"}, CorrelationFromHeaders(h))
}

func TestAccessLogMiddleware_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()
	SetLevel(slog.LevelDebug)
	defer SetLevel(slog.LevelInfo)

	handler := AccessLogMiddleware("fakeapp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "http_access", entry["msg"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, float64(len("short and stout")), entry["resp_bytes"])
	assert.Equal(t, "fakeapp", entry["pkg"])
}
