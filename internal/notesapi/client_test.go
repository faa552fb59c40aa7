package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/obs"
)

type captured struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newEchoServer(t *testing.T, status int, envelope string) (*httptest.Server, chan captured) {
	t.Helper()
	seen := make(chan captured, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- captured{method: r.Method, path: r.URL.EscapedPath(), header: r.Header.Clone(), body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, envelope)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	t.Parallel()
	_, err := New("notes/api")
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestDo_ResolvesPathsAndSendsHeaders(t *testing.T) {
	t.Parallel()
	srv, seen := newEchoServer(t, http.StatusOK,
		`{"success":true,"status":200,"message":"Note successfully created","data":{"id":"abc","title":"t","user_id":"u"}}`)

	c, err := New(srv.URL + "/notes/api")
	require.NoError(t, err)

	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RunID: "run-1", ScenarioID: "TC210", FixtureKey: "k1"})
	resp, err := c.CreateNote(ctx, "tok", NoteInput{Title: "t", Description: "d", Category: CategoryHome},
		WithContentFormat("application/json"))
	require.NoError(t, err)

	got := <-seen
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/notes/api/notes", got.path)
	assert.Equal(t, "tok", got.header.Get(HeaderAuthToken))
	assert.Equal(t, "application/json", got.header.Get(HeaderContentFormat))
	assert.Equal(t, "run-1", got.header.Get(obs.HeaderRunID))
	assert.Equal(t, "TC210", got.header.Get(obs.HeaderScenarioID))
	assert.Equal(t, "k1", got.header.Get(obs.HeaderFixtureKey))
	assert.NotEmpty(t, got.header.Get(obs.HeaderRequestID))
	assert.JSONEq(t, `{"title":"t","description":"d","category":"Home"}`, string(got.body))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Envelope.Success)
	assert.Equal(t, "Note successfully created", resp.Envelope.Message)

	var note Note
	require.NoError(t, resp.DecodeData(&note))
	assert.Equal(t, "abc", note.ID)
	assert.Equal(t, "u", note.UserID)
}

func TestDo_ErrorStatusIsNotAnError(t *testing.T) {
	t.Parallel()
	srv, _ := newEchoServer(t, http.StatusUnauthorized,
		`{"success":false,"status":401,"message":"Access token is not valid or has expired, you will need to login"}`)
	c, err := New(srv.URL + "/notes/api/")
	require.NoError(t, err)

	resp, err := c.Profile(context.Background(), "@bad")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 401, resp.Envelope.Status)

	var u User
	err = resp.DecodeData(&u)
	require.Error(t, err)
	assert.Equal(t, errs.ContractViolation, errs.CodeOf(err))
}

func TestDo_NoteIDIsEscapedAsOneSegment(t *testing.T) {
	t.Parallel()
	srv, seen := newEchoServer(t, http.StatusBadRequest,
		`{"success":false,"status":400,"message":"Note ID must be a valid ID"}`)
	c, err := New(srv.URL + "/notes/api/")
	require.NoError(t, err)

	_, err = c.DeleteNote(context.Background(), "tok", "+a/b")
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, "/notes/api/notes/+a%2Fb", got.path)
}

func TestDo_NonJSONBodyIsContractViolation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/notes/api/")
	require.NoError(t, err)

	resp, err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ContractViolation, errs.CodeOf(err))
	require.NotNil(t, resp)
	assert.Contains(t, string(resp.Body), "maintenance")
}

func TestDo_TransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url+"/notes/api/", WithTimeout(2*time.Second))
	require.NoError(t, err)
	_, err = c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
}

func TestDo_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()
	srv, _ := newEchoServer(t, http.StatusOK, `{"success":true,"status":200,"message":"Notes API is Running"}`)
	c, err := New(srv.URL+"/notes/api/", WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = c.HealthCheck(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.HealthCheck(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
}

func TestDo_DebugLogRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()
	obs.SetLevel(slog.LevelDebug)
	defer obs.SetLevel(slog.LevelInfo)

	srv, _ := newEchoServer(t, http.StatusOK,
		`{"success":true,"status":200,"message":"Login successful","data":{"id":"1","token":"super-secret-token"}}`)
	c, err := New(srv.URL + "/notes/api/")
	require.NoError(t, err)

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "hunter22"},
		WithToken("header-secret"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"api_request"`)
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "super-secret-token")
	assert.NotContains(t, out, "header-secret")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &line))
	assert.Equal(t, "notesapi", line["component"])
}
