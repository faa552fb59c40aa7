package fakeapp

import (
	"net/http/httptest"
	"testing"

	"github.com/kuitang/notes-e2e/internal/ratelimit"
)

// TestServer is a fake API bound to an httptest server.
type TestServer struct {
	*httptest.Server
	App *Server
}

// APIBaseURL returns the API root, e.g. http://127.0.0.1:1234/notes/api/.
func (ts *TestServer) APIBaseURL() string {
	return ts.URL + BasePath + "/"
}

// BaseURL returns the application root, the value NOTES_BASE_URL would hold.
func (ts *TestServer) BaseURL() string {
	return ts.URL + "/notes/"
}

// NewTestServer starts a fake API with a fast insecure hasher and a rate
// limit high enough for property tests. It is closed on test cleanup.
func NewTestServer(t testing.TB) *TestServer {
	t.Helper()
	app, err := New(Options{
		Hasher: FakeInsecureHasher{},
		RateLimit: &ratelimit.Config{
			AuthenticatedRPS:   1000,
			AuthenticatedBurst: 1000,
			AnonymousRPS:       1000,
			AnonymousBurst:     1000,
			CleanupInterval:    ratelimit.DefaultConfig.CleanupInterval,
		},
	})
	if err != nil {
		t.Fatalf("start fake notes API: %v", err)
	}
	srv := httptest.NewServer(app)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})
	return &TestServer{Server: srv, App: app}
}
