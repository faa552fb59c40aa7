package webflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-e2e/internal/artifacts"
	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/obs"
)

const formPage = `<!doctype html>
<html><head><title>%s</title></head>
<body><main>
<label for="title-input">Title</label><input id="title-input" name="title">
<input name="company">
<div data-testid="alert-message">Profile updated successful</div>
</main></body></html>`

// The edit form saves through a slow PUT and only then updates the card
// switch, so a reader that does not wait for the save sees the old state.
const togglePage = `<!doctype html>
<html><head><title>Notes</title></head>
<body><main>
<div data-testid="note-card">
<input type="checkbox" data-testid="toggle-note-switch" disabled>
<button onclick="document.getElementById('edit').style.display='block'">Edit</button>
</div>
<div id="edit" style="display:none">
<input type="checkbox" data-testid="note-completed">
<button onclick="save()">Save</button>
</div>
<script>
async function save() {
  const completed = document.querySelector('[data-testid=note-completed]').checked;
  const r = await fetch('/notes/api/notes/n1', {method: 'PUT', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({completed})});
  const env = await r.json();
  document.querySelector('[data-testid=toggle-note-switch]').checked = env.data.completed;
}
</script>
</main></body></html>`

// newTestSession launches a headless browser against a static page. The test
// is skipped when Playwright or its browsers are not installed.
func newTestSession(t *testing.T, sink Sink) *Session {
	t.Helper()
	return newTestSessionWith(t, sink, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, formPage, PageTitle)
	}))
}

func newTestSessionWith(t *testing.T, sink Sink, h http.Handler) *Session {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	d, err := Launch(Options{
		BaseURL:           srv.URL + "/notes/",
		Headless:          true,
		ActionTimeout:     time.Second,
		NavigationTimeout: 5 * time.Second,
		ResponseTimeout:   5 * time.Second,
	})
	if err != nil {
		if errs.Is(err, errs.Unavailable) {
			t.Skip("Playwright not available:", err)
		}
		t.Fatalf("launch browser: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	s, err := d.NewSession(fixture.OpenTemp(t), sink)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSteps_FieldFallsBackToSelector(t *testing.T) {
	s := newTestSession(t, nil)
	ctx := context.Background()

	err := s.Steps("fill form").
		Goto("app/profile").
		SeeTitle(PageTitle).
		Fill("title", s.Field("Title", `input[name="title"]`), "groceries").
		Fill("company", s.Field("Company", `input[name="company"]`), "acme_corp").
		SeeValue("title", s.Field("Title", `input[name="title"]`), "groceries").
		SeeValue("company", s.CSS(`input[name="company"]`), "acme_corp").
		SeeText("alert-message", s.Alert(), MsgProfileUpdated).
		Err(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.URL("app/profile"), s.Page().URL())
}

func TestSteps_FailureIsUIFailureWithScreenshot(t *testing.T) {
	store := artifacts.TestStore(t, "run-browser")
	s := newTestSession(t, store)
	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{ScenarioID: "TC000"})

	var ran bool
	err := s.Steps("check alert").
		Goto("app/profile").
		SeeText("alert-message", s.Alert(), "this text is not on the page").
		Do("never runs", func() error { ran = true; return nil }).
		Err(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.UIFailure, errs.CodeOf(err))
	assert.False(t, ran, "steps after a failure are skipped")

	shots := s.Artifacts()
	require.Len(t, shots, 1)
	assert.Contains(t, shots[0], "/runs/run-browser/TC000/check_alert-")
}

func TestToggleNoteCompleted_RecordsSavedState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /notes/api/notes/n1", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Completed bool `json:"completed"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"status":200,"message":"Note successfully Updated","data":{"id":"n1","completed":%t}}`, body.Completed)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, togglePage)
	})
	s := newTestSessionWith(t, nil, mux)

	key := fixture.NewKey()
	require.NoError(t, s.Store().Write(key, fixture.Record{fixture.FieldNoteID: "n1"}))
	wn := fixture.WithNote{
		LoggedIn: fixture.LoggedIn{Registered: fixture.Registered{Key: key}, Token: "tok"},
		Note:     fixture.Note{ID: "n1"},
	}

	got, err := s.ToggleNoteCompleted(context.Background(), wn)
	require.NoError(t, err)
	assert.True(t, got.Note.Completed)

	rec, err := s.Store().Read(key)
	require.NoError(t, err)
	assert.True(t, rec.Bool(fixture.FieldNoteCompleted))
}
