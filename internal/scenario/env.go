package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kuitang/notes-e2e/internal/apiflow"
	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/expect"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

// Teardown step names. Scenarios whose action is itself a deletion disarm
// the matching step.
const (
	TeardownNote    = "delete note"
	TeardownUser    = "delete user"
	TeardownFixture = "delete fixture"
	TeardownBrowser = "close browser"
)

// ErrSkipped marks a scenario that could not run in this environment.
var ErrSkipped = errors.New("scenario skipped")

type cleanup struct {
	name  string
	fn    func(ctx context.Context) error
	armed bool
}

// Env is the per-scenario environment: a fresh fixture key, the API flow,
// a lazily opened browser session and the teardown stack.
type Env struct {
	ctx      context.Context
	scenario Scenario
	key      string
	deps     *Runner
	api      *apiflow.Flow

	mu       sync.Mutex
	web      *webflow.Session
	webLogin bool
	cleanups []cleanup
}

func newEnv(ctx context.Context, r *Runner, s Scenario, key string) *Env {
	return &Env{
		ctx:      ctx,
		scenario: s,
		key:      key,
		deps:     r,
		api:      apiflow.New(r.API, r.Store),
	}
}

// Context returns the scenario context. It carries the correlation ids.
func (e *Env) Context() context.Context { return e.ctx }

// Key returns the scenario's fixture key.
func (e *Env) Key() string { return e.key }

// Scenario returns the scenario being run.
func (e *Env) Scenario() Scenario { return e.scenario }

// API returns the API helpers bound to the scenario's store.
func (e *Env) API() *apiflow.Flow { return e.api }

// Client returns the raw API client for actions under test.
func (e *Env) Client() *notesapi.Client { return e.deps.API }

// Store returns the run's fixture store.
func (e *Env) Store() *fixture.Store { return e.deps.Store }

// Check returns a contract checker for the action under test.
func (e *Env) Check(what string) *expect.Checker {
	return expect.Contract(e.scenario.ID + " " + what)
}

// Skip returns an error that marks the scenario skipped.
func (e *Env) Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// Web returns the scenario's browser session, opening it on first use. The
// session is closed after every other teardown step.
func (e *Env) Web() (*webflow.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.web != nil {
		return e.web, nil
	}
	if e.deps.Browser == nil {
		return nil, e.Skip("no browser available")
	}
	sess, err := e.deps.Browser.NewSession(e.deps.Store, e.deps.Sink)
	if err != nil {
		return nil, err
	}
	e.web = sess
	e.deferLocked(TeardownBrowser, func(context.Context) error { return sess.Close() })
	return sess, nil
}

// Artifacts returns the screenshots the browser session uploaded.
func (e *Env) Artifacts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.web == nil {
		return nil
	}
	return e.web.Artifacts()
}

// Defer pushes a teardown step. Steps run last-in first-out when the
// scenario ends, whatever the outcome.
func (e *Env) Defer(name string, fn func(ctx context.Context) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deferLocked(name, fn)
}

func (e *Env) deferLocked(name string, fn func(ctx context.Context) error) {
	e.cleanups = append(e.cleanups, cleanup{name: name, fn: fn, armed: true})
}

// Disarm cancels the most recent armed teardown step called name. It
// reports whether one was found.
func (e *Env) Disarm(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		if e.cleanups[i].name == name && e.cleanups[i].armed {
			e.cleanups[i].armed = false
			return true
		}
	}
	return false
}

// Pending returns the names of the armed teardown steps in the order they
// will run.
func (e *Env) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		if e.cleanups[i].armed {
			out = append(out, e.cleanups[i].name)
		}
	}
	return out
}

// teardown runs the armed steps in reverse order on a context that
// survives cancellation of the scenario context. Every step runs even when
// an earlier one fails or panics.
func (e *Env) teardown(timeout time.Duration) []error {
	e.mu.Lock()
	steps := e.cleanups
	e.cleanups = nil
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), timeout)
	defer cancel()
	log := obs.From(ctx)

	var out []error
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		if !st.armed {
			log.Debug("teardown_disarmed", "step", st.name)
			continue
		}
		if err := runGuarded(func() error { return st.fn(ctx) }); err != nil {
			log.Warn("teardown_failed", "step", st.name, "error", err)
			out = append(out, fmt.Errorf("%s: %w", st.name, err))
			continue
		}
		log.Debug("teardown_done", "step", st.name)
	}
	return out
}

// runGuarded turns a panic in fn into an Internal error.
func runGuarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.Internal, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()
	return fn()
}
