package scenario

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

// Status is the outcome of one scenario.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
	Skip Status = "skip"
)

// Result records one scenario execution.
type Result struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Channel    Channel       `json:"channel"`
	Tags       []Tag         `json:"tags"`
	Key        string        `json:"fixture_key"`
	Status     Status        `json:"status"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
	ErrorCode  errs.Code     `json:"error_code,omitempty"`
	Teardown   []string      `json:"teardown_errors,omitempty"`
	Artifacts  []string      `json:"artifacts,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty"`
}

// Err returns the scenario error and the teardown errors joined, or nil.
func (r Result) Err() error {
	var all []error
	if r.Error != "" {
		all = append(all, errors.New(r.Error))
	}
	for _, t := range r.Teardown {
		all = append(all, errors.New(t))
	}
	return errors.Join(all...)
}

const defaultTeardownTimeout = 2 * time.Minute

// Runner executes scenarios against one target. Browser may be nil, in
// which case scenarios that need it are skipped.
type Runner struct {
	API     *notesapi.Client
	Store   *fixture.Store
	Browser *webflow.Driver
	Sink    webflow.Sink

	RunID           string
	Parallel        int
	TeardownTimeout time.Duration

	// OnResult, when set, is called as each scenario finishes. Calls may
	// come from several goroutines.
	OnResult func(Result)
}

// Run executes scenarios with at most Parallel running at once and returns
// the results in input order. Scenarios never retry.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, len(scenarios))
	var g errgroup.Group
	g.SetLimit(max(r.Parallel, 1))
	for i, s := range scenarios {
		g.Go(func() error {
			results[i] = r.RunOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunOne executes one scenario under a fresh fixture key. Its teardown
// stack runs on every exit path, including panics.
func (r *Runner) RunOne(ctx context.Context, s Scenario) Result {
	key := fixture.NewKey()
	ctx = obs.WithCorrelation(ctx, obs.Correlation{
		RunID:      r.RunID,
		ScenarioID: s.ID,
		FixtureKey: key,
		Channel:    string(s.Channel),
	})
	log := obs.From(ctx)
	res := Result{
		ID:      s.ID,
		Title:   s.Title,
		Channel: s.Channel,
		Tags:    s.Tags,
		Key:     key,
		Started: time.Now(),
	}

	env := newEnv(ctx, r, s, key)
	var runErr error
	if s.Channel.UsesBrowser() && r.Browser == nil {
		runErr = env.Skip("no browser available")
	} else {
		log.Info("scenario_started", "title", s.Title)
		runErr = runGuarded(func() error { return s.Run(env) })
	}

	timeout := r.TeardownTimeout
	if timeout <= 0 {
		timeout = defaultTeardownTimeout
	}
	for _, err := range env.teardown(timeout) {
		res.Teardown = append(res.Teardown, err.Error())
	}
	res.Artifacts = env.Artifacts()
	res.Duration = time.Since(res.Started)

	switch {
	case errors.Is(runErr, ErrSkipped):
		res.Status = Skip
		res.SkipReason = runErr.Error()
	case runErr != nil:
		res.Status = Fail
		res.Error = runErr.Error()
		res.ErrorCode = errs.CodeOf(runErr)
	case len(res.Teardown) > 0:
		res.Status = Fail
		res.ErrorCode = errs.Internal
	default:
		res.Status = Pass
	}

	log.Info("scenario_finished",
		"status", res.Status,
		"duration_ms", res.Duration.Milliseconds(),
		"error_code", res.ErrorCode,
		"teardown_errors", len(res.Teardown),
	)
	if r.OnResult != nil {
		r.OnResult(res)
	}
	return res
}
