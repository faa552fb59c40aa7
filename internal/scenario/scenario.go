// Package scenario holds the test case catalog and the runner that executes
// it. A scenario reaches its pre-state through typed setup steps on Env,
// performs one action through the API or the browser, asserts the outcome
// and leaves cleanup to the teardown stack Env keeps for it.
package scenario

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kuitang/notes-e2e/internal/errs"
)

// Channel is the surface a scenario drives.
type Channel string

const (
	API       Channel = "API"
	WEB       Channel = "WEB"
	APIAndWeb Channel = "API_AND_WEB"
)

// UsesBrowser reports whether scenarios on c need a browser.
func (c Channel) UsesBrowser() bool {
	return c == WEB || c == APIAndWeb
}

// ParseChannel accepts the channel names in any case.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToUpper(strings.TrimSpace(s))); c {
	case API, WEB, APIAndWeb:
		return c, nil
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("unknown channel %q", s))
}

// Tag classifies a scenario for selection.
type Tag string

const (
	Basic    Tag = "BASIC"
	Full     Tag = "FULL"
	Negative Tag = "NEGATIVE"
)

// ParseTag accepts the tag names in any case, with or without a leading @.
func ParseTag(s string) (Tag, error) {
	switch t := Tag(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "@"))); t {
	case Basic, Full, Negative:
		return t, nil
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("unknown tag %q", s))
}

// Scenario is one test case.
type Scenario struct {
	ID      string
	Title   string
	Channel Channel
	Tags    []Tag
	Run     func(e *Env) error
}

// Name returns "ID - Title".
func (s Scenario) Name() string {
	return s.ID + " - " + s.Title
}

// HasTag reports whether s carries t.
func (s Scenario) HasTag(t Tag) bool {
	return slices.Contains(s.Tags, t)
}

// basic builds a positive scenario, tagged BASIC and FULL.
func basic(id, title string, ch Channel, run func(*Env) error) Scenario {
	return Scenario{ID: id, Title: title, Channel: ch, Tags: []Tag{Basic, Full}, Run: run}
}

// negative builds a negative scenario, tagged FULL and NEGATIVE.
func negative(id, title string, ch Channel, run func(*Env) error) Scenario {
	return Scenario{ID: id, Title: title, Channel: ch, Tags: []Tag{Full, Negative}, Run: run}
}

// Filter selects scenarios. Empty fields match everything. A scenario must
// carry every tag in Tags, be on one of Channels and match one of the IDs
// globs (path.Match syntax, e.g. "TC2*").
type Filter struct {
	Tags     []Tag
	Channels []Channel
	IDs      []string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s Scenario) bool {
	for _, t := range f.Tags {
		if !s.HasTag(t) {
			return false
		}
	}
	if len(f.Channels) > 0 && !slices.Contains(f.Channels, s.Channel) {
		return false
	}
	if len(f.IDs) == 0 {
		return true
	}
	for _, pattern := range f.IDs {
		if ok, err := path.Match(pattern, s.ID); err == nil && ok {
			return true
		}
	}
	return false
}

// Validate reports malformed ID globs.
func (f Filter) Validate() error {
	for _, pattern := range f.IDs {
		if _, err := path.Match(pattern, ""); err != nil {
			return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("bad id pattern %q", pattern), err)
		}
	}
	return nil
}

// Registry is a set of scenarios keyed by ID.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Scenario
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Scenario)}
}

// Register adds scenarios. IDs must be unique and every scenario needs a
// Run function.
func (r *Registry) Register(scenarios ...Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range scenarios {
		if s.ID == "" || s.Run == nil {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q needs an id and a run function", s.Name()))
		}
		if _, dup := r.byID[s.ID]; dup {
			return errs.New(errs.Conflict, "duplicate scenario id "+s.ID)
		}
		r.byID[s.ID] = s
	}
	return nil
}

// MustRegister is Register for package-level catalogs.
func (r *Registry) MustRegister(scenarios ...Scenario) {
	if err := r.Register(scenarios...); err != nil {
		panic(err)
	}
}

// Lookup returns the scenario with id.
func (r *Registry) Lookup(id string) (Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// All returns every scenario ordered by ID.
func (r *Registry) All() []Scenario {
	return r.Select(Filter{})
}

// Select returns the scenarios matching f ordered by ID.
func (r *Registry) Select(f Filter) []Scenario {
	r.mu.RLock()
	out := make([]Scenario, 0, len(r.byID))
	for _, s := range r.byID {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
