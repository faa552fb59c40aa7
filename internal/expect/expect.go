// Package expect runs testify assertions outside of a *testing.T.
//
// Helpers and scenarios are executed both by `go test` and by the
// notes-e2e runner, so they cannot call t.Fatal. A Checker implements
// assert.TestingT, records every failed assertion and turns them into a
// single coded error.
package expect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/assert"

	"github.com/kuitang/notes-e2e/internal/errs"
)

// Checker collects assertion failures.
type Checker struct {
	code  errs.Code
	what  string
	mu    sync.Mutex
	fails []string
}

// New returns a checker whose failures map to code. what names the
// operation being checked, e.g. "POST users/login".
func New(code errs.Code, what string) *Checker {
	return &Checker{code: code, what: what}
}

// Contract is shorthand for New(errs.ContractViolation, what).
func Contract(what string) *Checker {
	return New(errs.ContractViolation, what)
}

// Errorf implements assert.TestingT.
func (c *Checker) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.fails = append(c.fails, compact(msg))
	c.mu.Unlock()
}

// Failed reports whether any assertion failed.
func (c *Checker) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fails) > 0
}

// Err returns nil when every assertion passed.
func (c *Checker) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fails) == 0 {
		return nil
	}
	return errs.New(c.code, c.what+": "+strings.Join(c.fails, "; "))
}

// Assert returns a testify assertion set bound to the checker.
func (c *Checker) Assert() *assert.Assertions {
	return assert.New(c)
}

// Status checks the HTTP status code.
func (c *Checker) Status(want, got int) bool {
	return assert.Equal(c, want, got, "status")
}

// Message checks the envelope message.
func (c *Checker) Message(want, got string) bool {
	return assert.Equal(c, want, got, "message")
}

// compact reduces testify's multi-line report to its Error and Messages
// lines so one failure fits on one log line.
func compact(msg string) string {
	var keep []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Error Trace:") {
			continue
		}
		keep = append(keep, line)
	}
	return strings.Join(keep, " ")
}
