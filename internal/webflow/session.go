package webflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// Application texts asserted by more than one helper.
const (
	PageTitle         = "Notes React Application for Automation Testing Practice"
	MsgAccountCreated = "User account created successfully"
	MsgAccountDeleted = "Your account has been deleted. You should create a new account to continue."
)

// Session is one isolated browser context with a single page.
type Session struct {
	opts   Options
	bctx   playwright.BrowserContext
	page   playwright.Page
	expect playwright.PlaywrightAssertions
	store  *fixture.Store
	sink   Sink

	mu        sync.Mutex
	artifacts []string
}

// Page returns the underlying page.
func (s *Session) Page() playwright.Page { return s.page }

// Store returns the fixture store the session writes to.
func (s *Session) Store() *fixture.Store { return s.store }

// Artifacts returns the locations of failure screenshots taken so far.
func (s *Session) Artifacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.artifacts...)
}

// Close closes the browser context.
func (s *Session) Close() error {
	return s.bctx.Close()
}

// URL returns the absolute URL of an application route such as "app/login".
func (s *Session) URL(route string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/" + strings.TrimLeft(route, "/")
}

// Locators. Stable test ids come first; Field falls back from the label to
// a structural selector.

// TestID locates an element by its data-testid.
func (s *Session) TestID(id string) playwright.Locator {
	return s.page.GetByTestId(id)
}

// Button locates a button by its accessible name.
func (s *Session) Button(name string) playwright.Locator {
	return s.page.GetByRole("button", playwright.PageGetByRoleOptions{Name: name})
}

// ExactButton locates a button whose accessible name is exactly name.
func (s *Session) ExactButton(name string) playwright.Locator {
	return s.page.GetByRole("button", playwright.PageGetByRoleOptions{Name: name, Exact: playwright.Bool(true)})
}

// Link locates a link by its accessible name.
func (s *Session) Link(name string) playwright.Locator {
	return s.page.GetByRole("link", playwright.PageGetByRoleOptions{Name: name})
}

// Heading locates a heading by its accessible name.
func (s *Session) Heading(name string) playwright.Locator {
	return s.page.GetByRole("heading", playwright.PageGetByRoleOptions{Name: name})
}

// Field locates a form control by label, or by css when the label is not
// associated with the control.
func (s *Session) Field(label, css string) playwright.Locator {
	return s.page.GetByLabel(label).Or(s.page.Locator(css))
}

// Text locates an element by visible text.
func (s *Session) Text(text string) playwright.Locator {
	return s.page.GetByText(text)
}

// CSS locates elements by selector.
func (s *Session) CSS(selector string) playwright.Locator {
	return s.page.Locator(selector)
}

// Alert locates the application's alert banner.
func (s *Session) Alert() playwright.Locator {
	return s.TestID("alert-message")
}

// Steps runs UI actions in order and stops at the first failure, in the
// manner of a sticky-error writer. Err reports the failure as a UIFailure
// and captures a screenshot.
type Steps struct {
	s    *Session
	what string
	err  error
}

// Steps starts a step sequence named what.
func (s *Session) Steps(what string) *Steps {
	return &Steps{s: s, what: what}
}

// Do runs fn unless an earlier step failed.
func (st *Steps) Do(step string, fn func() error) *Steps {
	if st.err != nil {
		return st
	}
	if err := fn(); err != nil {
		st.err = errs.Wrap(errs.UIFailure, st.what+": "+step, err)
	}
	return st
}

// Failf records a failure that did not come from Playwright.
func (st *Steps) Failf(format string, args ...any) *Steps {
	if st.err == nil {
		st.err = errs.New(errs.UIFailure, st.what+": "+fmt.Sprintf(format, args...))
	}
	return st
}

// Failed reports whether a step has failed.
func (st *Steps) Failed() bool { return st.err != nil }

// Err returns the first failure. On failure a full-page screenshot is taken
// and, when a sink is configured, uploaded.
func (st *Steps) Err(ctx context.Context) error {
	if st.err != nil {
		st.s.captureFailure(ctx, st.what)
	}
	return st.err
}

// Goto navigates to route and waits for DOMContentLoaded.
func (st *Steps) Goto(route string) *Steps {
	return st.Do("goto "+route, func() error {
		_, err := st.s.page.Goto(st.s.URL(route), playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
		return err
	})
}

// Fill types value into loc.
func (st *Steps) Fill(name string, loc playwright.Locator, value string) *Steps {
	return st.Do("fill "+name, func() error { return loc.Fill(value) })
}

// Click clicks loc.
func (st *Steps) Click(name string, loc playwright.Locator) *Steps {
	return st.Do("click "+name, func() error { return loc.Click() })
}

// ForceClick clicks loc without actionability checks.
func (st *Steps) ForceClick(name string, loc playwright.Locator) *Steps {
	return st.Do("click "+name, func() error {
		return loc.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(true),
			Timeout: playwright.Float(ms(st.s.opts.ActionTimeout)),
		})
	})
}

// Check ticks the checkbox or switch at loc.
func (st *Steps) Check(name string, loc playwright.Locator) *Steps {
	return st.Do("check "+name, func() error { return loc.Check() })
}

// Select picks option value in the select at loc.
func (st *Steps) Select(name string, loc playwright.Locator, value string) *Steps {
	return st.Do("select "+name, func() error {
		_, err := loc.SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice(value)})
		return err
	})
}

// WaitVisible waits until loc is visible.
func (st *Steps) WaitVisible(name string, loc playwright.Locator) *Steps {
	return st.Do("wait for "+name, func() error {
		return loc.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible})
	})
}

// SeeText asserts loc contains text (a string or *regexp.Regexp) and is
// visible.
func (st *Steps) SeeText(name string, loc playwright.Locator, text any) *Steps {
	return st.Do(fmt.Sprintf("%s contains %v", name, text), func() error {
		if err := st.s.expect.Locator(loc).ToContainText(text); err != nil {
			return err
		}
		return st.s.expect.Locator(loc).ToBeVisible()
	})
}

// SeeValue asserts the input at loc holds value and is visible.
func (st *Steps) SeeValue(name string, loc playwright.Locator, value string) *Steps {
	return st.Do(fmt.Sprintf("%s has value %q", name, value), func() error {
		if err := st.s.expect.Locator(loc).ToHaveValue(value); err != nil {
			return err
		}
		return st.s.expect.Locator(loc).ToBeVisible()
	})
}

// SeeVisible asserts loc is visible.
func (st *Steps) SeeVisible(name string, loc playwright.Locator) *Steps {
	return st.Do(name+" visible", func() error { return st.s.expect.Locator(loc).ToBeVisible() })
}

// SeeEnabled asserts loc is visible and enabled.
func (st *Steps) SeeEnabled(name string, loc playwright.Locator) *Steps {
	return st.Do(name+" enabled", func() error {
		if err := st.s.expect.Locator(loc).ToBeVisible(); err != nil {
			return err
		}
		return st.s.expect.Locator(loc).ToBeEnabled()
	})
}

// SeeUnchecked asserts the checkbox at loc is not checked.
func (st *Steps) SeeUnchecked(name string, loc playwright.Locator) *Steps {
	return st.Do(name+" not checked", func() error { return st.s.expect.Locator(loc).Not().ToBeChecked() })
}

// SeeChecked asserts the checkbox or switch at loc is checked.
func (st *Steps) SeeChecked(name string, loc playwright.Locator) *Steps {
	return st.Do(name+" checked", func() error { return st.s.expect.Locator(loc).ToBeChecked() })
}

// SeeURL asserts the page URL matches re.
func (st *Steps) SeeURL(re *regexp.Regexp) *Steps {
	return st.Do("url matches "+re.String(), func() error { return st.s.expect.Page(st.s.page).ToHaveURL(re) })
}

// SeeTitle asserts the document title.
func (st *Steps) SeeTitle(title string) *Steps {
	return st.Do("title is "+title, func() error { return st.s.expect.Page(st.s.page).ToHaveTitle(title) })
}

// Count stores the number of elements matching loc in n.
func (st *Steps) Count(name string, loc playwright.Locator, n *int) *Steps {
	return st.Do("count "+name, func() error {
		c, err := loc.Count()
		*n = c
		return err
	})
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *Session) captureFailure(ctx context.Context, what string) {
	log := obs.From(ctx)
	shot, err := s.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)})
	if err != nil {
		log.Warn("screenshot_failed", "step", what, "error", err)
		return
	}
	if s.sink == nil {
		log.Info("screenshot_captured", "step", what, "bytes", len(shot), "url", s.page.URL())
		return
	}

	corr := obs.CorrelationFromContext(ctx)
	dir := corr.ScenarioID
	if dir == "" {
		dir = corr.FixtureKey
	}
	if dir == "" {
		dir = "unscoped"
	}
	name := fmt.Sprintf("%s/%s-%d.png", dir, unsafeName.ReplaceAllString(what, "_"), time.Now().UnixMilli())
	loc, err := s.sink.Put(ctx, name, shot, "image/png")
	if err != nil {
		log.Warn("screenshot_upload_failed", "step", what, "error", err)
		return
	}
	s.mu.Lock()
	s.artifacts = append(s.artifacts, loc)
	s.mu.Unlock()
}
