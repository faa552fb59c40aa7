// Package webflow drives the notes web UI with Playwright. Each helper
// performs the same logical operation as its apiflow counterpart, checks the
// visible outcome and records the result in the fixture store.
package webflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// Options configures the browser.
type Options struct {
	// BaseURL is the application root, e.g. https://host/notes/.
	BaseURL           string
	Browser           string
	Headless          bool
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	// ResponseTimeout bounds waits on register and login API responses.
	ResponseTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Browser == "" {
		o.Browser = "chromium"
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 10 * time.Second
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 60 * time.Second
	}
}

// Sink receives failure screenshots. *artifacts.Store satisfies it.
type Sink interface {
	Put(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

// Driver owns the Playwright process and one launched browser. Sessions
// are isolated browser contexts and may be used concurrently.
type Driver struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser

	mu     sync.Mutex
	closed bool
}

// Launch starts Playwright and the configured browser. It returns an
// Unavailable error when the driver or browser binaries are missing.
func Launch(opts Options) (*Driver, error) {
	opts.defaults()
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errs.New(errs.InvalidArgument, "webflow: base URL is required")
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "playwright not available", err)
	}

	var bt playwright.BrowserType
	switch opts.Browser {
	case "chromium":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser %q", opts.Browser))
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, "could not launch "+opts.Browser, err)
	}
	obs.Pkg("webflow").Info("browser_launched", "browser", opts.Browser, "headless", opts.Headless)
	return &Driver{opts: opts, pw: pw, browser: browser}, nil
}

// Close shuts the browser and the Playwright process down.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	bErr := d.browser.Close()
	pErr := d.pw.Stop()
	if bErr != nil {
		return bErr
	}
	return pErr
}

// NewSession opens a fresh browser context bound to store. sink may be nil.
func (d *Driver) NewSession(store *fixture.Store, sink Sink) (*Session, error) {
	bctx, err := d.browser.NewContext(playwright.BrowserNewContextOptions{
		BaseURL: playwright.String(d.opts.BaseURL),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "new browser context", err)
	}
	bctx.SetDefaultTimeout(ms(d.opts.ActionTimeout))
	bctx.SetDefaultNavigationTimeout(ms(d.opts.NavigationTimeout))

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, errs.Wrap(errs.Unavailable, "new page", err)
	}
	return &Session{
		opts:   d.opts,
		bctx:   bctx,
		page:   page,
		expect: playwright.NewPlaywrightAssertions(ms(d.opts.ActionTimeout)),
		store:  store,
		sink:   sink,
	}, nil
}

func ms(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
