package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kuitang/notes-e2e/internal/artifacts"
	"github.com/kuitang/notes-e2e/internal/config"
	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
	"github.com/kuitang/notes-e2e/internal/report"
	"github.com/kuitang/notes-e2e/internal/scenario"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

// SelectOptions are the scenario selection flags shared by run and list.
type SelectOptions struct {
	Tags     []string
	Channels []string
	IDs      []string
}

func (o *SelectOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.Tags, "tag", nil, "run scenarios carrying all of these tags (BASIC, FULL, NEGATIVE)")
	cmd.Flags().StringSliceVar(&o.Channels, "channel", nil, "run scenarios on any of these channels (API, WEB, API_AND_WEB)")
	cmd.Flags().StringSliceVar(&o.IDs, "id", nil, "run scenarios whose id matches any of these globs, e.g. TC0*")
}

func (o *SelectOptions) filter() (scenario.Filter, error) {
	var f scenario.Filter
	for _, s := range o.Tags {
		t, err := scenario.ParseTag(s)
		if err != nil {
			return f, err
		}
		f.Tags = append(f.Tags, t)
	}
	for _, s := range o.Channels {
		c, err := scenario.ParseChannel(s)
		if err != nil {
			return f, err
		}
		f.Channels = append(f.Channels, c)
	}
	f.IDs = o.IDs
	return f, f.Validate()
}

func (o *SelectOptions) selectScenarios() ([]scenario.Scenario, error) {
	f, err := o.filter()
	if err != nil {
		return nil, commandError("invalid selection", err)
	}
	return scenario.Catalog().Select(f), nil
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SelectOptions

	BaseURL     string
	FixtureDir  string
	Browser     string
	Headed      bool
	NoBrowser   bool
	Parallel    int
	ReportDir   string
	MetricsFile string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scenarios against a Notes deployment",
		Long: `Run the selected scenarios and report the outcome.

Every scenario gets its own fixture record and browser context. Whatever
a scenario creates is deleted when it ends, pass or fail. Scenarios that
need a browser are skipped when Playwright is not installed.

Exit codes:
  0 - no scenario failed
  1 - one or more scenarios failed
  2 - command error (bad flags or configuration)

Examples:
  notes-e2e run --tag BASIC
  notes-e2e run --channel API --parallel 4
  notes-e2e run --id 'TC2*' --format json
  notes-e2e run --base-url http://localhost:8080/notes/ --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return runScenarios(cmd, opts, cfg)
		},
	}

	opts.SelectOptions.bind(cmd)
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "application root URL (default $NOTES_BASE_URL)")
	cmd.Flags().StringVar(&opts.FixtureDir, "fixture-dir", "", "parent directory for the run's fixture records")
	cmd.Flags().StringVar(&opts.Browser, "browser", "", "browser engine (chromium|firefox|webkit)")
	cmd.Flags().BoolVar(&opts.Headed, "headed", false, "show the browser window")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "skip every scenario that needs a browser")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "scenarios to run at once")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "directory for report.json, report.md and report.html")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

// config applies the flags the user set over the loaded configuration.
func (o *RunOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("fixture-dir") {
		cfg.FixtureDir = o.FixtureDir
	}
	if flags.Changed("browser") {
		cfg.Browser = o.Browser
	}
	if flags.Changed("headed") {
		cfg.Headless = !o.Headed
	}
	if flags.Changed("parallel") {
		cfg.Parallel = o.Parallel
	}
	if flags.Changed("report-dir") {
		cfg.ReportDir = o.ReportDir
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.MetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, commandError("invalid configuration", err)
	}
	return cfg, nil
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, cfg *config.Config) error {
	selected, err := opts.selectScenarios()
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return commandError("no scenario matches the selection", nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = obs.WithCorrelation(ctx, obs.Correlation{RunID: runID})
	log := obs.From(ctx)

	client, err := notesapi.New(cfg.APIBaseURL(),
		notesapi.WithTimeout(cfg.APITimeout),
		notesapi.WithRateLimit(cfg.RateRPS, cfg.RateBurst),
	)
	if err != nil {
		return commandError("create API client", err)
	}

	store, closeStore, err := fixture.OpenRun(cfg.FixtureDir)
	if err != nil {
		return commandError("open fixture store", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("fixture_cleanup_failed", "dir", store.Dir(), "error", err)
		}
	}()

	runner := &scenario.Runner{
		API:      client,
		Store:    store,
		RunID:    runID,
		Parallel: cfg.Parallel,
	}

	if needsBrowser(selected) && !opts.NoBrowser {
		driver, err := webflow.Launch(webflow.Options{
			BaseURL:           cfg.BaseURL,
			Browser:           cfg.Browser,
			Headless:          cfg.Headless,
			ActionTimeout:     cfg.ActionTimeout,
			NavigationTimeout: cfg.NavigationTimeout,
			ResponseTimeout:   cfg.ResponseTimeout,
		})
		switch {
		case errs.Is(err, errs.Unavailable):
			log.Warn("browser_unavailable", "error", err)
		case err != nil:
			return commandError("launch browser", err)
		default:
			defer func() { _ = driver.Close() }()
			runner.Browser = driver
		}
	}

	var uploads *artifacts.Store
	if cfg.ArtifactsEnabled() {
		uploads, err = artifacts.New(ctx, artifacts.Config{
			Endpoint:        cfg.ArtifactEndpoint,
			Region:          cfg.ArtifactRegion,
			AccessKeyID:     cfg.ArtifactAccessKey,
			SecretAccessKey: cfg.ArtifactSecretKey,
			Bucket:          cfg.ArtifactBucket,
			PublicURL:       cfg.ArtifactPublicURL,
			UsePathStyle:    cfg.ArtifactEndpoint != "",
		}, runID)
		if err != nil {
			return commandError("configure artifact store", err)
		}
		runner.Sink = uploads
	}

	var metrics *report.Metrics
	if cfg.MetricsFile != "" {
		metrics = report.NewMetrics()
	}
	runner.OnResult = func(res scenario.Result) {
		if metrics != nil {
			metrics.Observe(res)
		}
	}

	log.Info("run_started", "scenarios", len(selected), "base_url", cfg.BaseURL, "parallel", cfg.Parallel,
		"browser", runner.Browser != nil, "fixture_dir", store.Dir())
	started := time.Now()
	results := runner.Run(ctx, selected)
	rep := report.New(runID, cfg.BaseURL, started, time.Now(), results)
	log.Info("run_finished", "passed", rep.Summary.Passed, "failed", rep.Summary.Failed,
		"skipped", rep.Summary.Skipped, "duration_ms", rep.Duration().Milliseconds())

	if err := writeOutputs(context.WithoutCancel(ctx), cfg, rep, metrics, uploads); err != nil {
		return commandError("write reports", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		err = rep.WriteJSON(out)
	} else {
		err = rep.WriteText(out)
	}
	if err != nil {
		return commandError("write output", err)
	}

	if !rep.Summary.OK() {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d scenarios failed", rep.Summary.Failed, rep.Summary.Total)}
	}
	return nil
}

func writeOutputs(ctx context.Context, cfg *config.Config, rep *report.Report, metrics *report.Metrics, uploads *artifacts.Store) error {
	log := obs.From(ctx)
	if cfg.ReportDir != "" {
		paths, err := rep.WriteFiles(cfg.ReportDir)
		if err != nil {
			return err
		}
		log.Info("reports_written", "paths", paths)
	}
	if metrics != nil {
		metrics.Finish(rep)
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	if uploads != nil {
		page, err := rep.HTML()
		if err != nil {
			return err
		}
		url, err := uploads.Put(ctx, report.HTMLFile, page, "text/html; charset=utf-8")
		if err != nil {
			// The local reports are already written.
			log.Warn("report_upload_failed", "error", err)
			return nil
		}
		log.Info("report_uploaded", "url", url)
	}
	return nil
}

func needsBrowser(ss []scenario.Scenario) bool {
	for _, s := range ss {
		if s.Channel.UsesBrowser() {
			return true
		}
	}
	return false
}
