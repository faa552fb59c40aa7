// Package report turns scenario results into run reports: JSON for
// machines, Markdown and sanitized HTML for people, a one-line-per-scenario
// text listing for terminals and a Prometheus textfile for node_exporter.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/scenario"
)

// Counts tallies outcomes.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (c *Counts) add(s scenario.Status) {
	c.Total++
	switch s {
	case scenario.Pass:
		c.Passed++
	case scenario.Fail:
		c.Failed++
	case scenario.Skip:
		c.Skipped++
	}
}

// Summary is the outcome tally of a run, overall and per channel.
type Summary struct {
	Counts
	ByChannel map[scenario.Channel]Counts `json:"by_channel"`
}

// Summarize counts results.
func Summarize(results []scenario.Result) Summary {
	s := Summary{ByChannel: map[scenario.Channel]Counts{}}
	for _, r := range results {
		s.add(r.Status)
		c := s.ByChannel[r.Channel]
		c.add(r.Status)
		s.ByChannel[r.Channel] = c
	}
	return s
}

// OK reports whether no scenario failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Report is one run.
type Report struct {
	RunID    string            `json:"run_id"`
	Target   string            `json:"target"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
	Summary  Summary           `json:"summary"`
	Results  []scenario.Result `json:"results"`
}

// New builds a report over results.
func New(runID, target string, started, finished time.Time, results []scenario.Result) *Report {
	return &Report{
		RunID:    runID,
		Target:   target,
		Started:  started.UTC(),
		Finished: finished.UTC(),
		Summary:  Summarize(results),
		Results:  results,
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Failures returns the failed results in run order.
func (r *Report) Failures() []scenario.Result {
	var out []scenario.Result
	for _, res := range r.Results {
		if res.Status == scenario.Fail {
			out = append(out, res)
		}
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes one line per scenario followed by the failure details
// and a summary line.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-4s  %-5s  %-11s  %8s  %s\n",
			strings.ToUpper(string(res.Status)), res.ID, res.Channel, round(res.Duration), res.Title)
		if res.Error != "" {
			fmt.Fprintf(&b, "      error: %s\n", oneLine(res.Error))
		}
		for _, td := range res.Teardown {
			fmt.Fprintf(&b, "      teardown: %s\n", oneLine(td))
		}
	}
	s := r.Summary
	fmt.Fprintf(&b, "\n%d scenarios: %d passed, %d failed, %d skipped in %s\n",
		s.Total, s.Passed, s.Failed, s.Skipped, round(r.Duration()))
	_, err := io.WriteString(w, b.String())
	return err
}

// File names written by WriteFiles.
const (
	JSONFile     = "report.json"
	MarkdownFile = "report.md"
	HTMLFile     = "report.html"
)

// WriteFiles writes the JSON, Markdown and HTML reports into dir and
// returns their paths.
func (r *Report) WriteFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.FixtureIO, "create report dir", err)
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{JSONFile, r.WriteJSON},
		{MarkdownFile, r.WriteMarkdown},
		{HTMLFile, r.WriteHTML},
	}
	var paths []string
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.FixtureIO, "create "+filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errs.Wrap(errs.FixtureIO, "close "+filepath.Base(path), cerr)
		}
	}()
	if err := write(f); err != nil {
		return errs.Wrap(errs.FixtureIO, "write "+filepath.Base(path), err)
	}
	return nil
}

func channels(s Summary) []scenario.Channel {
	out := make([]scenario.Channel, 0, len(s.ByChannel))
	for ch := range s.ByChannel {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
