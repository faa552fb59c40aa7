package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "# Notes e2e run %s\n\n", r.RunID)
	fmt.Fprintf(&b, "- Target: %s\n", r.Target)
	fmt.Fprintf(&b, "- Started: %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n\n", round(r.Duration()))

	b.WriteString("| Channel | Total | Passed | Failed | Skipped |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, ch := range channels(s) {
		c := s.ByChannel[ch]
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n", ch, c.Total, c.Passed, c.Failed, c.Skipped)
	}
	fmt.Fprintf(&b, "| **All** | %d | %d | %d | %d |\n\n", s.Total, s.Passed, s.Failed, s.Skipped)

	b.WriteString("## Scenarios\n\n")
	b.WriteString("| ID | Title | Channel | Status | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			res.ID, cell(res.Title), res.Channel, res.Status, round(res.Duration))
	}

	failures := r.Failures()
	if len(failures) == 0 {
		return b.String()
	}
	b.WriteString("\n## Failures\n")
	for _, res := range failures {
		fmt.Fprintf(&b, "\n### %s %s\n\n", res.ID, cell(res.Title))
		fmt.Fprintf(&b, "- Fixture key: `%s`\n", res.Key)
		if res.ErrorCode != "" {
			fmt.Fprintf(&b, "- Code: `%s`\n", res.ErrorCode)
		}
		if res.Error != "" {
			text := strings.TrimRight(res.Error, "\n")
			f := fence(text)
			fmt.Fprintf(&b, "\n%s\n%s\n%s\n", f, text, f)
		}
		if len(res.Teardown) > 0 {
			b.WriteString("\nTeardown errors:\n\n")
			for _, td := range res.Teardown {
				fmt.Fprintf(&b, "- %s\n", oneLine(td))
			}
		}
		if len(res.Artifacts) > 0 {
			b.WriteString("\nArtifacts:\n\n")
			for _, a := range res.Artifacts {
				fmt.Fprintf(&b, "- <%s>\n", a)
			}
		}
	}
	return b.String()
}

// WriteMarkdown writes the Markdown report.
func (r *Report) WriteMarkdown(w io.Writer) error {
	_, err := io.WriteString(w, r.Markdown())
	return err
}

// fence returns a backtick fence longer than any backtick run in s.
func fence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return strings.Repeat("`", max(3, longest+1))
}

// cell makes s safe inside a table cell or heading.
func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Notes e2e run {{.RunID}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 960px; margin: 0 auto; padding: 2rem 1rem; line-height: 1.5; }
        table { border-collapse: collapse; width: 100%; margin: 1em 0; }
        th, td { border: 1px solid #e0e0e0; padding: 0.3em 0.6em; text-align: left; }
        pre { background: #f5f5f5; padding: 1em; overflow-x: auto; }
    </style>
</head>
<body>
    <article>
{{.Content}}
    </article>
</body>
</html>
`

var reportTmpl = template.Must(template.New("report").Parse(htmlTemplate))

// HTML renders the Markdown report to a standalone HTML page. Scenario
// titles and errors come from the target, so the rendered body is
// sanitized before it is embedded.
func (r *Report) HTML() ([]byte, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(r.Markdown()))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	body := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		RunID   string
		Content template.HTML
	}{r.RunID, template.HTML(body)})
	if err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML writes the HTML report.
func (r *Report) WriteHTML(w io.Writer) error {
	b, err := r.HTML()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
