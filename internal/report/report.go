// Package report presents the outcome of a batch sync to the host
// platform: workflow commands and a step summary under GitHub Actions, a
// plain text summary everywhere else.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/natikgadzhi/notion-push/internal/sync"
)

// Reporter writes a batch result for the user or the CI system.
type Reporter interface {
	Report(result *sync.Result) error
}

// New returns the reporter for the current environment, writing to out.
func New(out io.Writer) Reporter {
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return &GitHubActions{
			Out:         out,
			SummaryPath: os.Getenv("GITHUB_STEP_SUMMARY"),
		}
	}
	return &Plain{Out: out}
}

// Plain prints a human readable summary.
type Plain struct {
	Out io.Writer
}

// Report prints counts followed by one line per failed file.
func (p *Plain) Report(result *sync.Result) error {
	_, _ = fmt.Fprintf(p.Out, "\n%s in %s\n", counts(result), result.Duration.Round(time.Millisecond))

	if !result.Failed() {
		return nil
	}

	_, _ = fmt.Fprintln(p.Out, "\nFiles failed to push:")
	for _, f := range result.Failures {
		_, _ = fmt.Fprintf(p.Out, "  %s: %s\n", f.File, f.Message)
	}
	return nil
}

// GitHubActions emits workflow commands and appends a Markdown table to
// the job summary file when SummaryPath is set.
type GitHubActions struct {
	Out         io.Writer
	SummaryPath string
}

// Report writes one ::error command per failed file plus a summary error,
// and the step summary.
func (g *GitHubActions) Report(result *sync.Result) error {
	for _, f := range result.Failures {
		_, _ = fmt.Fprintf(g.Out, "::error file=%s,title=%s::%s\n",
			escapeProperty(f.File),
			escapeProperty("Failed to push to Notion"),
			escapeData(f.Message),
		)
	}

	if result.Failed() {
		files := make([]string, len(result.Failures))
		for i, f := range result.Failures {
			files[i] = f.File
		}
		_, _ = fmt.Fprintf(g.Out, "::error::%s\n", escapeData("Files failed to push: "+strings.Join(files, ", ")))
	} else {
		_, _ = fmt.Fprintf(g.Out, "::notice::%s\n", escapeData(counts(result)))
	}

	if g.SummaryPath == "" {
		return nil
	}

	f, err := os.OpenFile(g.SummaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.WriteString(f, Summary(result)); err != nil {
		return fmt.Errorf("writing step summary: %w", err)
	}
	return nil
}

// Summary renders result as a Markdown job summary.
func Summary(result *sync.Result) string {
	var b strings.Builder

	b.WriteString("## Notion sync\n\n")
	b.WriteString("| Synced | Skipped | Dry run | Failed |\n")
	b.WriteString("| ---: | ---: | ---: | ---: |\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n", result.Synced, result.Skipped, result.DryRun, len(result.Failures))

	if result.Failed() {
		b.WriteString("\n### Failures\n\n")
		b.WriteString("| File | Error |\n")
		b.WriteString("| --- | --- |\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "| `%s` | %s |\n", f.File, tableCell(f.Message))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func counts(result *sync.Result) string {
	parts := []string{
		fmt.Sprintf("%d synced", result.Synced),
		fmt.Sprintf("%d skipped", result.Skipped),
	}
	if result.DryRun > 0 {
		parts = append(parts, fmt.Sprintf("%d dry-run", result.DryRun))
	}
	parts = append(parts, fmt.Sprintf("%d failed", len(result.Failures)))
	return strings.Join(parts, ", ")
}

var (
	dataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
	cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")
)

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	return dataEscaper.Replace(s)
}

// escapeProperty escapes a workflow command property value.
func escapeProperty(s string) string {
	return propEscaper.Replace(s)
}

func tableCell(s string) string {
	return cellEscaper.Replace(s)
}
