package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/natikgadzhi/notion-push/internal/sync"
)

func failedResult() *sync.Result {
	return &sync.Result{
		Synced:  2,
		Skipped: 1,
		Failures: []sync.Failure{
			{File: "docs/a.md", Message: "syncing docs/a.md: validation failed"},
			{File: "docs/b,c.md", Message: "line one\nline two: 100%"},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestNew(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_STEP_SUMMARY", "/tmp/summary.md")
	gha, ok := New(&bytes.Buffer{}).(*GitHubActions)
	if !ok {
		t.Fatal("expected GitHubActions reporter under Actions")
	}
	if gha.SummaryPath != "/tmp/summary.md" {
		t.Errorf("SummaryPath = %q", gha.SummaryPath)
	}

	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := New(&bytes.Buffer{}).(*Plain); !ok {
		t.Error("expected Plain reporter outside Actions")
	}
}

func TestPlain_Report(t *testing.T) {
	var out bytes.Buffer
	if err := (&Plain{Out: &out}).Report(failedResult()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"2 synced, 1 skipped, 2 failed in 1.5s",
		"Files failed to push:",
		"  docs/a.md: syncing docs/a.md: validation failed",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlain_ReportSuccess(t *testing.T) {
	var out bytes.Buffer
	result := &sync.Result{Synced: 1, DryRun: 3}
	if err := (&Plain{Out: &out}).Report(result); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	if !strings.Contains(out.String(), "1 synced, 0 skipped, 3 dry-run, 0 failed") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if strings.Contains(out.String(), "failed to push") {
		t.Errorf("success output should not list failures: %q", out.String())
	}
}

func TestGitHubActions_Report(t *testing.T) {
	var out bytes.Buffer
	summary := filepath.Join(t.TempDir(), "summary.md")
	if err := os.WriteFile(summary, []byte("# Earlier step\n"), 0o644); err != nil {
		t.Fatalf("write summary: %v", err)
	}

	gha := &GitHubActions{Out: &out, SummaryPath: summary}
	if err := gha.Report(failedResult()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"::error file=docs/a.md,title=Failed to push to Notion::syncing docs/a.md: validation failed",
		"::error file=docs/b%2Cc.md,title=Failed to push to Notion::line one%0Aline two: 100%25",
		"::error::Files failed to push: docs/a.md, docs/b,c.md",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %q\nwant %q", i, lines[i], want[i])
		}
	}

	data, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Earlier step\n") {
		t.Error("step summary should be appended to, not replaced")
	}
	for _, want := range []string{
		"| 2 | 1 | 0 | 2 |",
		"| `docs/a.md` | syncing docs/a.md: validation failed |",
		"| `docs/b,c.md` | line one<br>line two: 100% |",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("summary missing %q:\n%s", want, content)
		}
	}
}

func TestGitHubActions_ReportSuccess(t *testing.T) {
	var out bytes.Buffer
	gha := &GitHubActions{Out: &out}
	if err := gha.Report(&sync.Result{Synced: 3}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	got := out.String()
	if strings.Contains(got, "::error") {
		t.Errorf("success should emit no errors: %q", got)
	}
	if got != "::notice::3 synced, 0 skipped, 0 failed\n" {
		t.Errorf("output = %q", got)
	}
}

func TestGitHubActions_SummaryUnwritable(t *testing.T) {
	gha := &GitHubActions{
		Out:         &bytes.Buffer{},
		SummaryPath: filepath.Join(t.TempDir(), "missing", "summary.md"),
	}
	if err := gha.Report(&sync.Result{}); err == nil {
		t.Error("expected error for unwritable summary path")
	}
}

func TestSummary_EscapesPipes(t *testing.T) {
	result := &sync.Result{
		Failures: []sync.Failure{{File: "a.md", Message: "bad | value"}},
	}
	if got := Summary(result); !strings.Contains(got, `bad \| value`) {
		t.Errorf("pipe not escaped:\n%s", got)
	}
}
