package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/natikgadzhi/notion-push/internal/config"
)

type fakePages struct {
	user    *notionapi.User
	userErr error
	pages   map[string]*notionapi.Page
}

func (f *fakePages) GetCurrentUser(context.Context) (*notionapi.User, error) {
	return f.user, f.userErr
}

func (f *fakePages) GetPage(_ context.Context, id string) (*notionapi.Page, error) {
	page, ok := f.pages[id]
	if !ok {
		return nil, errors.New("object_not_found")
	}
	return page, nil
}

func newTestValidator() *validator {
	return &validator{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestValidator_CheckNotion(t *testing.T) {
	t.Run("accessible", func(t *testing.T) {
		v := newTestValidator()
		v.checkNotion(context.Background(), &fakePages{user: &notionapi.User{Name: "docs-bot"}})

		if v.pages == nil {
			t.Error("pages should be set after a successful check")
		}
		if r := v.results[0]; !r.Passed || r.Message != `connected as "docs-bot"` {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		v := newTestValidator()
		v.checkNotion(context.Background(), &fakePages{userErr: errors.New("unauthorized")})

		if v.pages != nil {
			t.Error("pages should stay nil after a failed check")
		}
		if !v.failed() {
			t.Error("validator should report failure")
		}
	})
}

func TestValidator_CheckFile(t *testing.T) {
	page := &notionapi.Page{
		Properties: notionapi.Properties{
			"title":       &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Design"}}},
			"Sync status": &notionapi.SelectProperty{},
			"Status":      &notionapi.SelectProperty{},
			"GitHub URL":  &notionapi.URLProperty{},
		},
	}
	pages := &fakePages{pages: map[string]*notionapi.Page{"abc123": page}}

	tests := []struct {
		name       string
		content    string
		pages      pageReader
		wantFailed bool
		wantOutput []string
	}{
		{
			name:       "valid with page missing a property",
			content:    "---\nnotion_page: abc123\n---\nbody\n",
			pages:      pages,
			wantOutput: []string{`[PASS] File doc.md: page "Design"`, `[WARN] File doc.md: page has no "Version" property`},
		},
		{
			name:       "no notion_page",
			content:    "# Just notes\n",
			pages:      pages,
			wantOutput: []string{"[WARN] File doc.md: no notion_page, will be skipped"},
		},
		{
			name:       "title not a string",
			content:    "---\nnotion_page: abc123\ntitle: [a, b]\n---\n",
			pages:      pages,
			wantFailed: true,
			wantOutput: []string{"[FAIL] File doc.md: title must be a string"},
		},
		{
			name:       "malformed yaml",
			content:    "---\nnotion_page: [\n---\n",
			pages:      pages,
			wantFailed: true,
			wantOutput: []string{"[FAIL] File doc.md: parsing frontmatter"},
		},
		{
			name:       "page not accessible",
			content:    "---\nnotion_page: https://www.notion.so/acme/Missing-def456\n---\n",
			pages:      pages,
			wantFailed: true,
			wantOutput: []string{"[FAIL] File doc.md: page def456 not accessible"},
		},
		{
			name:       "notion unreachable",
			content:    "---\nnotion_page: abc123\n---\n",
			pages:      nil,
			wantOutput: []string{"[PASS] File doc.md: frontmatter valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "doc.md", tt.content)

			v := newTestValidator()
			v.pages = tt.pages
			v.checkFile(context.Background(), root, "doc.md")

			if got := v.failed(); got != tt.wantFailed {
				t.Errorf("failed() = %v, want %v (results %+v)", got, tt.wantFailed, v.results)
			}

			var buf bytes.Buffer
			printResults(&buf, v.results)
			for _, want := range tt.wantOutput {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestValidator_CheckFileMissing(t *testing.T) {
	v := newTestValidator()
	v.checkFile(context.Background(), t.TempDir(), "gone.md")

	if !v.failed() {
		t.Error("missing file should fail validation")
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []ValidationResult{
		{Check: "Config file valid", Passed: true},
		{Check: "NOTION_TOKEN set", Message: "NOTION_TOKEN environment variable is not set"},
		{Check: "File a.md", Passed: true, Warning: true, Message: "no notion_page, will be skipped"},
	})

	want := `
Validation Results:
-------------------
[PASS] Config file valid
[FAIL] NOTION_TOKEN set: NOTION_TOKEN environment variable is not set
[WARN] File a.md: no notion_page, will be skipped
`
	if buf.String() != want {
		t.Errorf("printResults() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestValidateCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, dir, "config.yaml", "sync:\n  attempts: 0\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", "--config", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = config.DefaultPath
	})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !strings.Contains(out.String(), "[FAIL] Config file valid") {
		t.Errorf("output = %q", out.String())
	}
}
