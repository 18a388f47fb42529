package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/natikgadzhi/notion-push/internal/config"
	"github.com/natikgadzhi/notion-push/internal/frontmatter"
	"github.com/natikgadzhi/notion-push/internal/gitdiff"
	"github.com/natikgadzhi/notion-push/internal/notion"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate configuration, Notion connectivity and document frontmatter",
	Long: `Validate checks that notion-push can run and that documents are
ready to be pushed.

This command performs the following checks:
1. Config file is valid
2. NOTION_TOKEN environment variable is set
3. Notion API is accessible (validates token)
4. The git repository opens and its web URL can be resolved
5. Each file has valid notion_page frontmatter
6. Each target page is accessible and has the configured properties

With no arguments the files changed by the head commit are checked.
Missing page properties are reported as warnings: pushing skips them.`,
	RunE: runValidate,
}

// ValidationResult holds the result of a single validation check.
type ValidationResult struct {
	Check   string
	Passed  bool
	Warning bool
	Message string
}

// pageReader is the part of the Notion client validation needs.
type pageReader interface {
	GetCurrentUser(ctx context.Context) (*notionapi.User, error)
	GetPage(ctx context.Context, id string) (*notionapi.Page, error)
}

var _ pageReader = (*notion.Client)(nil)

// runValidate performs all validation checks and reports results.
func runValidate(cmd *cobra.Command, args []string) error {
	logger, closeLog := setupLogger(os.Stderr, verbose, logFile)
	defer closeLog()

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	out := cmd.OutOrStdout()

	logger.Debug("loading configuration", "path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		printResults(out, []ValidationResult{{Check: "Config file valid", Message: err.Error()}})
		return fmt.Errorf("validation failed")
	}

	v := &validator{cfg: cfg, logger: logger}
	v.add(ValidationResult{Check: "Config file valid", Passed: true})
	v.checkToken()

	if cfg.NotionToken != "" {
		v.checkNotion(ctx, newClient(cfg, logger))
	}

	repo := v.checkRepository()
	if repo != nil {
		files, err := resolveFiles(ctx, repo, cfg, args, cfg.Repository.Base, "")
		if err != nil {
			v.add(ValidationResult{Check: "Changed files", Message: err.Error()})
		}
		for _, file := range files {
			v.checkFile(ctx, repo.Root(), file)
		}
	}

	printResults(out, v.results)

	if v.failed() {
		return fmt.Errorf("validation failed")
	}

	_, _ = fmt.Fprintln(out, "\nAll checks passed!")
	return nil
}

// validator collects check results. pages is nil until the Notion API is
// known to be reachable; page checks are skipped without it.
type validator struct {
	cfg     *config.Config
	pages   pageReader
	logger  *slog.Logger
	results []ValidationResult
}

func (v *validator) add(r ValidationResult) {
	v.results = append(v.results, r)
}

func (v *validator) failed() bool {
	for _, r := range v.results {
		if !r.Passed && !r.Warning {
			return true
		}
	}
	return false
}

func (v *validator) checkToken() {
	if v.cfg.NotionToken == "" {
		v.add(ValidationResult{
			Check:   "NOTION_TOKEN set",
			Message: "NOTION_TOKEN environment variable is not set",
		})
		return
	}
	v.add(ValidationResult{Check: "NOTION_TOKEN set", Passed: true})
}

func (v *validator) checkNotion(ctx context.Context, client pageReader) {
	v.logger.Debug("testing Notion API connectivity")
	user, err := client.GetCurrentUser(ctx)
	if err != nil {
		v.add(ValidationResult{
			Check:   "Notion API accessible",
			Message: fmt.Sprintf("failed to connect: %v", err),
		})
		return
	}
	v.pages = client
	v.add(ValidationResult{
		Check:   "Notion API accessible",
		Passed:  true,
		Message: fmt.Sprintf("connected as %q", user.Name),
	})
}

func (v *validator) checkRepository() *gitdiff.Repository {
	v.logger.Debug("opening repository", "path", v.cfg.Repository.Path)
	repo, err := gitdiff.Open(v.cfg.Repository.Path)
	if err != nil {
		v.add(ValidationResult{Check: "Git repository", Message: err.Error()})
		return nil
	}
	v.add(ValidationResult{Check: "Git repository", Passed: true, Message: repo.Root()})

	repoCtx, err := repo.ResolveContext(v.cfg.Repository.URL, "")
	if err != nil {
		v.add(ValidationResult{Check: "Repository URL", Message: err.Error()})
		return repo
	}
	v.add(ValidationResult{Check: "Repository URL", Passed: true, Message: repoCtx.RepoURL})
	return repo
}

// checkFile validates one document's frontmatter and, when Notion is
// reachable, its target page.
func (v *validator) checkFile(ctx context.Context, root, file string) {
	check := fmt.Sprintf("File %s", file)

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file)))
	if err != nil {
		v.add(ValidationResult{Check: check, Message: err.Error()})
		return
	}

	doc, err := frontmatter.Split(content)
	if err != nil {
		v.add(ValidationResult{Check: check, Message: err.Error()})
		return
	}

	if problems := frontmatter.Problems(doc.Data); len(problems) > 0 {
		// Files without notion_page are skipped by push, not rejected.
		if doc.Data[frontmatter.KeyNotionPage] == nil {
			v.add(ValidationResult{Check: check, Passed: true, Warning: true, Message: "no notion_page, will be skipped"})
			return
		}
		v.add(ValidationResult{Check: check, Message: strings.Join(problems, "; ")})
		return
	}

	fm, _ := frontmatter.Decode(doc.Data)
	pageID, err := notion.ParsePageRef(fm.NotionPage)
	if err != nil {
		v.add(ValidationResult{Check: check, Message: err.Error()})
		return
	}

	if v.pages == nil {
		v.add(ValidationResult{Check: check, Passed: true, Message: "frontmatter valid"})
		return
	}

	page, err := v.pages.GetPage(ctx, pageID)
	if err != nil {
		v.add(ValidationResult{Check: check, Message: fmt.Sprintf("page %s not accessible: %v", pageID, err)})
		return
	}
	v.add(ValidationResult{
		Check:   check,
		Passed:  true,
		Message: fmt.Sprintf("page %q", notion.ExtractPageTitle(page)),
	})

	for _, name := range v.propertyNames() {
		if !notion.HasProperty(page, name) {
			v.add(ValidationResult{
				Check:   check,
				Passed:  true,
				Warning: true,
				Message: fmt.Sprintf("page has no %q property", name),
			})
		}
	}
}

func (v *validator) propertyNames() []string {
	p := v.cfg.Properties
	return []string{p.SyncStatus, p.Status, p.URL, p.Version}
}

// printResults outputs all validation results in a formatted way.
func printResults(w io.Writer, results []ValidationResult) {
	_, _ = fmt.Fprintln(w, "\nValidation Results:")
	_, _ = fmt.Fprintln(w, "-------------------")

	for _, r := range results {
		status := "PASS"
		switch {
		case !r.Passed:
			status = "FAIL"
		case r.Warning:
			status = "WARN"
		}

		if r.Message != "" {
			_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Check, r.Message)
		} else {
			_, _ = fmt.Fprintf(w, "[%s] %s\n", status, r.Check)
		}
	}
}
