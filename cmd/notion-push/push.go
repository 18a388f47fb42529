package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natikgadzhi/notion-push/internal/config"
	"github.com/natikgadzhi/notion-push/internal/gitdiff"
	"github.com/natikgadzhi/notion-push/internal/notion"
	"github.com/natikgadzhi/notion-push/internal/report"
	"github.com/natikgadzhi/notion-push/internal/sync"
	"github.com/natikgadzhi/notion-push/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	pushBase   string
	pushHead   string
	pushDryRun bool
	pushQuiet  bool // disables TUI and shows plain log output
)

var _ sync.Progress = (*tui.Runner)(nil)

var pushCmd = &cobra.Command{
	Use:   "push [files...]",
	Short: "Push changed Markdown files to Notion",
	Long: `Push syncs Markdown files to the Notion pages named in their
notion_page frontmatter.

With no arguments it pushes the Markdown files added or modified by the
head commit (compared with --base, or the commit's first parent). Files
without notion_page frontmatter are skipped.

When running in a terminal, a TUI progress display is shown by default.
Use --quiet to disable the TUI and show plain log output instead.`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushBase, "base", "", "revision to compare against (default: repository.base or the head's parent)")
	pushCmd.Flags().StringVar(&pushHead, "head", "", "revision to push (default: HEAD)")
	pushCmd.Flags().BoolVarP(&pushDryRun, "dry-run", "n", false, "convert documents without calling Notion")
	pushCmd.Flags().BoolVarP(&pushQuiet, "quiet", "q", false, "disable TUI, use plain log output")
}

func runPush(cmd *cobra.Command, args []string) error {
	// Use TUI by default if stdout is a TTY, quiet mode is not enabled and
	// we are not running in CI
	useTUI := !pushQuiet && os.Getenv("CI") == "" && term.IsTerminal(int(os.Stdout.Fd()))

	// Suppress console logs in TUI mode unless verbose
	var logOutput io.Writer = os.Stderr
	if useTUI && !verbose {
		logOutput = io.Discard
	}
	logger, closeLog := setupLogger(logOutput, verbose, logFile)
	defer closeLog()

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !pushDryRun {
		if err := cfg.RequireToken(); err != nil {
			return err
		}
	}
	if pushBase == "" {
		pushBase = cfg.Repository.Base
	}

	repo, err := gitdiff.Open(cfg.Repository.Path)
	if err != nil {
		return err
	}

	files, err := resolveFiles(ctx, repo, cfg, args, pushBase, pushHead)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("no Markdown files to push")
		return nil
	}

	repoCtx, err := repo.ResolveContext(cfg.Repository.URL, pushHead)
	if err != nil {
		return fmt.Errorf("resolving repository URL: %w", err)
	}

	opts := []sync.SyncerOption{sync.WithDryRun(pushDryRun)}

	var tuiRunner *tui.Runner
	if useTUI {
		tuiRunner = tui.NewRunner()
		if err := tuiRunner.Start(); err != nil {
			return fmt.Errorf("starting TUI: %w", err)
		}
		opts = append(opts, sync.WithProgress(tuiRunner))
	}

	syncer := sync.NewSyncer(cfg, newRemote(cfg, logger, pushDryRun), repoCtx, repo.Root(), logger, opts...)
	result := syncer.Run(ctx, files)

	var runErr error
	if result.Failed() {
		runErr = fmt.Errorf("%d of %d files failed to push", len(result.Failures), result.Total())
	}

	if tuiRunner != nil {
		tuiRunner.Done(runErr)
		tuiRunner.Wait()
	}

	if err := report.New(cmd.OutOrStdout()).Report(result); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	return runErr
}

// resolveFiles returns the repository-relative files to push: the given
// paths, or the Markdown files changed between base and head.
func resolveFiles(ctx context.Context, repo *gitdiff.Repository, cfg *config.Config, args []string, base, head string) ([]string, error) {
	if len(args) > 0 {
		files := make([]string, 0, len(args))
		for _, arg := range args {
			rel, err := repo.RelPath(arg)
			if err != nil {
				return nil, err
			}
			files = append(files, rel)
		}
		return files, nil
	}

	files, err := repo.ChangedMarkdown(ctx, base, head, cfg.Repository.Paths...)
	if err != nil {
		return nil, fmt.Errorf("finding changed files: %w", err)
	}
	return files, nil
}

// newRemote creates the Notion client configured by cfg. Dry runs get a nil
// remote so that nothing can reach Notion.
func newRemote(cfg *config.Config, logger *slog.Logger, dryRun bool) sync.Remote {
	if dryRun {
		return nil
	}
	return newClient(cfg, logger)
}

func newClient(cfg *config.Config, logger *slog.Logger) *notion.Client {
	return notion.NewClient(cfg.NotionToken, logger,
		notion.WithRateLimiter(notion.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		notion.WithListBatchSize(cfg.Sync.ListBatchSize),
	)
}
