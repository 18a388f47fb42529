package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natikgadzhi/notion-push/internal/config"
	"github.com/natikgadzhi/notion-push/internal/gitdiff"
	"github.com/natikgadzhi/notion-push/internal/report"
	"github.com/natikgadzhi/notion-push/internal/sync"
	"github.com/natikgadzhi/notion-push/internal/watch"
	"github.com/spf13/cobra"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Push Markdown files to Notion as they change on disk",
	Long: `Watch monitors directories (default: the repository root) and pushes
each Markdown file shortly after it is written. Bursts of writes are
collected into one batch.

Links back to GitHub point at the current HEAD commit. Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchDryRun, "dry-run", "n", false, "convert documents without calling Notion")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, closeLog := setupLogger(os.Stderr, verbose, logFile)
	defer closeLog()

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !watchDryRun {
		if err := cfg.RequireToken(); err != nil {
			return err
		}
	}

	repo, err := gitdiff.Open(cfg.Repository.Path)
	if err != nil {
		return err
	}

	w, err := watch.New(cfg.Watch.Debounce, logger)
	if err != nil {
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{repo.Root()}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return err
		}
	}

	h := &watchHandler{
		cfg:    cfg,
		repo:   repo,
		remote: newRemote(cfg, logger, watchDryRun),
		out:    cmd.OutOrStdout(),
		logger: logger,
		dryRun: watchDryRun,
	}

	logger.Info("watching for changes", "dirs", dirs)
	return w.Run(ctx, h.handle)
}

// watchHandler pushes each batch of changed files delivered by the watcher.
type watchHandler struct {
	cfg    *config.Config
	repo   *gitdiff.Repository
	remote sync.Remote
	out    io.Writer
	logger *slog.Logger
	dryRun bool
}

func (h *watchHandler) handle(ctx context.Context, paths []string) {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := h.repo.RelPath(p)
		if err != nil {
			h.logger.Warn("ignoring file", "path", p, "error", err)
			continue
		}
		files = append(files, rel)
	}
	if len(files) == 0 {
		return
	}

	repoCtx, err := h.repo.ResolveContext(h.cfg.Repository.URL, "")
	if err != nil {
		h.logger.Error("resolving repository URL", "error", err)
		return
	}

	syncer := sync.NewSyncer(h.cfg, h.remote, repoCtx, h.repo.Root(), h.logger, sync.WithDryRun(h.dryRun))
	result := syncer.Run(ctx, files)

	if err := report.New(h.out).Report(result); err != nil {
		h.logger.Error("failed to write report", "error", err)
	}
}
