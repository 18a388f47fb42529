package sync

import (
	"context"
	"time"

	"github.com/natikgadzhi/notion-push/internal/retry"
)

// Progress receives per-file events from Run.
type Progress interface {
	AddFile(path string)
	SetSyncing(path string)
	SetDone(path string)
	SetSkipped(path string)
	SetError(path, message string)
}

type noProgress struct{}

func (noProgress) AddFile(string)          {}
func (noProgress) SetSyncing(string)       {}
func (noProgress) SetDone(string)          {}
func (noProgress) SetSkipped(string)       {}
func (noProgress) SetError(string, string) {}

// Failure records a file that could not be synced.
type Failure struct {
	File    string
	Message string
}

// Result contains statistics from a batch sync.
type Result struct {
	Synced   int
	Skipped  int
	DryRun   int
	Failures []Failure
	Duration time.Duration
}

// Failed reports whether any file failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Total is the number of files the batch covered.
func (r *Result) Total() int {
	return r.Synced + r.Skipped + r.DryRun + len(r.Failures)
}

// Run syncs files in order, retrying each up to the configured number of
// attempts. A failing file never stops the batch; it is recorded in
// Result.Failures. Once ctx is done the remaining files are recorded as
// failures without being attempted.
func (s *Syncer) Run(ctx context.Context, files []string) *Result {
	start := time.Now()
	result := &Result{}

	for _, file := range files {
		s.progress.AddFile(file)
	}

	s.logger.Info("starting sync",
		"files", len(files),
		"attempts", s.cfg.Sync.Attempts,
		"dry_run", s.dryRun,
	)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			for _, rest := range files[i:] {
				result.Failures = append(result.Failures, Failure{File: rest, Message: err.Error()})
				s.progress.SetError(rest, err.Error())
			}
			break
		}

		s.progress.SetSyncing(file)

		attempt := 0
		res := retry.Do(ctx, s.cfg.Sync.Attempts, func(ctx context.Context) (FileResult, error) {
			attempt++
			fr, err := s.SyncFile(ctx, file)
			if err != nil {
				s.logger.Warn("sync attempt failed", "file", file, "attempt", attempt, "error", err)
			}
			return fr, err
		})

		if !res.OK() {
			result.Failures = append(result.Failures, Failure{File: file, Message: res.Message()})
			s.progress.SetError(file, res.Message())
			s.logger.Error("failed to sync file", "file", file, "attempts", res.Attempts(), "error", res.Err())
			continue
		}

		switch res.Value().Outcome {
		case OutcomeSynced:
			result.Synced++
			s.progress.SetDone(file)
		case OutcomeDryRun:
			result.DryRun++
			s.progress.SetDone(file)
		case OutcomeSkipped:
			result.Skipped++
			s.progress.SetSkipped(file)
		}
	}

	result.Duration = time.Since(start)

	s.logger.Info("sync complete",
		"synced", result.Synced,
		"skipped", result.Skipped,
		"dry_run", result.DryRun,
		"failed", len(result.Failures),
		"duration", result.Duration,
	)

	return result
}
