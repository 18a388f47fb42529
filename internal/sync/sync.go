// Package sync pushes Markdown documents from a git repository to the
// Notion pages named in their frontmatter.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jomei/notionapi"
	"github.com/natikgadzhi/notion-push/internal/config"
	"github.com/natikgadzhi/notion-push/internal/frontmatter"
	"github.com/natikgadzhi/notion-push/internal/gitdiff"
	"github.com/natikgadzhi/notion-push/internal/notion"
	"github.com/natikgadzhi/notion-push/internal/transform"
)

// Values written to the sync status property.
const (
	StatusSyncing = "Syncing..."
	StatusSynced  = "Synced"
	StatusError   = "Error"
)

// errorStatusTimeout bounds the best-effort Error status update, which runs
// even when the sync context is already cancelled.
const errorStatusTimeout = 30 * time.Second

const bannerFormat = "\U0001F512 This document is synced from GitHub. " +
	"Direct edits in Notion will be lost. " +
	"Please make changes in the [source file on GitHub](%s). " +
	"You can still add comments to discuss this document."

// Remote is the part of the Notion client a sync drives.
type Remote interface {
	UpdateTitle(ctx context.Context, pageID, title, link string) error
	UpdateURL(ctx context.Context, pageID, url, property string) error
	UpdateStatus(ctx context.Context, pageID, status, property string) error
	UpdateVersion(ctx context.Context, pageID, version, property string) error
	ClearChildren(ctx context.Context, blockID string) error
	AppendMarkdown(ctx context.Context, blockID, markdown string, preamble ...notionapi.Block) error
}

var _ Remote = (*notion.Client)(nil)

// Outcome is what SyncFile did with a file.
type Outcome int

const (
	OutcomeSynced Outcome = iota
	OutcomeSkipped
	OutcomeDryRun
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDryRun:
		return "dry-run"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// FileResult is the result of syncing one file.
type FileResult struct {
	Outcome Outcome
	PageID  string
}

// Syncer pushes files to Notion one at a time.
type Syncer struct {
	cfg      *config.Config
	remote   Remote
	repo     gitdiff.Context
	root     string
	logger   *slog.Logger
	progress Progress
	dryRun   bool
}

// SyncerOption is a functional option for configuring the Syncer.
type SyncerOption func(*Syncer)

// WithDryRun converts documents without calling Notion.
func WithDryRun(dryRun bool) SyncerOption {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// WithProgress reports per-file progress to p.
func WithProgress(p Progress) SyncerOption {
	return func(s *Syncer) {
		if p != nil {
			s.progress = p
		}
	}
}

// NewSyncer creates a Syncer that reads repository-relative paths under
// root and links pages to them through repo. remote may be nil in dry-run
// mode.
func NewSyncer(cfg *config.Config, remote Remote, repo gitdiff.Context, root string, logger *slog.Logger, opts ...SyncerOption) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Syncer{
		cfg:      cfg,
		remote:   remote,
		repo:     repo,
		root:     root,
		logger:   logger,
		progress: noProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncFile pushes one file to its Notion page.
//
// Files without valid frontmatter are skipped without touching Notion. Once
// the page ID is known every failure sets the page's sync status to Error
// before the error is returned.
func (s *Syncer) SyncFile(ctx context.Context, path string) (FileResult, error) {
	content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return FileResult{}, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := frontmatter.Split(content)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s: %w", path, err)
	}

	fm, ok := frontmatter.Decode(doc.Data)
	if !ok {
		s.logger.Debug("skipping file", "file", path, "problems", frontmatter.Problems(doc.Data))
		return FileResult{Outcome: OutcomeSkipped}, nil
	}

	pageID, err := notion.ParsePageRef(fm.NotionPage)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s: %w", path, err)
	}

	link := s.repo.BlobURL(path)

	if s.dryRun {
		blocks := transform.MarkdownToBlocks(doc.Body)
		s.logger.Info("would sync file",
			"file", path,
			"page_id", pageID,
			"title", fm.Title,
			"status", fm.Status,
			"version", fm.VersionString(),
			"blocks", len(blocks)+1,
		)
		return FileResult{Outcome: OutcomeDryRun, PageID: pageID}, nil
	}

	s.logger.Debug("syncing file", "file", path, "page_id", pageID)

	if err := s.push(ctx, pageID, link, fm, doc.Body); err != nil {
		if statusErr := s.markError(ctx, pageID); statusErr != nil {
			err = errors.Join(err, fmt.Errorf("setting error status: %w", statusErr))
		}
		return FileResult{PageID: pageID}, fmt.Errorf("syncing %s: %w", path, err)
	}

	s.logger.Info("synced file", "file", path, "page_id", pageID)
	return FileResult{Outcome: OutcomeSynced, PageID: pageID}, nil
}

// push runs the page mutations in order and stops at the first failure.
func (s *Syncer) push(ctx context.Context, pageID, link string, fm frontmatter.Frontmatter, body string) error {
	props := s.cfg.Properties

	if err := s.remote.UpdateStatus(ctx, pageID, StatusSyncing, props.SyncStatus); err != nil {
		return err
	}

	if err := s.remote.UpdateURL(ctx, pageID, link, props.URL); err != nil {
		return err
	}

	if fm.Title != "" {
		if err := s.remote.UpdateTitle(ctx, pageID, fm.Title, link); err != nil {
			return err
		}
	}

	if fm.Status != "" {
		if err := s.remote.UpdateStatus(ctx, pageID, fm.Status, props.Status); err != nil {
			return err
		}
	}

	if version := fm.VersionString(); version != "" {
		if err := s.remote.UpdateVersion(ctx, pageID, version, props.Version); err != nil {
			return err
		}
	}

	if err := s.remote.ClearChildren(ctx, pageID); err != nil {
		return err
	}

	if err := s.remote.AppendMarkdown(ctx, pageID, body, Banner(link)); err != nil {
		return err
	}

	return s.remote.UpdateStatus(ctx, pageID, StatusSynced, props.SyncStatus)
}

func (s *Syncer) markError(ctx context.Context, pageID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorStatusTimeout)
	defer cancel()

	return s.remote.UpdateStatus(ctx, pageID, StatusError, s.cfg.Properties.SyncStatus)
}

// Banner is the callout placed at the top of every synced page, pointing
// readers at the source file.
func Banner(link string) notionapi.Block {
	return transform.Callout(transform.AlertWarning, transform.MarkdownToRichText(fmt.Sprintf(bannerFormat, link)), nil)
}
