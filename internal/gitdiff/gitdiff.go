// Package gitdiff finds the Markdown files changed by a commit and builds
// links to them on the repository's web host.
package gitdiff

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ErrOutsideRepository is returned for paths that are not inside the
// working tree.
var ErrOutsideRepository = errors.New("path is outside the repository")

// Repository is an opened git working tree.
type Repository struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, searching parent directories
// for the .git directory.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	root, err := filepath.Abs(worktree.Filesystem.Root())
	if err != nil {
		return nil, fmt.Errorf("resolve worktree root: %w", err)
	}

	return &Repository{repo: repo, root: root}, nil
}

// Root returns the absolute path of the working tree.
func (r *Repository) Root() string {
	return r.root
}

// Resolve returns the commit hash for rev. An empty rev means HEAD.
func (r *Repository) Resolve(rev string) (plumbing.Hash, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %s: %w", rev, err)
	}
	return *hash, nil
}

// RelPath converts a path given on the command line to a slash separated
// path relative to the repository root.
func (r *Repository) RelPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", p, err)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, p)
	}
	return filepath.ToSlash(rel), nil
}

// ChangedMarkdown returns the Markdown files added or modified between base
// and head, sorted. An empty head means HEAD. An empty base means the first
// parent of head; for a root commit every Markdown file in its tree counts
// as added. When prefixes are given only paths under one of them are kept.
func (r *Repository) ChangedMarkdown(ctx context.Context, base, head string, prefixes ...string) ([]string, error) {
	headHash, err := r.Resolve(head)
	if err != nil {
		return nil, err
	}
	headCommit, err := r.repo.CommitObject(headHash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", headHash, err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", headHash, err)
	}

	var baseCommit *object.Commit
	switch {
	case base != "":
		baseHash, err := r.Resolve(base)
		if err != nil {
			return nil, err
		}
		baseCommit, err = r.repo.CommitObject(baseHash)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", baseHash, err)
		}
	case headCommit.NumParents() > 0:
		baseCommit, err = headCommit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("read parent of %s: %w", headHash, err)
		}
	default:
		return allMarkdown(headTree, prefixes)
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", baseCommit.Hash, err)
	}

	changes, err := object.DiffTreeContext(ctx, baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", baseCommit.Hash, headHash, err)
	}

	var files []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("read change: %w", err)
		}
		switch action {
		case merkletrie.Insert, merkletrie.Modify:
			if name := change.To.Name; IsMarkdown(name) && underPrefix(name, prefixes) {
				files = append(files, name)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func allMarkdown(tree *object.Tree, prefixes []string) ([]string, error) {
	var files []string
	err := tree.Files().ForEach(func(f *object.File) error {
		if IsMarkdown(f.Name) && underPrefix(f.Name, prefixes) {
			files = append(files, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// IsMarkdown reports whether name has a Markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func underPrefix(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		p = strings.Trim(filepath.ToSlash(p), "/")
		if p == "" || p == "." || name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}
