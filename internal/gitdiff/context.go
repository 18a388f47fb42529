package gitdiff

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// ErrNoRepoURL is returned when no web URL can be found for the repository.
var ErrNoRepoURL = errors.New("cannot determine repository URL; set repository.url")

// Context is the repository location that file links are built from.
type Context struct {
	RepoURL string
	SHA     string
}

// BlobURL links to path at the context's commit.
func (c Context) BlobURL(path string) string {
	return strings.TrimSuffix(c.RepoURL, "/") + "/blob/" + c.SHA + "/" + strings.TrimPrefix(path, "/")
}

// ResolveContext determines the repository web URL and commit for links.
//
// The URL is repoURL when set, then GITHUB_SERVER_URL/GITHUB_REPOSITORY,
// then the origin remote. The commit is GITHUB_SHA when head is empty and
// the variable is set, otherwise head resolved in the repository.
func (r *Repository) ResolveContext(repoURL, head string) (Context, error) {
	ctx := Context{RepoURL: repoURL}

	if ctx.RepoURL == "" {
		if repository := os.Getenv("GITHUB_REPOSITORY"); repository != "" {
			server := os.Getenv("GITHUB_SERVER_URL")
			if server == "" {
				server = "https://github.com"
			}
			ctx.RepoURL = strings.TrimSuffix(server, "/") + "/" + repository
		}
	}

	if ctx.RepoURL == "" {
		remoteURL, err := r.originURL()
		if err != nil {
			return Context{}, err
		}
		ctx.RepoURL = remoteURL
	}

	if sha := os.Getenv("GITHUB_SHA"); head == "" && sha != "" {
		ctx.SHA = sha
		return ctx, nil
	}

	hash, err := r.Resolve(head)
	if err != nil {
		return Context{}, err
	}
	ctx.SHA = hash.String()
	return ctx, nil
}

func (r *Repository) originURL() (string, error) {
	remote, err := r.repo.Remote("origin")
	if errors.Is(err, git.ErrRemoteNotFound) {
		return "", ErrNoRepoURL
	}
	if err != nil {
		return "", fmt.Errorf("read origin remote: %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoRepoURL
	}

	web, err := WebURL(urls[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRepoURL, err)
	}
	return web, nil
}

// WebURL converts a git remote URL to the https URL of the repository's
// web page, e.g. git@github.com:acme/docs.git -> https://github.com/acme/docs.
func WebURL(remote string) (string, error) {
	remote = strings.TrimSpace(remote)

	var host, repoPath string
	if !strings.Contains(remote, "://") {
		// scp-like syntax: [user@]host:path
		at := strings.Index(remote, "@")
		colon := strings.Index(remote, ":")
		if colon < 0 || colon < at {
			return "", fmt.Errorf("unsupported remote URL %q", remote)
		}
		host = remote[at+1 : colon]
		repoPath = remote[colon+1:]
	} else {
		u, err := url.Parse(remote)
		if err != nil {
			return "", fmt.Errorf("parse remote URL: %w", err)
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git":
		default:
			return "", fmt.Errorf("unsupported remote URL scheme %q", u.Scheme)
		}
		host = u.Hostname()
		repoPath = u.Path
	}

	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	if host == "" || repoPath == "" {
		return "", fmt.Errorf("unsupported remote URL %q", remote)
	}
	return "https://" + host + "/" + repoPath, nil
}
