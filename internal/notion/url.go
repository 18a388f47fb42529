// Package notion wraps the Notion API client with rate limiting, error
// classification and the page/block operations used to push documents.
package notion

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrNoPageID is returned when a page reference resolves to an empty ID.
var ErrNoPageID = errors.New("could not get page ID from page reference")

// ParsePageRef extracts the page ID from a notion_page value.
//
// Supported formats:
//   - https://www.notion.so/{workspace}/{title}-{id}
//   - https://www.notion.so/{id}
//   - {id} (returned unchanged)
//
// For URLs the ID is whatever follows the last "-" in the final path
// segment, so a URL without a title slug yields the whole segment.
func ParsePageRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, "http") {
		if ref == "" {
			return "", ErrNoPageID
		}
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	segment := path.Base(u.Path)
	if segment == "." || segment == "/" {
		return "", fmt.Errorf("%w: %s", ErrNoPageID, ref)
	}

	id := segment[strings.LastIndex(segment, "-")+1:]
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPageID, ref)
	}

	return id, nil
}
