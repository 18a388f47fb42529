// Package frontmatter splits Markdown documents into YAML metadata and body
// and decides whether the metadata names a Notion page to sync to.
package frontmatter

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys with a dedicated Frontmatter field.
const (
	KeyNotionPage  = "notion_page"
	KeyTitle       = "title"
	KeyStatus      = "status"
	KeyVersion     = "version"
	KeyDescription = "description"
	KeyAuthors     = "authors"
)

// Document is a Markdown file split into metadata and body.
type Document struct {
	Data map[string]any
	Body string
}

// Frontmatter is the typed view of a document's metadata.
type Frontmatter struct {
	NotionPage  string
	Title       string
	Status      string
	Version     any // string or number
	Description string
	Authors     []string
	Extra       map[string]any
}

// Split separates the leading YAML block from the body. A document without
// a block, or whose block is never closed, has empty metadata and the whole
// content as body. Malformed YAML is an error.
func Split(content []byte) (Document, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	doc := Document{Data: map[string]any{}, Body: string(content)}

	first, rest, found := cutLine(content)
	if !found || !isDelimiter(first, false) {
		return doc, nil
	}

	var yamlBlock []byte
	for {
		line, next, ok := cutLine(rest)
		if isDelimiter(line, true) {
			if err := yaml.Unmarshal(yamlBlock, &doc.Data); err != nil {
				return Document{}, fmt.Errorf("parsing frontmatter: %w", err)
			}
			if doc.Data == nil {
				doc.Data = map[string]any{}
			}
			doc.Body = string(next)
			return doc, nil
		}
		if !ok {
			return doc, nil
		}
		yamlBlock = append(yamlBlock, line...)
		yamlBlock = append(yamlBlock, '\n')
		rest = next
	}
}

// cutLine returns the first line of b without its line ending and the
// remainder. found is false when b has no newline.
func cutLine(b []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

func isDelimiter(line []byte, closing bool) bool {
	s := strings.TrimRight(string(line), " \t")
	return s == "---" || (closing && s == "...")
}

// Problems lists the reasons data cannot be synced. An empty result means
// the metadata is valid.
func Problems(data map[string]any) []string {
	var problems []string

	page, ok := data[KeyNotionPage]
	switch {
	case !ok || page == nil:
		problems = append(problems, "missing notion_page")
	default:
		if _, isString := page.(string); !isString {
			problems = append(problems, fmt.Sprintf("notion_page must be a string, got %T", page))
		}
	}

	if title, ok := data[KeyTitle]; ok {
		if _, isString := title.(string); !isString {
			problems = append(problems, fmt.Sprintf("title must be a string, got %T", title))
		}
	}

	return problems
}

// Valid reports whether data has a string notion_page and, if present, a
// string title.
func Valid(data map[string]any) bool {
	return len(Problems(data)) == 0
}

// Decode returns the typed view of data. ok is false when data is not valid.
func Decode(data map[string]any) (fm Frontmatter, ok bool) {
	if !Valid(data) {
		return Frontmatter{}, false
	}

	fm.NotionPage = data[KeyNotionPage].(string)
	fm.Title, _ = data[KeyTitle].(string)
	fm.Status = scalarString(data[KeyStatus])
	fm.Description = scalarString(data[KeyDescription])
	fm.Authors = stringList(data[KeyAuthors])

	switch v := data[KeyVersion].(type) {
	case string, int, int64, uint64, float64:
		fm.Version = v
	}

	for key, value := range data {
		switch key {
		case KeyNotionPage, KeyTitle, KeyStatus, KeyVersion, KeyDescription, KeyAuthors:
			continue
		}
		if fm.Extra == nil {
			fm.Extra = map[string]any{}
		}
		fm.Extra[key] = value
	}

	return fm, true
}

// VersionString renders the version for display. Integers have no decimal
// part and floats use the shortest representation.
func (fm Frontmatter) VersionString() string {
	switch v := fm.Version.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
