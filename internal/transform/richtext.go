package transform

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

const (
	// MaxTextLength is the longest content Notion accepts in one text run.
	MaxTextLength = 2000
	// MaxRichTextRuns is the most runs Notion accepts in one rich text array.
	MaxRichTextRuns = 100
)

// style is the set of annotations applied to a span of inline text.
type style struct {
	bold   bool
	italic bool
	strike bool
	code   bool
	link   string
}

func (s style) annotated() bool {
	return s.bold || s.italic || s.strike || s.code
}

// run is a span of text with a single style, before it is split to fit
// Notion's per-run length limit.
type run struct {
	text  string
	style style
}

// MarkdownToRichText converts Markdown to a flat rich text array. Block
// structure is reduced to newlines between top-level blocks.
func MarkdownToRichText(md string) []notionapi.RichText {
	c := newConverter(md)
	doc := c.parse()

	var runs []run
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if len(runs) > 0 {
			runs = append(runs, run{text: "\n"})
		}
		runs = append(runs, c.runs(n)...)
	}
	return toRichText(runs)
}

// runs collects the inline content under n.
func (c *converter) runs(n ast.Node) []run {
	var out []run
	c.inline(n, style{}, &out)
	return out
}

func (c *converter) inline(parent ast.Node, s style, out *[]run) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			*out = append(*out, run{text: string(n.Value(c.source)), style: s})
			if n.HardLineBreak() {
				*out = append(*out, run{text: "\n", style: s})
			} else if n.SoftLineBreak() {
				*out = append(*out, run{text: " ", style: s})
			}

		case *ast.String:
			*out = append(*out, run{text: string(n.Value), style: s})

		case *ast.CodeSpan:
			inner := s
			inner.code = true
			*out = append(*out, run{text: c.plain(n), style: inner})

		case *ast.Emphasis:
			inner := s
			if n.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			c.inline(n, inner, out)

		case *east.Strikethrough:
			inner := s
			inner.strike = true
			c.inline(n, inner, out)

		case *ast.Link:
			inner := s
			if dest := string(n.Destination); linkable(dest) {
				inner.link = dest
			}
			c.inline(n, inner, out)

		case *ast.AutoLink:
			dest := string(n.URL(c.source))
			if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(dest, "mailto:") {
				dest = "mailto:" + dest
			}
			inner := s
			if linkable(dest) {
				inner.link = dest
			}
			*out = append(*out, run{text: string(n.Label(c.source)), style: inner})

		case *ast.Image:
			// Inline images keep their alt text, linked to the source when
			// it is reachable from Notion.
			inner := s
			if dest := string(n.Destination); linkable(dest) {
				inner.link = dest
			}
			alt := c.plain(n)
			if alt == "" {
				alt = string(n.Destination)
			}
			*out = append(*out, run{text: alt, style: inner})

		case *east.TaskCheckBox, *ast.RawHTML:
			// dropped

		default:
			c.inline(n, s, out)
		}
	}
}

// plain returns the text under n without any styling.
func (c *converter) plain(n ast.Node) string {
	var sb strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			sb.Write(child.Value(c.source))
			if child.SoftLineBreak() || child.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(child.Value)
		default:
			sb.WriteString(c.plain(child))
		}
	}
	return sb.String()
}

// linkable reports whether Notion will accept dest as a link target.
// Relative links into the repository are not.
func linkable(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto":
		return u.Opaque != ""
	}
	return false
}

// toRichText merges adjacent runs with the same style and splits the
// result into text runs of at most MaxTextLength characters. The result
// is never nil so it encodes as an empty JSON array.
func toRichText(runs []run) []notionapi.RichText {
	var merged []run
	for _, r := range runs {
		if r.text == "" {
			continue
		}
		if last := len(merged) - 1; last >= 0 && merged[last].style == r.style {
			merged[last].text += r.text
			continue
		}
		merged = append(merged, r)
	}

	out := make([]notionapi.RichText, 0, len(merged))
	for _, r := range merged {
		for _, part := range splitText(r.text, MaxTextLength) {
			out = append(out, newRichText(part, r.style))
		}
	}
	return out
}

func newRichText(content string, s style) notionapi.RichText {
	rt := notionapi.RichText{
		Type:      notionapi.ObjectTypeText,
		Text:      &notionapi.Text{Content: content},
		PlainText: content,
	}
	if s.link != "" {
		rt.Text.Link = &notionapi.Link{Url: s.link}
	}
	if s.annotated() {
		rt.Annotations = &notionapi.Annotations{
			Bold:          s.bold,
			Italic:        s.italic,
			Strikethrough: s.strike,
			Code:          s.code,
			Color:         "default",
		}
	}
	return rt
}

// splitText cuts text into pieces of at most limit runes.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	for text != "" {
		cut, count := 0, 0
		for cut < len(text) && count < limit {
			_, size := utf8.DecodeRuneInString(text[cut:])
			cut += size
			count++
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return parts
}

// RichTextToPlain extracts plain text from rich text array.
func RichTextToPlain(richText []notionapi.RichText) string {
	var sb strings.Builder
	for _, rt := range richText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}
