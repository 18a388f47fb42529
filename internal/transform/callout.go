package transform

import (
	"regexp"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/yuin/goldmark/ast"
)

// AlertKind is a GitHub alert type, rendered in Notion as a callout.
type AlertKind string

const (
	AlertNote      AlertKind = "NOTE"
	AlertTip       AlertKind = "TIP"
	AlertImportant AlertKind = "IMPORTANT"
	AlertWarning   AlertKind = "WARNING"
	AlertCaution   AlertKind = "CAUTION"
)

var alertEmoji = map[AlertKind]string{
	AlertNote:      "ℹ️",
	AlertTip:       "\U0001F4A1", // 💡
	AlertImportant: "❗",
	AlertWarning:   "⚠️",
	AlertCaution:   "\U0001F6A8", // 🚨
}

var alertMarker = regexp.MustCompile(`^\s*\[!(NOTE|TIP|IMPORTANT|WARNING|CAUTION)\]\s*$`)

// Callout builds a callout block styled for the alert kind.
func Callout(kind AlertKind, rt []notionapi.RichText, children []notionapi.Block) notionapi.Block {
	emoji, ok := alertEmoji[kind]
	if !ok {
		kind, emoji = AlertNote, alertEmoji[AlertNote]
	}
	icon := notionapi.Emoji(emoji)

	callout := notionapi.Callout{
		RichText: rt,
		Icon:     &notionapi.Icon{Type: "emoji", Emoji: &icon},
		Children: children,
	}
	switch kind {
	case AlertNote:
		callout.Color = "blue_background"
	case AlertTip:
		callout.Color = "green_background"
	case AlertImportant:
		callout.Color = "purple_background"
	case AlertWarning:
		callout.Color = "yellow_background"
	case AlertCaution:
		callout.Color = "red_background"
	}

	return &notionapi.CalloutBlock{
		BasicBlock: basic(notionapi.BlockTypeCallout),
		Callout:    callout,
	}
}

// alert reports whether a block quote is a GitHub alert. body is the
// Markdown of its first paragraph after the marker line.
func (c *converter) alert(n *ast.Blockquote) (kind AlertKind, body string, ok bool) {
	first, isPara := n.FirstChild().(*ast.Paragraph)
	if !isPara {
		return "", "", false
	}

	segments := first.Lines()
	if segments.Len() == 0 {
		return "", "", false
	}

	head := segments.At(0)
	m := alertMarker.FindSubmatch(head.Value(c.source))
	if m == nil {
		return "", "", false
	}

	var sb strings.Builder
	for i := 1; i < segments.Len(); i++ {
		seg := segments.At(i)
		sb.Write(seg.Value(c.source))
	}
	return AlertKind(m[1]), strings.TrimSpace(sb.String()), true
}
