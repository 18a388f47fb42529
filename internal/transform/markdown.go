// Package transform converts Markdown documents into Notion block payloads.
package transform

import (
	"slices"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// maxDepth is the deepest level that may carry children in a single
// append request. Top-level blocks are depth 0.
const maxDepth = 2

// MaxChildren is the most blocks Notion accepts in one nested children
// array.
const MaxChildren = 100

const (
	blockTypeTable    notionapi.BlockType = "table"
	blockTypeTableRow notionapi.BlockType = "table_row"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type converter struct {
	source []byte
}

func newConverter(md string) *converter {
	return &converter{source: []byte(md)}
}

func (c *converter) parse() ast.Node {
	return markdown.Parser().Parse(text.NewReader(c.source))
}

// MarkdownToBlocks converts a Markdown document body into Notion blocks in
// document order. Constructs Notion cannot represent are dropped; the
// conversion itself never fails.
func MarkdownToBlocks(md string) []notionapi.Block {
	c := newConverter(md)
	return c.blocks(c.parse(), 0)
}

func (c *converter) blocks(parent ast.Node, depth int) []notionapi.Block {
	var out []notionapi.Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.block(n, depth)...)
	}
	return out
}

// block converts one node. It may return several blocks when the content
// must be split or flattened to satisfy Notion's limits.
func (c *converter) block(n ast.Node, depth int) []notionapi.Block {
	switch n := n.(type) {
	case *ast.Heading:
		return c.heading(n)

	case *ast.Paragraph, *ast.TextBlock:
		return c.paragraph(n)

	case *ast.List:
		var out []notionapi.Block
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if li, ok := item.(*ast.ListItem); ok {
				out = append(out, c.listItem(li, n.IsOrdered(), depth)...)
			}
		}
		return out

	case *ast.FencedCodeBlock:
		return []notionapi.Block{codeBlock(c.lines(n), NormalizeLanguage(string(n.Language(c.source))))}

	case *ast.CodeBlock:
		return []notionapi.Block{codeBlock(c.lines(n), PlainText)}

	case *ast.Blockquote:
		return c.quote(n, depth)

	case *ast.ThematicBreak:
		return []notionapi.Block{&notionapi.DividerBlock{BasicBlock: basic(notionapi.BlockTypeDivider)}}

	case *east.Table:
		return c.table(n)

	case *ast.HTMLBlock:
		return nil

	default:
		return c.blocks(n, depth)
	}
}

func basic(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: t}
}

// chunkRichText splits rich text into arrays Notion accepts. It always
// returns at least one, possibly empty, array.
func chunkRichText(rt []notionapi.RichText) [][]notionapi.RichText {
	if len(rt) == 0 {
		return [][]notionapi.RichText{{}}
	}
	return slices.Collect(slices.Chunk(rt, MaxRichTextRuns))
}

// overflow turns rich text beyond the first array into trailing paragraphs.
func overflow(chunks [][]notionapi.RichText) []notionapi.Block {
	var out []notionapi.Block
	for _, chunk := range chunks[1:] {
		out = append(out, paragraphBlock(chunk))
	}
	return out
}

func (c *converter) heading(n *ast.Heading) []notionapi.Block {
	chunks := chunkRichText(toRichText(c.runs(n)))
	h := notionapi.Heading{RichText: chunks[0]}

	var block notionapi.Block
	switch n.Level {
	case 1:
		block = &notionapi.Heading1Block{BasicBlock: basic(notionapi.BlockTypeHeading1), Heading1: h}
	case 2:
		block = &notionapi.Heading2Block{BasicBlock: basic(notionapi.BlockTypeHeading2), Heading2: h}
	default:
		// Notion has three heading levels.
		block = &notionapi.Heading3Block{BasicBlock: basic(notionapi.BlockTypeHeading3), Heading3: h}
	}
	return append([]notionapi.Block{block}, overflow(chunks)...)
}

func (c *converter) paragraph(n ast.Node) []notionapi.Block {
	if img := soleImage(n); img != nil && linkable(string(img.Destination)) {
		return []notionapi.Block{c.image(img)}
	}

	rt := toRichText(c.runs(n))
	if len(rt) == 0 {
		return nil
	}

	var out []notionapi.Block
	for chunk := range slices.Chunk(rt, MaxRichTextRuns) {
		out = append(out, paragraphBlock(chunk))
	}
	return out
}

func paragraphBlock(rt []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: basic(notionapi.BlockTypeParagraph),
		Paragraph:  notionapi.Paragraph{RichText: rt},
	}
}

// soleImage returns the image if it is the only content of a paragraph.
func soleImage(n ast.Node) *ast.Image {
	if n.ChildCount() != 1 {
		return nil
	}
	img, _ := n.FirstChild().(*ast.Image)
	return img
}

func (c *converter) image(img *ast.Image) notionapi.Block {
	return &notionapi.ImageBlock{
		BasicBlock: basic(notionapi.BlockTypeImage),
		Image: notionapi.Image{
			Type:     "external",
			External: &notionapi.FileObject{URL: string(img.Destination)},
			Caption:  toRichText([]run{{text: c.plain(img)}}),
		},
	}
}

// leadAndRest splits a container into the rich text of its leading
// paragraph and the blocks converted from everything after it.
func (c *converter) leadAndRest(n ast.Node, depth int) ([]run, []notionapi.Block) {
	childDepth := min(depth+1, maxDepth)

	var lead []run
	var rest []notionapi.Block
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if child == n.FirstChild() && isTextBlock(child) {
			lead = c.runs(child)
			continue
		}
		rest = append(rest, c.block(child, childDepth)...)
	}
	return lead, rest
}

func isTextBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return true
	}
	return false
}

// nest decides where the converted children of a block at depth go: into
// the block itself, or after it as siblings once the depth limit is hit.
// Children beyond MaxChildren also become siblings.
func nest(depth int, children []notionapi.Block) (nested, siblings []notionapi.Block) {
	if depth >= maxDepth {
		return nil, children
	}
	if len(children) > MaxChildren {
		return children[:MaxChildren:MaxChildren], children[MaxChildren:]
	}
	return children, nil
}

func (c *converter) listItem(item *ast.ListItem, ordered bool, depth int) []notionapi.Block {
	checked, isTask := taskState(item)
	lead, rest := c.leadAndRest(item, depth)
	chunks := chunkRichText(toRichText(lead))
	children, siblings := nest(depth, rest)

	var block notionapi.Block
	switch {
	case isTask:
		block = &notionapi.ToDoBlock{
			BasicBlock: basic(notionapi.BlockTypeToDo),
			ToDo:       notionapi.ToDo{RichText: chunks[0], Checked: checked, Children: children},
		}
	case ordered:
		block = &notionapi.NumberedListItemBlock{
			BasicBlock:       basic(notionapi.BlockTypeNumberedListItem),
			NumberedListItem: notionapi.ListItem{RichText: chunks[0], Children: children},
		}
	default:
		block = &notionapi.BulletedListItemBlock{
			BasicBlock:       basic(notionapi.BlockTypeBulletedListItem),
			BulletedListItem: notionapi.ListItem{RichText: chunks[0], Children: children},
		}
	}

	out := append([]notionapi.Block{block}, overflow(chunks)...)
	return append(out, siblings...)
}

// taskState reports whether a list item starts with a GFM task checkbox.
func taskState(item *ast.ListItem) (checked, isTask bool) {
	first := item.FirstChild()
	if first == nil || !isTextBlock(first) {
		return false, false
	}
	box, ok := first.FirstChild().(*east.TaskCheckBox)
	if !ok {
		return false, false
	}
	return box.IsChecked, true
}

// lines returns the raw content of a leaf block without the final newline.
func (c *converter) lines(n ast.Node) string {
	var sb strings.Builder
	segments := n.Lines()
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		sb.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func codeBlock(code, language string) notionapi.Block {
	return &notionapi.CodeBlock{
		BasicBlock: basic(notionapi.BlockTypeCode),
		Code: notionapi.Code{
			RichText: toRichText([]run{{text: code}}),
			Language: language,
		},
	}
}

func (c *converter) quote(n *ast.Blockquote, depth int) []notionapi.Block {
	if kind, body, ok := c.alert(n); ok {
		_, rest := c.leadAndRest(n, depth)
		children, siblings := nest(depth, rest)
		chunks := chunkRichText(MarkdownToRichText(body))
		out := append([]notionapi.Block{Callout(kind, chunks[0], children)}, overflow(chunks)...)
		return append(out, siblings...)
	}

	lead, rest := c.leadAndRest(n, depth)
	chunks := chunkRichText(toRichText(lead))
	children, siblings := nest(depth, rest)

	block := &notionapi.QuoteBlock{
		BasicBlock: basic(notionapi.BlockTypeQuote),
		Quote:      notionapi.Quote{RichText: chunks[0], Children: children},
	}
	out := append([]notionapi.Block{block}, overflow(chunks)...)
	return append(out, siblings...)
}

// table converts a GFM table. Tables with more than MaxChildren rows are
// split into several tables, each repeating the header row.
func (c *converter) table(t *east.Table) []notionapi.Block {
	var cells [][][]notionapi.RichText
	width := 0
	hasHeader := false

	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		if _, ok := row.(*east.TableHeader); ok {
			hasHeader = true
		}
		var rowCells [][]notionapi.RichText
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			rowCells = append(rowCells, toRichText(c.runs(cell)))
		}
		width = max(width, len(rowCells))
		cells = append(cells, rowCells)
	}

	rows := make([]notionapi.Block, 0, len(cells))
	for _, rowCells := range cells {
		for len(rowCells) < width {
			rowCells = append(rowCells, []notionapi.RichText{})
		}
		rows = append(rows, &notionapi.TableRowBlock{
			BasicBlock: basic(blockTypeTableRow),
			TableRow:   notionapi.TableRow{Cells: rowCells},
		})
	}

	var header []notionapi.Block
	body := rows
	if hasHeader && len(rows) > 0 {
		header, body = rows[:1], rows[1:]
	}
	if len(body) == 0 {
		return []notionapi.Block{tableBlock(width, hasHeader, header)}
	}

	var out []notionapi.Block
	for chunk := range slices.Chunk(body, MaxChildren-len(header)) {
		out = append(out, tableBlock(width, hasHeader, append(slices.Clone(header), chunk...)))
	}
	return out
}

func tableBlock(width int, hasHeader bool, rows []notionapi.Block) notionapi.Block {
	return &notionapi.TableBlock{
		BasicBlock: basic(blockTypeTable),
		Table: notionapi.Table{
			TableWidth:      width,
			HasColumnHeader: hasHeader,
			Children:        rows,
		},
	}
}
