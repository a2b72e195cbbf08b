package report

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies an outline block.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockTableRow  BlockKind = "table_row"
)

// Block is a flattened block of a Markdown document.
type Block struct {
	Kind BlockKind
	// Level is the heading level, or the nesting depth of a list item starting at 1.
	Level int
	Text  string
	// Cells holds table cell text; Header marks the table's header row.
	Cells  []string
	Header bool
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Outline parses Markdown into document-order blocks. Code blocks become
// paragraphs of their literal text; thematic breaks and raw HTML are dropped.
func Outline(src string) []Block {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = appendBlocks(blocks, n, source, 0)
	}
	return blocks
}

func appendBlocks(blocks []Block, n ast.Node, src []byte, depth int) []Block {
	switch node := n.(type) {
	case *ast.Heading:
		return append(blocks, Block{Kind: BlockHeading, Level: node.Level, Text: inlineText(node, src)})

	case *ast.Paragraph, *ast.TextBlock:
		if t := inlineText(node, src); t != "" {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: t})
		}
		return blocks

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if t := literalText(node, src); t != "" {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: t})
		}
		return blocks

	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = appendBlocks(blocks, c, src, depth)
		}
		return blocks

	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			blocks = appendListItem(blocks, item, src, depth+1)
		}
		return blocks

	case *east.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			_, header := row.(*east.TableHeader)
			var cells []string
			for c := row.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, inlineText(c, src))
			}
			blocks = append(blocks, Block{
				Kind:   BlockTableRow,
				Text:   strings.Join(cells, " | "),
				Cells:  cells,
				Header: header,
			})
		}
		return blocks
	}
	return blocks
}

func appendListItem(blocks []Block, item ast.Node, src []byte, depth int) []Block {
	var parts []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, c)
			continue
		}
		if t := inlineText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	blocks = append(blocks, Block{Kind: BlockListItem, Level: depth, Text: strings.Join(parts, " ")})
	for _, l := range nested {
		blocks = appendBlocks(blocks, l, src, depth)
	}
	return blocks
}

// inlineText concatenates the text of n's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				buf.Write(node.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.AutoLink:
				buf.Write(node.Label(src))
			case *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func literalText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
