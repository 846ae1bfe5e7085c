package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
)

// MarkdownImporter handles Markdown files using goldmark. Inline
// formatting inside paragraphs and lists is kept as markup.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))
	res := &Result{Title: titleOf(filename)}

	render := func(n ast.Node) (string, error) {
		var buf bytes.Buffer
		if err := md.Renderer().Render(&buf, src, n); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return strings.TrimSpace(buf.String()), nil
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			res.Blocks = append(res.Blocks, textBlock(headingKind(node.Level), plainText(n, src)))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			res.Blocks = append(res.Blocks, codeBlock(strings.TrimRight(lineText(n, src), "\n")))
		case *ast.Blockquote:
			res.Blocks = append(res.Blocks, textBlock(doc.KindNote, plainText(n, src)))
		case *ast.Paragraph, *ast.List:
			markup, err := render(n)
			if err != nil {
				return nil, err
			}
			if _, ok := node.(*ast.Paragraph); ok {
				markup = strings.TrimSuffix(strings.TrimPrefix(markup, "<p>"), "</p>")
			}
			if markup != "" {
				res.Blocks = append(res.Blocks, blocks.Descriptor{Kind: doc.KindParagraph, Markup: markup})
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
			// No block kind carries these.
		default:
			if t := plainText(n, src); t != "" {
				res.Blocks = append(res.Blocks, textBlock(doc.KindParagraph, t))
			}
		}
	}
	return res, nil
}

// lineText concatenates the raw source lines of a block node.
func lineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// plainText gets the text content of a goldmark AST node.
func plainText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		buf.WriteString(lineText(n, src))
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		if buf.Len() > 0 && c.Type() == ast.TypeBlock {
			buf.WriteByte(' ')
		}
		buf.WriteString(plainText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
