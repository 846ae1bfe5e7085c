package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// HTMLImporter handles HTML files. Headings, paragraphs, lists,
// preformatted text and block quotes become blocks; inline markup inside
// paragraphs is kept.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (*Result, error) {
	frag, err := html.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	res := &Result{Title: titleOf(filename)}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if t := strings.TrimSpace(c.Data); t != "" {
					res.Blocks = append(res.Blocks, textBlock(doc.KindParagraph, t))
				}
				continue
			}
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "script", "style", "nav", "footer", "header", "title":
				// Not content.
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if t := strings.TrimSpace(html.TextContent(c)); t != "" {
					res.Blocks = append(res.Blocks, textBlock(headingKind(int(c.Data[1]-'0')), t))
				}
			case "pre":
				res.Blocks = append(res.Blocks, codeBlock(html.TextContent(c)))
			case "blockquote":
				if t := strings.TrimSpace(html.TextContent(c)); t != "" {
					res.Blocks = append(res.Blocks, textBlock(doc.KindNote, t))
				}
			case "p":
				markup, err := html.RenderChildren(c)
				if err != nil {
					return err
				}
				if strings.TrimSpace(html.TextContent(c)) != "" {
					res.Blocks = append(res.Blocks, blocks.Descriptor{Kind: doc.KindParagraph, Markup: strings.TrimSpace(markup)})
				}
			case "ul", "ol", "table":
				markup, err := html.Render(c)
				if err != nil {
					return err
				}
				res.Blocks = append(res.Blocks, blocks.Descriptor{Kind: doc.KindParagraph, Markup: markup})
			case "div", "section", "article", "main", "body":
				if err := walk(c); err != nil {
					return err
				}
			default:
				if t := strings.TrimSpace(html.TextContent(c)); t != "" {
					res.Blocks = append(res.Blocks, textBlock(doc.KindParagraph, t))
				}
			}
		}
		return nil
	}
	if err := walk(frag.Root); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return res, nil
}
