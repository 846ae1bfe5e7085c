package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/gompdf/pagedit/internal/doc"
)

// DOCXImporter handles .docx files. Heading styles map to heading kinds and
// monospace styles to code blocks.
type DOCXImporter struct{}

func (p *DOCXImporter) Import(r io.Reader, filename string) (*Result, error) {
	// go-docx needs a ReaderAt and size, so write to a temp file.
	tmp, err := os.CreateTemp("", "pagedit-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	d, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	res := &Result{Title: titleOf(filename)}
	for _, item := range d.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		style := docxStyle(para)
		switch {
		case docxHeadingLevel(style) > 0:
			res.Blocks = append(res.Blocks, textBlock(headingKind(docxHeadingLevel(style)), text))
		case strings.EqualFold(style, "Title"):
			res.Blocks = append(res.Blocks, textBlock(doc.KindTitle, text))
		case strings.EqualFold(style, "Subtitle"):
			res.Blocks = append(res.Blocks, textBlock(doc.KindSubtitle, text))
		case strings.Contains(strings.ToLower(style), "code"):
			res.Blocks = append(res.Blocks, codeBlock(text))
		default:
			res.Blocks = append(res.Blocks, textBlock(doc.KindParagraph, text))
		}
	}
	return res, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
