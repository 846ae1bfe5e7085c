// Package importer converts external documents into block descriptors the
// editor can place on pages.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// Result is an imported document.
type Result struct {
	Title  string              `json:"title"`
	Blocks []blocks.Descriptor `json:"blocks"`
}

// Importer reads one document format.
type Importer interface {
	Import(r io.Reader, filename string) (*Result, error)
}

// SupportedExtensions lists the file extensions ForFile accepts.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the importer for a filename.
func ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ForFormat returns the importer for a bare format name such as "md".
func ForFormat(format string) (Importer, error) {
	return ForFile("document." + strings.TrimPrefix(format, "."))
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// titleOf strips the directory and extension from filename.
func titleOf(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// headingKind maps a heading level to a block kind.
func headingKind(level int) doc.Kind {
	switch level {
	case 1:
		return doc.KindTitle
	case 2:
		return doc.KindSubtitle
	default:
		return doc.KindHeading
	}
}

func textBlock(kind doc.Kind, text string) blocks.Descriptor {
	return blocks.Descriptor{Kind: kind, Markup: html.Escape(text)}
}

func codeBlock(text string) blocks.Descriptor {
	return blocks.Descriptor{Kind: doc.KindCode, Markup: "<pre>" + html.Escape(text) + "</pre>"}
}

// paragraphs splits plain text on blank lines, joining wrapped lines.
func paragraphs(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}
