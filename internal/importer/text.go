package importer

import (
	"fmt"
	"io"

	"github.com/gompdf/pagedit/internal/doc"
)

// TextImporter handles plain text files. Blank lines separate paragraphs.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	res := &Result{Title: titleOf(filename)}
	for _, para := range paragraphs(string(src)) {
		res.Blocks = append(res.Blocks, textBlock(doc.KindParagraph, para))
	}
	return res, nil
}
