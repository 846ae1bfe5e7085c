package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
)

func kinds(ds []blocks.Descriptor) []doc.Kind {
	out := make([]doc.Kind, len(ds))
	for i, d := range ds {
		out[i] = d.Kind
	}
	return out
}

func TestMarkdownImporter(t *testing.T) {
	input := `# Informe

Texto con **negrita**.

## Datos

- uno
- dos

~~~go
x := 1 < 2
~~~

### Detalle

> Ojo con esto.
`
	res, err := (&MarkdownImporter{}).Import(strings.NewReader(input), "notas/informe.md")
	require.NoError(t, err)

	assert.Equal(t, "informe", res.Title)
	require.Equal(t, []doc.Kind{
		doc.KindTitle, doc.KindParagraph, doc.KindSubtitle, doc.KindParagraph,
		doc.KindCode, doc.KindHeading, doc.KindNote,
	}, kinds(res.Blocks))
	assert.Equal(t, "Informe", res.Blocks[0].Markup)
	assert.Equal(t, "Texto con <strong>negrita</strong>.", res.Blocks[1].Markup)
	assert.Contains(t, res.Blocks[3].Markup, "<li>uno</li>")
	assert.Equal(t, "<pre>x := 1 &lt; 2</pre>", res.Blocks[4].Markup)
	assert.Equal(t, "Ojo con esto.", res.Blocks[6].Markup)
}

func TestTextImporter(t *testing.T) {
	input := "Primera linea\ncontinua aqui.\n\n\nSegundo & ultimo.\n"
	res, err := (&TextImporter{}).Import(strings.NewReader(input), "a.txt")
	require.NoError(t, err)

	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "Primera linea continua aqui.", res.Blocks[0].Markup)
	assert.Equal(t, "Segundo &amp; ultimo.", res.Blocks[1].Markup)
	assert.Equal(t, doc.KindParagraph, res.Blocks[1].Kind)
}

func TestHTMLImporter(t *testing.T) {
	input := `<!DOCTYPE html><html><head><title>x</title><style>p{}</style></head><body>
<header>menu</header>
<h1>Titulo</h1>
<div><p>Uno <em>dos</em></p><h3>Sub</h3></div>
<pre>a
b</pre>
<ol><li>i</li></ol>
<blockquote>cita</blockquote>
</body></html>`
	res, err := (&HTMLImporter{}).Import(strings.NewReader(input), "page.html")
	require.NoError(t, err)

	require.Equal(t, []doc.Kind{
		doc.KindTitle, doc.KindParagraph, doc.KindHeading, doc.KindCode, doc.KindParagraph, doc.KindNote,
	}, kinds(res.Blocks))
	assert.Equal(t, "Uno <em>dos</em>", res.Blocks[1].Markup)
	assert.Equal(t, "<pre>a\nb</pre>", res.Blocks[3].Markup)
	assert.Equal(t, "<ol><li>i</li></ol>", res.Blocks[4].Markup)
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want Importer
	}{
		{"a.md", &MarkdownImporter{}},
		{"a.MARKDOWN", &MarkdownImporter{}},
		{"a.docx", &DOCXImporter{}},
		{"a.pdf", &PDFImporter{}},
		{"a.htm", &HTMLImporter{}},
		{"a.txt", &TextImporter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForFile(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
			assert.True(t, IsSupportedExtension(tt.name))
		})
	}

	_, err := ForFile("a.csv")
	assert.Error(t, err)

	got, err := ForFormat("md")
	require.NoError(t, err)
	assert.IsType(t, &MarkdownImporter{}, got)
}

func TestDocxHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, docxHeadingLevel("Heading1"))
	assert.Equal(t, 3, docxHeadingLevel("heading 3"))
	assert.Zero(t, docxHeadingLevel("Heading"))
	assert.Zero(t, docxHeadingLevel("Normal"))
}
