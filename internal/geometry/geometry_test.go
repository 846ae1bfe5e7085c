package geometry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/layout"
	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/style"
)

func newPage() (*doc.Document, *doc.Page) {
	d := doc.New()
	p := d.NewPage()
	d.AppendPage(p)
	return d, p
}

func textBlock(p *doc.Page, kind doc.Kind, text string) *doc.Block {
	wrapper := html.Element("div", "id", string(kind), "class", doc.ClassPlaced)
	content := html.Element("div", "class", doc.ClassContent)
	content.AppendChild(html.Text(text))
	wrapper.AppendChild(content)
	b := doc.NewBlock(kind, wrapper, content)
	if p != nil {
		p.Append(b)
	}
	return b
}

func newLayoutProbe() *LayoutProbe {
	return NewLayoutProbe(layout.NewEngine(style.NewStyleEngine()), A4())
}

func TestPageGeometry(t *testing.T) {
	a4 := A4()
	assert.Equal(t, 642.0, a4.ContentWidth())
	assert.Equal(t, 1047.0, a4.UsableHeight())

	letter := Letter()
	assert.Equal(t, 624.0, letter.ContentWidth())
	assert.Equal(t, 960.0, letter.UsableHeight())

	assert.Equal(t, 30.0, Rect{Top: 10, Bottom: 40}.Height())
}

func TestFixedStacksDeclaredHeights(t *testing.T) {
	_, p := newPage()
	f := NewFixed(100)
	f.Top, f.Gap = 5, 10
	a := textBlock(p, doc.KindParagraph, "a")
	b := textBlock(p, doc.KindParagraph, "b")
	f.BlockHeights[a] = 30
	f.BlockHeights[b] = 40

	r, err := f.Bounds(p, b)
	require.NoError(t, err)
	assert.Equal(t, Rect{Top: 45, Bottom: 85}, r)

	bottom, err := BottomEdge(f, p, a)
	require.NoError(t, err)
	assert.Equal(t, 35.0, bottom)

	h, err := f.UsableHeight(p)
	require.NoError(t, err)
	assert.Equal(t, 100.0, h)
}

func TestFixedNodeHeights(t *testing.T) {
	_, p := newPage()
	f := NewFixed(100)
	f.Chrome = 4
	b := textBlock(p, doc.KindParagraph, "")
	first, second := html.Element("p"), html.Element("p")
	b.Content.AppendChild(first)
	b.Content.AppendChild(second)
	f.NodeHeights[first] = 20
	f.NodeHeights[second] = 30

	r, err := f.Bounds(p, b)
	require.NoError(t, err)
	assert.Equal(t, 54.0, r.Height())

	y, err := f.NodeBottom(p, b, first)
	require.NoError(t, err)
	assert.Equal(t, 22.0, y)
	y, err = f.NodeBottom(p, b, second)
	require.NoError(t, err)
	assert.Equal(t, 52.0, y)

	_, err = f.NodeBottom(p, b, html.Element("span"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFixedUnavailable(t *testing.T) {
	_, p := newPage()
	f := NewFixed(100)
	b := textBlock(p, doc.KindParagraph, "x")

	other := textBlock(nil, doc.KindParagraph, "y")
	_, err := f.Bounds(p, other)
	assert.ErrorIs(t, err, ErrUnavailable)

	f.Detached[p] = true
	_, err = f.Bounds(p, b)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = f.PageWidth(p)
	assert.ErrorIs(t, err, ErrUnavailable)

	orphan := &doc.Page{}
	_, err = f.UsableHeight(orphan)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = f.ContentWidth(orphan)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLayoutProbeStacksBlocks(t *testing.T) {
	_, p := newPage()
	lp := newLayoutProbe()
	short := textBlock(p, doc.KindParagraph, "Hola")
	long := textBlock(p, doc.KindParagraph, strings.Repeat("Un texto bastante largo. ", 60))

	rs, err := lp.Bounds(p, short)
	require.NoError(t, err)
	rl, err := lp.Bounds(p, long)
	require.NoError(t, err)

	assert.Equal(t, lp.Geometry().Padding.Top, rs.Top)
	assert.GreaterOrEqual(t, rl.Top, rs.Bottom)
	assert.Greater(t, rl.Height(), rs.Height())

	results, err := lp.LayoutPage(p)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, rl.Bottom, results[1].Root.Bottom())

	// Measurements reflect the tree at call time.
	p.Remove(short)
	moved, err := lp.Bounds(p, long)
	require.NoError(t, err)
	assert.Equal(t, lp.Geometry().Padding.Top, moved.Top)
}

func TestLayoutProbeNodes(t *testing.T) {
	_, p := newPage()
	lp := newLayoutProbe()
	b := textBlock(p, doc.KindParagraph, strings.Repeat("Palabra ", 200))

	r, err := lp.Bounds(p, b)
	require.NoError(t, err)
	bottom, err := lp.NodeBottom(p, b, b.Content)
	require.NoError(t, err)
	assert.Greater(t, bottom, r.Top)
	assert.LessOrEqual(t, bottom, r.Bottom)

	lines, err := lp.TextLines(p, b, b.Content.FirstChild)
	require.NoError(t, err)
	require.Greater(t, len(lines), 1)
	assert.LessOrEqual(t, lines[len(lines)-1].Bottom, bottom)

	_, err = lp.NodeBottom(p, b, html.Element("span"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLayoutProbeUnavailable(t *testing.T) {
	d, p := newPage()
	lp := newLayoutProbe()
	b := textBlock(p, doc.KindParagraph, "x")

	_, err := lp.Bounds(p, textBlock(nil, doc.KindParagraph, "y"))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = lp.UsableHeight(&doc.Page{})
	assert.ErrorIs(t, err, ErrUnavailable)

	d.RemovePage(p)
	_, err = lp.Bounds(p, b)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = lp.PageWidth(p)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLayoutProbeSizes(t *testing.T) {
	_, p := newPage()
	lp := NewLayoutProbe(nil, Letter())

	h, err := lp.UsableHeight(p)
	require.NoError(t, err)
	assert.Equal(t, 960.0, h)
	w, err := lp.PageWidth(p)
	require.NoError(t, err)
	assert.Equal(t, 816.0, w)
	cw, err := lp.ContentWidth(p)
	require.NoError(t, err)
	assert.Equal(t, 624.0, cw)
}
