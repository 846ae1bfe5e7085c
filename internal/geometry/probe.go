package geometry

import (
	"fmt"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/layout"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// LayoutProbe measures pages by running the layout engine over their
// blocks, stacked from the top padding down.
type LayoutProbe struct {
	engine *layout.Engine
	page   PageGeometry
}

// NewLayoutProbe creates a probe for pages of the given geometry.
func NewLayoutProbe(engine *layout.Engine, page PageGeometry) *LayoutProbe {
	if engine == nil {
		engine = layout.NewEngine(nil)
	}
	return &LayoutProbe{engine: engine, page: page}
}

// Geometry returns the page geometry the probe measures against.
func (lp *LayoutProbe) Geometry() PageGeometry { return lp.page }

// LayoutPage lays out every block of p in order.
func (lp *LayoutProbe) LayoutPage(p *doc.Page) ([]*layout.Result, error) {
	return lp.layoutThrough(p, len(p.Blocks)-1)
}

// layoutThrough lays out p's blocks up to and including index last.
func (lp *LayoutProbe) layoutThrough(p *doc.Page, last int) ([]*layout.Result, error) {
	if p == nil || p.Document() == nil {
		return nil, ErrUnavailable
	}
	x := lp.page.Padding.Left
	y := lp.page.Padding.Top
	width := lp.page.ContentWidth()

	results := make([]*layout.Result, 0, last+1)
	for i := 0; i <= last && i < len(p.Blocks); i++ {
		b := p.Blocks[i]
		if b.Node == nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, ErrUnavailable)
		}
		res := lp.engine.LayoutBlock(b.Node, x, y, width)
		results = append(results, res)
		y = res.Root.OuterBottom()
	}
	return results, nil
}

func (lp *LayoutProbe) layoutBlock(p *doc.Page, b *doc.Block) (*layout.Result, error) {
	if b == nil || b.Page() != p {
		return nil, ErrUnavailable
	}
	i := p.IndexOf(b)
	results, err := lp.layoutThrough(p, i)
	if err != nil {
		return nil, err
	}
	return results[i], nil
}

// UsableHeight implements Probe.
func (lp *LayoutProbe) UsableHeight(p *doc.Page) (float64, error) {
	if p == nil || p.Document() == nil {
		return 0, ErrUnavailable
	}
	return lp.page.UsableHeight(), nil
}

// Bounds implements Probe.
func (lp *LayoutProbe) Bounds(p *doc.Page, b *doc.Block) (Rect, error) {
	res, err := lp.layoutBlock(p, b)
	if err != nil {
		return Rect{}, err
	}
	return Rect{Top: res.Root.Y, Bottom: res.Root.Bottom()}, nil
}

// NodeBottom implements Probe.
func (lp *LayoutProbe) NodeBottom(p *doc.Page, b *doc.Block, n *html.Node) (float64, error) {
	res, err := lp.layoutBlock(p, b)
	if err != nil {
		return 0, err
	}
	span, ok := res.Span(n)
	if !ok {
		return 0, ErrUnavailable
	}
	return span.Bottom, nil
}

// TextLines implements TextProbe.
func (lp *LayoutProbe) TextLines(p *doc.Page, b *doc.Block, n *html.Node) ([]layout.Line, error) {
	res, err := lp.layoutBlock(p, b)
	if err != nil {
		return nil, err
	}
	return res.Lines(n), nil
}

// PageWidth implements Probe.
func (lp *LayoutProbe) PageWidth(p *doc.Page) (float64, error) {
	if p == nil || p.Document() == nil {
		return 0, ErrUnavailable
	}
	return lp.page.Width, nil
}

// ContentWidth implements Probe.
func (lp *LayoutProbe) ContentWidth(p *doc.Page) (float64, error) {
	if p == nil || p.Document() == nil {
		return 0, ErrUnavailable
	}
	return lp.page.ContentWidth(), nil
}
