// Package geometry answers "where does this block end" for the pagination
// engine. Measurements are in px relative to the top edge of the page.
package geometry

import (
	"errors"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/layout"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// ErrUnavailable is returned when a page or block has no measurable
// geometry, for instance because it is detached.
var ErrUnavailable = errors.New("geometry unavailable")

// Rect is the vertical extent of a block's border box.
type Rect struct {
	Top, Bottom float64
}

// Height returns Bottom-Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Probe reads rendered geometry. Implementations must not cache across
// calls: every answer reflects the tree at the time of the call.
type Probe interface {
	// UsableHeight is the page height minus its bottom padding.
	UsableHeight(p *doc.Page) (float64, error)
	Bounds(p *doc.Page, b *doc.Block) (Rect, error)
	// NodeBottom is the bottom edge of one content node inside b.
	NodeBottom(p *doc.Page, b *doc.Block, n *html.Node) (float64, error)
	PageWidth(p *doc.Page) (float64, error)
	// ContentWidth is the width available to blocks on p.
	ContentWidth(p *doc.Page) (float64, error)
}

// TextProbe is implemented by probes that can report line boxes inside a
// text node, allowing a split between lines of a single run of text.
type TextProbe interface {
	TextLines(p *doc.Page, b *doc.Block, n *html.Node) ([]layout.Line, error)
}

// BottomEdge returns the bottom of b on p.
func BottomEdge(pr Probe, p *doc.Page, b *doc.Block) (float64, error) {
	r, err := pr.Bounds(p, b)
	if err != nil {
		return 0, err
	}
	return r.Bottom, nil
}

// Padding is the inner spacing of a page.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// PageGeometry is the fixed size of every page.
type PageGeometry struct {
	Width   float64
	Height  float64
	Padding Padding
}

// A4 is a 210x297mm page at 96dpi with 20mm padding.
func A4() PageGeometry {
	return PageGeometry{
		Width:   794,
		Height:  1123,
		Padding: Padding{Top: 76, Right: 76, Bottom: 76, Left: 76},
	}
}

// Letter is an 8.5x11in page at 96dpi with 1in padding.
func Letter() PageGeometry {
	return PageGeometry{
		Width:   816,
		Height:  1056,
		Padding: Padding{Top: 96, Right: 96, Bottom: 96, Left: 96},
	}
}

// ContentWidth is the width left between the side paddings.
func (g PageGeometry) ContentWidth() float64 {
	return g.Width - g.Padding.Left - g.Padding.Right
}

// UsableHeight is the height minus the bottom padding.
func (g PageGeometry) UsableHeight() float64 {
	return g.Height - g.Padding.Bottom
}
