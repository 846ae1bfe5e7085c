package layout

import (
	"github.com/gompdf/pagedit/internal/parser/html"
)

// Box is a laid-out rectangle. Coordinates are absolute within the frame the
// caller laid the block out in.
type Box interface {
	GetX() float64
	GetY() float64
	GetWidth() float64
	GetHeight() float64
	GetNode() *html.Node
	// Shift moves the box and everything inside it.
	Shift(dx, dy float64)
}

// Edges holds per-side lengths for margins, padding and borders.
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Horizontal returns Left+Right.
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical returns Top+Bottom.
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Walk visits b and every box below it in paint order.
func Walk(b Box, fn func(Box)) {
	if b == nil {
		return
	}
	fn(b)
	switch v := b.(type) {
	case *BlockBox:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *LineBox:
		for _, r := range v.Items {
			Walk(r, fn)
		}
	}
}
