package figure

import (
	"errors"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/layout"
)

const (
	// MinWidth is the smallest width a figure can be dragged to, in px.
	MinWidth = 50.0
	// MaxPageFraction caps the width relative to the page.
	MaxPageFraction = 0.95
	// defaultFraction mirrors the image wrapper's max-width.
	defaultFraction = 0.8
)

var (
	// ErrNotResizing is returned by Drag and End outside a gesture.
	ErrNotResizing = errors.New("no resize in progress")
	// ErrResizing is returned by Begin during a gesture.
	ErrResizing = errors.New("resize already in progress")
	// ErrNotPopulated is returned when resizing an empty figure.
	ErrNotPopulated = errors.New("figure has no image")
)

// ClampWidth limits a dragged width to [MinWidth, MaxPageFraction*pageWidth].
func ClampWidth(w, pageWidth float64) float64 {
	hi := MaxPageFraction * pageWidth
	if w > hi {
		w = hi
	}
	if w < MinWidth {
		w = MinWidth
	}
	return w
}

// CurrentWidth returns the rendered image width inside a parent of the
// given width.
func CurrentWidth(f *doc.Figure, parentWidth float64) float64 {
	limit := defaultFraction * parentWidth
	if f.WidthPercent > 0 {
		return min(f.WidthPercent/100*parentWidth, limit)
	}
	if f.NaturalWidth > 0 {
		return min(f.NaturalWidth, limit)
	}
	return limit
}

// Height returns the rendered image height for a width.
func Height(f *doc.Figure, width float64) float64 {
	if f.NaturalWidth > 0 && f.NaturalHeight > 0 {
		return width * f.NaturalHeight / f.NaturalWidth
	}
	return width * layout.DefaultAspect
}

// Resizer is the drag-to-resize gesture for one figure at a time:
// Begin, any number of Drag calls, then End.
type Resizer struct {
	probe geometry.Probe

	block       *doc.Block
	startX      float64
	startWidth  float64
	pageWidth   float64
	parentWidth float64
}

// NewResizer creates a resizer that measures through probe.
func NewResizer(probe geometry.Probe) *Resizer {
	return &Resizer{probe: probe}
}

// Active reports whether a gesture is in progress.
func (r *Resizer) Active() bool { return r.block != nil }

// Block returns the figure being resized, or nil.
func (r *Resizer) Block() *doc.Block { return r.block }

// Begin starts a gesture on b at pointer x.
func (r *Resizer) Begin(b *doc.Block, x float64) error {
	if r.block != nil {
		return ErrResizing
	}
	if b.Kind != doc.KindFigure || b.Figure == nil {
		return ErrNotFigure
	}
	if b.Figure.State != doc.FigurePopulated {
		return ErrNotPopulated
	}
	p := b.Page()
	pageWidth, err := r.probe.PageWidth(p)
	if err != nil {
		return err
	}
	parentWidth, err := r.probe.ContentWidth(p)
	if err != nil {
		return err
	}
	r.block = b
	r.startX = x
	r.pageWidth = pageWidth
	r.parentWidth = parentWidth
	r.startWidth = CurrentWidth(b.Figure, parentWidth)
	return nil
}

// Drag applies the pointer position and returns the stored percentage.
func (r *Resizer) Drag(x float64) (float64, error) {
	if r.block == nil {
		return 0, ErrNotResizing
	}
	w := ClampWidth(r.startWidth+(x-r.startX), r.pageWidth)
	pct := w / r.parentWidth * 100
	SetWidthPercent(r.block, pct)
	return pct, nil
}

// End finishes the gesture and returns the resized block.
func (r *Resizer) End() (*doc.Block, error) {
	if r.block == nil {
		return nil, ErrNotResizing
	}
	b := r.block
	r.block = nil
	return b, nil
}
