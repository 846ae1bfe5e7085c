package geometry

import (
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// Fixed is a deterministic probe driven by declared heights. Blocks stack
// from Top with Gap between them. A block's height is BlockHeights[b] when
// set, otherwise the sum of NodeHeights over the nodes found under its
// content region, plus Chrome.
type Fixed struct {
	Usable  float64
	Width   float64
	Content float64
	Top     float64
	Gap     float64
	// Chrome is added to computed block heights for non-content parts such
	// as padding.
	Chrome       float64
	BlockHeights map[*doc.Block]float64
	NodeHeights  map[*html.Node]float64
	// Detached pages report ErrUnavailable.
	Detached map[*doc.Page]bool
}

// NewFixed creates a probe with the given usable height and no gaps.
func NewFixed(usable float64) *Fixed {
	return &Fixed{
		Usable:       usable,
		Width:        794,
		Content:      642,
		BlockHeights: make(map[*doc.Block]float64),
		NodeHeights:  make(map[*html.Node]float64),
		Detached:     make(map[*doc.Page]bool),
	}
}

func (f *Fixed) available(p *doc.Page) bool {
	return p != nil && p.Document() != nil && !f.Detached[p]
}

// nodeBottoms lays out b's content units starting at top.
func (f *Fixed) nodeBottoms(b *doc.Block, top float64) (map[*html.Node]float64, float64) {
	bottoms := make(map[*html.Node]float64)
	cursor := top
	root := b.Content
	if root == nil {
		root = b.Node
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if h, ok := f.NodeHeights[n]; ok {
			cursor += h
			for x := n; x != nil; x = x.Parent {
				bottoms[x] = max(bottoms[x], cursor)
				if x == root {
					break
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return bottoms, cursor - top
}

func (f *Fixed) height(b *doc.Block) float64 {
	if h, ok := f.BlockHeights[b]; ok {
		return h
	}
	_, h := f.nodeBottoms(b, 0)
	return h + f.Chrome
}

// UsableHeight implements Probe.
func (f *Fixed) UsableHeight(p *doc.Page) (float64, error) {
	if !f.available(p) {
		return 0, ErrUnavailable
	}
	return f.Usable, nil
}

// Bounds implements Probe.
func (f *Fixed) Bounds(p *doc.Page, b *doc.Block) (Rect, error) {
	if !f.available(p) || b.Page() != p {
		return Rect{}, ErrUnavailable
	}
	y := f.Top
	for _, x := range p.Blocks {
		h := f.height(x)
		if x == b {
			return Rect{Top: y, Bottom: y + h}, nil
		}
		y += h + f.Gap
	}
	return Rect{}, ErrUnavailable
}

// NodeBottom implements Probe.
func (f *Fixed) NodeBottom(p *doc.Page, b *doc.Block, n *html.Node) (float64, error) {
	r, err := f.Bounds(p, b)
	if err != nil {
		return 0, err
	}
	bottoms, _ := f.nodeBottoms(b, r.Top+f.Chrome/2)
	v, ok := bottoms[n]
	if !ok {
		return 0, ErrUnavailable
	}
	return v, nil
}

// PageWidth implements Probe.
func (f *Fixed) PageWidth(p *doc.Page) (float64, error) {
	if !f.available(p) {
		return 0, ErrUnavailable
	}
	return f.Width, nil
}

// ContentWidth implements Probe.
func (f *Fixed) ContentWidth(p *doc.Page) (float64, error) {
	if !f.available(p) {
		return 0, ErrUnavailable
	}
	return f.Content, nil
}
