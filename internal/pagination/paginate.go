package pagination

import (
	"errors"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/geometry"
)

// maxDepth bounds the cascade. Every level moves at least one block to a
// later page, so a legitimate cascade never gets near it.
const maxDepth = 4096

// paginate moves the overflow of p onto the following page and recurses
// into that page.
func (e *Engine) paginate(p *doc.Page, res *Result, depth int) {
	logger := e.options.Logger
	if depth > maxDepth {
		logger.Error("Pagination cascade too deep", "page", p.ID)
		return
	}

	usable, err := e.probe.UsableHeight(p)
	if err != nil {
		e.skip(p, res, err)
		return
	}
	limit := usable + e.options.Epsilon

	idx := -1
	var bottom float64
	for i, b := range p.Blocks {
		bottom, err = geometry.BottomEdge(e.probe, p, b)
		if err != nil {
			e.skip(p, res, err)
			return
		}
		if bottom > limit {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	b := p.Blocks[idx]
	var cont *doc.Block
	from := idx
	if idx == 0 {
		if e.registry.Splittable(b.Kind) {
			cont = e.split(p, b, usable)
		}
		if cont == nil {
			// Relocating a lone first block would just repeat the overflow on
			// an identical page.
			res.AcceptedOverflows++
			logger.Warn("Block exceeds page height",
				"page", p.Number,
				"block", b.ID,
				"kind", b.Kind,
				"bottom", bottom,
				"usable", usable,
			)
		} else {
			res.Splits++
		}
		from = 1
	}

	if cont == nil && from >= len(p.Blocks) {
		return
	}

	next := e.nextPage(p, res)
	moved := doc.MoveTail(p, from, next)
	if cont != nil {
		next.Insert(0, cont)
	}
	res.BlocksMoved += len(moved)
	for _, m := range moved {
		if m.Kind == doc.KindFigure {
			res.FiguresMoved = true
		}
	}

	e.paginate(next, res, depth+1)
}

func (e *Engine) nextPage(p *doc.Page, res *Result) *doc.Page {
	d := p.Document()
	if next := d.Next(p); next != nil {
		return next
	}
	res.PagesCreated++
	return e.registry.NewPage(d, d.IndexOf(p)+1)
}

func (e *Engine) skip(p *doc.Page, res *Result, err error) {
	res.Skipped++
	if errors.Is(err, geometry.ErrUnavailable) {
		e.options.Logger.Debug("Skipping page without geometry", "page", p.ID)
		return
	}
	e.options.Logger.Warn("Skipping page", "page", p.ID, "err", err)
}
