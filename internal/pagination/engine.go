// Package pagination keeps every page within its usable height by moving
// overflowing blocks, and the tails of split blocks, onto following pages.
package pagination

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/geometry"
)

// DefaultEpsilon is the tolerance in px under which a block is not
// considered to overflow.
const DefaultEpsilon = 2

// Options configures the engine.
type Options struct {
	Epsilon float64
	Logger  *log.Logger
	// Lock, when set, is held while a scheduled pass runs.
	Lock sync.Locker
}

// Result summarizes one pagination pass.
type Result struct {
	PagesCreated int
	BlocksMoved  int
	Splits       int
	// AcceptedOverflows counts blocks left overflowing because they could
	// be neither split nor usefully relocated.
	AcceptedOverflows int
	// Skipped counts pages whose geometry was unavailable.
	Skipped      int
	FiguresMoved bool
}

func (r *Result) add(o Result) {
	r.PagesCreated += o.PagesCreated
	r.BlocksMoved += o.BlocksMoved
	r.Splits += o.Splits
	r.AcceptedOverflows += o.AcceptedOverflows
	r.Skipped += o.Skipped
	r.FiguresMoved = r.FiguresMoved || o.FiguresMoved
}

// Changed reports whether the pass modified the document.
func (r Result) Changed() bool {
	return r.PagesCreated > 0 || r.BlocksMoved > 0 || r.Splits > 0
}

// Engine paginates documents.
type Engine struct {
	probe    geometry.Probe
	registry *blocks.Registry
	frames   Frames
	options  Options

	mu        sync.Mutex
	pending   map[*doc.Page]struct{}
	scheduled bool
	last      Result
	onPass    func(Result)
}

// NewEngine creates an engine measuring with probe and creating pages and
// continuation blocks through registry. Scheduled passes run on frames.
func NewEngine(probe geometry.Probe, registry *blocks.Registry, frames Frames) *Engine {
	if frames == nil {
		frames = &ManualFrames{}
	}
	return &Engine{
		probe:    probe,
		registry: registry,
		frames:   frames,
		options:  Options{Epsilon: DefaultEpsilon, Logger: log.Default()},
		pending:  make(map[*doc.Page]struct{}),
	}
}

// SetOptions replaces the engine options. Zero fields take defaults.
func (e *Engine) SetOptions(options Options) {
	if options.Epsilon <= 0 {
		options.Epsilon = DefaultEpsilon
	}
	if options.Logger == nil {
		options.Logger = log.Default()
	}
	e.options = options
}

// OnPass registers fn to receive the result of every scheduled pass.
func (e *Engine) OnPass(fn func(Result)) {
	e.mu.Lock()
	e.onPass = fn
	e.mu.Unlock()
}

// Last returns the result of the most recent scheduled pass.
func (e *Engine) Last() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// RequestPagination marks p as needing a check. Requests arriving before
// the next frame are coalesced: at most one pass is scheduled at a time and
// it checks every marked page once. Requests made while the document is
// being paginated are dropped, since the running pass settles the pages
// it touches.
func (e *Engine) RequestPagination(p *doc.Page) {
	if p == nil {
		return
	}
	if d := p.Document(); d != nil && d.State.Paginating {
		return
	}
	e.mu.Lock()
	e.pending[p] = struct{}{}
	if e.scheduled {
		e.mu.Unlock()
		return
	}
	e.scheduled = true
	e.mu.Unlock()

	e.frames.Request(e.runScheduled)
}

// Forget drops pending requests for pages of d, for a document that is
// being replaced. A pass already scheduled still runs but skips them.
func (e *Engine) Forget(d *doc.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for p := range e.pending {
		if p.Document() == d {
			delete(e.pending, p)
		}
	}
}

// Pending returns the number of pages waiting for the next pass.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Scheduled reports whether a pass is waiting for its frame.
func (e *Engine) Scheduled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduled
}

func (e *Engine) runScheduled() {
	if l := e.options.Lock; l != nil {
		l.Lock()
		defer l.Unlock()
	}

	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[*doc.Page]struct{})
	e.scheduled = false
	e.mu.Unlock()

	var total Result
	for _, d := range documentsOf(pending) {
		for _, p := range append([]*doc.Page(nil), d.Pages...) {
			if _, ok := pending[p]; !ok || p.Document() != d {
				continue
			}
			total.add(e.CheckAndPaginate(p))
		}
	}
	for p := range pending {
		if p.Document() == nil {
			total.Skipped++
		}
	}

	e.mu.Lock()
	e.last = total
	fn := e.onPass
	e.mu.Unlock()
	if fn != nil {
		fn(total)
	}
}

// documentsOf returns the distinct documents owning pages, in first-seen
// order of a stable walk.
func documentsOf(pages map[*doc.Page]struct{}) []*doc.Document {
	var out []*doc.Document
	seen := make(map[*doc.Document]bool)
	for p := range pages {
		d := p.Document()
		if d == nil || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// CheckAndPaginate settles p and every page its overflow cascades into,
// then relabels pages and renumbers figures if any moved.
func (e *Engine) CheckAndPaginate(p *doc.Page) Result {
	var res Result
	d := p.Document()
	if d == nil {
		res.Skipped++
		return res
	}

	d.State.Paginating = true
	defer func() { d.State.Paginating = false }()

	e.paginate(p, &res, 0)
	e.settle(d, res)
	return res
}

// PaginateAll settles every page of d from the first, as done after a
// document is loaded.
func (e *Engine) PaginateAll(d *doc.Document) Result {
	var res Result
	d.State.Paginating = true
	defer func() { d.State.Paginating = false }()

	for i := 0; i < len(d.Pages); i++ {
		e.paginate(d.Pages[i], &res, 0)
	}
	e.settle(d, res)
	return res
}

func (e *Engine) settle(d *doc.Document, res Result) {
	d.Relabel()
	if res.FiguresMoved {
		figure.Renumber(d)
	}
	if res.Changed() {
		e.options.Logger.Debug("Paginated",
			"pages", len(d.Pages),
			"created", res.PagesCreated,
			"moved", res.BlocksMoved,
			"splits", res.Splits,
		)
	}
}
