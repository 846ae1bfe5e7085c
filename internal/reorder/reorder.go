// Package reorder moves blocks within and between pages by drag and drop.
// One session exists at most, from Begin until Drop or Cancel.
package reorder

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/parser/html"
)

var (
	// ErrSessionActive is returned by Begin while another drag is running.
	ErrSessionActive = errors.New("a reorder session is already active")
	// ErrNoSession is returned when no drag is running.
	ErrNoSession = errors.New("no reorder session")
	// ErrDetached is returned for blocks or pages outside any document.
	ErrDetached = errors.New("block or page is not attached to a document")
)

// State is the phase of the current gesture.
type State int

const (
	Idle State = iota
	Dragging
	Previewing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Previewing:
		return "previewing"
	default:
		return "idle"
	}
}

// Paginator receives the pages a committed move touched.
type Paginator interface {
	RequestPagination(p *doc.Page)
}

// Move describes a committed drop.
type Move struct {
	Block     *doc.Block
	From, To  *doc.Page
	FromIndex int
	ToIndex   int
}

// Changed reports whether the block ended somewhere else.
func (m Move) Changed() bool {
	return m.From != m.To || m.FromIndex != m.ToIndex
}

type session struct {
	block       *doc.Block
	origin      *doc.Page
	originIndex int
	over        *doc.Block
	state       State
}

// Controller runs drag sessions.
type Controller struct {
	probe   geometry.Probe
	pager   Paginator
	logger  *log.Logger
	session *session
}

// NewController creates a controller measuring with probe. Committed moves
// are reported to pager.
func NewController(probe geometry.Probe, pager Paginator) *Controller {
	return &Controller{probe: probe, pager: pager, logger: log.Default()}
}

// SetLogger replaces the logger.
func (c *Controller) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// State returns the phase of the current gesture.
func (c *Controller) State() State {
	if c.session == nil {
		return Idle
	}
	return c.session.state
}

// Dragged returns the block being dragged, or nil.
func (c *Controller) Dragged() *doc.Block {
	if c.session == nil {
		return nil
	}
	return c.session.block
}

// Begin starts dragging b.
func (c *Controller) Begin(b *doc.Block) error {
	if c.session != nil {
		return ErrSessionActive
	}
	p := b.Page()
	if p == nil || p.Document() == nil {
		return ErrDetached
	}
	c.session = &session{
		block:       b,
		origin:      p,
		originIndex: p.IndexOf(b),
		state:       Dragging,
	}
	html.AddClass(b.Node, doc.ClassDragging)
	return nil
}

// Preview moves the dragged block to where a drop at pointer height y on p
// would put it: before the first other block whose vertical midpoint lies
// below y, or at the end of p.
func (c *Controller) Preview(p *doc.Page, y float64) error {
	s := c.session
	if s == nil {
		return ErrNoSession
	}
	if p.Document() == nil {
		return ErrDetached
	}

	target, err := c.insertionPoint(p, y)
	if err != nil {
		return err
	}

	c.markOver(target)
	if b := s.block; b.Page() != nil {
		b.Page().Remove(b)
	}
	if target != nil {
		p.Insert(p.IndexOf(target), s.block)
	} else {
		p.Append(s.block)
	}
	s.state = Previewing
	return nil
}

func (c *Controller) insertionPoint(p *doc.Page, y float64) (*doc.Block, error) {
	if _, err := c.probe.UsableHeight(p); err != nil {
		return nil, fmt.Errorf("failed to measure page %d: %w", p.Number, err)
	}
	for _, b := range p.Blocks {
		if b == c.session.block {
			continue
		}
		r, err := c.probe.Bounds(p, b)
		if err != nil {
			continue
		}
		if (r.Top+r.Bottom)/2 > y {
			return b, nil
		}
	}
	return nil, nil
}

func (c *Controller) markOver(b *doc.Block) {
	s := c.session
	if s.over != nil && s.over != b {
		html.RemoveClass(s.over.Node, doc.ClassDragOver)
	}
	s.over = b
	if b != nil {
		html.AddClass(b.Node, doc.ClassDragOver)
	}
}

// Drop commits the session on p. A block never previewed onto p is
// appended to it. Pagination is requested on the origin and destination
// pages unless the block ended where it started.
func (c *Controller) Drop(p *doc.Page) (Move, error) {
	s := c.session
	if s == nil {
		return Move{}, ErrNoSession
	}
	if p == nil || p.Document() == nil {
		c.Cancel()
		return Move{}, ErrDetached
	}
	b := s.block
	if b.Page() != p {
		p.Append(b)
	}

	m := Move{
		Block:     b,
		From:      s.origin,
		To:        p,
		FromIndex: s.originIndex,
		ToIndex:   p.IndexOf(b),
	}
	c.end()

	if !m.Changed() {
		return m, nil
	}
	c.logger.Debug("Block moved", "block", b.ID, "from", m.From.Number, "to", m.To.Number, "index", m.ToIndex)
	if b.Kind == doc.KindFigure {
		figure.Renumber(p.Document())
	}
	if c.pager != nil {
		c.pager.RequestPagination(m.From)
		if m.To != m.From {
			c.pager.RequestPagination(m.To)
		}
	}
	return m, nil
}

// Cancel puts the dragged block back where it was and ends the session.
func (c *Controller) Cancel() error {
	s := c.session
	if s == nil {
		return ErrNoSession
	}
	if s.origin.Document() != nil {
		s.origin.Insert(s.originIndex, s.block)
	} else {
		c.logger.Warn("Origin page removed during drag", "block", s.block.ID)
	}
	c.end()
	return nil
}

// Abort ends the session without putting the block back, for a dragged
// block that left the document. It returns the origin page, or nil when
// no drag is running.
func (c *Controller) Abort() *doc.Page {
	s := c.session
	if s == nil {
		return nil
	}
	c.end()
	return s.origin
}

func (c *Controller) end() {
	s := c.session
	html.RemoveClass(s.block.Node, doc.ClassDragging)
	if s.over != nil {
		html.RemoveClass(s.over.Node, doc.ClassDragOver)
	}
	c.session = nil
}
