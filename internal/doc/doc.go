// Package doc holds the paginated document model: pages, blocks, figures
// and the per-document state the engine keeps between passes.
package doc

import (
	"github.com/google/uuid"

	"github.com/gompdf/pagedit/internal/parser/html"
)

// Kind identifies a block type. The values double as the wrapper id in
// saved markup.
type Kind string

const (
	KindHeading   Kind = "titleHeader"
	KindTitle     Kind = "title"
	KindSubtitle  Kind = "subtitle"
	KindParagraph Kind = "paragraph"
	KindCode      Kind = "code"
	KindNote      Kind = "note"
	KindWarning   Kind = "warning"
	KindFigure    Kind = "image"
)

// Markup class names shared by the codec, the registry and rehydration.
const (
	ClassPage        = "page"
	ClassPageNumber  = "page-number"
	ClassPlaced      = "placed-block"
	ClassContent     = "block-content"
	ClassDelete      = "delete-block-btn"
	ClassDragging    = "dragging"
	ClassDragOver    = "drag-over"
	ClassFigure      = "figure-block"
	ClassPlaceholder = "image-placeholder"
	ClassImgWrapper  = "figure-img-wrapper"
	ClassResize      = "resize-handle"
	ClassCaption     = "figure-caption"
)

// State is scoped to one document and replaced with it on load.
type State struct {
	// FigureCount is the next ordinal a new figure would receive.
	FigureCount int
	// Paginating is set while a pass is running.
	Paginating bool
}

// Document is an ordered list of pages.
type Document struct {
	Title string
	Pages []*Page
	State State
}

// DefaultTitle names a document that was never titled.
const DefaultTitle = "proyecto_editor"

// New creates an empty document with no pages.
func New() *Document {
	return &Document{Title: DefaultTitle, State: State{FigureCount: 1}}
}

// NewPage creates a page owned by d but not yet placed in its page list.
func (d *Document) NewPage() *Page {
	return &Page{ID: uuid.NewString(), doc: d}
}

// InsertPage places p at index at (clamped) and relabels.
func (d *Document) InsertPage(at int, p *Page) {
	if at < 0 {
		at = 0
	}
	if at > len(d.Pages) {
		at = len(d.Pages)
	}
	p.doc = d
	d.Pages = append(d.Pages, nil)
	copy(d.Pages[at+1:], d.Pages[at:])
	d.Pages[at] = p
	d.Relabel()
}

// AppendPage places p after the last page.
func (d *Document) AppendPage(p *Page) {
	d.InsertPage(len(d.Pages), p)
}

// RemovePage removes p together with its blocks. It reports whether p
// belonged to d.
func (d *Document) RemovePage(p *Page) bool {
	i := d.IndexOf(p)
	if i < 0 {
		return false
	}
	d.Pages = append(d.Pages[:i], d.Pages[i+1:]...)
	p.doc = nil
	d.Relabel()
	return true
}

// IndexOf returns the position of p or -1.
func (d *Document) IndexOf(p *Page) int {
	for i, q := range d.Pages {
		if q == p {
			return i
		}
	}
	return -1
}

// Next returns the page after p, or nil when p is last.
func (d *Document) Next(p *Page) *Page {
	i := d.IndexOf(p)
	if i < 0 || i+1 >= len(d.Pages) {
		return nil
	}
	return d.Pages[i+1]
}

// Relabel assigns 1-based page numbers in document order.
func (d *Document) Relabel() {
	for i, p := range d.Pages {
		p.Number = i + 1
	}
}

// Blocks returns every block in document order.
func (d *Document) Blocks() []*Block {
	var out []*Block
	for _, p := range d.Pages {
		out = append(out, p.Blocks...)
	}
	return out
}

// Figures returns the figure blocks in document order.
func (d *Document) Figures() []*Block {
	var out []*Block
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			if b.Kind == KindFigure {
				out = append(out, b)
			}
		}
	}
	return out
}

// FindBlock looks a block up by id.
func (d *Document) FindBlock(id string) *Block {
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			if b.ID == id {
				return b
			}
		}
	}
	return nil
}

// FindPage looks a page up by id.
func (d *Document) FindPage(id string) *Page {
	for _, p := range d.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Page is a fixed-size container of blocks.
type Page struct {
	ID string
	// Number is derived by Relabel and never read back from markup.
	Number   int
	Blocks   []*Block
	Handlers Handlers

	doc *Document
}

// Document returns the owning document.
func (p *Page) Document() *Document { return p.doc }

// IndexOf returns the position of b or -1.
func (p *Page) IndexOf(b *Block) int {
	for i, x := range p.Blocks {
		if x == b {
			return i
		}
	}
	return -1
}

// First returns the first block or nil.
func (p *Page) First() *Block {
	if len(p.Blocks) == 0 {
		return nil
	}
	return p.Blocks[0]
}

// Insert places b at index at (clamped), taking it from its previous page.
func (p *Page) Insert(at int, b *Block) {
	if b.page != nil {
		b.page.Remove(b)
	}
	if at < 0 {
		at = 0
	}
	if at > len(p.Blocks) {
		at = len(p.Blocks)
	}
	p.Blocks = append(p.Blocks, nil)
	copy(p.Blocks[at+1:], p.Blocks[at:])
	p.Blocks[at] = b
	b.page = p
}

// Append places b at the end of p.
func (p *Page) Append(b *Block) {
	p.Insert(len(p.Blocks), b)
}

// Remove detaches b from p and returns its former index, or -1.
func (p *Page) Remove(b *Block) int {
	i := p.IndexOf(b)
	if i < 0 {
		return -1
	}
	p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
	b.page = nil
	return i
}

// MoveTail moves from.Blocks[i:] to the front of to, keeping their order.
// It returns the moved blocks.
func MoveTail(from *Page, i int, to *Page) []*Block {
	if i < 0 || i >= len(from.Blocks) {
		return nil
	}
	tail := append([]*Block(nil), from.Blocks[i:]...)
	from.Blocks = from.Blocks[:i]
	moved := make([]*Block, 0, len(tail)+len(to.Blocks))
	moved = append(moved, tail...)
	moved = append(moved, to.Blocks...)
	to.Blocks = moved
	for _, b := range tail {
		b.page = to
	}
	return tail
}

// Block is a typed unit of content placed on exactly one page.
type Block struct {
	ID   string
	Kind Kind
	// Node is the non-editable wrapper element.
	Node *html.Node
	// Content is the single editable region: the block-content element for
	// text kinds, the caption for figures.
	Content *html.Node
	// Figure is set for KindFigure only.
	Figure   *Figure
	Handlers Handlers

	page *Page
}

// NewBlock wraps already-built nodes in a block with a fresh id.
func NewBlock(kind Kind, node, content *html.Node) *Block {
	return &Block{ID: uuid.NewString(), Kind: kind, Node: node, Content: content}
}

// Page returns the owning page, or nil for detached blocks.
func (b *Block) Page() *Page { return b.page }

// FigureState is the lifecycle of a figure block.
type FigureState int

const (
	FigureEmpty FigureState = iota
	FigurePopulated
)

func (s FigureState) String() string {
	if s == FigurePopulated {
		return "populated"
	}
	return "empty"
}

// Figure holds the structured state behind a figure block's markup.
type Figure struct {
	State FigureState
	// Src is the image payload, normally a data URI.
	Src           string
	NaturalWidth  float64
	NaturalHeight float64
	// WidthPercent is the image width relative to the parent content box.
	// Zero means the markup default.
	WidthPercent float64
	// Ordinal is the 1-based position among figures, set by renumbering.
	Ordinal int
	// UserText is the caption text after the "Figura N." prefix.
	UserText string
	// HasUserText records that a caption was committed, even when empty.
	HasUserText bool
}
