// Package blocks is the catalog of block kinds. It builds, wires,
// serializes and deserializes placed blocks and pages.
package blocks

import (
	"fmt"
	"strings"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// KindInfo describes one registered block kind.
type KindInfo struct {
	Kind  doc.Kind `json:"kind"`
	Label string   `json:"label"`
	// Splittable kinds may be divided across a page boundary.
	Splittable bool `json:"splittable"`
}

var catalog = []KindInfo{
	{Kind: doc.KindHeading, Label: "Encabezado", Splittable: true},
	{Kind: doc.KindTitle, Label: "Título", Splittable: true},
	{Kind: doc.KindSubtitle, Label: "Subtítulo", Splittable: true},
	{Kind: doc.KindParagraph, Label: "Párrafo", Splittable: true},
	{Kind: doc.KindCode, Label: "Código", Splittable: false},
	{Kind: doc.KindFigure, Label: "Imagen", Splittable: false},
	{Kind: doc.KindNote, Label: "Nota", Splittable: true},
	{Kind: doc.KindWarning, Label: "Advertencia", Splittable: true},
}

// UnknownKindError is returned for kinds missing from the catalog.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown block kind %q", e.Kind)
}

// Descriptor is what a palette drag carries: a kind and optional initial
// content markup.
type Descriptor struct {
	Kind   doc.Kind `json:"kind"`
	Markup string   `json:"markup,omitempty"`
}

// Hooks are the behaviours wired onto blocks and pages. Nil hooks leave
// the corresponding event unhandled.
type Hooks struct {
	OnDelete      func(b *doc.Block)
	OnDragStart   func(b *doc.Block)
	OnDragEnd     func(b *doc.Block)
	OnInput       func(b *doc.Block)
	OnCaptionBlur func(b *doc.Block)
	OnResize      func(b *doc.Block, s doc.Signal)
	OnDragOver    func(p *doc.Page, s doc.Signal)
	OnDrop        func(p *doc.Page, s doc.Signal)
}

// Registry creates blocks of the registered kinds.
type Registry struct {
	kinds  map[doc.Kind]KindInfo
	order  []doc.Kind
	hooks  Hooks
	parser *html.Parser
}

// NewRegistry creates a registry holding the standard kinds.
func NewRegistry() *Registry {
	r := &Registry{
		kinds:  make(map[doc.Kind]KindInfo, len(catalog)),
		parser: html.NewParser(),
	}
	for _, s := range catalog {
		r.kinds[s.Kind] = s
		r.order = append(r.order, s.Kind)
	}
	return r
}

// SetHooks installs the behaviours Wire attaches from now on.
func (r *Registry) SetHooks(h Hooks) {
	r.hooks = h
}

// Palette lists the registered kinds in palette order.
func (r *Registry) Palette() []KindInfo {
	out := make([]KindInfo, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.kinds[k])
	}
	return out
}

// Lookup returns the catalog entry of kind.
func (r *Registry) Lookup(kind doc.Kind) (KindInfo, bool) {
	s, ok := r.kinds[kind]
	return s, ok
}

// Splittable reports whether blocks of kind may be split.
func (r *Registry) Splittable(kind doc.Kind) bool {
	return r.kinds[kind].Splittable
}

// Create builds and wires a new block. initial is content markup; when
// empty the kind's label is used. Figures ignore initial and start empty.
func (r *Registry) Create(kind doc.Kind, initial string) (*doc.Block, error) {
	info, ok := r.kinds[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: string(kind)}
	}

	if kind == doc.KindFigure {
		node, caption := figure.Build(1)
		b := doc.NewBlock(kind, node, caption)
		b.Figure = &doc.Figure{Ordinal: 1}
		r.Wire(b)
		return b, nil
	}

	node, content := shell(kind)
	if strings.TrimSpace(initial) == "" {
		content.AppendChild(html.Text(info.Label))
	} else {
		frag, err := r.parser.ParseString(initial)
		if err != nil {
			return nil, fmt.Errorf("failed to parse block content: %w", err)
		}
		html.MoveChildren(frag.Root, content)
	}
	b := doc.NewBlock(kind, node, content)
	r.Wire(b)
	return b, nil
}

// CreateFromDescriptor builds a block from a palette descriptor.
func (r *Registry) CreateFromDescriptor(d Descriptor) (*doc.Block, error) {
	return r.Create(d.Kind, d.Markup)
}

// Continuation creates an empty wired block of b's kind, used to receive
// the tail of a split.
func (r *Registry) Continuation(b *doc.Block) *doc.Block {
	node, content := shell(b.Kind)
	if b.Node != nil {
		if style, ok := html.Attr(b.Node, "style"); ok {
			html.SetAttr(node, "style", style)
		}
	}
	if b.Content != nil {
		content.Attr = append([]html.Attribute(nil), b.Content.Attr...)
	}
	c := doc.NewBlock(b.Kind, node, content)
	r.Wire(c)
	return c
}

// shell builds the wrapper and empty content region of a text block.
func shell(kind doc.Kind) (node, content *html.Node) {
	node = html.Element("div",
		"id", string(kind),
		"class", doc.ClassPlaced,
		"draggable", "true",
		"contenteditable", "false",
	)
	content = html.Element("div", "class", doc.ClassContent, "contenteditable", "true")
	node.AppendChild(content)
	return node, content
}

// NewPage creates a wired page and inserts it into d at index at.
func (r *Registry) NewPage(d *doc.Document, at int) *doc.Page {
	p := d.NewPage()
	r.WirePage(p)
	d.InsertPage(at, p)
	return p
}

// Wire attaches the block's handlers and makes sure it carries exactly one
// delete control. Calling it again replaces the previous wiring.
func (r *Registry) Wire(b *doc.Block) {
	b.Handlers.DetachAll()
	attach := func(ev doc.Event, fn func(*doc.Block)) {
		if fn != nil {
			b.Handlers.Attach(ev, func(doc.Signal) { fn(b) })
		}
	}
	attach(doc.EventDelete, r.hooks.OnDelete)
	attach(doc.EventDragStart, r.hooks.OnDragStart)
	attach(doc.EventDragEnd, r.hooks.OnDragEnd)
	if b.Kind == doc.KindFigure {
		attach(doc.EventBlur, r.hooks.OnCaptionBlur)
		if r.hooks.OnResize != nil && b.Figure != nil && b.Figure.State == doc.FigurePopulated {
			b.Handlers.Attach(doc.EventResize, func(s doc.Signal) { r.hooks.OnResize(b, s) })
		}
	} else {
		attach(doc.EventInput, r.hooks.OnInput)
	}

	if b.Node == nil {
		return
	}
	html.SetAttr(b.Node, "draggable", "true")
	ensureDeleteControl(b.Node)
	if b.Kind == doc.KindFigure {
		figure.EnsureResizeHandle(b)
	}
}

// WirePage attaches a page's drop-target handlers.
func (r *Registry) WirePage(p *doc.Page) {
	p.Handlers.DetachAll()
	if fn := r.hooks.OnDragOver; fn != nil {
		p.Handlers.Attach(doc.EventDragOver, func(s doc.Signal) { fn(p, s) })
	}
	if fn := r.hooks.OnDrop; fn != nil {
		p.Handlers.Attach(doc.EventDrop, func(s doc.Signal) { fn(p, s) })
	}
}

// ensureDeleteControl leaves exactly one delete button as the wrapper's
// last child.
func ensureDeleteControl(wrapper *html.Node) {
	buttons := html.FindAll(wrapper, func(n *html.Node) bool { return html.HasClass(n, doc.ClassDelete) })
	var keep *html.Node
	for _, btn := range buttons {
		if keep == nil && btn.Parent == wrapper {
			keep = btn
			continue
		}
		html.Detach(btn)
	}
	if keep == nil {
		keep = html.Element("button", "class", doc.ClassDelete, "contenteditable", "false")
		keep.AppendChild(html.Text("X"))
	} else {
		html.Detach(keep)
	}
	wrapper.AppendChild(keep)
}
