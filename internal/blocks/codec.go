package blocks

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// ErrNoBlock is returned when markup holds no placed block.
var ErrNoBlock = errors.New("markup contains no placed block")

// transientClasses are UI state that never reaches saved markup.
var transientClasses = []string{doc.ClassDragging, doc.ClassDragOver}

// Serialize renders b without transient UI: delete and resize controls,
// drag classes and the draggable attribute.
func (r *Registry) Serialize(b *doc.Block) ([]byte, error) {
	if b.Node == nil {
		return nil, fmt.Errorf("block %s has no markup", b.ID)
	}
	clean := html.Clone(b.Node)
	StripTransient(clean)
	s, err := html.Render(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to render block: %w", err)
	}
	return []byte(s), nil
}

// StripTransient removes UI-only state from a block subtree in place.
func StripTransient(n *html.Node) {
	for _, c := range html.FindAll(n, func(x *html.Node) bool {
		return html.HasClass(x, doc.ClassDelete) || html.HasClass(x, doc.ClassResize)
	}) {
		html.Detach(c)
	}
	html.Walk(n, func(x *html.Node) {
		if html.IsElement(x, "") {
			for _, c := range transientClasses {
				html.RemoveClass(x, c)
			}
			html.RemoveAttr(x, "draggable")
		}
	})
}

// Deserialize parses one block from markup and wires it.
func (r *Registry) Deserialize(markup []byte) (*doc.Block, error) {
	frag, err := r.parser.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	n := html.FindFirst(frag.Root, IsBlockNode)
	if n == nil {
		return nil, ErrNoBlock
	}
	html.Detach(n)
	return r.Adopt(n)
}

// IsBlockNode reports whether n is a placed block wrapper.
func IsBlockNode(n *html.Node) bool {
	return html.HasClass(n, doc.ClassPlaced) || html.HasClass(n, doc.ClassFigure)
}

// KindOf returns the kind a wrapper element declares.
func KindOf(n *html.Node) doc.Kind {
	if figure.IsFigureNode(n) {
		return doc.KindFigure
	}
	return doc.Kind(html.AttrOr(n, "id", ""))
}

// IsLegacy reports whether a wrapper uses the older flat shape, where the
// wrapper itself was the editable region.
func IsLegacy(n *html.Node) bool {
	return KindOf(n) != doc.KindFigure &&
		html.AttrOr(n, "contenteditable", "") == "true" &&
		html.ChildByClass(n, doc.ClassContent) == nil
}

// Normalize converts a legacy wrapper to the nested shape: the old delete
// control is dropped and the remaining children move into a new content
// region. It reports whether anything changed.
func Normalize(n *html.Node) bool {
	if !IsLegacy(n) {
		return false
	}
	html.SetAttr(n, "contenteditable", "false")
	for _, btn := range html.FindAll(n, func(x *html.Node) bool { return html.HasClass(x, doc.ClassDelete) }) {
		html.Detach(btn)
	}
	content := html.Element("div", "class", doc.ClassContent, "contenteditable", "true")
	html.MoveChildren(n, content)
	n.AppendChild(content)
	return true
}

// Adopt turns an existing wrapper element into a wired block. Legacy
// wrappers are normalized first.
func (r *Registry) Adopt(n *html.Node) (*doc.Block, error) {
	kind := KindOf(n)
	if _, ok := r.kinds[kind]; !ok {
		return nil, &UnknownKindError{Kind: string(kind)}
	}
	Normalize(n)
	StripTransient(n)

	if kind == doc.KindFigure {
		html.SetAttr(n, "id", string(doc.KindFigure))
		html.AddClass(n, doc.ClassFigure)
		html.AddClass(n, doc.ClassPlaced)
		f, caption := figure.FromMarkup(n)
		b := doc.NewBlock(kind, n, caption)
		b.Figure = f
		r.Wire(b)
		return b, nil
	}

	content := html.ChildByClass(n, doc.ClassContent)
	if content == nil {
		content = html.Element("div", "class", doc.ClassContent, "contenteditable", "true")
		n.AppendChild(content)
	}
	b := doc.NewBlock(kind, n, content)
	r.Wire(b)
	return b, nil
}

// Describe returns the descriptor that recreates b's kind and content.
func (r *Registry) Describe(b *doc.Block) (Descriptor, error) {
	d := Descriptor{Kind: b.Kind}
	if b.Kind == doc.KindFigure || b.Content == nil {
		return d, nil
	}
	s, err := html.RenderChildren(b.Content)
	if err != nil {
		return d, err
	}
	d.Markup = s
	return d, nil
}

// WriteDocument writes the pages-container markup of d: one page element
// per page holding its serialized blocks and its page number.
func (r *Registry) WriteDocument(w io.Writer, d *doc.Document) error {
	for _, p := range d.Pages {
		if _, err := fmt.Fprintf(w, `<div class="%s" data-page-id="%s">`, doc.ClassPage, p.ID); err != nil {
			return err
		}
		for _, b := range p.Blocks {
			data, err := r.Serialize(b)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<div class="%s">%s</div></div>`, doc.ClassPageNumber, strconv.Itoa(p.Number)); err != nil {
			return err
		}
	}
	return nil
}
