// Package figure implements the figure block lifecycle: an empty
// placeholder that is populated once with an image, resized by dragging,
// and captioned with a "Figura N." prefix kept in document order.
package figure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/parser/css"
	"github.com/gompdf/pagedit/internal/parser/html"
)

var (
	// ErrAlreadyPopulated is returned when populating a figure twice.
	ErrAlreadyPopulated = errors.New("figure already populated")
	// ErrNotFigure is returned when a figure operation targets another kind.
	ErrNotFigure = errors.New("block is not a figure")
	// ErrEmptyPayload is returned for payloads without image data.
	ErrEmptyPayload = errors.New("empty image payload")
)

const (
	// PlaceholderText is shown inside an empty figure.
	PlaceholderText = "Selecciona una imagen"
	resizeTitle     = "Arrastra para redimensionar"
	wrapperStyle    = "display: inline-block; position: relative; max-width: 80%"
	imgStyle        = "display: block; width: 100%; height: auto; border-radius: 6px"
)

// Build creates the markup of an empty figure. The caption carries the
// default text for the given ordinal.
func Build(ordinal int) (wrapper, caption *html.Node) {
	wrapper = html.Element("div",
		"id", string(doc.KindFigure),
		"class", doc.ClassFigure+" "+doc.ClassPlaced,
		"contenteditable", "false",
		"draggable", "true",
	)
	placeholder := html.Element("div", "class", doc.ClassPlaceholder)
	label := html.Element("div")
	label.AppendChild(html.Text(PlaceholderText))
	placeholder.AppendChild(label)
	wrapper.AppendChild(placeholder)

	caption = html.Element("div", "class", doc.ClassCaption, "contenteditable", "true")
	caption.AppendChild(html.Text(CaptionText(ordinal, "")))
	wrapper.AppendChild(caption)
	return wrapper, caption
}

// IsFigureNode reports whether a placed-block element is a figure.
func IsFigureNode(n *html.Node) bool {
	return html.HasClass(n, doc.ClassFigure) || html.AttrOr(n, "id", "") == string(doc.KindFigure)
}

// FromMarkup recovers figure state from existing markup. It makes sure a
// caption element exists and returns it.
func FromMarkup(wrapper *html.Node) (*doc.Figure, *html.Node) {
	f := &doc.Figure{}

	if img := html.FindFirst(wrapper, func(n *html.Node) bool { return html.IsElement(n, "img") }); img != nil {
		if src := html.AttrOr(img, "src", ""); src != "" {
			f.State = doc.FigurePopulated
			f.Src = src
			f.NaturalWidth, f.NaturalHeight = naturalSize(img)
		}
	}
	if w := html.ByClass(wrapper, doc.ClassImgWrapper); w != nil {
		f.WidthPercent = widthPercent(w)
	}

	caption := html.ByClass(wrapper, doc.ClassCaption)
	if caption == nil {
		caption = html.Element("div", "class", doc.ClassCaption, "contenteditable", "true")
		wrapper.AppendChild(caption)
	}
	text := strings.TrimSpace(html.TextContent(caption))
	if text != "" {
		user := SplitCaption(text)
		if user == DefaultCaption {
			user = ""
		}
		f.UserText, f.HasUserText = user, user != ""
	}
	if n, ok := captionOrdinal(text); ok {
		f.Ordinal = n
	}
	return f, caption
}

func naturalSize(img *html.Node) (w, h float64) {
	if v, ok := html.Attr(img, "width"); ok {
		w, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := html.Attr(img, "height"); ok {
		h, _ = strconv.ParseFloat(v, 64)
	}
	return w, h
}

func widthPercent(wrapper *html.Node) float64 {
	v, ok := css.Lookup(css.ParseDeclarations(html.AttrOr(wrapper, "style", "")), "width")
	if !ok || !strings.HasSuffix(v, "%") {
		return 0
	}
	p, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return 0
	}
	return p
}

func captionOrdinal(text string) (int, bool) {
	rest, ok := strings.CutPrefix(text, "Figura ")
	if !ok {
		return 0, false
	}
	num, _, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	return n, err == nil
}

// Populate moves an empty figure to the populated state with the given
// image. A figure is populated at most once.
func Populate(b *doc.Block, p Payload) error {
	if b.Kind != doc.KindFigure || b.Figure == nil {
		return ErrNotFigure
	}
	if b.Figure.State == doc.FigurePopulated {
		return ErrAlreadyPopulated
	}
	if p.Src == "" {
		return ErrEmptyPayload
	}

	if ph := html.ByClass(b.Node, doc.ClassPlaceholder); ph != nil {
		html.Detach(ph)
	}

	wrapper := html.Element("div", "class", doc.ClassImgWrapper, "style", wrapperStyle)
	img := html.Element("img", "src", p.Src, "style", imgStyle)
	if p.Width > 0 && p.Height > 0 {
		html.SetAttr(img, "width", formatPx(p.Width))
		html.SetAttr(img, "height", formatPx(p.Height))
	}
	wrapper.AppendChild(img)
	wrapper.AppendChild(resizeHandle())

	if b.Content != nil && b.Content.Parent == b.Node {
		b.Node.InsertBefore(wrapper, b.Content)
	} else {
		b.Node.AppendChild(wrapper)
	}

	b.Figure.State = doc.FigurePopulated
	b.Figure.Src = p.Src
	b.Figure.NaturalWidth = p.Width
	b.Figure.NaturalHeight = p.Height
	return nil
}

// EnsureResizeHandle adds the transient resize handle to a populated
// figure's image wrapper when it is missing.
func EnsureResizeHandle(b *doc.Block) {
	w := html.ByClass(b.Node, doc.ClassImgWrapper)
	if w == nil || html.ChildByClass(w, doc.ClassResize) != nil {
		return
	}
	w.AppendChild(resizeHandle())
}

func resizeHandle() *html.Node {
	return html.Element("div", "class", doc.ClassResize, "title", resizeTitle)
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SetWidthPercent writes the image wrapper width as a percentage.
func SetWidthPercent(b *doc.Block, pct float64) {
	w := html.ByClass(b.Node, doc.ClassImgWrapper)
	if w == nil {
		return
	}
	decls := css.ParseDeclarations(html.AttrOr(w, "style", ""))
	var parts []string
	for _, d := range decls {
		if d.Property != "width" {
			parts = append(parts, d.Property+": "+d.Value)
		}
	}
	parts = append(parts, fmt.Sprintf("width: %s%%", strconv.FormatFloat(pct, 'f', 2, 64)))
	html.SetAttr(w, "style", strings.Join(parts, "; "))
	b.Figure.WidthPercent = pct
}
