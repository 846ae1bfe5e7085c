package layout

import (
	"strconv"

	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/style"
)

// DefaultAspect is the height/width ratio assumed for images whose natural
// size is unknown.
const DefaultAspect = 0.75

// ImageBox represents an <img> element laid out as a replaced block
type ImageBox struct {
	Node  *html.Node
	Style style.ComputedStyle

	X      float64
	Y      float64
	Width  float64
	Height float64

	// Src is the raw src attribute; the renderer resolves it.
	Src string
}

func (b *ImageBox) GetX() float64        { return b.X }
func (b *ImageBox) GetY() float64        { return b.Y }
func (b *ImageBox) GetWidth() float64    { return b.Width }
func (b *ImageBox) GetHeight() float64   { return b.Height }
func (b *ImageBox) GetNode() *html.Node  { return b.Node }
func (b *ImageBox) Shift(dx, dy float64) { b.X, b.Y = b.X+dx, b.Y+dy }

// NaturalSize reads the intrinsic size an image element carries in its
// width and height attributes. Missing values are reported as zero.
func NaturalSize(n *html.Node) (w, h float64) {
	if v, ok := html.Attr(n, "width"); ok {
		w, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := html.Attr(n, "height"); ok {
		h, _ = strconv.ParseFloat(v, 64)
	}
	return w, h
}

// sizeImage resolves the used size of an image inside a container of the
// given width. An explicit CSS width wins; otherwise the natural width is
// used, capped to the container. Height keeps the natural aspect ratio.
func sizeImage(n *html.Node, cs style.ComputedStyle, avail, fontSize float64) (w, h float64) {
	nw, nh := NaturalSize(n)

	w = avail
	if v := cs.Get("width"); v != "" && v != "auto" {
		w = parseLength(v, avail, fontSize, avail)
	} else if nw > 0 && nw < avail {
		w = nw
	}
	if mv := cs.Get("max-width"); mv != "" {
		if m := parseLength(mv, avail, fontSize, 0); m > 0 && w > m {
			w = m
		}
	}

	aspect := DefaultAspect
	if nw > 0 && nh > 0 {
		aspect = nh / nw
	}
	h = w * aspect
	if v := cs.Get("height"); v != "" && v != "auto" {
		h = parseLength(v, avail, fontSize, h)
	}
	return w, h
}
