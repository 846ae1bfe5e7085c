package layout

import (
	"strconv"
	"strings"

	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/style"
)

// BlockBox represents a block-level element in the layout
type BlockBox struct {
	Node  *html.Node
	Style style.ComputedStyle

	// X, Y, Width and Height describe the border box.
	X      float64
	Y      float64
	Width  float64
	Height float64

	Margin  Edges
	Padding Edges
	Border  Edges
	// BorderColor is indexed top, right, bottom, left.
	BorderColor [4]string
	Background  string

	Children []Box
}

func (b *BlockBox) GetX() float64       { return b.X }
func (b *BlockBox) GetY() float64       { return b.Y }
func (b *BlockBox) GetWidth() float64   { return b.Width }
func (b *BlockBox) GetHeight() float64  { return b.Height }
func (b *BlockBox) GetNode() *html.Node { return b.Node }

// Shift moves the box and its children.
func (b *BlockBox) Shift(dx, dy float64) {
	b.X += dx
	b.Y += dy
	for _, c := range b.Children {
		c.Shift(dx, dy)
	}
}

// Bottom returns the bottom of the border box.
func (b *BlockBox) Bottom() float64 { return b.Y + b.Height }

// OuterBottom returns the bottom including the bottom margin.
func (b *BlockBox) OuterBottom() float64 { return b.Y + b.Height + b.Margin.Bottom }

// ContentX returns the left edge of the content box.
func (b *BlockBox) ContentX() float64 { return b.X + b.Border.Left + b.Padding.Left }

// ContentWidth returns the width of the content box.
func (b *BlockBox) ContentWidth() float64 {
	return b.Width - b.Border.Horizontal() - b.Padding.Horizontal()
}

// AddChild adds a child box
func (b *BlockBox) AddChild(child Box) {
	b.Children = append(b.Children, child)
}

// parseBoxShorthand parses a CSS shorthand like "10px 20px" and returns
// (top, right, bottom, left).
func parseBoxShorthand(value string, containerSize, fontSize float64) Edges {
	parts := strings.Fields(strings.TrimSpace(value))
	to := func(s string) float64 { return parseLength(s, containerSize, fontSize, 0) }
	switch len(parts) {
	case 0:
		return Edges{}
	case 1:
		a := to(parts[0])
		return Edges{a, a, a, a}
	case 2:
		tb, rl := to(parts[0]), to(parts[1])
		return Edges{tb, rl, tb, rl}
	case 3:
		r := to(parts[1])
		return Edges{to(parts[0]), r, to(parts[2]), r}
	default:
		return Edges{to(parts[0]), to(parts[1]), to(parts[2]), to(parts[3])}
	}
}

// boxEdges resolves a shorthand property and its per-side longhands.
func boxEdges(cs style.ComputedStyle, prop string, containerSize, fontSize float64) Edges {
	e := parseBoxShorthand(cs.Get(prop), containerSize, fontSize)
	side := func(name string, cur float64) float64 {
		if v := cs.Get(prop + "-" + name); v != "" {
			return parseLength(v, containerSize, fontSize, cur)
		}
		return cur
	}
	e.Top = side("top", e.Top)
	e.Right = side("right", e.Right)
	e.Bottom = side("bottom", e.Bottom)
	e.Left = side("left", e.Left)
	return e
}

func borderEdges(cs style.ComputedStyle, fontSize float64) (Edges, [4]string) {
	var e Edges
	var colors [4]string
	sides := []string{"top", "right", "bottom", "left"}
	vals := []*float64{&e.Top, &e.Right, &e.Bottom, &e.Left}
	for i, s := range sides {
		w := cs.Get("border-" + s + "-width")
		if w == "" {
			continue
		}
		*vals[i] = parseLength(w, 0, fontSize, 0)
		colors[i] = cs.GetOr("border-"+s+"-color", cs.GetOr("color", "#000000"))
	}
	return e, colors
}

// parseLength parses a CSS length. Percentages resolve against
// containerSize and em against fontSize.
func parseLength(value string, containerSize, fontSize, defaultValue float64) float64 {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || value == "auto" || value == "none" {
		return defaultValue
	}

	num := func(s string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}

	switch {
	case strings.HasSuffix(value, "%"):
		if f, ok := num(value[:len(value)-1]); ok {
			return containerSize * f / 100
		}
	case strings.HasSuffix(value, "px"):
		if f, ok := num(value[:len(value)-2]); ok {
			return f
		}
	case strings.HasSuffix(value, "rem"):
		if f, ok := num(value[:len(value)-3]); ok {
			return f * 16
		}
	case strings.HasSuffix(value, "em"):
		if f, ok := num(value[:len(value)-2]); ok {
			return f * fontSize
		}
	case strings.HasSuffix(value, "pt"):
		if f, ok := num(value[:len(value)-2]); ok {
			return f * 4 / 3
		}
	default:
		if f, ok := num(value); ok {
			return f
		}
	}
	return defaultValue
}
