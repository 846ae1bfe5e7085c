package layout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/style"
)

// LineBox is one line of an inline formatting context.
type LineBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Items  []Box

	sources []lineSource
}

// lineSource is a node contributing to a line, with the byte offset of its
// first token there.
type lineSource struct {
	node   *html.Node
	offset int
}

func (l *LineBox) GetX() float64       { return l.X }
func (l *LineBox) GetY() float64       { return l.Y }
func (l *LineBox) GetWidth() float64   { return l.Width }
func (l *LineBox) GetHeight() float64  { return l.Height }
func (l *LineBox) GetNode() *html.Node { return nil }

// Shift moves the line and its items.
func (l *LineBox) Shift(dx, dy float64) {
	l.X += dx
	l.Y += dy
	for _, it := range l.Items {
		it.Shift(dx, dy)
	}
}

// TextBox is a word (or a whole preformatted line) placed on a line.
type TextBox struct {
	// Node is the source text node.
	Node *html.Node
	// Offset is the byte offset of Text within Node.Data.
	Offset int
	Text   string

	X      float64
	Y      float64
	Width  float64
	Height float64

	FontFamily string
	FontStyle  string
	FontSize   float64
	Color      string
	Underline  bool
}

func (t *TextBox) GetX() float64        { return t.X }
func (t *TextBox) GetY() float64        { return t.Y }
func (t *TextBox) GetWidth() float64    { return t.Width }
func (t *TextBox) GetHeight() float64   { return t.Height }
func (t *TextBox) GetNode() *html.Node  { return t.Node }
func (t *TextBox) Shift(dx, dy float64) { t.X, t.Y = t.X+dx, t.Y+dy }

// token is a measured unit awaiting line placement.
type token struct {
	node       *html.Node
	offset     int
	text       string
	width      float64
	lineHeight float64
	fontSize   float64
	family     string
	fontStyle  string
	color      string
	underline  bool
	spaceWidth float64
	// spaceBefore records collapsed whitespace preceding the token.
	spaceBefore bool
	breakAfter  bool
	image       *ImageBox
}

// collectTokens walks an inline subtree and emits measured tokens.
func (e *Engine) collectTokens(n *html.Node, cs style.ComputedStyle, fontSize float64, ctx *layoutContext, out *[]token) {
	switch n.Type {
	case html.TextNode:
		e.tokenizeText(n, cs, fontSize, out)
		return
	case html.ElementNode:
	default:
		return
	}

	ecs := ctx.style(n, cs)
	if ecs.Get("display") == "none" {
		return
	}
	fs := ctx.fontSize(n, ecs, fontSize)

	switch n.Data {
	case "br":
		if k := len(*out); k > 0 && !(*out)[k-1].breakAfter {
			(*out)[k-1].breakAfter = true
		} else {
			*out = append(*out, token{node: n, lineHeight: lineHeightOf(ecs, fs), fontSize: fs, breakAfter: true})
		}
		return
	case "img":
		w, h := sizeImage(n, ecs, ctx.inlineWidth, fs)
		img := &ImageBox{Node: n, Style: ecs, Width: w, Height: h, Src: html.AttrOr(n, "src", "")}
		*out = append(*out, token{node: n, width: w, lineHeight: h, image: img, spaceBefore: true})
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.collectTokens(c, ecs, fs, ctx, out)
	}
}

func (e *Engine) tokenizeText(n *html.Node, cs style.ComputedStyle, fontSize float64, out *[]token) {
	family, fstyle := resolveFontFromStyle(cs)
	base := token{
		node:       n,
		lineHeight: lineHeightOf(cs, fontSize),
		fontSize:   fontSize,
		family:     family,
		fontStyle:  fstyle,
		color:      cs.GetOr("color", "#000000"),
		underline:  strings.Contains(cs.Get("text-decoration"), "underline"),
	}
	base.spaceWidth = measureTextWidth(" ", fontSize, family, fstyle)

	if ws := cs.Get("white-space"); ws == "pre" || ws == "pre-wrap" {
		data := n.Data
		start := 0
		for {
			nl := strings.IndexByte(data[start:], '\n')
			end := len(data)
			if nl >= 0 {
				end = start + nl
			}
			t := base
			t.offset = start
			t.text = strings.ReplaceAll(data[start:end], "\t", "    ")
			t.width = measureTextWidth(t.text, fontSize, family, fstyle)
			t.breakAfter = nl >= 0
			*out = append(*out, t)
			if nl < 0 {
				break
			}
			start = end + 1
		}
		return
	}

	data := n.Data
	pendingSpace := false
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRuneInString(data[i:])
		if unicode.IsSpace(r) {
			pendingSpace = true
			i += size
			continue
		}
		j := i
		for j < len(data) {
			r, size := utf8.DecodeRuneInString(data[j:])
			if unicode.IsSpace(r) {
				break
			}
			j += size
		}
		t := base
		t.offset = i
		t.text = data[i:j]
		t.width = measureTextWidth(t.text, fontSize, family, fstyle)
		t.spaceBefore = pendingSpace
		*out = append(*out, t)
		pendingSpace = false
		i = j
	}
	// trailing whitespace separates this node from the next inline run
	if pendingSpace {
		*out = append(*out, token{node: n, offset: len(data), spaceBefore: true, fontSize: fontSize, lineHeight: base.lineHeight, spaceWidth: base.spaceWidth})
	}
}

// layoutLines wraps tokens into lines starting at (x, y) within width and
// returns them with the total height.
func layoutLines(tokens []token, x, y, width float64, align string, nowrap bool) ([]*LineBox, float64) {
	var lines []*LineBox
	var cur []token
	curWidth := 0.0
	cursorY := y

	emit := func() {
		if len(cur) == 0 {
			return
		}
		line := &LineBox{X: x, Y: cursorY, Width: width}
		lh := 0.0
		for _, t := range cur {
			lh = max(lh, t.lineHeight)
		}
		line.Height = lh

		offset := 0.0
		switch align {
		case "center":
			offset = (width - curWidth) / 2
		case "right":
			offset = width - curWidth
		}
		if offset < 0 {
			offset = 0
		}

		seen := make(map[*html.Node]bool, len(cur))
		for _, t := range cur {
			if t.node != nil && !seen[t.node] {
				seen[t.node] = true
				line.sources = append(line.sources, lineSource{node: t.node, offset: t.offset})
			}
		}

		px := x + offset
		for i, t := range cur {
			if i > 0 && t.spaceBefore {
				px += t.spaceWidth
			}
			if t.text == "" && t.image == nil {
				continue
			}
			if t.image != nil {
				t.image.X, t.image.Y = px, cursorY+lh-t.image.Height
				line.Items = append(line.Items, t.image)
				px += t.width
				continue
			}
			line.Items = append(line.Items, &TextBox{
				Node:       t.node,
				Offset:     t.offset,
				Text:       t.text,
				X:          px,
				Y:          cursorY + (lh-t.fontSize)/2,
				Width:      t.width,
				Height:     t.fontSize,
				FontFamily: t.family,
				FontStyle:  t.fontStyle,
				FontSize:   t.fontSize,
				Color:      t.color,
				Underline:  t.underline,
			})
			px += t.width
		}
		lines = append(lines, line)
		cursorY += lh
		cur = cur[:0]
		curWidth = 0
	}

	carried := false
	carriedWidth := 0.0
	for _, t := range tokens {
		if t.text == "" && t.image == nil && !t.breakAfter {
			// whitespace-only carrier; its space applies to the next token
			carried, carriedWidth = true, t.spaceWidth
			continue
		}
		if carried {
			t.spaceBefore = true
			if t.spaceWidth == 0 {
				t.spaceWidth = carriedWidth
			}
			carried = false
		}
		add := t.width
		if len(cur) > 0 && t.spaceBefore {
			add += t.spaceWidth
		}
		if !nowrap && len(cur) > 0 && curWidth+add > width {
			emit()
			add = t.width
		}
		cur = append(cur, t)
		curWidth += add
		if t.breakAfter {
			emit()
		}
	}
	emit()

	return lines, cursorY - y
}

// lineHeightOf resolves line-height for a font size.
func lineHeightOf(cs style.ComputedStyle, fontSize float64) float64 {
	v := strings.TrimSpace(cs.Get("line-height"))
	if v == "" || v == "normal" {
		return fontSize * 1.2
	}
	if strings.HasSuffix(v, "px") || strings.HasSuffix(v, "em") || strings.HasSuffix(v, "%") || strings.HasSuffix(v, "pt") {
		return parseLength(v, fontSize, fontSize, fontSize*1.2)
	}
	return parseLength(v, 0, fontSize, 1.2) * fontSize
}
