package layout

import (
	"strings"
	"sync"

	"codeberg.org/go-pdf/fpdf"
	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/style"
)

// Singleton PDF instance for text measurement using go-pdf/fpdf metrics
var (
	measureOnce sync.Once
	measurePDF  *fpdf.Fpdf
	measureMu   sync.Mutex
)

// DefaultFontSize is the root font size in px.
const DefaultFontSize = 16.0

func initMeasurePDF() {
	measurePDF = fpdf.New("P", "pt", "A4", "")
}

// measureTextWidth returns a font-aware width using fpdf core font metrics.
// Sizes are passed through unchanged, so px in gives px out.
func measureTextWidth(text string, fontSize float64, family, fontStyle string) float64 {
	if text == "" || fontSize <= 0 {
		return 0
	}
	measureOnce.Do(initMeasurePDF)
	measureMu.Lock()
	defer measureMu.Unlock()
	measurePDF.SetFont(family, fontStyle, fontSize)
	return measurePDF.GetStringWidth(text)
}

// MeasureText exposes the measurement used for layout.
func MeasureText(text string, fontSize float64, family, fontStyle string) float64 {
	return measureTextWidth(text, fontSize, family, fontStyle)
}

// resolveFontFromStyle maps CSS-like style to core PDF font family and style
func resolveFontFromStyle(st style.ComputedStyle) (string, string) {
	family := "Helvetica"
	if ff := st.Get("font-family"); strings.TrimSpace(ff) != "" {
		first := strings.Split(ff, ",")[0]
		first = strings.TrimSpace(strings.Trim(first, "'\""))
		switch strings.ToLower(first) {
		case "times", "times new roman", "serif", "georgia":
			family = "Times"
		case "courier", "courier new", "monospace", "consolas":
			family = "Courier"
		}
	}
	styleStr := ""
	switch strings.TrimSpace(st.Get("font-weight")) {
	case "bold", "bolder", "600", "700", "800", "900":
		styleStr += "B"
	}
	if fs := strings.TrimSpace(st.Get("font-style")); fs == "italic" || fs == "oblique" {
		styleStr += "I"
	}
	return family, styleStr
}

// Engine lays out block subtrees
type Engine struct {
	styles *style.StyleEngine
	logger *log.Logger
	Debug  bool
}

// NewEngine creates a layout engine over the given style engine.
func NewEngine(styles *style.StyleEngine) *Engine {
	if styles == nil {
		styles = style.NewStyleEngine()
	}
	return &Engine{styles: styles, logger: log.Default()}
}

// SetLogger replaces the debug logger.
func (e *Engine) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Span is a vertical extent in the layout frame.
type Span struct {
	Top, Bottom float64
}

// Line is one laid-out line of a text node. Offset is the byte offset in
// the node's data where the line's first word starts.
type Line struct {
	Offset      int
	Top, Bottom float64
}

// Result is the layout of one block.
type Result struct {
	Root  *BlockBox
	spans map[*html.Node]Span
	lines map[*html.Node][]Line
}

// Span returns the vertical extent of n: the union of every box produced
// for n or its descendants.
func (r *Result) Span(n *html.Node) (Span, bool) {
	s, ok := r.spans[n]
	return s, ok
}

// Lines returns the lines a text node occupies, top to bottom.
func (r *Result) Lines(n *html.Node) []Line {
	return r.lines[n]
}

// Height returns the border-box height of the block.
func (r *Result) Height() float64 {
	if r.Root == nil {
		return 0
	}
	return r.Root.Height
}

type layoutContext struct {
	engine      *Engine
	root        *html.Node
	styles      map[*html.Node]style.ComputedStyle
	fontSizes   map[*html.Node]float64
	inlineWidth float64
	result      *Result
}

func (c *layoutContext) style(n *html.Node, parent style.ComputedStyle) style.ComputedStyle {
	if cs, ok := c.styles[n]; ok {
		return cs
	}
	cs := c.engine.styles.Compute(n, parent)
	c.styles[n] = cs
	return cs
}

func (c *layoutContext) fontSize(n *html.Node, cs style.ComputedStyle, parentSize float64) float64 {
	if fs, ok := c.fontSizes[n]; ok {
		return fs
	}
	fs := parentSize
	if p, ok := cs["font-size"]; ok && p.Source != style.SourceInherited {
		fs = parseLength(p.Value, parentSize, parentSize, parentSize)
	}
	c.fontSizes[n] = fs
	return fs
}

// record unions [top, bottom] into n and its ancestors up to the root.
func (c *layoutContext) record(n *html.Node, top, bottom float64) {
	for x := n; x != nil; x = x.Parent {
		s, ok := c.result.spans[x]
		if !ok {
			s = Span{Top: top, Bottom: bottom}
		} else {
			s.Top = min(s.Top, top)
			s.Bottom = max(s.Bottom, bottom)
		}
		c.result.spans[x] = s
		if x == c.root {
			return
		}
	}
}

// LayoutBlock lays out a block wrapper element with its top-left margin
// edge at (x, y) in a container of the given width.
func (e *Engine) LayoutBlock(node *html.Node, x, y, width float64) *Result {
	res := &Result{
		spans: make(map[*html.Node]Span),
		lines: make(map[*html.Node][]Line),
	}
	ctx := &layoutContext{
		engine:    e,
		root:      node,
		styles:    make(map[*html.Node]style.ComputedStyle),
		fontSizes: make(map[*html.Node]float64),
		result:    res,
	}
	res.Root = e.layoutBlock(node, nil, DefaultFontSize, x, y, width, ctx)
	if res.Root == nil {
		res.Root = &BlockBox{Node: node, X: x, Y: y, Width: width}
	}
	if e.Debug {
		e.logger.Debug("laid out block", "id", html.AttrOr(node, "id", ""), "top", res.Root.Y, "height", res.Root.Height)
	}
	return res
}

func (e *Engine) layoutBlock(node *html.Node, parentCS style.ComputedStyle, parentFS, x, y, avail float64, ctx *layoutContext) *BlockBox {
	cs := ctx.style(node, parentCS)
	display := cs.Get("display")
	if display == "none" {
		return nil
	}
	fs := ctx.fontSize(node, cs, parentFS)

	b := &BlockBox{Node: node, Style: cs}
	b.Margin = boxEdges(cs, "margin", avail, fs)
	b.Padding = boxEdges(cs, "padding", avail, fs)
	b.Border, b.BorderColor = borderEdges(cs, fs)
	b.Background = cs.Get("background-color")

	width := avail - b.Margin.Horizontal()
	if v := cs.Get("width"); v != "" && v != "auto" {
		width = parseLength(v, avail, fs, width)
	} else if display == "inline-block" {
		if iw := e.intrinsicWidth(node, cs, fs, avail, ctx); iw > 0 {
			width = min(width, iw+b.Padding.Horizontal()+b.Border.Horizontal())
		}
	}
	if mv := cs.Get("max-width"); mv != "" {
		if m := parseLength(mv, avail, fs, 0); m > 0 && width > m {
			width = m
		}
	}
	b.Width = width

	offset := 0.0
	if display == "inline-block" {
		switch parentCS.Get("text-align") {
		case "center":
			offset = (avail - b.Margin.Horizontal() - width) / 2
		case "right":
			offset = avail - b.Margin.Horizontal() - width
		}
	}
	b.X = x + b.Margin.Left + max(offset, 0)
	b.Y = y + b.Margin.Top

	cx, cw := b.ContentX(), b.ContentWidth()
	contentTop := b.Y + b.Border.Top + b.Padding.Top
	cursor := contentTop

	var run []*html.Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		ctx.inlineWidth = cw
		var toks []token
		for _, n := range run {
			e.collectTokens(n, cs, fs, ctx, &toks)
		}
		ws := cs.Get("white-space")
		lines, h := layoutLines(toks, cx, cursor, cw, cs.Get("text-align"), ws == "pre" || ws == "nowrap")
		for _, l := range lines {
			b.AddChild(l)
			ctx.recordLine(l)
		}
		cursor += h
		run = run[:0]
	}

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if !e.isBlockLevel(c, cs, ctx) {
			run = append(run, c)
			continue
		}
		flush()
		if c.Data == "img" {
			ccs := ctx.style(c, cs)
			w, h := sizeImage(c, ccs, cw, fs)
			ix := cx
			switch cs.Get("text-align") {
			case "center":
				ix += (cw - w) / 2
			case "right":
				ix += cw - w
			}
			img := &ImageBox{Node: c, Style: ccs, X: ix, Y: cursor, Width: w, Height: h, Src: html.AttrOr(c, "src", "")}
			b.AddChild(img)
			ctx.record(c, cursor, cursor+h)
			cursor += h
			continue
		}
		child := e.layoutBlock(c, cs, fs, cx, cursor, cw, ctx)
		if child == nil {
			continue
		}
		b.AddChild(child)
		cursor = child.OuterBottom()
	}
	flush()

	height := cursor - contentTop + b.Padding.Vertical() + b.Border.Vertical()
	if v := cs.Get("height"); v != "" && v != "auto" {
		height = parseLength(v, 0, fs, height)
	}
	if v := cs.Get("min-height"); v != "" {
		height = max(height, parseLength(v, 0, fs, 0))
	}
	b.Height = height
	ctx.record(node, b.Y, b.Y+b.Height)
	return b
}

func (c *layoutContext) recordLine(l *LineBox) {
	for _, src := range l.sources {
		c.record(src.node, l.Y, l.Y+l.Height)
		if src.node.Type == html.TextNode {
			c.result.lines[src.node] = append(c.result.lines[src.node], Line{Offset: src.offset, Top: l.Y, Bottom: l.Y + l.Height})
		}
	}
}

// intrinsicWidth is the shrink-to-fit width of an inline-block: the used
// width of its first image, or zero when it has none.
func (e *Engine) intrinsicWidth(node *html.Node, cs style.ComputedStyle, fs, avail float64, ctx *layoutContext) float64 {
	img := html.FindFirst(node, func(n *html.Node) bool { return html.IsElement(n, "img") })
	if img == nil {
		return 0
	}
	nw, _ := NaturalSize(img)
	if nw <= 0 {
		return avail
	}
	return min(nw, avail)
}

var blockTags = map[string]bool{
	"div": true, "p": true, "ul": true, "ol": true, "li": true, "pre": true,
	"blockquote": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "table": true, "thead": true, "tbody": true,
	"tr": true, "td": true, "th": true, "section": true, "article": true,
	"figure": true, "figcaption": true, "hr": true, "header": true, "footer": true,
}

func (e *Engine) isBlockLevel(n *html.Node, parentCS style.ComputedStyle, ctx *layoutContext) bool {
	if n.Type != html.ElementNode {
		return false
	}
	cs := ctx.style(n, parentCS)
	switch cs.Get("display") {
	case "block", "list-item", "table", "inline-block", "flex":
		return true
	case "inline":
		return false
	}
	return blockTags[strings.ToLower(n.Data)]
}
