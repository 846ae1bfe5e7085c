// Package pdf prints a paginated document: one PDF page per document page,
// drawn from the same layout the geometry probe measures.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/layout"
	"github.com/gompdf/pagedit/internal/res"
)

// pxToPt converts layout px (96dpi) to PDF points.
const pxToPt = 0.75

// Options contains document metadata and paint switches.
type Options struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	// PageNumbers prints each page's number centered in the bottom padding.
	PageNumbers bool
}

// DefaultOptions prints page numbers and credits pagedit.
func DefaultOptions() Options {
	return Options{Creator: "pagedit", PageNumbers: true}
}

// Exporter renders documents to PDF
type Exporter struct {
	probe  *geometry.LayoutProbe
	loader *res.Loader
	logger *log.Logger

	// RenderBackgrounds controls whether box backgrounds are painted
	RenderBackgrounds bool
	// RenderBorders controls whether box borders are painted
	RenderBorders bool
	// DebugDrawBoxes outlines every block box
	DebugDrawBoxes bool
}

// listContext represents an active list (ul/ol) while rendering
type listContext struct {
	kind    string // "ul" or "ol"
	style   string // list-style-type
	counter int    // for ordered lists
}

// page is the per-page drawing state.
type page struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	ctx       context.Context
	listStack []listContext
	images    map[string]string
}

// NewExporter creates an exporter laying pages out with probe. Figure
// images are resolved through loader.
func NewExporter(probe *geometry.LayoutProbe, loader *res.Loader) *Exporter {
	if loader == nil {
		loader = res.NewLoader("")
	}
	return &Exporter{
		probe:             probe,
		loader:            loader,
		logger:            log.Default(),
		RenderBackgrounds: true,
		RenderBorders:     true,
	}
}

// SetLogger replaces the logger.
func (e *Exporter) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Export writes d as PDF to w.
func (e *Exporter) Export(ctx context.Context, d *doc.Document, w io.Writer, options Options) error {
	g := e.probe.Geometry()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: g.Width * pxToPt, Ht: g.Height * pxToPt},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	title := options.Title
	if title == "" {
		title = d.Title
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor(options.Author, true)
	pdf.SetSubject(options.Subject, true)
	pdf.SetKeywords(options.Keywords, true)
	pdf.SetCreator(options.Creator, true)
	pdf.SetFont("Helvetica", "", 12)

	st := &page{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		ctx:    ctx,
		images: make(map[string]string),
	}

	e.logger.Debug("Rendering pages", "count", len(d.Pages))
	for _, p := range d.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, err := e.probe.LayoutPage(p)
		if err != nil {
			return fmt.Errorf("failed to lay out page %d: %w", p.Number, err)
		}
		pdf.AddPage()
		st.listStack = st.listStack[:0]
		for _, r := range results {
			e.renderBox(st, r.Root)
		}
		if options.PageNumbers {
			e.renderPageNumber(st, p.Number, g)
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("failed to render page %d: %w", p.Number, err)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// renderBox renders a box to the PDF
func (e *Exporter) renderBox(st *page, box layout.Box) {
	switch b := box.(type) {
	case *layout.BlockBox:
		e.renderBlockBox(st, b)
	case *layout.LineBox:
		for _, it := range b.Items {
			e.renderBox(st, it)
		}
	case *layout.TextBox:
		e.renderText(st, b)
	case *layout.ImageBox:
		e.renderImage(st, b)
	default:
		e.logger.Debug("Unknown box type", "type", fmt.Sprintf("%T", box))
	}
}

// renderBlockBox renders a block box to the PDF
func (e *Exporter) renderBlockBox(st *page, box *layout.BlockBox) {
	e.renderBackground(st, box)
	e.renderBorders(st, box)

	enteringList := false
	if box.Node != nil {
		tag := strings.ToLower(box.Node.Data)
		if tag == "ul" || tag == "ol" {
			enteringList = true
			lc := listContext{kind: tag, style: strings.ToLower(strings.TrimSpace(box.Style.Get("list-style-type")))}
			if lc.style == "" {
				if tag == "ul" {
					lc.style = "disc"
				} else {
					lc.style = "decimal"
				}
			}
			st.listStack = append(st.listStack, lc)
		}
	}

	for _, child := range box.Children {
		if len(st.listStack) > 0 {
			if cb, ok := child.(*layout.BlockBox); ok && cb.Node != nil && strings.EqualFold(cb.Node.Data, "li") {
				top := &st.listStack[len(st.listStack)-1]
				if top.kind == "ol" {
					top.counter++
				}
				e.renderListMarker(st, cb, *top)
			}
		}
		e.renderBox(st, child)
	}

	if enteringList {
		st.listStack = st.listStack[:len(st.listStack)-1]
	}

	if e.DebugDrawBoxes {
		st.pdf.SetDrawColor(200, 0, 0)
		st.pdf.SetLineWidth(0.5)
		st.pdf.Rect(box.X*pxToPt, box.Y*pxToPt, box.Width*pxToPt, box.Height*pxToPt, "D")
	}
}

// renderBackground renders the background of a box
func (e *Exporter) renderBackground(st *page, box *layout.BlockBox) {
	if !e.RenderBackgrounds {
		return
	}
	bg := strings.TrimSpace(box.Background)
	if bg == "" || bg == "transparent" || bg == "none" {
		return
	}
	color := parseColor(bg)
	st.pdf.SetFillColor(color[0], color[1], color[2])
	st.pdf.Rect(box.X*pxToPt, box.Y*pxToPt, box.Width*pxToPt, box.Height*pxToPt, "F")
}

// renderBorders paints each side with a width as a filled strip.
func (e *Exporter) renderBorders(st *page, box *layout.BlockBox) {
	if !e.RenderBorders {
		return
	}
	sides := [4]struct{ x, y, w, h float64 }{
		{box.X, box.Y, box.Width, box.Border.Top},
		{box.X + box.Width - box.Border.Right, box.Y, box.Border.Right, box.Height},
		{box.X, box.Y + box.Height - box.Border.Bottom, box.Width, box.Border.Bottom},
		{box.X, box.Y, box.Border.Left, box.Height},
	}
	for i, s := range sides {
		if s.w <= 0 || s.h <= 0 {
			continue
		}
		color := parseColor(box.BorderColor[i])
		st.pdf.SetFillColor(color[0], color[1], color[2])
		st.pdf.Rect(s.x*pxToPt, s.y*pxToPt, s.w*pxToPt, s.h*pxToPt, "F")
	}
}

// renderText renders one word or preformatted line.
func (e *Exporter) renderText(st *page, box *layout.TextBox) {
	if box.Text == "" {
		return
	}
	color := parseColor(box.Color)
	st.pdf.SetTextColor(color[0], color[1], color[2])
	st.pdf.SetFont(box.FontFamily, box.FontStyle, box.FontSize*pxToPt)

	// The box is one font size tall; the baseline sits at the ascent.
	x := box.X * pxToPt
	baseline := (box.Y + 0.8*box.FontSize) * pxToPt
	st.pdf.Text(x, baseline, st.tr(box.Text))

	if box.Underline {
		st.pdf.SetDrawColor(color[0], color[1], color[2])
		st.pdf.SetLineWidth(box.FontSize * pxToPt * 0.05)
		under := baseline + box.FontSize*pxToPt*0.1
		st.pdf.Line(x, under, x+box.Width*pxToPt, under)
	}
}

func (e *Exporter) renderPageNumber(st *page, number int, g geometry.PageGeometry) {
	label := strconv.Itoa(number)
	st.pdf.SetFont("Helvetica", "", 10)
	st.pdf.SetTextColor(120, 120, 120)
	w := st.pdf.GetStringWidth(label)
	x := (g.Width*pxToPt - w) / 2
	y := (g.Height - g.Padding.Bottom/2) * pxToPt
	st.pdf.Text(x, y, label)
}

// renderListMarker draws the bullet/number for a list item based on current list context
func (e *Exporter) renderListMarker(st *page, li *layout.BlockBox, ctx listContext) {
	fontSize := 16.0
	color := [3]int{0, 0, 0}
	if tb := firstText(li); tb != nil {
		fontSize = tb.FontSize
		color = parseColor(tb.Color)
	}

	cx := (li.X - fontSize) * pxToPt
	cy := (li.Y + fontSize*0.75) * pxToPt
	size := fontSize * pxToPt

	if ctx.kind == "ul" {
		rbullet := max(size*0.18, 1.2)
		st.pdf.SetDrawColor(color[0], color[1], color[2])
		st.pdf.SetFillColor(color[0], color[1], color[2])
		switch ctx.style {
		case "none":
			return
		case "circle":
			st.pdf.SetLineWidth(0.8)
			st.pdf.Circle(cx, cy, rbullet, "D")
		case "square":
			side := rbullet * 2
			st.pdf.Rect(cx-rbullet, cy-rbullet, side, side, "F")
		default: // disc
			st.pdf.Circle(cx, cy, rbullet, "F")
		}
		return
	}

	if ctx.style == "none" {
		return
	}
	var marker string
	switch ctx.style {
	case "lower-alpha":
		marker = toAlpha(ctx.counter, false) + "."
	case "upper-alpha":
		marker = toAlpha(ctx.counter, true) + "."
	default:
		marker = strconv.Itoa(ctx.counter) + "."
	}
	st.pdf.SetTextColor(color[0], color[1], color[2])
	st.pdf.SetFont("Helvetica", "", size)
	startX := max(li.X*pxToPt-st.pdf.GetStringWidth(marker)-size*0.2, 0)
	st.pdf.Text(startX, (li.Y+fontSize)*pxToPt, marker)
}

// firstText returns the first text box found within b.
func firstText(b *layout.BlockBox) *layout.TextBox {
	var found *layout.TextBox
	layout.Walk(b, func(x layout.Box) {
		if tb, ok := x.(*layout.TextBox); ok && found == nil {
			found = tb
		}
	})
	return found
}

// toAlpha converts 1-based index to alphabetic sequence (a..z, aa..zz, ...)
func toAlpha(n int, upper bool) string {
	if n <= 0 {
		return ""
	}
	var letters []rune
	for n > 0 {
		n--
		rem := n % 26
		ch := rune('a' + rem)
		if upper {
			ch = rune('A' + rem)
		}
		letters = append([]rune{ch}, letters...)
		n /= 26
	}
	return string(letters)
}

var namedColors = map[string][3]int{
	"black": {0, 0, 0},
	"white": {255, 255, 255},
	"red":   {255, 0, 0},
	"green": {0, 128, 0},
	"blue":  {0, 0, 255},
	"gray":  {128, 128, 128},
	"grey":  {128, 128, 128},
}

// parseColor parses a CSS color value. Unknown values are black.
func parseColor(value string) [3]int {
	value = strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(value, "#") {
		if r, g, b, ok := parseHexColor(value); ok {
			return [3]int{r, g, b}
		}
	}
	if c, ok := namedColors[value]; ok {
		return c
	}

	var r, g, b int
	if _, err := fmt.Sscanf(strings.ReplaceAll(value, " ", ""), "rgb(%d,%d,%d)", &r, &g, &b); err == nil {
		return [3]int{r, g, b}
	}
	return [3]int{0, 0, 0}
}

// parseHexColor parses #RRGGBB or #RGB into r,g,b
func parseHexColor(s string) (int, int, int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
