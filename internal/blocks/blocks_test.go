package blocks

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/parser/html"
)

func deleteButtons(n *html.Node) []*html.Node {
	return html.FindAll(n, func(x *html.Node) bool { return html.HasClass(x, doc.ClassDelete) })
}

func parseWrapper(t *testing.T, markup string) *html.Node {
	t.Helper()
	frag, err := html.NewParser().ParseString(markup)
	require.NoError(t, err)
	n := html.FindFirst(frag.Root, IsBlockNode)
	require.NotNil(t, n)
	html.Detach(n)
	return n
}

func TestPalette(t *testing.T) {
	r := NewRegistry()
	palette := r.Palette()
	require.Len(t, palette, 8)
	assert.Equal(t, doc.KindHeading, palette[0].Kind)

	assert.True(t, r.Splittable(doc.KindParagraph))
	assert.False(t, r.Splittable(doc.KindCode))
	assert.False(t, r.Splittable(doc.KindFigure))
	assert.False(t, r.Splittable("mystery"))

	info, ok := r.Lookup(doc.KindNote)
	require.True(t, ok)
	assert.Equal(t, "Nota", info.Label)
}

func TestCreate(t *testing.T) {
	r := NewRegistry()

	b, err := r.Create(doc.KindParagraph, "")
	require.NoError(t, err)
	assert.Equal(t, "Párrafo", html.TextContent(b.Content))
	assert.Equal(t, "paragraph", html.AttrOr(b.Node, "id", ""))
	assert.Equal(t, "false", html.AttrOr(b.Node, "contenteditable", ""))
	assert.Equal(t, "true", html.AttrOr(b.Content, "contenteditable", ""))
	assert.Same(t, b.Node, b.Content.Parent)

	b, err = r.CreateFromDescriptor(Descriptor{Kind: doc.KindNote, Markup: "<b>Ojo</b> aquí"})
	require.NoError(t, err)
	assert.Equal(t, "Ojo aquí", html.TextContent(b.Content))
	assert.NotNil(t, html.FindFirst(b.Content, func(n *html.Node) bool { return html.IsElement(n, "b") }))

	fig, err := r.Create(doc.KindFigure, "ignored")
	require.NoError(t, err)
	require.NotNil(t, fig.Figure)
	assert.Equal(t, doc.FigureEmpty, fig.Figure.State)
	assert.True(t, html.HasClass(fig.Content, doc.ClassCaption))
	assert.NotNil(t, html.ByClass(fig.Node, doc.ClassPlaceholder))
}

func TestCreateUnknownKind(t *testing.T) {
	_, err := NewRegistry().Create("mystery", "")
	var uk *UnknownKindError
	require.True(t, errors.As(err, &uk))
	assert.Equal(t, "mystery", uk.Kind)
	assert.Contains(t, err.Error(), "mystery")
}

func TestWireIsIdempotent(t *testing.T) {
	r := NewRegistry()
	var deleted int
	r.SetHooks(Hooks{
		OnDelete: func(*doc.Block) { deleted++ },
		OnInput:  func(*doc.Block) {},
	})
	b, err := r.Create(doc.KindParagraph, "hola")
	require.NoError(t, err)

	r.Wire(b)
	r.Wire(b)
	assert.Len(t, deleteButtons(b.Node), 1)
	assert.Same(t, b.Node.LastChild, deleteButtons(b.Node)[0])
	assert.Equal(t, []doc.Event{doc.EventDelete, doc.EventInput}, b.Handlers.Events())

	assert.True(t, b.Handlers.Fire(doc.Signal{Event: doc.EventDelete}))
	assert.Equal(t, 1, deleted)
	assert.False(t, b.Handlers.Fire(doc.Signal{Event: doc.EventResize}))
}

func TestWireFigureHandlers(t *testing.T) {
	r := NewRegistry()
	var resized []float64
	r.SetHooks(Hooks{
		OnCaptionBlur: func(*doc.Block) {},
		OnInput:       func(*doc.Block) {},
		OnResize:      func(_ *doc.Block, s doc.Signal) { resized = append(resized, s.X) },
	})
	b, err := r.Create(doc.KindFigure, "")
	require.NoError(t, err)
	assert.True(t, b.Handlers.Has(doc.EventBlur))
	assert.False(t, b.Handlers.Has(doc.EventInput))
	assert.False(t, b.Handlers.Has(doc.EventResize))

	require.NoError(t, figure.Populate(b, figure.Payload{Src: "data:image/png;base64,AAAA", Width: 10, Height: 10}))
	r.Wire(b)
	require.True(t, b.Handlers.Fire(doc.Signal{Event: doc.EventResize, X: 42}))
	assert.Equal(t, []float64{42}, resized)
	assert.NotNil(t, html.ByClass(b.Node, doc.ClassResize))
}

func TestWireCollapsesDuplicateDeleteControls(t *testing.T) {
	r := NewRegistry()
	n := parseWrapper(t, `<div id="paragraph" class="placed-block" contenteditable="false">`+
		`<button class="delete-block-btn">X</button>`+
		`<div class="block-content" contenteditable="true">Hola<button class="delete-block-btn">X</button></div>`+
		`<button class="delete-block-btn">X</button></div>`)
	b, err := r.Adopt(n)
	require.NoError(t, err)
	buttons := deleteButtons(b.Node)
	require.Len(t, buttons, 1)
	assert.Same(t, b.Node, buttons[0].Parent)
	assert.Equal(t, "Hola", html.TextContent(b.Content))
}

func TestWirePage(t *testing.T) {
	r := NewRegistry()
	var ys []float64
	r.SetHooks(Hooks{
		OnDragOver: func(_ *doc.Page, s doc.Signal) { ys = append(ys, s.Y) },
		OnDrop:     func(*doc.Page, doc.Signal) {},
	})
	d := doc.New()
	p := r.NewPage(d, 0)
	q := r.NewPage(d, 0)
	assert.Equal(t, []*doc.Page{q, p}, d.Pages)
	assert.Equal(t, 2, p.Number)

	p.Handlers.Fire(doc.Signal{Event: doc.EventDragOver, Y: 7})
	assert.Equal(t, []float64{7}, ys)
	assert.Equal(t, 2, p.Handlers.Len())
}

func TestSerializeStripsTransientState(t *testing.T) {
	r := NewRegistry()
	b, err := r.Create(doc.KindParagraph, "hola")
	require.NoError(t, err)
	html.AddClass(b.Node, doc.ClassDragging)
	html.AddClass(b.Node, doc.ClassDragOver)

	data, err := r.Serialize(b)
	require.NoError(t, err)
	s := string(data)
	assert.NotContains(t, s, doc.ClassDelete)
	assert.NotContains(t, s, doc.ClassDragging)
	assert.NotContains(t, s, doc.ClassDragOver)
	assert.NotContains(t, s, "draggable")
	assert.Contains(t, s, "hola")

	// The live block keeps its controls.
	assert.Len(t, deleteButtons(b.Node), 1)

	fig, err := r.Create(doc.KindFigure, "")
	require.NoError(t, err)
	require.NoError(t, figure.Populate(fig, figure.Payload{Src: "data:image/png;base64,AAAA", Width: 10, Height: 10}))
	data, err = r.Serialize(fig)
	require.NoError(t, err)
	assert.NotContains(t, string(data), doc.ClassResize)
	assert.Contains(t, string(data), "data:image/png;base64,AAAA")
}

func TestDeserialize(t *testing.T) {
	r := NewRegistry()
	b, err := r.Create(doc.KindWarning, "cuidado")
	require.NoError(t, err)
	data, err := r.Serialize(b)
	require.NoError(t, err)

	got, err := r.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, doc.KindWarning, got.Kind)
	assert.Equal(t, "cuidado", html.TextContent(got.Content))
	assert.NotEqual(t, b.ID, got.ID)
	assert.Len(t, deleteButtons(got.Node), 1)

	_, err = r.Deserialize([]byte("<p>sin bloque</p>"))
	assert.ErrorIs(t, err, ErrNoBlock)

	_, err = r.Deserialize([]byte(`<div id="mystery" class="placed-block">?</div>`))
	var uk *UnknownKindError
	assert.True(t, errors.As(err, &uk))
}

func TestNormalizeLegacy(t *testing.T) {
	n := parseWrapper(t, `<div id="paragraph" class="placed-block" contenteditable="true">`+
		`Hola <b>mundo</b><button class="delete-block-btn">X</button></div>`)
	require.True(t, IsLegacy(n))
	assert.True(t, Normalize(n))
	assert.False(t, IsLegacy(n))
	assert.False(t, Normalize(n))

	assert.Equal(t, "false", html.AttrOr(n, "contenteditable", ""))
	content := html.ChildByClass(n, doc.ClassContent)
	require.NotNil(t, content)
	assert.Equal(t, "Hola mundo", html.TextContent(content))
	assert.Empty(t, deleteButtons(n))
	assert.Same(t, content, n.FirstChild)
}

func TestAdoptFigure(t *testing.T) {
	r := NewRegistry()
	n := parseWrapper(t, `<div class="figure-block placed-block" contenteditable="false">`+
		`<div class="figure-img-wrapper" style="width: 50.00%"><img src="data:image/png;base64,AAAA" width="40" height="20"/></div>`+
		`<div class="figure-caption" contenteditable="true">Figura 4. Plano</div></div>`)
	b, err := r.Adopt(n)
	require.NoError(t, err)
	assert.Equal(t, doc.KindFigure, b.Kind)
	assert.Equal(t, "image", html.AttrOr(b.Node, "id", ""))
	require.NotNil(t, b.Figure)
	assert.Equal(t, doc.FigurePopulated, b.Figure.State)
	assert.Equal(t, "Plano", b.Figure.UserText)
	assert.InDelta(t, 50.0, b.Figure.WidthPercent, 0.001)
	assert.NotNil(t, html.ByClass(b.Node, doc.ClassResize))
}

func TestContinuation(t *testing.T) {
	r := NewRegistry()
	b, err := r.Create(doc.KindNote, "origen")
	require.NoError(t, err)
	html.SetAttr(b.Node, "style", "color: red")
	html.SetAttr(b.Content, "data-x", "1")

	c := r.Continuation(b)
	assert.Equal(t, doc.KindNote, c.Kind)
	assert.NotEqual(t, b.ID, c.ID)
	assert.Empty(t, strings.TrimSpace(html.TextContent(c.Content)))
	assert.Equal(t, "color: red", html.AttrOr(c.Node, "style", ""))
	assert.Equal(t, "1", html.AttrOr(c.Content, "data-x", ""))
	assert.Len(t, deleteButtons(c.Node), 1)
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	b, err := r.Create(doc.KindCode, "x := 1")
	require.NoError(t, err)
	d, err := r.Describe(b)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Kind: doc.KindCode, Markup: "x := 1"}, d)

	fig, err := r.Create(doc.KindFigure, "")
	require.NoError(t, err)
	d, err = r.Describe(fig)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Kind: doc.KindFigure}, d)
}

func TestWriteDocument(t *testing.T) {
	r := NewRegistry()
	d := doc.New()
	p1 := r.NewPage(d, 0)
	p2 := r.NewPage(d, 1)
	a, err := r.Create(doc.KindTitle, "Uno")
	require.NoError(t, err)
	b, err := r.Create(doc.KindParagraph, "Dos")
	require.NoError(t, err)
	p1.Append(a)
	p2.Append(b)

	var buf bytes.Buffer
	require.NoError(t, r.WriteDocument(&buf, d))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `class="page"`))
	assert.Contains(t, out, `<div class="page-number">2</div>`)
	assert.Less(t, strings.Index(out, "Uno"), strings.Index(out, "Dos"))
	assert.NotContains(t, out, doc.ClassDelete)
}
