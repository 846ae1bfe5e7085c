package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/commands"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/reorder"
)

func newEditor(opts ...Option) *Editor {
	return New(append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

func paragraph(text string) blocks.Descriptor {
	return blocks.Descriptor{Kind: doc.KindParagraph, Markup: text}
}

func caption(b *doc.Block) string {
	return html.TextContent(b.Content)
}

func pngSource(t *testing.T) figure.Source {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return figure.SourceFunc(func(context.Context) (figure.Payload, error) {
		return figure.Decode(buf.Bytes(), "image/png")
	})
}

// assertNoOverflow checks every block ends inside its page, unless it is
// alone on that page.
func assertNoOverflow(t *testing.T, e *Editor) {
	t.Helper()
	for _, p := range e.doc.Pages {
		usable, err := e.probe.UsableHeight(p)
		require.NoError(t, err)
		for _, b := range p.Blocks {
			bottom, err := geometry.BottomEdge(e.probe, p, b)
			require.NoError(t, err)
			if len(p.Blocks) > 1 {
				assert.LessOrEqual(t, bottom, usable+e.options.Epsilon, "page %d block %s", p.Number, b.Kind)
			}
		}
	}
}

func TestNewEditorStartsWithOnePage(t *testing.T) {
	e := newEditor(WithTitle("informe"))
	assert.Equal(t, 1, e.PageCount())
	assert.Equal(t, "informe.html", e.FileName())
	assert.NotEmpty(t, e.Palette())

	e.SetTitle(" ")
	assert.Equal(t, doc.DefaultTitle, e.Title())
}

func TestAppendOverflowsOntoNewPages(t *testing.T) {
	e := newEditor()
	text := strings.Repeat("Texto de relleno para ocupar varias lineas. ", 6)
	for i := 0; i < 40; i++ {
		_, err := e.Append(paragraph(text))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.PageCount())

	assert.Equal(t, 1, e.Flush())
	assert.Greater(t, e.PageCount(), 1)
	assertNoOverflow(t, e)

	total := 0
	for i, p := range e.doc.Pages {
		assert.Equal(t, i+1, p.Number)
		total += len(p.Blocks)
	}
	assert.GreaterOrEqual(t, total, 40)
}

func TestTimerFramesPaginateWithoutFlush(t *testing.T) {
	e := newEditor(WithFrameInterval(time.Millisecond))
	text := strings.Repeat("Linea larga de contenido. ", 10)
	for i := 0; i < 40; i++ {
		_, err := e.Append(paragraph(text))
		require.NoError(t, err)
	}
	assert.Zero(t, e.Flush())
	require.Eventually(t, func() bool { return e.PageCount() > 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestCaptionUserTextSurvivesRenumbering(t *testing.T) {
	e := newEditor()
	first, err := e.Append(blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)
	second, err := e.Append(blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)
	assert.Equal(t, "Figura 2. "+figure.DefaultCaption, caption(second))

	require.NoError(t, e.EditContent(second.ID, "Figura 2. Mi gráfico"))
	ran, err := e.Dispatch(second.ID, doc.Signal{Event: doc.EventBlur})
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, "Figura 2. Mi gráfico", caption(second))

	page := e.doc.Pages[0]
	inserted, err := e.Insert(page.ID, 0, blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)
	assert.Equal(t, "Figura 1. "+figure.DefaultCaption, caption(inserted))
	assert.Equal(t, "Figura 2. "+figure.DefaultCaption, caption(first))
	assert.Equal(t, "Figura 3. Mi gráfico", caption(second))

	ran, err = e.Dispatch(inserted.ID, doc.Signal{Event: doc.EventDelete})
	require.NoError(t, err)
	require.True(t, ran)
	assert.Nil(t, e.doc.FindBlock(inserted.ID))
	assert.Equal(t, "Figura 1. "+figure.DefaultCaption, caption(first))
	assert.Equal(t, "Figura 2. Mi gráfico", caption(second))
	assert.Equal(t, 3, e.doc.State.FigureCount)
}

func TestCaptionWithoutDelimiterFallsBackToDefault(t *testing.T) {
	e := newEditor()
	fig, err := e.Append(blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)

	require.NoError(t, e.EditContent(fig.ID, "Sin delimitador"))
	user, err := e.CommitCaption(fig.ID)
	require.NoError(t, err)
	assert.Empty(t, user)
	assert.True(t, fig.Figure.HasUserText)
	assert.Equal(t, "Figura 1. "+figure.DefaultCaption, caption(fig))
}

func TestReorderThroughDispatch(t *testing.T) {
	e := newEditor()
	a, _ := e.Append(paragraph("A"))
	b, _ := e.Append(paragraph("B"))
	c, _ := e.Append(paragraph("C"))
	e.Flush()
	page := e.doc.Pages[0]

	_, err := e.Dispatch(c.ID, doc.Signal{Event: doc.EventDragStart})
	require.NoError(t, err)
	_, err = e.Dispatch(page.ID, doc.Signal{Event: doc.EventDragOver, Y: 0})
	require.NoError(t, err)
	_, err = e.Dispatch(page.ID, doc.Signal{Event: doc.EventDrop})
	require.NoError(t, err)

	assert.Equal(t, []*doc.Block{c, a, b}, page.Blocks)
	assert.Equal(t, 1, e.Flush())
	assert.False(t, html.HasClass(c.Node, doc.ClassDragging))
}

func TestDragEndWithoutDropCancels(t *testing.T) {
	e := newEditor()
	a, _ := e.Append(paragraph("A"))
	b, _ := e.Append(paragraph("B"))
	page := e.doc.Pages[0]

	require.NoError(t, e.BeginDrag(b.ID))
	require.NoError(t, e.DragOver(page.ID, 0))
	assert.Equal(t, []*doc.Block{b, a}, page.Blocks)

	_, err := e.Dispatch(b.ID, doc.Signal{Event: doc.EventDragEnd})
	require.NoError(t, err)
	assert.Equal(t, []*doc.Block{a, b}, page.Blocks)
	assert.Error(t, e.CancelDrag())
}

func TestPasteImageAndResize(t *testing.T) {
	e := newEditor()
	fig, err := e.PasteImage(context.Background(), "", pngSource(t))
	require.NoError(t, err)

	assert.Equal(t, doc.FigurePopulated, fig.Figure.State)
	assert.True(t, fig.Handlers.Has(doc.EventResize))
	assert.Equal(t, "Figura 1. "+figure.DefaultCaption, caption(fig))

	require.NoError(t, e.BeginResize(fig.ID, 300))
	pct, err := e.ResizeTo(100)
	require.NoError(t, err)
	assert.Greater(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
	require.NoError(t, e.EndResize())
	assert.Equal(t, 1, e.Flush())

	assert.ErrorIs(t, e.PopulateFigure(context.Background(), fig.ID, pngSource(t)), figure.ErrAlreadyPopulated)
}

func TestPopulateEmptyFigure(t *testing.T) {
	e := newEditor()
	fig, err := e.Append(blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)
	assert.False(t, fig.Handlers.Has(doc.EventResize))

	require.NoError(t, e.PopulateFigure(context.Background(), fig.ID, pngSource(t)))
	assert.Equal(t, doc.FigurePopulated, fig.Figure.State)
	assert.True(t, fig.Handlers.Has(doc.EventResize))
}

func TestPasteImageCancelled(t *testing.T) {
	e := newEditor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocking := figure.SourceFunc(func(ctx context.Context) (figure.Payload, error) {
		<-ctx.Done()
		return figure.Payload{}, ctx.Err()
	})
	_, err := e.PasteImage(ctx, "", blocking)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.doc.Figures())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := newEditor()
	_, err := e.Append(blocks.Descriptor{Kind: doc.KindTitle, Markup: "Informe"})
	require.NoError(t, err)
	_, err = e.Append(paragraph("Uno <b>dos</b>"))
	require.NoError(t, err)
	_, err = e.PasteImage(context.Background(), "", pngSource(t))
	require.NoError(t, err)
	e.Flush()

	var saved bytes.Buffer
	require.NoError(t, e.Save(&saved))
	assert.NotContains(t, saved.String(), doc.ClassDelete)
	assert.NotContains(t, saved.String(), doc.ClassResize)

	other := newEditor()
	rep, err := other.Load(context.Background(), bytes.NewReader(saved.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Blocks)
	assert.Equal(t, 1, rep.Figures)
	assert.Equal(t, e.PageCount(), other.PageCount())

	loaded := other.Document().Blocks()
	require.Len(t, loaded, 3)
	assert.Equal(t, doc.KindTitle, loaded[0].Kind)
	assert.Equal(t, "Uno dos", html.TextContent(loaded[1].Content))
	assert.True(t, loaded[2].Handlers.Has(doc.EventResize))
}

func TestPages(t *testing.T) {
	e := newEditor()
	first := e.doc.Pages[0]
	top := e.AddPageTop()
	bottom := e.AddPageBottom()

	assert.Equal(t, []*doc.Page{top, first, bottom}, e.doc.Pages)
	assert.Equal(t, 1, top.Number)
	assert.Equal(t, 3, bottom.Number)

	require.NoError(t, e.RemovePage(top.ID))
	assert.Equal(t, 1, first.Number)
	require.NoError(t, e.RemovePage(bottom.ID))
	assert.ErrorIs(t, e.RemovePage(first.ID), ErrLastPage)
	assert.ErrorIs(t, e.RemovePage("missing"), ErrNotFound)
}

func TestApplyCommand(t *testing.T) {
	e := newEditor()
	para, _ := e.Append(paragraph("texto"))
	title, _ := e.Append(blocks.Descriptor{Kind: doc.KindTitle})
	rec := &commands.Recorder{}

	require.NoError(t, e.ApplyCommand(rec, commands.InsertOrderedList, para.ID))
	require.NoError(t, e.ApplyCommand(rec, commands.Bold, ""))
	assert.ErrorIs(t, e.ApplyCommand(rec, commands.InsertUnorderedList, title.ID), commands.ErrNotApplicable)
	assert.ErrorIs(t, e.ApplyCommand(rec, "strike", para.ID), commands.ErrUnknownCommand)
	assert.ErrorIs(t, e.ApplyCommand(rec, commands.Bold, "missing"), ErrNotFound)
	assert.Equal(t, []string{commands.InsertOrderedList, commands.Bold}, rec.Executed())
}

func TestImportMarkdown(t *testing.T) {
	e := newEditor()
	n, err := e.Import(strings.NewReader("# Informe\n\nPrimer parrafo.\n\n```\ncodigo\n```\n"), "informe.md")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "informe", e.Title())

	kinds := []doc.Kind{}
	for _, b := range e.doc.Blocks() {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []doc.Kind{doc.KindTitle, doc.KindParagraph, doc.KindCode}, kinds)

	_, err = e.ImportFormat(strings.NewReader("x"), "csv", "x.csv")
	assert.Error(t, err)
}

func TestExportPDF(t *testing.T) {
	e := newEditor(WithAuthor("pagedit"))
	_, err := e.Append(blocks.Descriptor{Kind: doc.KindTitle, Markup: "Informe"})
	require.NoError(t, err)
	e.AddPageBottom()

	var out bytes.Buffer
	require.NoError(t, e.ExportPDF(context.Background(), &out))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")))
}

func TestDispatchUnknownID(t *testing.T) {
	e := newEditor()
	_, err := e.Dispatch("nope", doc.Signal{Event: doc.EventDelete})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDraggedBlockEndsDrag(t *testing.T) {
	e := newEditor()
	a, _ := e.Append(paragraph("A"))
	b, _ := e.Append(paragraph("B"))
	c, _ := e.Append(paragraph("C"))
	e.Flush()
	page := e.doc.Pages[0]

	require.NoError(t, e.BeginDrag(b.ID))
	require.NoError(t, e.DragOver(page.ID, 0))
	handled, err := e.Dispatch(b.ID, doc.Signal{Event: doc.EventDelete})
	require.NoError(t, err)
	assert.True(t, handled)

	_, err = e.Drop(page.ID)
	assert.ErrorIs(t, err, reorder.ErrNoSession)
	assert.ErrorIs(t, e.CancelDrag(), reorder.ErrNoSession)
	assert.Equal(t, []*doc.Block{a, c}, page.Blocks)
	assert.Nil(t, e.doc.FindBlock(b.ID))
	assert.False(t, html.HasClass(b.Node, doc.ClassDragging))
}

func TestDeleteResizedFigureEndsResize(t *testing.T) {
	e := newEditor()
	fig, err := e.PasteImage(context.Background(), "", pngSource(t))
	require.NoError(t, err)

	require.NoError(t, e.BeginResize(fig.ID, 300))
	require.NoError(t, e.DeleteBlock(fig.ID))
	assert.ErrorIs(t, e.EndResize(), figure.ErrNotResizing)
	assert.Empty(t, e.doc.Figures())
}

func TestPopulateFigureRenumbers(t *testing.T) {
	e := newEditor()
	fig, err := e.Append(blocks.Descriptor{Kind: doc.KindFigure})
	require.NoError(t, err)
	require.NoError(t, e.EditContent(fig.ID, "Figura 9. Mapa"))
	assert.Equal(t, "Figura 9. Mapa", caption(fig))

	require.NoError(t, e.PopulateFigure(context.Background(), fig.ID, pngSource(t)))
	assert.Equal(t, "Figura 1. "+figure.DefaultCaption, caption(fig))
	assert.Equal(t, 1, fig.Figure.Ordinal)
}

func TestLoadDropsPendingPagination(t *testing.T) {
	e := newEditor()
	for i := 0; i < 40; i++ {
		_, err := e.Append(paragraph(strings.Repeat("Texto pendiente de paginar. ", 12)))
		require.NoError(t, err)
	}
	old := e.Document()
	require.Len(t, old.Pages, 1)

	const onePage = `<div class="page"><div id="paragraph" class="placed-block" contenteditable="false">` +
		`<div class="block-content" contenteditable="true">Hola</div></div></div>`
	_, err := e.Load(context.Background(), strings.NewReader(onePage))
	require.NoError(t, err)
	assert.Zero(t, e.engine.Pending())

	e.Flush()
	assert.Len(t, old.Pages, 1)
	assert.Equal(t, 1, e.PageCount())
}
