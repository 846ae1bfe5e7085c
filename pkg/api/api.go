package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/commands"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/geometry"
	"github.com/gompdf/pagedit/internal/importer"
	"github.com/gompdf/pagedit/internal/layout"
	"github.com/gompdf/pagedit/internal/pagination"
	"github.com/gompdf/pagedit/internal/parser/css"
	"github.com/gompdf/pagedit/internal/parser/html"
	"github.com/gompdf/pagedit/internal/rehydrate"
	"github.com/gompdf/pagedit/internal/render/pdf"
	"github.com/gompdf/pagedit/internal/reorder"
	"github.com/gompdf/pagedit/internal/res"
	"github.com/gompdf/pagedit/internal/style"
)

var (
	// ErrNotFound is returned when an id names no block or page.
	ErrNotFound = errors.New("not found")
	// ErrLastPage is returned when removing the only page.
	ErrLastPage = errors.New("cannot remove the last page")
)

// Editor is the main API: one document with its pagination engine and the
// gestures that mutate it. Every method serializes on the editor's lock,
// and scheduled pagination passes take the same lock.
type Editor struct {
	mu      sync.Mutex
	options Options
	logger  *log.Logger

	loader     *res.Loader
	parser     *html.Parser
	registry   *blocks.Registry
	probe      *geometry.LayoutProbe
	frames     *pagination.ManualFrames
	engine     *pagination.Engine
	reorder    *reorder.Controller
	resizer    *figure.Resizer
	rehydrator *rehydrate.Service
	exporter   *pdf.Exporter

	doc *doc.Document
}

// New creates an editor holding one empty page
func New(opts ...Option) *Editor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return NewWithOptions(options)
}

// NewWithOptions creates an editor with the specified options
func NewWithOptions(options Options) *Editor {
	logger := options.Logger
	if logger == nil {
		level := log.InfoLevel
		if options.Debug {
			level = log.DebugLevel
		}
		logger = log.NewWithOptions(os.Stderr, log.Options{Level: level, Prefix: "pagedit"})
	}

	loader := res.NewLoader(options.BaseURL)
	for _, path := range options.ResourcePaths {
		loader.AddSearchPath(path)
	}
	if options.DataURLsOnly {
		loader.RestrictToDataURLs()
	}

	styles := style.NewStyleEngine()
	if strings.TrimSpace(options.Stylesheet) != "" {
		sheet, err := css.NewParser().ParseString(options.Stylesheet)
		if err != nil {
			logger.Warn("Failed to parse stylesheet", "err", err)
		} else {
			styles.AddStylesheet(sheet)
		}
	}
	layoutEngine := layout.NewEngine(styles)
	layoutEngine.Debug = options.Debug
	layoutEngine.SetLogger(logger)

	e := &Editor{
		options:  options,
		logger:   logger,
		loader:   loader,
		parser:   html.NewParser(),
		registry: blocks.NewRegistry(),
		probe: geometry.NewLayoutProbe(layoutEngine, geometry.PageGeometry{
			Width:  options.PageWidth,
			Height: options.PageHeight,
			Padding: geometry.Padding{
				Top:    options.PaddingTop,
				Right:  options.PaddingRight,
				Bottom: options.PaddingBottom,
				Left:   options.PaddingLeft,
			},
		}),
	}

	var frames pagination.Frames
	if options.FrameInterval > 0 {
		frames = pagination.TimerFrames{Interval: options.FrameInterval}
	} else {
		e.frames = &pagination.ManualFrames{}
		frames = e.frames
	}
	e.engine = pagination.NewEngine(e.probe, e.registry, frames)
	e.engine.SetOptions(pagination.Options{Epsilon: options.Epsilon, Logger: logger, Lock: &e.mu})
	e.engine.OnPass(e.passDone)

	e.reorder = reorder.NewController(e.probe, e.engine)
	e.reorder.SetLogger(logger)
	e.resizer = figure.NewResizer(e.probe)
	e.rehydrator = rehydrate.NewService(e.registry, e.engine)

	e.exporter = pdf.NewExporter(e.probe, loader)
	e.exporter.SetLogger(logger)
	e.exporter.RenderBackgrounds = options.RenderBackgrounds
	e.exporter.RenderBorders = options.RenderBorders
	e.exporter.DebugDrawBoxes = options.DebugDrawBoxes

	e.registry.SetHooks(e.hooks())

	e.doc = doc.New()
	if options.Title != "" {
		e.doc.Title = options.Title
	}
	e.registry.NewPage(e.doc, 0)
	return e
}

// hooks wires block and page events to the editor's subsystems. They run
// from Dispatch with the lock held.
func (e *Editor) hooks() blocks.Hooks {
	return blocks.Hooks{
		OnDelete: e.deleteBlock,
		OnDragStart: func(b *doc.Block) {
			if err := e.reorder.Begin(b); err != nil {
				e.logger.Warn("Drag not started", "block", b.ID, "err", err)
			}
		},
		OnDragEnd: func(b *doc.Block) {
			if e.reorder.State() != reorder.Idle {
				e.reorder.Cancel()
			}
		},
		OnInput: func(b *doc.Block) {
			e.engine.RequestPagination(b.Page())
		},
		OnCaptionBlur: func(b *doc.Block) {
			if _, err := e.commitCaption(b); err != nil {
				e.logger.Warn("Caption not committed", "block", b.ID, "err", err)
			}
		},
		OnResize: func(b *doc.Block, s doc.Signal) {
			var err error
			if e.resizer.Active() {
				_, err = e.resizer.Drag(s.X)
			} else {
				err = e.resizer.Begin(b, s.X)
			}
			if err != nil {
				e.logger.Warn("Resize ignored", "block", b.ID, "err", err)
			}
		},
		OnDragOver: func(p *doc.Page, s doc.Signal) {
			if err := e.reorder.Preview(p, s.Y); err != nil {
				e.logger.Debug("Drag over ignored", "page", p.Number, "err", err)
			}
		},
		OnDrop: func(p *doc.Page, s doc.Signal) {
			if _, err := e.reorder.Drop(p); err != nil {
				e.logger.Warn("Drop ignored", "page", p.Number, "err", err)
			}
		},
	}
}

func (e *Editor) passDone(r pagination.Result) {
	if r.Changed() || r.Skipped > 0 {
		e.logger.Debug("Pagination pass",
			"created", r.PagesCreated,
			"moved", r.BlocksMoved,
			"splits", r.Splits,
			"accepted", r.AcceptedOverflows,
			"skipped", r.Skipped,
		)
	}
}

// Options returns the options the editor was created with.
func (e *Editor) Options() Options {
	return e.options
}

// Document returns the current document. It must only be read while no
// other goroutine uses the editor.
func (e *Editor) Document() *doc.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// PageCount returns the number of pages.
func (e *Editor) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.doc.Pages)
}

// Title returns the document title.
func (e *Editor) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Title
}

// SetTitle renames the document. An empty title restores the default.
func (e *Editor) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.TrimSpace(title) == "" {
		title = doc.DefaultTitle
	}
	e.doc.Title = title
}

// FileName is the name Save output is meant to be stored under.
func (e *Editor) FileName() string {
	return e.Title() + ".html"
}

// Palette lists the block kinds that can be inserted.
func (e *Editor) Palette() []blocks.KindInfo {
	return e.registry.Palette()
}

// Flush runs the pagination frame scheduled so far and returns the number
// of passes that ran. With a frame interval set, passes run on their own
// timer and Flush returns 0.
func (e *Editor) Flush() int {
	if e.frames == nil {
		return 0
	}
	return e.frames.Tick()
}

// Reflow runs a full synchronous pass over every page.
func (e *Editor) Reflow() pagination.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.PaginateAll(e.doc)
}

// Load replaces the document with the one read from r. The loaded
// document is paginated before Load returns; the title is kept.
func (e *Editor) Load(ctx context.Context, r io.Reader) (rehydrate.Report, error) {
	ctx = log.WithContext(ctx, e.logger)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reorder.State() != reorder.Idle {
		e.reorder.Cancel()
	}
	if e.resizer.Active() {
		e.resizer.End()
	}
	d, rep, err := e.rehydrator.Load(ctx, r)
	if err != nil {
		return rep, err
	}
	d.Title = e.doc.Title
	e.engine.Forget(e.doc)
	e.doc = d
	return rep, nil
}

// Save writes the document markup to w.
func (e *Editor) Save(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.WriteDocument(w, e.doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Dispatch delivers a signal to the block or page with the given id and
// reports whether a handler ran.
func (e *Editor) Dispatch(id string, s doc.Signal) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b := e.doc.FindBlock(id); b != nil {
		return b.Handlers.Fire(s), nil
	}
	if p := e.doc.FindPage(id); p != nil {
		return p.Handlers.Fire(s), nil
	}
	return false, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (e *Editor) page(id string) (*doc.Page, error) {
	if id == "" {
		return e.doc.Pages[len(e.doc.Pages)-1], nil
	}
	p := e.doc.FindPage(id)
	if p == nil {
		return nil, fmt.Errorf("%w: page %s", ErrNotFound, id)
	}
	return p, nil
}

func (e *Editor) block(id string) (*doc.Block, error) {
	b := e.doc.FindBlock(id)
	if b == nil {
		return nil, fmt.Errorf("%w: block %s", ErrNotFound, id)
	}
	return b, nil
}

// Insert creates a block from d and places it at index at of the page
// with pageID. An empty pageID names the last page; a negative index
// appends.
func (e *Editor) Insert(pageID string, at int, d blocks.Descriptor) (*doc.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.page(pageID)
	if err != nil {
		return nil, err
	}
	b, err := e.registry.CreateFromDescriptor(d)
	if err != nil {
		return nil, err
	}
	if at < 0 {
		at = len(p.Blocks)
	}
	p.Insert(at, b)
	if b.Kind == doc.KindFigure {
		figure.Renumber(e.doc)
	}
	e.engine.RequestPagination(p)
	return b, nil
}

// Append adds a block at the end of the last page.
func (e *Editor) Append(d blocks.Descriptor) (*doc.Block, error) {
	return e.Insert("", -1, d)
}

// EditContent replaces the editable content of a block with markup, as
// typing would.
func (e *Editor) EditContent(id, markup string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.block(id)
	if err != nil {
		return err
	}
	frag, err := e.parser.ParseString(markup)
	if err != nil {
		return fmt.Errorf("failed to parse content: %w", err)
	}
	html.RemoveChildren(b.Content)
	html.MoveChildren(frag.Root, b.Content)
	if !b.Handlers.Fire(doc.Signal{Event: doc.EventInput}) {
		e.engine.RequestPagination(b.Page())
	}
	return nil
}

// DeleteBlock removes a block from the document.
func (e *Editor) DeleteBlock(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.block(id)
	if err != nil {
		return err
	}
	e.deleteBlock(b)
	return nil
}

func (e *Editor) deleteBlock(b *doc.Block) {
	p := b.Page()
	if p == nil {
		return
	}
	if e.reorder.Dragged() == b {
		if origin := e.reorder.Abort(); origin != p {
			e.engine.RequestPagination(origin)
		}
	}
	if e.resizer.Block() == b {
		e.resizer.End()
	}
	p.Remove(b)
	b.Handlers.DetachAll()
	if b.Kind == doc.KindFigure {
		figure.Renumber(e.doc)
	}
	e.engine.RequestPagination(p)
}

// AddPageTop inserts an empty page before the first one.
func (e *Editor) AddPageTop() *doc.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NewPage(e.doc, 0)
}

// AddPageBottom appends an empty page.
func (e *Editor) AddPageBottom() *doc.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NewPage(e.doc, len(e.doc.Pages))
}

// RemovePage deletes a page and the blocks on it.
func (e *Editor) RemovePage(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.doc.FindPage(id)
	if p == nil {
		return fmt.Errorf("%w: page %s", ErrNotFound, id)
	}
	if len(e.doc.Pages) == 1 {
		return ErrLastPage
	}
	e.doc.RemovePage(p)
	figure.Renumber(e.doc)
	return nil
}

func acquire(ctx context.Context, src figure.Source) (figure.Payload, error) {
	select {
	case a := <-figure.Acquire(ctx, src):
		if a.Err != nil {
			return figure.Payload{}, fmt.Errorf("failed to acquire image: %w", a.Err)
		}
		return a.Payload, nil
	case <-ctx.Done():
		return figure.Payload{}, ctx.Err()
	}
}

// PasteImage acquires an image from src and appends a populated figure to
// the page with pageID (the last page when empty). The editor is not
// locked while the image is acquired.
func (e *Editor) PasteImage(ctx context.Context, pageID string, src figure.Source) (*doc.Block, error) {
	payload, err := acquire(ctx, src)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.page(pageID)
	if err != nil {
		return nil, err
	}
	b, err := e.registry.Create(doc.KindFigure, "")
	if err != nil {
		return nil, err
	}
	if err := figure.Populate(b, payload); err != nil {
		return nil, err
	}
	e.registry.Wire(b)
	p.Append(b)
	figure.Renumber(e.doc)
	e.engine.RequestPagination(p)
	return b, nil
}

// PopulateFigure fills an empty figure with an image acquired from src.
func (e *Editor) PopulateFigure(ctx context.Context, id string, src figure.Source) error {
	payload, err := acquire(ctx, src)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.block(id)
	if err != nil {
		return err
	}
	if err := figure.Populate(b, payload); err != nil {
		return err
	}
	e.registry.Wire(b)
	figure.Renumber(e.doc)
	e.engine.RequestPagination(b.Page())
	return nil
}

// LoadImage is a figure source reading url through the editor's resource
// loader.
func (e *Editor) LoadImage(url string) figure.Source {
	return figure.LoaderSource{Loader: e.loader, URL: url}
}

// CommitCaption records the user text of a figure's caption and renumbers
// every caption. It returns the stored user text.
func (e *Editor) CommitCaption(id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.block(id)
	if err != nil {
		return "", err
	}
	return e.commitCaption(b)
}

func (e *Editor) commitCaption(b *doc.Block) (string, error) {
	user, err := figure.CommitCaption(b)
	if err != nil {
		return "", err
	}
	figure.Renumber(e.doc)
	e.engine.RequestPagination(b.Page())
	return user, nil
}

// BeginResize starts resizing a populated figure at pointer x.
func (e *Editor) BeginResize(id string, x float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.block(id)
	if err != nil {
		return err
	}
	return e.resizer.Begin(b, x)
}

// ResizeTo moves the resize pointer to x and returns the stored width
// percentage.
func (e *Editor) ResizeTo(x float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resizer.Drag(x)
}

// EndResize finishes the resize gesture and repaginates the figure's page.
func (e *Editor) EndResize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.resizer.End()
	if err != nil {
		return err
	}
	e.engine.RequestPagination(b.Page())
	return nil
}

// BeginDrag starts a reorder gesture on a block.
func (e *Editor) BeginDrag(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.block(id)
	if err != nil {
		return err
	}
	return e.reorder.Begin(b)
}

// DragOver previews the dragged block on a page at pointer height y.
func (e *Editor) DragOver(pageID string, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.page(pageID)
	if err != nil {
		return err
	}
	return e.reorder.Preview(p, y)
}

// Drop commits the reorder gesture on a page.
func (e *Editor) Drop(pageID string) (reorder.Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.page(pageID)
	if err != nil {
		return reorder.Move{}, err
	}
	return e.reorder.Drop(p)
}

// CancelDrag reverts the reorder gesture.
func (e *Editor) CancelDrag() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reorder.Cancel()
}

// ApplyCommand runs a text command on host for the block with focusID
// (none when empty) and repaginates the focused page.
func (e *Editor) ApplyCommand(host commands.Host, name, focusID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var focus *doc.Block
	if focusID != "" {
		b, err := e.block(focusID)
		if err != nil {
			return err
		}
		focus = b
	}
	if err := commands.Apply(host, name, focus); err != nil {
		return err
	}
	if focus != nil {
		e.engine.RequestPagination(focus.Page())
	}
	return nil
}

// Import reads a file with the importer chosen by its extension and
// appends its blocks to the last page. It returns the number of blocks
// added.
func (e *Editor) Import(r io.Reader, filename string) (int, error) {
	imp, err := importer.ForFile(filename)
	if err != nil {
		return 0, err
	}
	return e.importWith(imp, r, filename)
}

// ImportFormat is Import with the format named explicitly (md, docx, pdf,
// html or txt).
func (e *Editor) ImportFormat(r io.Reader, format, filename string) (int, error) {
	imp, err := importer.ForFormat(format)
	if err != nil {
		return 0, err
	}
	return e.importWith(imp, r, filename)
}

func (e *Editor) importWith(imp importer.Importer, r io.Reader, filename string) (int, error) {
	result, err := imp.Import(r, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", filename, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc.Title == doc.DefaultTitle && result.Title != "" {
		e.doc.Title = result.Title
	}
	last := e.doc.Pages[len(e.doc.Pages)-1]
	added := 0
	for _, d := range result.Blocks {
		b, err := e.registry.CreateFromDescriptor(d)
		if err != nil {
			e.logger.Warn("Skipping imported block", "kind", d.Kind, "err", err)
			continue
		}
		last.Append(b)
		added++
	}
	pass := e.engine.CheckAndPaginate(last)
	e.logger.Debug("Imported", "file", filename, "blocks", added, "pages", len(e.doc.Pages), "created", pass.PagesCreated)
	return added, nil
}

// ExportPDF renders the document to w as PDF, one PDF page per page.
func (e *Editor) ExportPDF(ctx context.Context, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := pdf.DefaultOptions()
	opts.Title = e.doc.Title
	opts.Author = e.options.Author
	opts.Subject = e.options.Subject
	opts.Keywords = e.options.Keywords
	opts.PageNumbers = e.options.PageNumbers
	if err := e.exporter.Export(ctx, e.doc, w, opts); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
