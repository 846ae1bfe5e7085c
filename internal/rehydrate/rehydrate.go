// Package rehydrate turns saved markup back into a live, wired and
// paginated document.
package rehydrate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/figure"
	"github.com/gompdf/pagedit/internal/pagination"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// Dropped records a block that could not be loaded.
type Dropped struct {
	Page int    `json:"page"`
	Kind string `json:"kind"`
	Err  string `json:"error"`
}

// Report summarizes a load.
type Report struct {
	Pages      int               `json:"pages"`
	Blocks     int               `json:"blocks"`
	Figures    int               `json:"figures"`
	Normalized int               `json:"normalized"`
	Dropped    []Dropped         `json:"dropped,omitempty"`
	Pagination pagination.Result `json:"pagination"`
}

// Service loads documents.
type Service struct {
	registry *blocks.Registry
	engine   *pagination.Engine
	parser   *html.Parser
}

// NewService creates a service building blocks with registry and settling
// loaded documents with engine.
func NewService(registry *blocks.Registry, engine *pagination.Engine) *Service {
	return &Service{registry: registry, engine: engine, parser: html.NewParser()}
}

// Load parses markup from r. Every page element becomes a page and every
// placed block a wired block; markup without page elements is loaded as a
// single page. Legacy blocks are normalized and unknown kinds dropped.
// Figures are renumbered and every page is paginated before returning.
// The logger is taken from ctx.
func (s *Service) Load(ctx context.Context, r io.Reader) (*doc.Document, Report, error) {
	var rep Report
	logger := log.FromContext(ctx)

	frag, err := s.parser.Parse(r)
	if err != nil {
		return nil, rep, fmt.Errorf("failed to parse document: %w", err)
	}

	d := doc.New()
	pages := html.FindAll(frag.Root, func(n *html.Node) bool { return html.HasClass(n, doc.ClassPage) })
	if len(pages) == 0 {
		pages = []*html.Node{frag.Root}
	}

	for _, pn := range pages {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		p := s.registry.NewPage(d, len(d.Pages))
		if id := html.AttrOr(pn, "data-page-id", ""); id != "" {
			p.ID = id
		}
		for _, n := range html.FindAll(pn, blocks.IsBlockNode) {
			html.Detach(n)
			legacy := blocks.IsLegacy(n)
			b, err := s.registry.Adopt(n)
			if err != nil {
				var unknown *blocks.UnknownKindError
				if !errors.As(err, &unknown) {
					return nil, rep, fmt.Errorf("failed to load block on page %d: %w", p.Number, err)
				}
				rep.Dropped = append(rep.Dropped, Dropped{Page: p.Number, Kind: unknown.Kind, Err: err.Error()})
				logger.Warn("Dropping block of unknown kind", "page", p.Number, "kind", unknown.Kind)
				continue
			}
			if legacy {
				rep.Normalized++
			}
			p.Append(b)
			rep.Blocks++
		}
	}

	figure.Renumber(d)
	rep.Figures = d.State.FigureCount - 1
	rep.Pagination = s.engine.PaginateAll(d)
	rep.Pages = len(d.Pages)

	logger.Debug("Document loaded",
		"pages", rep.Pages,
		"blocks", rep.Blocks,
		"figures", rep.Figures,
		"normalized", rep.Normalized,
		"dropped", len(rep.Dropped),
	)
	return d, rep, nil
}
