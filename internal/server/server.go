// Package server exposes reflow, export, import and document storage
// over HTTP.
package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gompdf/pagedit/internal/store"
	"github.com/gompdf/pagedit/pkg/api"
)

// DefaultMaxUploadBytes bounds request bodies when no limit is given.
const DefaultMaxUploadBytes = 20 << 20

// Server is the HTTP API server for pagedit.
type Server struct {
	router    chi.Router
	store     *store.FileStore
	log       *log.Logger
	options   []api.Option
	maxUpload int64
}

// NewServer creates and configures the HTTP server. Every request works on
// its own editor built from options.
func NewServer(st *store.FileStore, logger *log.Logger, maxUpload int64, options ...api.Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	s := &Server{
		store:     st,
		log:       logger,
		options:   options,
		maxUpload: maxUpload,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(BodyLimit(s.maxUpload))

		r.Get("/palette", s.handlePalette)
		r.Post("/reflow", s.handleReflow)
		r.Post("/export/pdf", s.handleExportPDF)
		r.Post("/import/{format}", s.handleImport)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{name}", s.handleGetDocument)
		r.Put("/documents/{name}", s.handlePutDocument)
		r.Delete("/documents/{name}", s.handleDeleteDocument)
	})

	s.router = r
}

// editor builds a request-scoped editor. Passes run synchronously inside
// Load and Import, so no frame timer is needed. Posted markup may only
// embed images as data URLs.
func (s *Server) editor(r *http.Request) *api.Editor {
	opts := append([]api.Option(nil), s.options...)
	opts = append(opts, api.WithFrameInterval(0), api.WithLogger(s.log), api.WithDataURLsOnly())
	if title := r.URL.Query().Get("title"); title != "" {
		opts = append(opts, api.WithTitle(title))
	}
	return api.New(opts...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
