package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gompdf/pagedit/internal/importer"
	"github.com/gompdf/pagedit/internal/rehydrate"
	"github.com/gompdf/pagedit/internal/store"
	"github.com/gompdf/pagedit/pkg/api"
)

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Kind       string `json:"kind"`
		Label      string `json:"label"`
		Splittable bool   `json:"splittable"`
	}
	var out []entry
	for _, k := range s.editor(r).Palette() {
		out = append(out, entry{Kind: string(k.Kind), Label: k.Label, Splittable: k.Splittable})
	}
	writeJSON(w, http.StatusOK, map[string]any{"kinds": out})
}

// load reads the request body into a fresh editor and paginates it.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*api.Editor, rehydrate.Report, bool) {
	e := s.editor(r)
	rep, err := e.Load(r.Context(), r.Body)
	if err != nil {
		s.bodyError(w, "failed to load document", err)
		return nil, rep, false
	}
	return e, rep, true
}

func (s *Server) bodyError(w http.ResponseWriter, msg string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.maxUpload), http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, msg+": "+err.Error(), http.StatusBadRequest)
}

func setReportHeaders(w http.ResponseWriter, rep rehydrate.Report) {
	h := w.Header()
	h.Set("X-Pagedit-Pages", strconv.Itoa(rep.Pages))
	h.Set("X-Pagedit-Blocks", strconv.Itoa(rep.Blocks))
	h.Set("X-Pagedit-Dropped", strconv.Itoa(len(rep.Dropped)))
}

// handleReflow paginates posted markup and returns the reflowed markup.
func (s *Server) handleReflow(w http.ResponseWriter, r *http.Request) {
	e, rep, ok := s.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	setReportHeaders(w, rep)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleExportPDF paginates posted markup and renders it to PDF.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	e, rep, ok := s.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := e.ExportPDF(r.Context(), &buf); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	setReportHeaders(w, rep)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.Title() + ".pdf"}))
	w.Write(buf.Bytes())
}

// handleImport converts an uploaded file to paginated markup. The file is
// either the raw body or the "file" field of a multipart form.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if _, err := importer.ForFormat(format); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body io.Reader = r.Body
	filename := r.URL.Query().Get("filename")
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			s.bodyError(w, "invalid multipart form", err)
			return
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
		if filename == "" {
			filename = header.Filename
		}
	}
	if filename == "" {
		filename = "document." + strings.TrimPrefix(format, ".")
	}

	e := s.editor(r)
	n, err := e.ImportFormat(body, format, filename)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.bodyError(w, "", err)
			return
		}
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Pagedit-Pages", strconv.Itoa(e.PageCount()))
	w.Header().Set("X-Pagedit-Blocks", strconv.Itoa(n))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List()
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": entries})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rc, err := s.store.Load(chi.URLParam(r, "name"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.Copy(w, rc)
}

// handlePutDocument stores posted markup after loading and paginating it,
// so stored documents are always normalized.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if store.Sanitize(name) == "" {
		jsonError(w, "invalid document name", http.StatusBadRequest)
		return
	}
	e, rep, ok := s.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(name, &buf); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   store.Sanitize(name),
		"report": rep,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "name")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidName):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("Store failure", "err", err)
		jsonError(w, "storage failure", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
