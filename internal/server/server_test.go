package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/res"
	"github.com/gompdf/pagedit/internal/store"
)

const onePage = `<div class="page"><div id="paragraph" class="placed-block" contenteditable="false">` +
	`<div class="block-content" contenteditable="true">Hola</div></div></div>`

func newTestServer(t *testing.T, maxUpload int64) *Server {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewServer(st, log.New(io.Discard), maxUpload)
}

func do(s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, 0), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReflow(t *testing.T) {
	s := newTestServer(t, 0)
	var in strings.Builder
	in.WriteString(`<div class="page">`)
	for i := 0; i < 60; i++ {
		in.WriteString(`<div id="paragraph" class="placed-block" contenteditable="false"><div class="block-content" contenteditable="true">`)
		in.WriteString(strings.Repeat("Parrafo de prueba con texto. ", 5))
		in.WriteString(`</div></div>`)
	}
	in.WriteString(`<div id="mystery" class="placed-block">?</div></div>`)

	rec := do(s, http.MethodPost, "/api/reflow", strings.NewReader(in.String()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "60", rec.Header().Get("X-Pagedit-Blocks"))
	assert.Equal(t, "1", rec.Header().Get("X-Pagedit-Dropped"))
	assert.NotEqual(t, "1", rec.Header().Get("X-Pagedit-Pages"))
	assert.Greater(t, strings.Count(rec.Body.String(), `class="page"`), 1)
	assert.NotContains(t, rec.Body.String(), doc.ClassDelete)
}

func TestExportPDF(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodPost, "/api/export/pdf?title=informe", strings.NewReader(onePage))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "informe.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestImport(t *testing.T) {
	s := newTestServer(t, 0)

	rec := do(s, http.MethodPost, "/api/import/md", strings.NewReader("# Titulo\n\nTexto.\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Pagedit-Blocks"))
	assert.Contains(t, rec.Body.String(), `id="title"`)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notas.txt")
	require.NoError(t, err)
	fw.Write([]byte("uno\n\ndos\n"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/import/txt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Pagedit-Blocks"))

	rec = do(s, http.MethodPost, "/api/import/csv", strings.NewReader("a,b"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, 64)
	rec := do(s, http.MethodPost, "/api/reflow", strings.NewReader(strings.Repeat("x", 1024)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDocumentStore(t *testing.T) {
	s := newTestServer(t, 0)

	rec := do(s, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documents":[]}`, rec.Body.String())

	rec = do(s, http.MethodPut, "/api/documents/informe", strings.NewReader(onePage))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var put struct {
		Name   string `json:"name"`
		Report struct {
			Pages  int `json:"pages"`
			Blocks int `json:"blocks"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &put))
	assert.Equal(t, "informe", put.Name)
	assert.Equal(t, 1, put.Report.Pages)
	assert.Equal(t, 1, put.Report.Blocks)

	rec = do(s, http.MethodGet, "/api/documents/informe", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hola")
	assert.Contains(t, rec.Body.String(), `class="page"`)

	rec = do(s, http.MethodGet, "/api/documents", nil)
	var list struct {
		Documents []store.Entry `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "informe", list.Documents[0].Name)

	rec = do(s, http.MethodDelete, "/api/documents/informe", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(s, http.MethodGet, "/api/documents/informe", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(s, http.MethodDelete, "/api/documents/informe", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPalette(t *testing.T) {
	rec := do(newTestServer(t, 0), http.MethodGet, "/api/palette", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"paragraph"`)
}

func figurePage(src string) string {
	return `<div class="page"><div id="figure" class="figure-block placed-block" contenteditable="false">` +
		`<div class="figure-img-wrapper"><img src="` + src + `" width="4" height="3"></div>` +
		`<div class="figure-caption" contenteditable="true">Figura 1. Logo</div></div></div>`
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func TestExportPDFOnlyEmbedsDataURLs(t *testing.T) {
	data := pngData(t)
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer internal.Close()

	secret := filepath.Join(t.TempDir(), "secret.png")
	require.NoError(t, os.WriteFile(secret, data, 0o644))

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	var logs bytes.Buffer
	s := NewServer(st, log.New(&logs), 0)

	for _, src := range []string{internal.URL + "/logo.png", secret} {
		rec := do(s, http.MethodPost, "/api/export/pdf", strings.NewReader(figurePage(src)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "/Subtype /Image")
	}
	assert.Zero(t, hits.Load())
	assert.Contains(t, logs.String(), res.ErrDisallowed.Error())

	rec := do(s, http.MethodPost, "/api/export/pdf", strings.NewReader(figurePage(res.DataURL("image/png", data))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "/Subtype /Image")
}

func TestExportPDFEncodesNonASCIIFilename(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodPost, "/api/export/pdf?title="+url.QueryEscape("Título"), strings.NewReader(onePage))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "Título.pdf", params["filename"])
}
