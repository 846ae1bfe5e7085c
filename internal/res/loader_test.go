package res

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantMime string
		wantData string
		wantType ResourceType
	}{
		{"base64 png", "data:image/png;base64,aGVsbG8=", "image/png", "hello", ResourceTypeImage},
		{"escaped text", "data:text/css,p%20%7B%7D", "text/css", "p {}", ResourceTypeCSS},
		{"no mime", "data:,raw", "application/octet-stream", "raw", ResourceTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDataURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, r.MimeType)
			assert.Equal(t, tt.wantData, r.GetString())
			assert.Equal(t, tt.wantType, r.Type)
		})
	}

	_, err := ParseDataURL("data:image/png;base64")
	assert.Error(t, err)
	_, err = ParseDataURL("http://example.com")
	assert.Error(t, err)
}

func TestDataURLRoundTrip(t *testing.T) {
	u := DataURL("image/gif", []byte{1, 2, 3})
	r, err := ParseDataURL(u)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, r.Data)
}

func TestLoadLocalAndSearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.css"), []byte("p{}"), 0o644))

	l := NewLoader("")
	r, err := l.LoadCSS(context.Background(), filepath.Join(dir, "a.css"))
	require.NoError(t, err)
	assert.Equal(t, "p{}", r.GetString())

	l.AddSearchPath(dir)
	r, err = l.Load(context.Background(), "missing/a.css")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeCSS, r.Type)

	_, err = l.Load(context.Background(), "nowhere.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadRemoteCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	l := NewLoader("")
	for i := 0; i < 2; i++ {
		r, err := l.LoadImage(context.Background(), srv.URL+"/x")
		require.NoError(t, err)
		assert.Equal(t, "image/png", r.MimeType)
	}
	assert.Equal(t, 1, hits)
}

func TestLoadImageRejectsOtherTypes(t *testing.T) {
	l := NewLoader("")
	_, err := l.LoadImage(context.Background(), "data:text/plain,hi")
	assert.Error(t, err)
}

func TestRestrictToDataURLs(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "secret.png")
	require.NoError(t, os.WriteFile(file, []byte("png"), 0o644))

	l := NewLoader("")
	l.RestrictToDataURLs()

	_, err := l.Load(context.Background(), srv.URL+"/x.png")
	assert.ErrorIs(t, err, ErrDisallowed)
	_, err = l.Load(context.Background(), file)
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.Zero(t, hits)

	r, err := l.LoadImage(context.Background(), DataURL("image/png", []byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "png", r.GetString())
}
