package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedit/pkg/api"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SizeA4, cfg.Page.Size)
	assert.Equal(t, 2.0, cfg.Pagination.Epsilon)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Export.PageNumbers)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "pagedit.toml", `
debug = true

[page]
size = "Letter"
padding = 48

[pagination]
epsilon = 3
frame_interval = "20ms"

[resources]
paths = ["img", "assets"]

[export]
page_numbers = false

[server]
addr = "127.0.0.1:9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Debug)
	assert.Equal(t, SizeLetter, cfg.Page.Size)
	assert.Equal(t, 3.0, cfg.Pagination.Epsilon)
	assert.Equal(t, 20*time.Millisecond, cfg.Pagination.FrameInterval)
	assert.Equal(t, []string{"img", "assets"}, cfg.Resources.Paths)
	assert.False(t, cfg.Export.PageNumbers)
	assert.True(t, cfg.Export.Borders)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "documents", cfg.Store.Dir)

	w, h, pad := cfg.pageBox()
	assert.Equal(t, float64(api.PageSizeLetterWidth), w)
	assert.Equal(t, float64(api.PageSizeLetterHeight), h)
	assert.Equal(t, 48.0, pad)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "pagedit.toml", "[server]\naddr = \":7000\"\n")
	t.Setenv("PAGEDIT_ADDR", ":7001")
	t.Setenv("PAGEDIT_EPSILON", "4.5")
	t.Setenv("PAGEDIT_FRAME_INTERVAL", "5ms")
	t.Setenv("PAGEDIT_DEBUG", "true")
	t.Setenv("PAGEDIT_STORE_DIR", "/tmp/docs")
	t.Setenv("PAGEDIT_RESOURCE_PATHS", "a"+string(os.PathListSeparator)+"b")
	t.Setenv("PAGEDIT_MAX_UPLOAD_BYTES", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.Equal(t, 4.5, cfg.Pagination.Epsilon)
	assert.Equal(t, 5*time.Millisecond, cfg.Pagination.FrameInterval)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/docs", cfg.Store.Dir)
	assert.Equal(t, []string{"a", "b"}, cfg.Resources.Paths)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[page\nsize = 1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown size", func(c *Config) { c.Page.Size = "a3" }},
		{"custom without size", func(c *Config) { c.Page.Size = SizeCustom }},
		{"padding too large", func(c *Config) { c.Page.Padding = 600 }},
		{"negative frame interval", func(c *Config) { c.Pagination.FrameInterval = -time.Second }},
		{"no address", func(c *Config) { c.Server.Addr = "" }},
		{"no store", func(c *Config) { c.Store.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Page = Page{Size: SizeCustom, Width: 500, Height: 700}
	assert.NoError(t, cfg.Validate())
}

func TestOptions(t *testing.T) {
	sheet := writeFile(t, "extra.css", "#title .block-content { color: #ff0000; }")
	cfg := Default()
	cfg.Page = Page{Size: SizeCustom, Width: 500, Height: 700, Padding: 20}
	cfg.Pagination.Epsilon = 1
	cfg.Resources.Stylesheet = sheet
	cfg.Export.Author = "Ana"

	opts, err := cfg.Options()
	require.NoError(t, err)
	o := api.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, 500.0, o.PageWidth)
	assert.Equal(t, 700.0, o.PageHeight)
	assert.Equal(t, 20.0, o.PaddingLeft)
	assert.Equal(t, 1.0, o.Epsilon)
	assert.Equal(t, "Ana", o.Author)
	assert.Contains(t, o.Stylesheet, "#ff0000")
	assert.Contains(t, o.ResourcePaths, filepath.Dir(sheet))

	cfg.Resources.Stylesheet = filepath.Join(t.TempDir(), "missing.css")
	_, err = cfg.Options()
	assert.Error(t, err)
}
