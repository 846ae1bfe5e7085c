// Package config loads pagedit settings from an optional TOML file and
// PAGEDIT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gompdf/pagedit/pkg/api"
)

// Page sizes accepted in [page].size.
const (
	SizeA4     = "a4"
	SizeLetter = "letter"
	SizeCustom = "custom"
)

type Config struct {
	Debug bool `toml:"debug"`

	Page       Page       `toml:"page"`
	Pagination Pagination `toml:"pagination"`
	Resources  Resources  `toml:"resources"`
	Export     Export     `toml:"export"`
	Server     Server     `toml:"server"`
	Store      Store      `toml:"store"`
}

type Page struct {
	Size string `toml:"size"`
	// Width and Height are read only for the custom size.
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	// Padding overrides the size's padding on all four sides when positive.
	Padding float64 `toml:"padding"`
}

type Pagination struct {
	Epsilon float64 `toml:"epsilon"`
	// FrameInterval of zero paginates only on explicit flushes.
	FrameInterval time.Duration `toml:"frame_interval"`
}

type Resources struct {
	BaseURL string   `toml:"base_url"`
	Paths   []string `toml:"paths"`
	// Stylesheet is a CSS file added after the built-in block styles.
	Stylesheet string `toml:"stylesheet"`
}

type Export struct {
	Author      string `toml:"author"`
	PageNumbers bool   `toml:"page_numbers"`
	Backgrounds bool   `toml:"backgrounds"`
	Borders     bool   `toml:"borders"`
}

type Server struct {
	Addr           string `toml:"addr"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

type Store struct {
	Dir string `toml:"dir"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Page:       Page{Size: SizeA4},
		Pagination: Pagination{Epsilon: 2},
		Export:     Export{PageNumbers: true, Backgrounds: true, Borders: true},
		Server:     Server{Addr: ":8080", MaxUploadBytes: 20 << 20},
		Store:      Store{Dir: "documents"},
	}
}

// Load reads path (skipped when empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if cfg.Pagination.Epsilon <= 0 {
		cfg.Pagination.Epsilon = 2
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 20 << 20
	}
	cfg.Page.Size = strings.ToLower(strings.TrimSpace(cfg.Page.Size))
	if cfg.Page.Size == "" {
		cfg.Page.Size = SizeA4
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Debug = envBool("PAGEDIT_DEBUG", c.Debug)

	c.Page.Size = envOr("PAGEDIT_PAGE_SIZE", c.Page.Size)
	c.Page.Width = envFloat("PAGEDIT_PAGE_WIDTH", c.Page.Width)
	c.Page.Height = envFloat("PAGEDIT_PAGE_HEIGHT", c.Page.Height)
	c.Page.Padding = envFloat("PAGEDIT_PAGE_PADDING", c.Page.Padding)

	c.Pagination.Epsilon = envFloat("PAGEDIT_EPSILON", c.Pagination.Epsilon)
	c.Pagination.FrameInterval = envDuration("PAGEDIT_FRAME_INTERVAL", c.Pagination.FrameInterval)

	c.Resources.BaseURL = envOr("PAGEDIT_BASE_URL", c.Resources.BaseURL)
	c.Resources.Paths = envList("PAGEDIT_RESOURCE_PATHS", c.Resources.Paths)
	c.Resources.Stylesheet = envOr("PAGEDIT_STYLESHEET", c.Resources.Stylesheet)

	c.Export.Author = envOr("PAGEDIT_AUTHOR", c.Export.Author)
	c.Export.PageNumbers = envBool("PAGEDIT_PAGE_NUMBERS", c.Export.PageNumbers)

	c.Server.Addr = envOr("PAGEDIT_ADDR", c.Server.Addr)
	c.Server.MaxUploadBytes = envInt64("PAGEDIT_MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)

	c.Store.Dir = envOr("PAGEDIT_STORE_DIR", c.Store.Dir)
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Page.Size {
	case SizeA4, SizeLetter:
	case SizeCustom:
		if c.Page.Width <= 0 || c.Page.Height <= 0 {
			return fmt.Errorf("custom page size needs positive width and height")
		}
	default:
		return fmt.Errorf("unknown page size %q", c.Page.Size)
	}
	w, h, pad := c.pageBox()
	if pad < 0 || 2*pad >= w || 2*pad >= h {
		return fmt.Errorf("page padding %.0f does not fit a %.0fx%.0f page", pad, w, h)
	}
	if c.Pagination.FrameInterval < 0 {
		return fmt.Errorf("frame interval must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store directory is required")
	}
	return nil
}

// pageBox resolves the configured size to width, height and padding.
func (c Config) pageBox() (w, h, pad float64) {
	switch c.Page.Size {
	case SizeLetter:
		w, h, pad = api.PageSizeLetterWidth, api.PageSizeLetterHeight, api.PageSizeLetterPad
	case SizeCustom:
		w, h, pad = c.Page.Width, c.Page.Height, api.PageSizeA4Padding
	default:
		w, h, pad = api.PageSizeA4Width, api.PageSizeA4Height, api.PageSizeA4Padding
	}
	if c.Page.Padding > 0 {
		pad = c.Page.Padding
	}
	return w, h, pad
}

// Options converts the settings to editor options. The stylesheet file is
// read here.
func (c Config) Options() ([]api.Option, error) {
	w, h, pad := c.pageBox()
	opts := []api.Option{
		api.WithPageSize(w, h),
		api.WithPadding(pad, pad, pad, pad),
		api.WithEpsilon(c.Pagination.Epsilon),
		api.WithFrameInterval(c.Pagination.FrameInterval),
		api.WithDebug(c.Debug),
		api.WithAuthor(c.Export.Author),
		api.WithPageNumbers(c.Export.PageNumbers),
		api.WithBaseURL(c.Resources.BaseURL),
		func(o *api.Options) {
			o.RenderBackgrounds = c.Export.Backgrounds
			o.RenderBorders = c.Export.Borders
		},
	}
	for _, p := range c.Resources.Paths {
		opts = append(opts, api.WithResourcePath(p))
	}
	if c.Resources.Stylesheet != "" {
		data, err := os.ReadFile(c.Resources.Stylesheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read stylesheet: %w", err)
		}
		opts = append(opts, api.WithStylesheet(string(data)))
		if c.Resources.BaseURL == "" {
			opts = append(opts, api.WithResourcePath(filepath.Dir(c.Resources.Stylesheet)))
		}
	}
	return opts, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a path-list variable such as PATH.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
