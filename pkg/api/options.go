package api

import (
	"time"

	"github.com/charmbracelet/log"
)

// Options represents configuration options for the editor
type Options struct {
	// Page dimensions in px at 96dpi
	PageWidth  float64
	PageHeight float64

	// Page padding in px
	PaddingTop    float64
	PaddingRight  float64
	PaddingBottom float64
	PaddingLeft   float64

	// Epsilon is the overflow tolerance in px
	Epsilon float64
	// FrameInterval schedules pagination on a timer when positive.
	// When zero, pagination runs only on Flush.
	FrameInterval time.Duration

	Debug bool

	// Visual rendering toggles for PDF export
	RenderBackgrounds bool
	RenderBorders     bool
	DebugDrawBoxes    bool
	PageNumbers       bool

	// Resource resolution for figures
	BaseURL       string
	ResourcePaths []string
	// DataURLsOnly refuses image sources other than data URLs
	DataURLsOnly bool

	// Document metadata
	Title    string
	Author   string
	Subject  string
	Keywords string

	// Stylesheet is CSS added after the built-in block stylesheet
	Stylesheet string

	Logger *log.Logger
}

// Option is a function that modifies Options
type Option func(*Options)

// Standard page sizes in px at 96dpi
const (
	PageSizeA4Width      = 794
	PageSizeA4Height     = 1123
	PageSizeA4Padding    = 76
	PageSizeLetterWidth  = 816
	PageSizeLetterHeight = 1056
	PageSizeLetterPad    = 96
)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		PageWidth:     PageSizeA4Width,
		PageHeight:    PageSizeA4Height,
		PaddingTop:    PageSizeA4Padding,
		PaddingRight:  PageSizeA4Padding,
		PaddingBottom: PageSizeA4Padding,
		PaddingLeft:   PageSizeA4Padding,

		Epsilon: 2,

		RenderBackgrounds: true,
		RenderBorders:     true,
		PageNumbers:       true,

		ResourcePaths: []string{},
	}
}

// WithPageSize sets the page size
func WithPageSize(width, height float64) Option {
	return func(o *Options) {
		o.PageWidth = width
		o.PageHeight = height
	}
}

// WithPadding sets the page padding
func WithPadding(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.PaddingTop = top
		o.PaddingRight = right
		o.PaddingBottom = bottom
		o.PaddingLeft = left
	}
}

// WithPageSizeA4 sets an A4 page with 20mm padding
func WithPageSizeA4() Option {
	return func(o *Options) {
		WithPageSize(PageSizeA4Width, PageSizeA4Height)(o)
		WithPadding(PageSizeA4Padding, PageSizeA4Padding, PageSizeA4Padding, PageSizeA4Padding)(o)
	}
}

// WithPageSizeLetter sets a US Letter page with 1in padding
func WithPageSizeLetter() Option {
	return func(o *Options) {
		WithPageSize(PageSizeLetterWidth, PageSizeLetterHeight)(o)
		WithPadding(PageSizeLetterPad, PageSizeLetterPad, PageSizeLetterPad, PageSizeLetterPad)(o)
	}
}

// WithEpsilon sets the overflow tolerance
func WithEpsilon(eps float64) Option {
	return func(o *Options) {
		o.Epsilon = eps
	}
}

// WithFrameInterval runs pagination on a timer instead of on Flush
func WithFrameInterval(d time.Duration) Option {
	return func(o *Options) {
		o.FrameInterval = d
	}
}

// WithDebug sets the debug mode
func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}

// WithPageNumbers toggles page numbers in exported PDFs
func WithPageNumbers(on bool) Option {
	return func(o *Options) {
		o.PageNumbers = on
	}
}

// WithDebugDrawBoxes outlines every block box in exported PDFs
func WithDebugDrawBoxes(on bool) Option {
	return func(o *Options) {
		o.DebugDrawBoxes = on
	}
}

// WithBaseURL sets the base for relative image references
func WithBaseURL(u string) Option {
	return func(o *Options) {
		o.BaseURL = u
	}
}

// WithResourcePath adds a path to search for resources
func WithResourcePath(path string) Option {
	return func(o *Options) {
		o.ResourcePaths = append(o.ResourcePaths, path)
	}
}

// WithDataURLsOnly refuses file and remote image sources
func WithDataURLsOnly() Option {
	return func(o *Options) {
		o.DataURLsOnly = true
	}
}

// WithTitle sets the document title
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithAuthor sets the document author
func WithAuthor(author string) Option {
	return func(o *Options) {
		o.Author = author
	}
}

// WithSubject sets the document subject
func WithSubject(subject string) Option {
	return func(o *Options) {
		o.Subject = subject
	}
}

// WithKeywords sets the document keywords
func WithKeywords(keywords string) Option {
	return func(o *Options) {
		o.Keywords = keywords
	}
}

// WithStylesheet adds CSS after the built-in block stylesheet
func WithStylesheet(css string) Option {
	return func(o *Options) {
		o.Stylesheet = css
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
