// Package pagedit keeps block documents split into fixed-size pages and
// reflows them after every edit.
package pagedit

import (
	"github.com/gompdf/pagedit/internal/blocks"
	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/pkg/api"
)

type (
	Editor     = api.Editor
	Options    = api.Options
	Option     = api.Option
	Descriptor = blocks.Descriptor
	Kind       = doc.Kind
)

// Block kinds offered by the palette.
const (
	KindHeading   = doc.KindHeading
	KindTitle     = doc.KindTitle
	KindSubtitle  = doc.KindSubtitle
	KindParagraph = doc.KindParagraph
	KindCode      = doc.KindCode
	KindNote      = doc.KindNote
	KindWarning   = doc.KindWarning
	KindFigure    = doc.KindFigure
)

func New(opts ...Option) *Editor             { return api.New(opts...) }
func NewWithOptions(options Options) *Editor { return api.NewWithOptions(options) }
func DefaultOptions() Options                { return api.DefaultOptions() }

var (
	ErrNotFound = api.ErrNotFound
	ErrLastPage = api.ErrLastPage
)

var (
	WithPageSize       = api.WithPageSize
	WithPadding        = api.WithPadding
	WithPageSizeA4     = api.WithPageSizeA4
	WithPageSizeLetter = api.WithPageSizeLetter
	WithEpsilon        = api.WithEpsilon
	WithFrameInterval  = api.WithFrameInterval
	WithDebug          = api.WithDebug
	WithPageNumbers    = api.WithPageNumbers
	WithDebugDrawBoxes = api.WithDebugDrawBoxes
	WithBaseURL        = api.WithBaseURL
	WithResourcePath   = api.WithResourcePath
	WithDataURLsOnly   = api.WithDataURLsOnly
	WithTitle          = api.WithTitle
	WithAuthor         = api.WithAuthor
	WithSubject        = api.WithSubject
	WithKeywords       = api.WithKeywords
	WithStylesheet     = api.WithStylesheet
	WithLogger         = api.WithLogger
)

const (
	PageSizeA4Width      = api.PageSizeA4Width
	PageSizeA4Height     = api.PageSizeA4Height
	PageSizeLetterWidth  = api.PageSizeLetterWidth
	PageSizeLetterHeight = api.PageSizeLetterHeight
)
