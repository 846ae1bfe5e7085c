package figure

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gompdf/pagedit/internal/doc"
	"github.com/gompdf/pagedit/internal/parser/html"
)

// DefaultCaption is used when a figure has no user caption.
const DefaultCaption = "Descripción de la figura."

var captionDelimiter = regexp.MustCompile(`\.\s+`)

// CaptionText renders the caption for an ordinal and user text.
func CaptionText(ordinal int, userText string) string {
	if userText == "" {
		userText = DefaultCaption
	}
	return fmt.Sprintf("Figura %d. %s", ordinal, userText)
}

// SplitCaption returns the text after the first period followed by
// whitespace, or "" when there is none.
func SplitCaption(text string) string {
	loc := captionDelimiter.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(text[loc[1]:])
}

// CommitCaption records the user part of a figure's edited caption. It is
// called when the caption loses focus and returns the stored text.
func CommitCaption(b *doc.Block) (string, error) {
	if b.Kind != doc.KindFigure || b.Figure == nil || b.Content == nil {
		return "", ErrNotFigure
	}
	user := SplitCaption(strings.TrimSpace(html.TextContent(b.Content)))
	b.Figure.UserText = user
	b.Figure.HasUserText = true
	return user, nil
}

// Renumber rewrites every caption in document order so the i-th figure
// reads "Figura i." followed by its user text. It resets the document's
// figure counter and reports whether any caption changed.
func Renumber(d *doc.Document) bool {
	changed := false
	figures := d.Figures()
	for i, b := range figures {
		if b.Figure == nil || b.Content == nil {
			continue
		}
		ordinal := i + 1
		text := CaptionText(ordinal, b.Figure.UserText)
		if b.Figure.Ordinal != ordinal || html.TextContent(b.Content) != text {
			changed = true
		}
		b.Figure.Ordinal = ordinal
		html.SetText(b.Content, text)
	}
	d.State.FigureCount = len(figures) + 1
	return changed
}
