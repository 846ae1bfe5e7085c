// Package commands passes formatting commands through to the host's rich
// text engine after checking that they apply to the focused block.
package commands

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gompdf/pagedit/internal/doc"
)

var (
	// ErrUnknownCommand is returned for names outside the supported set.
	ErrUnknownCommand = errors.New("unknown text command")
	// ErrNotApplicable is returned when a command does not apply to the
	// focused block.
	ErrNotApplicable = errors.New("text command not applicable here")
)

const (
	Bold                = "bold"
	Italic              = "italic"
	Underline           = "underline"
	JustifyLeft         = "justifyLeft"
	JustifyCenter       = "justifyCenter"
	JustifyRight        = "justifyRight"
	JustifyFull         = "justifyFull"
	InsertOrderedList   = "insertOrderedList"
	InsertUnorderedList = "insertUnorderedList"
)

var known = map[string]bool{
	Bold: true, Italic: true, Underline: true,
	JustifyLeft: true, JustifyCenter: true, JustifyRight: true, JustifyFull: true,
	InsertOrderedList: true, InsertUnorderedList: true,
}

// Names lists the supported commands.
func Names() []string {
	return []string{
		Bold, Italic, Underline,
		JustifyLeft, JustifyCenter, JustifyRight, JustifyFull,
		InsertOrderedList, InsertUnorderedList,
	}
}

// Host executes a command in the native text engine.
type Host interface {
	Exec(name string) error
}

// HostFunc adapts a function to Host.
type HostFunc func(name string) error

// Exec implements Host.
func (f HostFunc) Exec(name string) error { return f(name) }

// IsList reports whether name creates a list.
func IsList(name string) bool {
	return name == InsertOrderedList || name == InsertUnorderedList
}

// Apply runs name on host for the block holding focus. List commands only
// apply inside paragraph blocks.
func Apply(host Host, name string, focus *doc.Block) error {
	if !known[name] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if IsList(name) && (focus == nil || focus.Kind != doc.KindParagraph) {
		return fmt.Errorf("%w: %s outside a paragraph", ErrNotApplicable, name)
	}
	if err := host.Exec(name); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

// Recorder is a Host that records every executed command.
type Recorder struct {
	mu  sync.Mutex
	log []string
}

// Exec implements Host.
func (r *Recorder) Exec(name string) error {
	r.mu.Lock()
	r.log = append(r.log, name)
	r.mu.Unlock()
	return nil
}

// Executed returns the commands run so far.
func (r *Recorder) Executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}
