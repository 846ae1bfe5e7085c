package doc

import "sort"

// Event names a user interaction a block or page reacts to.
type Event string

const (
	EventDelete    Event = "delete"
	EventDragStart Event = "dragstart"
	EventDragEnd   Event = "dragend"
	EventInput     Event = "input"
	EventBlur      Event = "blur"
	EventResize    Event = "resize"
	EventDragOver  Event = "dragover"
	EventDrop      Event = "drop"
)

// Signal is delivered to a handler. X and Y are pointer coordinates
// relative to the page when the event carries them.
type Signal struct {
	Event Event
	X, Y  float64
}

// Handler reacts to one signal.
type Handler func(Signal)

// Handlers is a table of at most one handler per event. Attaching an event
// that is already present replaces the previous handler, so rewiring never
// stacks duplicates.
type Handlers struct {
	m map[Event]Handler
}

// Attach installs h for ev, replacing any previous handler.
func (h *Handlers) Attach(ev Event, fn Handler) {
	if h.m == nil {
		h.m = make(map[Event]Handler)
	}
	h.m[ev] = fn
}

// Detach removes the handler for ev.
func (h *Handlers) Detach(ev Event) {
	delete(h.m, ev)
}

// DetachAll clears the table.
func (h *Handlers) DetachAll() {
	h.m = nil
}

// Has reports whether ev has a handler.
func (h *Handlers) Has(ev Event) bool {
	_, ok := h.m[ev]
	return ok
}

// Len returns the number of attached handlers.
func (h *Handlers) Len() int {
	return len(h.m)
}

// Events lists the attached events in sorted order.
func (h *Handlers) Events() []Event {
	out := make([]Event, 0, len(h.m))
	for ev := range h.m {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Fire calls the handler for s.Event. It reports whether one ran.
func (h *Handlers) Fire(s Signal) bool {
	fn, ok := h.m[s.Event]
	if !ok {
		return false
	}
	fn(s)
	return true
}
