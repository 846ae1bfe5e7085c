package pagination

import (
	"sync"
	"time"
)

// Frames schedules a callback for the next rendering frame.
type Frames interface {
	Request(fn func())
}

// ManualFrames runs callbacks only when Tick is called. Tests and batch
// tools use it to decide exactly when a frame boundary happens.
type ManualFrames struct {
	mu    sync.Mutex
	queue []func()
}

// Request implements Frames.
func (m *ManualFrames) Request(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Pending returns the number of scheduled callbacks.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Tick runs the callbacks scheduled so far and returns how many ran.
// Callbacks scheduled while ticking wait for the next Tick.
func (m *ManualFrames) Tick() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

// TimerFrames runs each callback after a fixed frame interval.
type TimerFrames struct {
	Interval time.Duration
}

// DefaultFrameInterval approximates one frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Request implements Frames.
func (t TimerFrames) Request(fn func()) {
	d := t.Interval
	if d <= 0 {
		d = DefaultFrameInterval
	}
	time.AfterFunc(d, fn)
}
