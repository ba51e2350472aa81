package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the per-path suppression window.
const DefaultDebounceWindow = 30 * time.Second

// Debouncer suppresses repeated changes to the same path within a window.
// Each path is tracked independently: a change to one path never affects
// another.
type Debouncer struct {
	window time.Duration
	clock  Clock

	mu   sync.Mutex
	last map[string]time.Time
}

// NewDebouncer creates a Debouncer with the given window.
// A non-positive window uses DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// WithClock replaces the time source and returns d.
func (d *Debouncer) WithClock(c Clock) *Debouncer {
	d.clock = c
	return d
}

// Window returns the suppression window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// ShouldEmit reports whether a change to path should pass through.
// When it returns true the current time is recorded as the path's last
// emission. A suppressed change leaves the state untouched, so a path
// edited continuously still emits once per window.
func (d *Debouncer) ShouldEmit(path string) bool {
	now := d.clock.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.last[path]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[path] = now
	return true
}

// Cleanup evicts paths idle for at least three windows and returns how many
// were removed.
func (d *Debouncer) Cleanup() int {
	now := d.clock.now()
	cutoff := 3 * d.window

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for path, last := range d.last {
		if now.Sub(last) >= cutoff {
			delete(d.last, path)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked paths.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.last)
}
