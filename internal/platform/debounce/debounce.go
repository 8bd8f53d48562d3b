package debounce

import (
	"sync"
	"time"
)

const defaultInterval = 400 * time.Millisecond

// Debouncer coalesces bursts of triggers into a single callback invocation.
// Each Trigger cancels the pending timer and restarts the wait, so the
// callback fires only after the input has been quiet for the full interval.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New constructs a Debouncer with the given interval.
func New(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Debouncer{interval: interval}
}

// Trigger schedules fn to run after the interval, replacing any pending run.
func (d *Debouncer) Trigger(fn func()) {
	if d == nil || fn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Stop cancels any pending run. The Debouncer cannot be reused afterwards.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
