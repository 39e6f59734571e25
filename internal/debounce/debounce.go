// Package debounce coalesces bursts of calls into a single deferred run.
package debounce

import (
	"sync"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/clock"
)

// Debouncer runs fn once the quiet period has passed since the last Trigger.
// At most one timer is armed at a time.
type Debouncer struct {
	mu    sync.Mutex
	clock clock.Clock
	delay time.Duration
	fn    func()
	timer clock.Timer
	seq   uint64 // bumped on every arm/disarm so a late-firing timer is ignored
}

func New(c clock.Clock, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: c, delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Cancel disarms a pending run. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disarmLocked()
}

// Flush runs a pending call immediately on the caller's goroutine.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.disarmLocked()
	d.mu.Unlock()
	if pending {
		d.fn()
	}
	return pending
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) disarmLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.seq++
	return true
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
