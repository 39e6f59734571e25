package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock. Timer callbacks run synchronously inside
// Advance, on the caller's goroutine, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, deadline: f.now.Add(d), f: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that came due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		due := f.nextDueLocked(target)
		if due == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = due.deadline
		due.fired = true
		f.mu.Unlock()

		due.f()
	}
}

// Pending returns the number of armed timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTimer {
	live := f.timers[:0]
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	f.timers = live
	sort.SliceStable(f.timers, func(i, j int) bool {
		return f.timers[i].deadline.Before(f.timers[j].deadline)
	})
	if len(f.timers) == 0 || f.timers[0].deadline.After(target) {
		return nil
	}
	return f.timers[0]
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
