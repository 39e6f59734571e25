// Package clock abstracts time so timer-driven code can be driven by tests.
package clock

import "time"

type Timer interface {
	// Stop reports whether the call prevented the timer from firing.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
