package timeutil

import "time"

// Clock tells the time and schedules callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc waits for the duration to elapse and then calls f.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a callback scheduled by a [Clock].
// [*time.Timer] satisfies it.
type Timer interface {
	// Stop prevents the timer from firing.
	// It returns false if the timer has already fired or been stopped.
	Stop() bool
	// Reset changes the timer to expire after duration d.
	Reset(d time.Duration) bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns a [Clock] backed by the runtime timers.
func RealClock() Clock { return realClock{} }
