package timeutil

import (
	"slices"
	"sync"
	"time"
)

// ManualClock is a [Clock] that only moves forward when [ManualClock.Advance] is called.
// It is safe for concurrent use.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Time
	seq      uint64
	fn       func()
	active   bool
}

// NewManualClock creates a manual clock set to the given time.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run when the clock reaches now+d.
// Zero and negative durations fire on the next [ManualClock.Advance] call, including Advance(0).
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, fn: f}
	c.scheduleUnsafe(t, d)
	return t
}

func (c *ManualClock) scheduleUnsafe(t *manualTimer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.seq++
	t.seq = c.seq
	t.deadline = c.now.Add(d)
	t.active = true
	if !slices.Contains(c.timers, t) {
		c.timers = append(c.timers, t)
	}
}

func (c *ManualClock) removeUnsafe(t *manualTimer) {
	if i := slices.Index(c.timers, t); i >= 0 {
		c.timers = slices.Delete(c.timers, i, i+1)
	}
}

// Advance moves the clock forward by d, firing due callbacks in deadline order.
// Each callback runs without the clock lock held and observes [ManualClock.Now]
// equal to its own deadline. Timers scheduled by callbacks fire in the same call
// if they fall due before the target time.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueUnsafe(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		next.active = false
		c.removeUnsafe(next)
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

func (c *ManualClock) nextDueUnsafe(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range c.timers {
		if !t.active || t.deadline.After(target) {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) ||
			(t.deadline.Equal(next.deadline) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// Pending returns the number of scheduled timers that have not fired or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if !t.active {
		return false
	}
	t.active = false
	t.clock.removeUnsafe(t)
	return true
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	wasActive := t.active
	t.clock.scheduleUnsafe(t, d)
	return wasActive
}
