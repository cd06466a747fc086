// Package timeutil provides the clock abstraction used by SIP transaction timers.
//
// Production code uses [RealClock], which is a thin wrapper over [time.AfterFunc].
// Tests use [ManualClock], which never fires on its own: callbacks run synchronously
// inside [ManualClock.Advance] in deadline order, so retransmission cadences
// can be asserted exactly.
//
//	clock := timeutil.NewManualClock(time.Time{})
//	clock.AfterFunc(time.Second, func() { fmt.Println("fired") })
//	clock.Advance(time.Second) // prints "fired"
package timeutil
