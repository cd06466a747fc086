package sip

import (
	"cmp"
	"encoding/json"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/internal/timeutil"
)

// RFC 3261 base timer values.
const (
	T1 = 500 * time.Millisecond // round-trip time estimate
	T2 = 4 * time.Second        // cap of request and INVITE response retransmit intervals
	T4 = 5 * time.Second        // longest time a message lives in the network

	// TimeD is the floor of Timer D on unreliable transports.
	TimeD = 32 * time.Second
	// TimeProgress is the interval between retransmits of the last provisional response
	// while an INVITE is unanswered, RFC 3261 Section 13.3.1.1.
	TimeProgress = 60 * time.Second
)

// TimingConfig holds the base timer values of a transaction.
//
// Unset values fall back to [T1], [T2], [T4] and [TimeProgress].
// Timers A to M are computed from them per RFC 3261 Section 17 table 4
// and RFC 6026 Section 8.
type TimingConfig struct {
	v timingValues
}

type timingValues struct {
	T1           time.Duration `json:"t1,omitempty"`
	T2           time.Duration `json:"t2,omitempty"`
	T4           time.Duration `json:"t4,omitempty"`
	TimeD        time.Duration `json:"time_d,omitempty"`
	TimeProgress time.Duration `json:"time_progress,omitempty"`
}

var defTimingCfg TimingConfig

// NewTimings returns a config with the given base values.
// Any of them may be zero to keep the default, zero timeD derives Timer D from T1.
func NewTimings(t1, t2, t4, timeD, timeProgress time.Duration) TimingConfig {
	return TimingConfig{timingValues{t1, t2, t4, timeD, timeProgress}}
}

func (c TimingConfig) T1() time.Duration           { return cmp.Or(c.v.T1, T1) }
func (c TimingConfig) T2() time.Duration           { return cmp.Or(c.v.T2, T2) }
func (c TimingConfig) T4() time.Duration           { return cmp.Or(c.v.T4, T4) }
func (c TimingConfig) TimeProgress() time.Duration { return cmp.Or(c.v.TimeProgress, TimeProgress) }

// Client INVITE: A is the first retransmit interval, B the overall timeout.
func (c TimingConfig) TimeA() time.Duration { return c.T1() }
func (c TimingConfig) TimeB() time.Duration { return 64 * c.T1() }

// TimeD is how long a completed INVITE client transaction absorbs final response retransmits.
// Unless set explicitly it is 64*T1 but never less than [TimeD].
func (c TimingConfig) TimeD() time.Duration {
	if c.v.TimeD > 0 {
		return c.v.TimeD
	}
	return max(TimeD, 64*c.T1())
}

// Client non-INVITE: E is the first retransmit interval, F the overall timeout,
// K the wait for response retransmits.
func (c TimingConfig) TimeE() time.Duration { return c.T1() }
func (c TimingConfig) TimeF() time.Duration { return 64 * c.T1() }
func (c TimingConfig) TimeK() time.Duration { return c.T4() }

// Server INVITE: G is the first response retransmit interval, H the wait for ACK,
// I the wait for ACK retransmits.
func (c TimingConfig) TimeG() time.Duration { return c.T1() }
func (c TimingConfig) TimeH() time.Duration { return 64 * c.T1() }
func (c TimingConfig) TimeI() time.Duration { return c.T4() }

// TimeJ is how long a completed non-INVITE server transaction answers request retransmits.
func (c TimingConfig) TimeJ() time.Duration { return 64 * c.T1() }

// TimeL and TimeM bound the Accepted state of the INVITE server and client transactions.
func (c TimingConfig) TimeL() time.Duration { return 64 * c.T1() }
func (c TimingConfig) TimeM() time.Duration { return 64 * c.T1() }

// IsZero reports whether no base value was set.
func (c TimingConfig) IsZero() bool { return c.v == timingValues{} }

// doubleCapped returns the next retransmit interval of timers A, E and G.
// Zero limit disables the cap.
func doubleCapped(d, limit time.Duration) time.Duration {
	d *= 2
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

func (c TimingConfig) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(c.v))
}

func (c *TimingConfig) UnmarshalJSON(data []byte) error {
	var v timingValues
	if err := json.Unmarshal(data, &v); err != nil {
		return errtrace.Wrap(err)
	}
	if min(v.T1, v.T2, v.T4, v.TimeD, v.TimeProgress) < 0 {
		return errtrace.Wrap(NewInvalidArgumentError("negative timing value"))
	}
	c.v = v
	return nil
}

// Clock is a source of time and timers used by transactions.
type Clock = timeutil.Clock

// Timer is a handle of a timer scheduled by a [Clock].
type Timer = timeutil.Timer
