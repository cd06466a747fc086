package sip_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/siptx/sip"
)

func TestTimingConfig(t *testing.T) {
	t.Parallel()

	type durations struct {
		T1, T2, T4, A, B, D, E, F, G, H, I, J, K, L, M, Progress time.Duration
	}
	collect := func(c sip.TimingConfig) durations {
		return durations{
			c.T1(), c.T2(), c.T4(),
			c.TimeA(), c.TimeB(), c.TimeD(), c.TimeE(), c.TimeF(), c.TimeG(),
			c.TimeH(), c.TimeI(), c.TimeJ(), c.TimeK(), c.TimeL(), c.TimeM(),
			c.TimeProgress(),
		}
	}

	cases := []struct {
		name string
		cfg  sip.TimingConfig
		want durations
	}{
		{
			name: "zero",
			cfg:  sip.TimingConfig{},
			want: durations{
				T1: 500 * time.Millisecond, T2: 4 * time.Second, T4: 5 * time.Second,
				A: 500 * time.Millisecond, B: 32 * time.Second, D: 32 * time.Second,
				E: 500 * time.Millisecond, F: 32 * time.Second, G: 500 * time.Millisecond,
				H: 32 * time.Second, I: 5 * time.Second, J: 32 * time.Second, K: 5 * time.Second,
				L: 32 * time.Second, M: 32 * time.Second, Progress: time.Minute,
			},
		},
		{
			name: "small T1",
			cfg:  sip.NewTimings(100*time.Millisecond, time.Second, 2*time.Second, 0, 30*time.Second),
			want: durations{
				T1: 100 * time.Millisecond, T2: time.Second, T4: 2 * time.Second,
				A: 100 * time.Millisecond, B: 6400 * time.Millisecond, D: 32 * time.Second,
				E: 100 * time.Millisecond, F: 6400 * time.Millisecond, G: 100 * time.Millisecond,
				H: 6400 * time.Millisecond, I: 2 * time.Second, J: 6400 * time.Millisecond, K: 2 * time.Second,
				L: 6400 * time.Millisecond, M: 6400 * time.Millisecond, Progress: 30 * time.Second,
			},
		},
		{
			name: "explicit Timer D",
			cfg:  sip.NewTimings(time.Second, 0, 0, 5*time.Second, 0),
			want: durations{
				T1: time.Second, T2: 4 * time.Second, T4: 5 * time.Second,
				A: time.Second, B: 64 * time.Second, D: 5 * time.Second,
				E: time.Second, F: 64 * time.Second, G: time.Second,
				H: 64 * time.Second, I: 5 * time.Second, J: 64 * time.Second, K: 5 * time.Second,
				L: 64 * time.Second, M: 64 * time.Second, Progress: time.Minute,
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(c.want, collect(c.cfg)); diff != "" {
				t.Errorf("timings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTimingConfig_IsZero(t *testing.T) {
	t.Parallel()

	if !(sip.TimingConfig{}).IsZero() {
		t.Error("TimingConfig{}.IsZero() = false, want true")
	}
	if sip.NewTimings(0, 0, 0, 0, time.Second).IsZero() {
		t.Error("NewTimings(0, 0, 0, 0, 1s).IsZero() = true, want false")
	}
}

func TestTimingConfig_JSON(t *testing.T) {
	t.Parallel()

	cfg := sip.NewTimings(time.Second, 8*time.Second, 0, 0, 0)
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal(cfg) error = %v, want nil", err)
	}
	if got, want := string(data), `{"t1":1000000000,"t2":8000000000}`; got != want {
		t.Errorf("json.Marshal(cfg) = %s, want %s", got, want)
	}

	var got sip.TimingConfig
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, want nil", err)
	}
	if got.T1() != time.Second || got.T2() != 8*time.Second || got.T4() != sip.T4 {
		t.Errorf("json.Unmarshal() = {T1: %v, T2: %v, T4: %v}, want {T1: 1s, T2: 8s, T4: 5s}",
			got.T1(), got.T2(), got.T4())
	}

	err = json.Unmarshal([]byte(`{"t4":-1}`), &got)
	if !errors.Is(err, sip.ErrInvalidArgument) {
		t.Errorf("json.Unmarshal(negative) error = %v, want %v", err, sip.ErrInvalidArgument)
	}
}
