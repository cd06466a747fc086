package errorutil_test

import (
	"errors"
	"testing"

	"github.com/ghettovoice/siptx/internal/errorutil"
)

const errSentinel errorutil.Error = "sentinel"

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")

	cases := []struct {
		name    string
		args    []any
		wantMsg string
		wantIs  []error
	}{
		{"no args", nil, "sentinel", []error{errSentinel}},
		{"cause", []any{cause}, "sentinel: boom", []error{errSentinel, cause}},
		{"wrapped cause", []any{errorutil.Wrap(errSentinel, cause)}, "sentinel: boom", []error{errSentinel, cause}},
		{"message", []any{"100% done"}, "sentinel: 100% done", []error{errSentinel}},
		{"format", []any{"bad value %d", 42}, "sentinel: bad value 42", []error{errSentinel}},
		{"unknown", []any{42}, "sentinel", []error{errSentinel}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := errorutil.Wrap(errSentinel, c.args...)
			if got := err.Error(); got != c.wantMsg {
				t.Errorf("err.Error() = %q, want %q", got, c.wantMsg)
			}
			for _, target := range c.wantIs {
				if !errors.Is(err, target) {
					t.Errorf("errors.Is(err, %v) = false, want true", target)
				}
			}
		})
	}
}

func TestInvalidArgument(t *testing.T) {
	t.Parallel()

	const errInner errorutil.Error = "inner"

	err := errorutil.InvalidArgument(errorutil.Wrap(errInner, "missing %s", "branch"))
	if !errors.Is(err, errorutil.ErrInvalidArgument) || !errors.Is(err, errInner) {
		t.Fatalf("errors.Is(err, ...) = false, want true for both sentinels")
	}
	if got, want := err.Error(), "invalid argument: inner: missing branch"; got != want {
		t.Fatalf("err.Error() = %q, want %q", got, want)
	}
}
