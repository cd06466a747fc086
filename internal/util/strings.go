// Package util holds small string helpers shared by the message model and logging.
package util

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Upper is [strings.ToUpper] for string-like types.
func Upper[S ~string](s S) S { return S(strings.ToUpper(string(s))) }

// Trim is [strings.TrimSpace] for string-like types.
func Trim[S ~string](s S) S { return S(strings.TrimSpace(string(s))) }

// EqFold reports whether two string-like values are equal under Unicode case folding.
func EqFold[S1, S2 ~string](a S1, b S2) bool {
	return strings.EqualFold(string(a), string(b))
}

// Truncate cuts s to at most n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	var i int
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}

const maxPooledBuilderCap = 64 << 10

var builders = sync.Pool{
	New: func() any {
		sb := new(strings.Builder)
		sb.Grow(512)
		return sb
	},
}

// Builder takes an empty builder from the pool.
// Return it with [PutBuilder] once the result string is taken.
func Builder() *strings.Builder {
	return builders.Get().(*strings.Builder) //nolint:forcetypeassert
}

// PutBuilder resets sb and returns it to the pool.
// Builders that grew too large are left to the GC.
func PutBuilder(sb *strings.Builder) {
	if sb.Cap() > maxPooledBuilderCap {
		return
	}
	sb.Reset()
	builders.Put(sb)
}
