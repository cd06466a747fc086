// Package log provides logging utilities.
package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"

	"github.com/ghettovoice/siptx/internal/util"
)

// MessageKey is the attribute key under which raw SIP messages are logged.
// Only the start line of the message is kept in the output.
const MessageKey = "message"

const maxStartLineLen = 120

var newHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
	slogformatter.FormatByKey(MessageKey, func(v slog.Value) slog.Value {
		if v.Kind() != slog.KindString {
			return v
		}
		line, _, _ := strings.Cut(v.String(), "\r\n")
		return slog.StringValue(util.Truncate(line, maxStartLineLen))
	}),
)

// NewConsoleHandler returns a human friendly handler that writes to w.
func NewConsoleHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return newHandler(
		console.NewHandler(w, &console.HandlerOptions{
			AddSource:  true,
			Level:      level,
			TimeFormat: time.RFC3339Nano,
		}),
	)
}

// NewDevHandler returns a verbose handler intended for local debugging.
func NewDevHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return newHandler(
		devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			},
			SortKeys:   true,
			TimeFormat: time.RFC3339Nano,
		}),
	)
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})

var def atomic.Pointer[slog.Logger]

// Default returns the logger used when none was passed in options.
// It is [Noop] until replaced with [SetDefault].
func Default() *slog.Logger {
	if l := def.Load(); l != nil {
		return l
	}
	return Noop
}

// SetDefault replaces the default logger. Nil restores [Noop].
func SetDefault(l *slog.Logger) {
	def.Store(l)
}
