package testenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogHandler is a slog.Handler that prints a message index, the level, the
// message and its attributes without a timestamp, so that log output can be
// asserted in examples.
type LogHandler struct {
	w           io.Writer
	index       *int
	attrs       []slog.Attr
	ignoreDebug bool
}

// LogHandlerOption configures a LogHandler.
type LogHandlerOption func(*LogHandler)

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) LogHandlerOption {
	return func(h *LogHandler) {
		h.w = w
	}
}

// WithIgnoreDebug drops DEBUG records.
func WithIgnoreDebug() LogHandlerOption {
	return func(h *LogHandler) {
		h.ignoreDebug = true
	}
}

func NewLogHandler(opts ...LogHandlerOption) *LogHandler {
	h := &LogHandler{w: os.Stdout, index: new(int)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

//nolint:gocritic
func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	for _, a := range h.attrs {
		appendAttr(&sb, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, a)
		return true
	})

	if sb.Len() > 0 {
		fmt.Fprintf(h.w, "[%d] %s: %s %s\n", *h.index, r.Level, r.Message, sb.String())
	} else {
		fmt.Fprintf(h.w, "[%d] %s: %s\n", *h.index, r.Level, r.Message)
	}
	*h.index++
	return nil
}

func appendAttr(sb *strings.Builder, a slog.Attr) {
	if sb.Len() > 0 {
		sb.WriteString(", ")
	}
	fmt.Fprintf(sb, "%s=%v", a.Key, a.Value)
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level > slog.LevelDebug || !h.ignoreDebug
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return &clone
}

// WithGroup is not supported; grouped attributes are printed flat.
func (h *LogHandler) WithGroup(string) slog.Handler {
	return h
}
