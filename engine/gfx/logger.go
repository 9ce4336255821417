package gfx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by gfx and the backends that register with it.
// By default gfx is silent. Pass nil to restore the silent default.
//
// Log levels used by gfx:
//   - [slog.LevelDebug]: per-frame diagnostics (item counts, latency waits)
//   - [slog.LevelInfo]: lifecycle events (backend selected, shutdown)
//   - [slog.LevelWarn]: lenient failures (invalid handles, exhausted limits, misuse)
//
// Example:
//
//	gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Backend packages call this so they share
// the configuration without an import cycle.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
