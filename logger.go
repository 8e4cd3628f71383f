package lic

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so engine call
// sites never build their attributes while logging is off.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr holds the package logger. Engines on other goroutines load it
// on every event, so it is swapped atomically.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger shared by the engine, the noise and composite
// packages and the wgpu backend. Nothing is logged until it is called; nil
// restores the silent default.
//
// Events by level:
//   - [slog.LevelDebug]: per-execute geometry, pass and dispatch counts,
//     program builds, contrast ranges
//   - [slog.LevelInfo]: image buffer reallocation, wgpu adapter selection
//   - [slog.LevelWarn]: program compile and link failures, adapters
//     rejected for missing capabilities, degenerate contrast ranges
//
//	lic.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger set by SetLogger. The subpackages and
// cmd/licdemo log through it so one handler sees every engine event.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
