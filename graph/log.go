// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every log record. Enabled always
// returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by the graph package.
// By default the package produces no log output. Pass nil to
// restore the silent default.
//
// Log levels used here:
//   - [slog.LevelDebug]: new physical allocations made by the resource cache.
//   - [slog.LevelWarn]: a pass returning a ShaderStaleError during Execute.
//   - [slog.LevelError]: a submitted frame completing with an error.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// logger returns the current logger.
func logger() *slog.Logger { return loggerPtr.Load() }
