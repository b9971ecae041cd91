package classloader

import (
	"log/slog"

	"github.com/giantswarm/classloader/internal/core"
)

// SetLogger replaces the package-level logger used by classloader.
// The provided logger should already carry any desired attributes;
// classloader adds none.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up the new
// default.
//
// SetLogger is safe to call concurrently with other classloader operations,
// but a concurrent operation may still log to the previous logger. Call it
// before loading libraries for a strict ordering.
//
// Example:
//
//	classloader.SetLogger(myLogger.With("component", "classloader"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
