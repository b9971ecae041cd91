package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds a caller-provided logger. nil means fall back to the cached
// default derived from slog.Default().
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the classloader component
// attribute. SetLogger clears it so slog.SetDefault changes can be picked up.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the package-level logger. Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "classloader")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the package-level logger. nil restores the default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
