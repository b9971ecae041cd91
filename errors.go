package classloader

import "github.com/giantswarm/classloader/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrLibraryLoad is returned when a library image cannot be opened,
	// either by LoadLibrary or when on-demand unloading has to reopen it.
	// The underlying cause stays in the error chain.
	ErrLibraryLoad = core.ErrLibraryLoad

	// ErrLibraryNotFound is returned when an operation names a library that
	// has not been loaded.
	ErrLibraryNotFound = core.ErrLibraryNotFound

	// ErrCreateClass is returned when no loaded library, or not the named
	// one, provides the requested class as the requested type, or when the
	// library fails to construct it.
	ErrCreateClass = core.ErrCreateClass

	// ErrUnsafeUnload is returned by UnloadLibrary while managed instances
	// created from the library have not been released.
	ErrUnsafeUnload = core.ErrUnsafeUnload

	// ErrShuttingDown is returned by loading and creating operations after
	// Shutdown.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrInstanceReleased is returned by Instance.Object after Release, and
	// by a second Release.
	ErrInstanceReleased = core.ErrInstanceReleased
)
