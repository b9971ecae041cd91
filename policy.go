package classloader

import "github.com/giantswarm/classloader/internal/core"

// UnloadPolicy controls when a library image is closed.
//
// UnloadPolicy is a type alias so that the IsValid and String methods of
// [core.UnloadPolicy] are part of the public API.
type UnloadPolicy = core.UnloadPolicy

const (
	// UnloadExplicit closes a library only on UnloadLibrary or Shutdown.
	// This is the default.
	UnloadExplicit = core.UnloadExplicit

	// UnloadOnDemand closes a library when the last managed instance
	// created from it is released. The library stays loaded from the
	// caller's point of view and is reopened transparently by the next
	// creation that resolves to it.
	UnloadOnDemand = core.UnloadOnDemand
)
