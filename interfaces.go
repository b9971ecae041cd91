package classloader

import "github.com/giantswarm/classloader/internal/core"

// ClassLoader owns a single library image and the classes it registers.
// Supply custom implementations through WithLoaderFactory.
//
// Load and Unload must be idempotent. While the library is closed, Classes
// returns nil and New fails. Implementations must be safe for concurrent
// use.
type ClassLoader = core.ClassLoader

// LoaderFactory builds the ClassLoader for a library path. It must return a
// closed loader; the MultiLoader opens it.
type LoaderFactory = core.LoaderFactory

// LibraryStatus is a point-in-time view of a loaded library, as returned by
// MultiLoader.Library and MultiLoader.Libraries.
type LibraryStatus = core.LibraryStatus
