package core

import (
	"sync"

	"github.com/giantswarm/classloader/factory"
)

// ClassLoader owns exactly one library image and the classes it registers.
//
// Load and Unload must be idempotent. While the library is closed Classes
// returns nil and New fails. The Manager never calls Load and Unload of one
// loader concurrently, but New may run alongside them and alongside other
// New calls, so implementations must be safe for concurrent use.
type ClassLoader interface {
	Path() string
	Load() error
	Unload() error
	IsLoaded() bool
	Classes() []factory.ClassInfo
	New(className string) (any, error)
}

// LibraryStatus is a point-in-time view of a registered library.
type LibraryStatus struct {
	Path string
	// Loaded reports whether the image is open.
	Loaded bool
	// LiveInstances counts managed instances not yet released, plus
	// creations in flight.
	LiveInstances int
	// Unmanaged reports that an unmanaged instance was built from the
	// library, which disables on-demand unloading for it.
	Unmanaged bool
}

// handle is the registry entry for one library path.
//
// Two locks apply. Manager.mu guards every field below except path and
// loader. lifeMu serializes the collaborator's Load and Unload for this
// library and is held without Manager.mu, so a slow image open blocks only
// callers that need this library. Lock order is lifeMu before Manager.mu;
// code holding Manager.mu never calls into the loader.
type handle struct {
	path   string
	loader ClassLoader

	lifeMu sync.Mutex

	// loaded mirrors the loader's open state. It is written with both lifeMu
	// and Manager.mu held, so holders of either may read it.
	loaded bool

	// live is the pin count: managed instances alive plus creations in
	// progress. The lifecycle rules never close the image while live > 0.
	live int

	// catalog is the class list captured at the last successful Load. Every
	// availability question reads it, which keeps those answers free of
	// loader calls and valid while on-demand unloading has the image closed.
	catalog []factory.ClassInfo

	unmanaged bool

	// closing is set while Deregister unloads the image outside
	// Manager.mu. Creations skip a closing handle: the unload has already
	// passed its live == 0 check and a new pin would reopen a library that
	// is about to leave the registry.
	closing bool

	// removed is set once the handle leaves the registry (Deregister or
	// Shutdown). A removed handle is never reopened, and releases against it
	// never close anything because its image is owned by whoever removed it.
	removed bool

	// settled and settleErr record the outcome of inserting a freshly opened
	// handle. Concurrent registrations of one path share a single handle
	// through the opening group, and each of them calls insert; the first
	// call decides, the later ones repeat its answer instead of inserting or
	// closing the same handle again.
	settled   bool
	settleErr error
}

// newHandle wraps a loader whose Load has just succeeded.
func newHandle(path string, ld ClassLoader) *handle {
	return &handle{path: path, loader: ld, loaded: true, catalog: ld.Classes()}
}

func (h *handle) classes() []factory.ClassInfo {
	return h.catalog
}

func (h *handle) status() LibraryStatus {
	return LibraryStatus{
		Path:          h.path,
		Loaded:        h.loaded,
		LiveInstances: h.live,
		Unmanaged:     h.unmanaged,
	}
}
