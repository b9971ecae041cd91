package classloader

import (
	"iter"

	"github.com/giantswarm/classloader/internal/core"
)

// MultiLoader loads classes from many libraries. It is safe for concurrent
// use by multiple goroutines.
//
// The core.Manager is kept in an unexported field so callers cannot reach
// its internal methods through the MultiLoader.
type MultiLoader struct {
	mgr *core.Manager
}

// NewMultiLoader returns a MultiLoader with no libraries loaded. It performs
// no I/O.
//
// Panics if any option receives an invalid value. See the individual With*
// functions for constraints.
func NewMultiLoader(opts ...Option) *MultiLoader {
	cfg := defaultMultiLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MultiLoader{mgr: core.NewManager(cfg.toCoreConfig())}
}

// UnloadPolicy returns the policy the MultiLoader was created with.
func (ml *MultiLoader) UnloadPolicy() UnloadPolicy {
	return ml.mgr.Policy()
}

// LoadLibrary opens the library at path and appends it to the search
// order. Loading an already loaded path is a no-op. On failure the error
// wraps ErrLibraryLoad and nothing is loaded.
//
// Paths are compared as given: "./a.so" and "a.so" are different libraries.
func (ml *MultiLoader) LoadLibrary(path string) error {
	return ml.mgr.Register(path)
}

// LoadLibraries loads every path, opening them in parallel. Libraries that
// open successfully join the search order in argument order even if others
// fail. The returned error joins the individual failures.
func (ml *MultiLoader) LoadLibraries(paths ...string) error {
	return ml.mgr.RegisterAll(paths)
}

// UnloadLibrary closes the library at path and forgets it. Unloading a path
// that is not loaded is a no-op.
//
// Returns an error wrapping ErrUnsafeUnload, and keeps the library, while
// managed instances created from it have not been released. Unmanaged
// instances are not tracked: unloading their library leaves them invalid.
func (ml *MultiLoader) UnloadLibrary(path string) error {
	return ml.mgr.Deregister(path)
}

// Library returns the status of the library at path, if loaded.
func (ml *MultiLoader) Library(path string) (LibraryStatus, bool) {
	return ml.mgr.Lookup(path)
}

// Libraries iterates over the loaded libraries in search order. Every
// iteration works on a snapshot taken when it starts.
func (ml *MultiLoader) Libraries() iter.Seq[LibraryStatus] {
	return ml.mgr.All()
}

// RegisteredLibraries returns the loaded library paths in search order.
func (ml *MultiLoader) RegisteredLibraries() []string {
	return ml.mgr.Paths()
}

// IsLibraryAvailable reports whether the library at path has been loaded
// and not unloaded since.
func (ml *MultiLoader) IsLibraryAvailable(path string) bool {
	_, ok := ml.mgr.Lookup(path)
	return ok
}

// IsLibraryLoaded reports whether the image of the library at path is
// currently open. Under UnloadOnDemand a library can be available but not
// open.
func (ml *MultiLoader) IsLibraryLoaded(path string) bool {
	st, ok := ml.mgr.Lookup(path)
	return ok && st.Loaded
}

// Shutdown unloads every library in reverse load order. Libraries with
// unreleased instances are closed anyway and a warning is logged. After
// Shutdown, loading and creating return ErrShuttingDown. Safe to call more
// than once.
func (ml *MultiLoader) Shutdown() error {
	return ml.mgr.Shutdown()
}
