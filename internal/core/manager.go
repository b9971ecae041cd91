package core

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/giantswarm/classloader/internal/metrics"
	"github.com/giantswarm/classloader/internal/sentinel"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrLibraryLoad is returned when a library image cannot be opened.
const ErrLibraryLoad = sentinel.Error("cannot load library")

// ErrUnsafeUnload is returned by Deregister while managed instances built
// from the library are still alive.
const ErrUnsafeUnload = sentinel.Error("library has live instances")

// ErrShuttingDown is returned by registering and creating operations after
// Shutdown.
const ErrShuttingDown = sentinel.Error("class loader is shutting down")

// Manager coordinates the class loaders of many libraries. It is safe for
// concurrent use by multiple goroutines.
//
// Synchronization strategy:
//   - mu guards handles, order, shuttingDown and every handle's mutable
//     fields. It is held for registry mutations, pin counting, and the
//     snapshot reads behind lookups and class searches, so a search sees
//     one consistent registry. No ClassLoader method is ever called with mu
//     held.
//   - Opening a new library runs outside mu. The opening group collapses
//     concurrent registrations of one path into one Load, and only the
//     insert of the opened handle takes mu.
//   - Reopening, on-demand closing and Deregister's close run under the
//     handle's own lifeMu, taken before mu. A library that is slow to open
//     or close therefore stalls callers of that library only.
//   - ClassLoader.New runs with no lock held. The handle is pinned before
//     its image is opened, and closes recheck the pin count under lifeMu,
//     so no close can run until the creation is accounted for.
type Manager struct {
	cfg     Config
	metrics *metrics.Collector
	opening singleflight.Group

	mu           sync.Mutex
	handles      map[string]*handle
	order        []string
	shuttingDown bool
}

// NewManager creates a Manager with no libraries registered.
//
// Panics if cfg.Validate reports any error or if the metrics cannot be
// registered: both are programmer errors.
func NewManager(cfg Config) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("classloader: invalid config: %v", err))
	}
	return &Manager{
		cfg:     cfg,
		metrics: metrics.New(cfg.MetricsRegisterer),
		handles: make(map[string]*handle),
	}
}

// Policy returns the unload policy fixed at construction.
func (m *Manager) Policy() UnloadPolicy {
	return m.cfg.UnloadPolicy
}

// Register opens the library at path and appends it to the search order.
// Registering a path twice is a no-op. On failure nothing is registered and
// the error wraps ErrLibraryLoad.
func (m *Manager) Register(path string) error {
	registered, err := m.isRegistered(path)
	if err != nil || registered {
		return err
	}

	h, err := m.open(path)
	if err != nil {
		return err
	}
	return m.insert(h)
}

// RegisterAll opens every path not yet registered in parallel, then
// registers the opened ones in argument order. Each path succeeds or fails
// on its own; the failures are joined.
func (m *Manager) RegisterAll(paths []string) error {
	opened := make([]*handle, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		registered, err := m.isRegistered(path)
		if err != nil {
			errs[i] = err
			continue
		}
		if registered {
			continue
		}
		g.Go(func() error {
			opened[i], errs[i] = m.open(path)
			return nil
		})
	}
	// Goroutines report through errs; Wait always returns nil.
	_ = g.Wait()

	for i, h := range opened {
		if h == nil {
			continue
		}
		errs[i] = m.insert(h)
	}
	return errors.Join(errs...)
}

func (m *Manager) isRegistered(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shuttingDown {
		return false, ErrShuttingDown
	}
	_, ok := m.handles[path]
	return ok, nil
}

// open builds and loads a class loader for path. Concurrent opens of one
// path share a single load and receive the same handle.
func (m *Manager) open(path string) (*handle, error) {
	if path == "" {
		return nil, ErrLibraryLoad.Errorf("library path must not be empty")
	}

	v, err, _ := m.opening.Do(path, func() (any, error) {
		ld, err := m.cfg.LoaderFactory(path)
		if err == nil && ld == nil {
			err = errors.New("loader factory returned no loader")
		}
		if err == nil {
			err = ld.Load()
		}
		m.metrics.LoadResult(err)
		if err != nil {
			Logger().Debug("library load failed", "path", path, "error", err)
			return nil, ErrLibraryLoad.Errorf("%s: %w", path, err)
		}
		return newHandle(path, ld), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*handle), nil //nolint:forcetypeassert // the opening group only stores *handle
}

// insert registers a freshly opened handle. A handle that lost the race to
// an earlier registration of its path, or that arrives after Shutdown, is
// closed instead.
//
// Every caller that shared the open through the opening group holds the
// same *handle and calls insert with it. The settled flag makes the first
// call the only one that acts: it records its answer in settleErr and the
// later calls return that answer unchanged, so a shared handle is neither
// inserted twice nor closed while registered.
func (m *Manager) insert(h *handle) error {
	m.mu.Lock()
	if h.settled {
		m.mu.Unlock()
		return h.settleErr
	}
	h.settled = true

	discard := true
	switch {
	case m.shuttingDown:
		h.settleErr = ErrShuttingDown
	case m.handles[h.path] != nil:
	default:
		discard = false
		m.handles[h.path] = h
		m.order = append(m.order, h.path)
		m.metrics.Registered.Inc()
		m.metrics.SetLive(h.path, 0)
		Logger().Debug("library registered", "path", h.path, "classes", len(h.catalog))
	}
	err := h.settleErr
	m.mu.Unlock()

	if discard {
		if closeErr := m.closeHandle(h); closeErr != nil {
			Logger().Warn("failed to close duplicate library loader", "path", h.path, "error", closeErr)
		}
	}
	return err
}

// Deregister closes the library at path and removes it from the registry.
// Unregistered paths are a no-op. While managed instances built from the
// library are alive it returns ErrUnsafeUnload and keeps the library.
//
// The image is closed before the library leaves the registry. If the close
// fails the error is returned and the library stays registered, so the
// caller can retry.
//
// Unmanaged instances cannot be detected: deregistering a library they came
// from leaves them pointing into a closed image.
func (m *Manager) Deregister(path string) error {
	m.mu.Lock()
	h, ok := m.handles[path]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	m.mu.Lock()
	if m.handles[path] != h {
		// Removed meanwhile by another Deregister or by Shutdown.
		m.mu.Unlock()
		return nil
	}
	if h.live > 0 {
		live := h.live
		m.mu.Unlock()
		return ErrUnsafeUnload.Errorf("%s has %d live instance(s)", path, live)
	}
	h.closing = true
	m.mu.Unlock()

	err := m.closeImage(h)

	m.mu.Lock()
	defer m.mu.Unlock()

	h.closing = false
	if err != nil {
		return err
	}
	if !h.removed {
		m.removeLocked(h)
		m.order = slices.DeleteFunc(m.order, func(p string) bool { return p == path })
	}
	return nil
}

// removeLocked takes h out of the map. Callers fix up order.
func (m *Manager) removeLocked(h *handle) {
	delete(m.handles, h.path)
	h.removed = true
	m.metrics.Registered.Dec()
	m.metrics.Forget(h.path)
	Logger().Debug("library deregistered", "path", h.path)
}

// closeHandle closes the image of h under its lifecycle lock.
func (m *Manager) closeHandle(h *handle) error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	return m.closeImage(h)
}

// closeImage closes the image of h if it is open. Callers hold h.lifeMu and
// not m.mu. On failure the handle still counts as loaded.
func (m *Manager) closeImage(h *handle) error {
	if !h.loaded {
		return nil
	}
	if err := h.loader.Unload(); err != nil {
		return fmt.Errorf("unload library %s: %w", h.path, err)
	}

	m.mu.Lock()
	h.loaded = false
	m.mu.Unlock()

	m.metrics.Unloaded()
	Logger().Debug("library closed", "path", h.path)
	return nil
}

// Lookup returns the status of the library at path. It never opens or
// closes anything.
func (m *Manager) Lookup(path string) (LibraryStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[path]
	if !ok {
		return LibraryStatus{}, false
	}
	return h.status(), true
}

// All returns the registered libraries in registration order. Each
// iteration reads a fresh snapshot taken when it starts.
func (m *Manager) All() iter.Seq[LibraryStatus] {
	return func(yield func(LibraryStatus) bool) {
		for _, st := range m.snapshot() {
			if !yield(st) {
				return
			}
		}
	}
}

func (m *Manager) snapshot() []LibraryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LibraryStatus, 0, len(m.order))
	for _, p := range m.order {
		out = append(out, m.handles[p].status())
	}
	return out
}

// Paths returns the registered library paths in registration order.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// Shutdown deregisters every library in reverse registration order, closing
// each image. Libraries with live instances are closed anyway and logged:
// those instances are leaked by the caller. Safe to call more than once.
// Returns the joined close errors.
//
// The registry is emptied under mu first, so no new creation can reach a
// library once Shutdown starts. The images are then closed one at a time
// under their lifecycle locks.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.shuttingDown = true

	closing := make([]*handle, 0, len(m.order))
	for _, path := range slices.Backward(m.order) {
		h := m.handles[path]
		if h.live > 0 {
			Logger().Warn("closing library that still has live instances; "+
				"release all instances before Shutdown",
				"path", path, "live", h.live)
		}
		m.removeLocked(h)
		closing = append(closing, h)
	}
	m.order = nil
	m.mu.Unlock()

	var errs []error
	for _, h := range closing {
		if err := m.closeHandle(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
