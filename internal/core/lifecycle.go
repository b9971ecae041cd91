package core

import "reflect"

// pin resolves the library for a creation and takes a pin on it, then
// reopens the image if on-demand unloading closed it. The pin is taken
// first so that a concurrent on-demand close of the same library backs off,
// and the reopen runs without m.mu so that it stalls only callers of this
// library.
func (m *Manager) pin(base reflect.Type, className, path string) (*handle, error) {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	h, err := m.resolveLocked(base, className, path)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	h.live++
	m.metrics.SetLive(h.path, h.live)
	m.mu.Unlock()

	if err := m.ensureOpen(h); err != nil {
		if unpinErr := m.unpin(h, false); unpinErr != nil {
			Logger().Warn("failed to close library after failed reopen",
				"path", h.path, "error", unpinErr)
		}
		return nil, err
	}
	return h, nil
}

// ensureOpen loads the image of a pinned handle if it is closed and
// refreshes its catalog. Callers must hold a pin on h.
func (m *Manager) ensureOpen(h *handle) error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	m.mu.Lock()
	removed, loaded := h.removed, h.loaded
	m.mu.Unlock()

	// Only Shutdown removes a pinned handle.
	if removed {
		return ErrShuttingDown
	}
	if loaded {
		return nil
	}

	err := h.loader.Load()
	m.metrics.LoadResult(err)
	if err != nil {
		return ErrLibraryLoad.Errorf("reopen %s: %w", h.path, err)
	}
	classes := h.loader.Classes()

	m.mu.Lock()
	h.catalog = classes
	h.loaded = true
	m.mu.Unlock()

	Logger().Debug("library reopened", "path", h.path)
	return nil
}

// unpin drops one pin from h. escaped marks that an unmanaged instance now
// lives outside the Manager's view.
//
// Under UnloadOnDemand the image is closed when the last pin goes, unless
// the library has escaped instances. A removed handle is skipped entirely:
// Deregister or Shutdown already owns its image, and its metrics series has
// been forgotten, so touching either would resurrect state for a library
// that is gone.
func (m *Manager) unpin(h *handle, escaped bool) error {
	m.mu.Lock()
	if escaped && !h.unmanaged {
		h.unmanaged = true
		if m.cfg.UnloadPolicy == UnloadOnDemand {
			Logger().Warn("unmanaged instance created; on-demand unloading disabled for library",
				"path", h.path)
		}
	}

	h.live--
	if h.live < 0 {
		m.mu.Unlock()
		panic("classloader: library " + h.path + " released more often than acquired")
	}
	if h.removed {
		m.mu.Unlock()
		return nil
	}
	m.metrics.SetLive(h.path, h.live)
	idle := h.live == 0 && !h.unmanaged && m.cfg.UnloadPolicy == UnloadOnDemand
	m.mu.Unlock()

	if !idle {
		return nil
	}
	return m.closeIdle(h)
}

// closeIdle closes the image of h for on-demand unloading. The idle
// condition is checked again under lifeMu: a pin taken after unpin released
// m.mu, or a Deregister that got there first, wins over this close.
func (m *Manager) closeIdle(h *handle) error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	m.mu.Lock()
	idle := !h.removed && !h.closing && h.live == 0 && !h.unmanaged
	m.mu.Unlock()

	if !idle {
		return nil
	}
	return m.closeImage(h)
}
