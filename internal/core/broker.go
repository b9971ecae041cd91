package core

import (
	"reflect"

	"github.com/giantswarm/classloader/factory"
	"github.com/giantswarm/classloader/internal/metrics"
	"github.com/giantswarm/classloader/internal/sentinel"
)

// ErrLibraryNotFound is returned when an operation names a library path that
// is not registered.
const ErrLibraryNotFound = sentinel.Error("library not registered")

// ErrCreateClass is returned when no registered library, or not the named
// one, provides the requested class as the requested capability type, or
// when the library fails to build it.
const ErrCreateClass = sentinel.Error("cannot create class")

// IsClassAvailable reports whether any registered library provides className
// as base. It never opens a library.
func (m *Manager) IsClassAvailable(base reflect.Type, className string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.order {
		if factory.Provides(m.handles[p].classes(), className, base) {
			return true
		}
	}
	return false
}

// AvailableClasses concatenates, in registration order, the classes each
// library provides as base. Names registered by several libraries appear
// once per library.
func (m *Manager) AvailableClasses(base reflect.Type) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, p := range m.order {
		names = append(names, factory.Names(m.handles[p].classes(), base)...)
	}
	return names
}

// AvailableClassesFor returns the classes the library at path provides as
// base.
func (m *Manager) AvailableClassesFor(base reflect.Type, path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[path]
	if !ok {
		return nil, ErrLibraryNotFound.Errorf("%s", path)
	}
	return factory.Names(h.classes(), base), nil
}

// Acquire builds a managed instance of className as base. With an empty
// path the first registered library providing the class is used; otherwise
// only the library at path is considered. The returned Lease keeps the
// library pinned until it is released.
func (m *Manager) Acquire(base reflect.Type, className, path string) (*Lease, error) {
	h, err := m.pin(base, className, path)
	if err != nil {
		m.metrics.CreateResult(metrics.KindManaged, err)
		return nil, err
	}

	obj, err := build(h, base, className)
	m.metrics.CreateResult(metrics.KindManaged, err)
	if err != nil {
		if unpinErr := m.unpin(h, false); unpinErr != nil {
			Logger().Warn("failed to close library after failed creation",
				"path", h.path, "error", unpinErr)
		}
		return nil, err
	}

	return newLease(m, h, className, obj), nil
}

// NewUnmanaged builds an instance the Manager does not track, resolving the
// library like Acquire. The library is marked so that on-demand unloading
// never closes it underneath the instance.
func (m *Manager) NewUnmanaged(base reflect.Type, className, path string) (any, error) {
	h, err := m.pin(base, className, path)
	if err != nil {
		m.metrics.CreateResult(metrics.KindUnmanaged, err)
		return nil, err
	}

	obj, err := build(h, base, className)
	m.metrics.CreateResult(metrics.KindUnmanaged, err)
	if unpinErr := m.unpin(h, err == nil); unpinErr != nil {
		Logger().Warn("failed to close library after failed creation",
			"path", h.path, "error", unpinErr)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// resolveLocked picks the handle that serves className as base. Handles
// being closed by Deregister are passed over.
func (m *Manager) resolveLocked(base reflect.Type, className, path string) (*handle, error) {
	if path != "" {
		h, ok := m.handles[path]
		if !ok || h.closing {
			return nil, ErrLibraryNotFound.Errorf("%s", path)
		}
		if !factory.Provides(h.classes(), className, base) {
			return nil, ErrCreateClass.Errorf("library %s does not provide class %q as %s",
				path, className, base)
		}
		return h, nil
	}

	for _, p := range m.order {
		if h := m.handles[p]; !h.closing && factory.Provides(h.classes(), className, base) {
			return h, nil
		}
	}
	return nil, ErrCreateClass.Errorf("no registered library provides class %q as %s", className, base)
}

// build asks the library for an instance and checks it against base.
func build(h *handle, base reflect.Type, className string) (any, error) {
	obj, err := h.loader.New(className)
	if err != nil {
		return nil, ErrCreateClass.Errorf("%q from %s: %w", className, h.path, err)
	}
	if obj == nil || !(factory.ClassInfo{Type: reflect.TypeOf(obj)}).Implements(base) {
		return nil, ErrCreateClass.Errorf("%q from %s built %T, not assignable to %s",
			className, h.path, obj, base)
	}
	return obj, nil
}
