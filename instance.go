package classloader

import (
	"reflect"

	"github.com/giantswarm/classloader/internal/core"
)

// Instance is a managed instance of a plugin class. It keeps the library
// that created it loaded until Release.
type Instance[Base any] struct {
	lease *core.Lease
	obj   Base
}

// Object returns the instance. After Release it returns ErrInstanceReleased.
func (i *Instance[Base]) Object() (Base, error) {
	if _, err := i.lease.Object(); err != nil {
		var zero Base
		return zero, err
	}
	return i.obj, nil
}

// Release gives up the instance. The caller must stop using the object: its
// library may be unloaded as soon as Release returns. Returns
// ErrInstanceReleased when called twice, or the error of closing the
// library under UnloadOnDemand.
func (i *Instance[Base]) Release() error {
	return i.lease.Release()
}

// ID returns a unique identifier for this instance.
func (i *Instance[Base]) ID() string { return i.lease.ID() }

// ClassName returns the name of the class the instance was created from.
func (i *Instance[Base]) ClassName() string { return i.lease.ClassName() }

// Library returns the path of the library that created the instance.
func (i *Instance[Base]) Library() string { return i.lease.Library() }

// IsClassAvailable reports whether any loaded library provides className as
// Base. It never opens a library.
func IsClassAvailable[Base any](ml *MultiLoader, className string) bool {
	return ml.mgr.IsClassAvailable(reflect.TypeFor[Base](), className)
}

// AvailableClasses returns the classes the loaded libraries provide as
// Base, grouped by library in search order. A class provided by several
// libraries is listed once per library.
func AvailableClasses[Base any](ml *MultiLoader) []string {
	return ml.mgr.AvailableClasses(reflect.TypeFor[Base]())
}

// AvailableClassesForLibrary returns the classes the library at path
// provides as Base. Returns ErrLibraryNotFound if path is not loaded.
func AvailableClassesForLibrary[Base any](ml *MultiLoader, path string) ([]string, error) {
	return ml.mgr.AvailableClassesFor(reflect.TypeFor[Base](), path)
}

// CreateInstance creates a managed instance of className from the first
// library in search order that provides it as Base. Returns
// ErrCreateClass if no library does.
func CreateInstance[Base any](ml *MultiLoader, className string) (*Instance[Base], error) {
	return createInstance[Base](ml, className, "")
}

// CreateInstanceFrom creates a managed instance of className from the
// library at path. Returns ErrLibraryNotFound if path is not loaded and
// ErrCreateClass if the library does not provide the class as Base.
func CreateInstanceFrom[Base any](ml *MultiLoader, className, path string) (*Instance[Base], error) {
	if path == "" {
		return nil, ErrLibraryNotFound.Errorf("library path must not be empty")
	}
	return createInstance[Base](ml, className, path)
}

func createInstance[Base any](ml *MultiLoader, className, path string) (*Instance[Base], error) {
	lease, err := ml.mgr.Acquire(reflect.TypeFor[Base](), className, path)
	if err != nil {
		return nil, err
	}
	obj, _ := lease.Object()
	return &Instance[Base]{lease: lease, obj: obj.(Base)}, nil //nolint:forcetypeassert // Acquire checked assignability
}

// CreateUnmanagedInstance creates an instance of className from the first
// library in search order that provides it as Base. The MultiLoader does
// not track the result, and on-demand unloading is disabled for its library.
func CreateUnmanagedInstance[Base any](ml *MultiLoader, className string) (Base, error) {
	return createUnmanaged[Base](ml, className, "")
}

// CreateUnmanagedInstanceFrom is CreateUnmanagedInstance restricted to the
// library at path.
func CreateUnmanagedInstanceFrom[Base any](ml *MultiLoader, className, path string) (Base, error) {
	if path == "" {
		var zero Base
		return zero, ErrLibraryNotFound.Errorf("library path must not be empty")
	}
	return createUnmanaged[Base](ml, className, path)
}

func createUnmanaged[Base any](ml *MultiLoader, className, path string) (Base, error) {
	obj, err := ml.mgr.NewUnmanaged(reflect.TypeFor[Base](), className, path)
	if err != nil {
		var zero Base
		return zero, err
	}
	return obj.(Base), nil //nolint:forcetypeassert // NewUnmanaged checked assignability
}
