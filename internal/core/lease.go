package core

import (
	"sync/atomic"

	"github.com/giantswarm/classloader/internal/sentinel"
	"github.com/google/uuid"
)

// ErrInstanceReleased is returned when a managed instance is used or
// released after Release.
const ErrInstanceReleased = sentinel.Error("instance has been released")

// Lease is a managed instance together with the pin it holds on the library
// that built it.
type Lease struct {
	m         *Manager
	h         *handle
	id        string
	className string
	obj       any

	released atomic.Bool
}

func newLease(m *Manager, h *handle, className string, obj any) *Lease {
	return &Lease{
		m:         m,
		h:         h,
		id:        uuid.NewString(),
		className: className,
		obj:       obj,
	}
}

// ID returns a unique identifier for this instance.
func (l *Lease) ID() string { return l.id }

// ClassName returns the class the instance was built from.
func (l *Lease) ClassName() string { return l.className }

// Library returns the path of the library that built the instance.
func (l *Lease) Library() string { return l.h.path }

// Object returns the instance, or ErrInstanceReleased after Release.
func (l *Lease) Object() (any, error) {
	if l.released.Load() {
		return nil, ErrInstanceReleased
	}
	return l.obj, nil
}

// Released reports whether Release has been called.
func (l *Lease) Released() bool { return l.released.Load() }

// Release drops the pin on the library. Under UnloadOnDemand the last
// release closes the library image; the returned error reports a failed
// close. A second Release returns ErrInstanceReleased.
func (l *Lease) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrInstanceReleased
	}
	return l.m.unpin(l.h, false)
}
