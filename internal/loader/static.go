package loader

import (
	"sync"

	"github.com/giantswarm/classloader/factory"
)

// Static is a library whose registrar is linked into the host binary. Each
// Load runs the registrar against a fresh table, which mirrors how a plugin
// image re-registers its classes when it is reopened.
type Static struct {
	path     string
	register factory.Registrar

	mu      sync.Mutex
	table   *factory.Table
	loads   int
	unloads int
}

// NewStatic returns a closed Static library identified by path.
func NewStatic(path string, register factory.Registrar) *Static {
	return &Static{path: path, register: register}
}

// Path returns the library path.
func (s *Static) Path() string { return s.path }

// Load runs the registrar. Loading an open library is a no-op.
func (s *Static) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return nil
	}
	if s.register == nil {
		return ErrSymbol.Errorf("static library %s has no registrar", s.path)
	}
	t := factory.NewTable()
	s.register(t)
	s.table = t
	s.loads++
	return nil
}

// Unload drops the class table. Unloading a closed library is a no-op.
func (s *Static) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil
	}
	s.table = nil
	s.unloads++
	return nil
}

// IsLoaded reports whether the library is open.
func (s *Static) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table != nil
}

// Classes returns the classes registered by the open library.
func (s *Static) Classes() []factory.ClassInfo {
	s.mu.Lock()
	t := s.table
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Classes()
}

// New builds an instance of the named class.
func (s *Static) New(className string) (any, error) {
	s.mu.Lock()
	t := s.table
	s.mu.Unlock()

	if t == nil {
		return nil, ErrNotLoaded.Errorf("%s", s.path)
	}
	return t.New(className)
}

// Loads returns how many times the library has been opened.
func (s *Static) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Unloads returns how many times the library has been closed.
func (s *Static) Unloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloads
}
