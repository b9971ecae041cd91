package factory

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/giantswarm/classloader/internal/sentinel"
)

// RegistrarSymbol is the name of the symbol a plugin library exports.
const RegistrarSymbol = "RegisterClasses"

// ErrUnknownClass is returned by Table.New for a name that was never
// registered.
const ErrUnknownClass = sentinel.Error("unknown class")

// Registrar populates a Table with the classes of one library.
type Registrar = func(*Table)

// ClassInfo describes a registered class. Type is the static return type of
// the class constructor.
type ClassInfo struct {
	Name string
	Type reflect.Type
}

// Implements reports whether instances of the class can be used as base:
// base is an interface the class type implements, or the class type itself.
func (c ClassInfo) Implements(base reflect.Type) bool {
	if c.Type == nil || base == nil {
		return false
	}
	if base.Kind() == reflect.Interface {
		return c.Type.Implements(base)
	}
	return c.Type == base
}

type entry struct {
	info  ClassInfo
	build func() any
}

// Table maps class names to constructors, preserving registration order.
// It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Register adds a class named name whose instances are built by fn.
// Panics if name is empty, fn is nil, or name is already registered in t:
// registration runs from library initialisation code, where a conflict is a
// build defect of the library.
func Register[T any](t *Table, name string, fn func() T) {
	if name == "" {
		panic("factory: class name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("factory: constructor for class %q must not be nil", name))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.index[name]; dup {
		panic(fmt.Sprintf("factory: class %q registered twice", name))
	}
	t.index[name] = len(t.entries)
	t.entries = append(t.entries, entry{
		info:  ClassInfo{Name: name, Type: reflect.TypeFor[T]()},
		build: func() any { return fn() },
	})
}

// Classes returns the registered classes in registration order.
func (t *Table) Classes() []ClassInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ClassInfo, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.info
	}
	return out
}

// Len returns the number of registered classes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// New builds an instance of the named class.
func (t *Table) New(name string) (any, error) {
	t.mu.RLock()
	i, ok := t.index[name]
	var e entry
	if ok {
		e = t.entries[i]
	}
	t.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownClass.Errorf("%q", name)
	}
	return e.build(), nil
}

// Names returns the names of the classes in infos that implement base,
// keeping their order.
func Names(infos []ClassInfo, base reflect.Type) []string {
	var names []string
	for _, c := range infos {
		if c.Implements(base) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Provides reports whether infos holds a class named name that implements
// base.
func Provides(infos []ClassInfo, name string, base reflect.Type) bool {
	return slices.ContainsFunc(infos, func(c ClassInfo) bool {
		return c.Name == name && c.Implements(base)
	})
}
