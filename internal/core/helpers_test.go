package core

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/giantswarm/classloader/factory"
	"github.com/giantswarm/classloader/internal/loader"
)

// origin is the capability type most tests request.
type origin interface{ Origin() string }

// shape is a capability no class in libA or libB provides.
type shape interface{ Area() float64 }

type foo struct{ lib string }

func (f *foo) Origin() string { return f.lib }

type bar struct{}

func (*bar) Origin() string { return "libB" }

type square struct{}

func (*square) Area() float64   { return 1 }
func (*square) Origin() string { return "libC" }

var (
	originType = reflect.TypeFor[origin]()
	shapeType  = reflect.TypeFor[shape]()
)

// testRegistrars returns the libraries used across the core tests:
// libA provides Foo, libB provides Foo and Bar, libC provides Square and a
// Broken class whose constructor returns nil.
func testRegistrars() map[string]factory.Registrar {
	return map[string]factory.Registrar{
		"libA": func(t *factory.Table) {
			factory.Register(t, "Foo", func() *foo { return &foo{lib: "libA"} })
		},
		"libB": func(t *factory.Table) {
			factory.Register(t, "Foo", func() *foo { return &foo{lib: "libB"} })
			factory.Register(t, "Bar", func() *bar { return &bar{} })
		},
		"libC": func(t *factory.Table) {
			factory.Register(t, "Square", func() *square { return &square{} })
			factory.Register(t, "Broken", func() origin { return nil })
		},
	}
}

// testLoader is a static library with injectable load failures, a gate
// that can hold the next Load, and an unload recorder.
type testLoader struct {
	*loader.Static
	libs *testLibs

	mu      sync.Mutex
	loadErr error
	gate    *loadGate
}

// loadGate holds one Load call until release is closed.
type loadGate struct {
	entered chan struct{}
	release chan struct{}
}

func (l *testLoader) Load() error {
	l.mu.Lock()
	err, gate := l.loadErr, l.gate
	l.gate = nil
	l.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	if err != nil {
		return err
	}
	return l.Static.Load()
}

func (l *testLoader) Unload() error {
	if l.IsLoaded() {
		l.libs.recordUnload(l.Path())
	}
	return l.Static.Unload()
}

func (l *testLoader) failLoads(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadErr = err
}

// holdNextLoad makes the next Load block. entered is closed once that Load
// is waiting; release lets it continue and may be called more than once.
func (l *testLoader) holdNextLoad() (entered <-chan struct{}, release func()) {
	g := &loadGate{entered: make(chan struct{}), release: make(chan struct{})}

	l.mu.Lock()
	l.gate = g
	l.mu.Unlock()

	return g.entered, sync.OnceFunc(func() { close(g.release) })
}

var errUnloadFailed = errors.New("unload failed")

// flakyUnload fails the first failures calls to Unload, then closes the
// wrapped library.
type flakyUnload struct {
	ClassLoader

	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyUnload) Unload() error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errUnloadFailed
	}
	return f.ClassLoader.Unload()
}

// failUnloads wraps the loader registered for path so that its next
// failures Unload calls fail.
func failUnloads(t *testing.T, m *Manager, path string, failures int32) *flakyUnload {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[path]
	if !ok {
		t.Fatalf("%s not registered", path)
	}
	f := &flakyUnload{ClassLoader: h.loader}
	f.failures.Store(failures)
	h.loader = f
	return f
}

// testLibs is a LoaderFactory over testRegistrars that remembers every
// loader it built.
type testLibs struct {
	registrars map[string]factory.Registrar
	loadErrs   map[string]error

	mu       sync.Mutex
	loaders  map[string][]*testLoader
	unloaded []string
}

func newTestLibs() *testLibs {
	return &testLibs{
		registrars: testRegistrars(),
		loadErrs:   make(map[string]error),
		loaders:    make(map[string][]*testLoader),
	}
}

func (l *testLibs) factory(path string) (ClassLoader, error) {
	reg, ok := l.registrars[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	ld := &testLoader{Static: loader.NewStatic(path, reg), libs: l, loadErr: l.loadErrs[path]}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaders[path] = append(l.loaders[path], ld)
	return ld, nil
}

func (l *testLibs) recordUnload(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unloaded = append(l.unloaded, path)
}

func (l *testLibs) unloadOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.unloaded...)
}

func (l *testLibs) built(path string) []*testLoader {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*testLoader(nil), l.loaders[path]...)
}

// only returns the single loader built for path.
func (l *testLibs) only(t *testing.T, path string) *testLoader {
	t.Helper()
	built := l.built(path)
	if len(built) != 1 {
		t.Fatalf("%d loaders built for %s, want 1", len(built), path)
	}
	return built[0]
}

func newTestManager(t *testing.T, policy UnloadPolicy) (*Manager, *testLibs) {
	t.Helper()
	libs := newTestLibs()
	m := NewManager(Config{UnloadPolicy: policy, LoaderFactory: libs.factory})
	t.Cleanup(func() { _ = m.Shutdown() })
	return m, libs
}

func mustRegister(t *testing.T, m *Manager, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := m.Register(p); err != nil {
			t.Fatalf("Register(%q) error = %v", p, err)
		}
	}
}

func mustAcquire(t *testing.T, m *Manager, className, path string) *Lease {
	t.Helper()
	l, err := m.Acquire(originType, className, path)
	if err != nil {
		t.Fatalf("Acquire(%q, %q) error = %v", className, path, err)
	}
	return l
}

func originOf(t *testing.T, l *Lease) string {
	t.Helper()
	obj, err := l.Object()
	if err != nil {
		t.Fatalf("Object() error = %v", err)
	}
	return obj.(origin).Origin() //nolint:forcetypeassert // Acquire checked assignability
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want errors.Is %v", err, target)
	}
}

// requirePanicContains calls fn and verifies it panics with a message
// containing wantSubstr.
func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatal("expected panic, got none")
	}
	if !strings.Contains(recovered, wantSubstr) {
		t.Errorf("panic message %q does not contain %q", recovered, wantSubstr)
	}
}
