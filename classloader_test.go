package classloader_test

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/giantswarm/classloader"
	"github.com/giantswarm/classloader/factory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"
)

type Greeter interface{ Greet() string }

type Counter interface{ Count() int }

type hello struct{ from string }

func (h *hello) Greet() string { return "hello from " + h.from }

type tally struct{ n int }

func (t *tally) Count() int { return t.n }

func testLibraries() map[string]factory.Registrar {
	return map[string]factory.Registrar{
		"libA": func(t *factory.Table) {
			factory.Register(t, "Foo", func() *hello { return &hello{from: "libA"} })
		},
		"libB": func(t *factory.Table) {
			factory.Register(t, "Foo", func() *hello { return &hello{from: "libB"} })
			factory.Register(t, "Bar", func() *hello { return &hello{from: "libB"} })
			factory.Register(t, "Tally", func() *tally { return &tally{n: 3} })
		},
	}
}

func newLoader(t *testing.T, opts ...classloader.Option) *classloader.MultiLoader {
	t.Helper()
	opts = append([]classloader.Option{classloader.WithStaticLibraries(testLibraries())}, opts...)
	ml := classloader.NewMultiLoader(opts...)
	t.Cleanup(func() { _ = ml.Shutdown() })
	return ml
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want errors.Is %v", err, target)
	}
}

func greet(t *testing.T, inst *classloader.Instance[Greeter]) string {
	t.Helper()
	g, err := inst.Object()
	if err != nil {
		t.Fatalf("Object() error = %v", err)
	}
	return g.Greet()
}

func TestTwoLibraries(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)

	if err := ml.LoadLibrary("libA"); err != nil {
		t.Fatalf("LoadLibrary(libA) error = %v", err)
	}
	if err := ml.LoadLibrary("libB"); err != nil {
		t.Fatalf("LoadLibrary(libB) error = %v", err)
	}

	for _, class := range []string{"Foo", "Bar"} {
		if !classloader.IsClassAvailable[Greeter](ml, class) {
			t.Errorf("IsClassAvailable[Greeter](%s) = false", class)
		}
	}
	if classloader.IsClassAvailable[Greeter](ml, "Tally") {
		t.Error("Tally should not be available as a Greeter")
	}

	want := []string{"Foo", "Foo", "Bar"}
	if got := classloader.AvailableClasses[Greeter](ml); !slices.Equal(got, want) {
		t.Errorf("AvailableClasses[Greeter]() = %v, want %v", got, want)
	}

	foo, err := classloader.CreateInstance[Greeter](ml, "Foo")
	if err != nil {
		t.Fatalf("CreateInstance(Foo) error = %v", err)
	}
	if got := greet(t, foo); got != "hello from libA" {
		t.Errorf("Foo says %q, want hello from libA", got)
	}

	fooB, err := classloader.CreateInstanceFrom[Greeter](ml, "Foo", "libB")
	if err != nil {
		t.Fatalf("CreateInstanceFrom(Foo, libB) error = %v", err)
	}
	if got := greet(t, fooB); got != "hello from libB" {
		t.Errorf("Foo from libB says %q", got)
	}

	_, err = classloader.CreateInstanceFrom[Greeter](ml, "Bar", "libA")
	requireErrorIs(t, err, classloader.ErrCreateClass)

	_, err = classloader.CreateInstanceFrom[Greeter](ml, "Foo", "libC")
	requireErrorIs(t, err, classloader.ErrLibraryNotFound)

	requireErrorIs(t, ml.UnloadLibrary("libA"), classloader.ErrUnsafeUnload)

	for _, inst := range []*classloader.Instance[Greeter]{foo, fooB} {
		if err := inst.Release(); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
	}
	for _, p := range []string{"libA", "libB"} {
		if err := ml.UnloadLibrary(p); err != nil {
			t.Fatalf("UnloadLibrary(%s) error = %v", p, err)
		}
	}
	if got := ml.RegisteredLibraries(); len(got) != 0 {
		t.Errorf("RegisteredLibraries() = %v, want empty", got)
	}
}

func TestLoadLibrary_Missing(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)

	err := ml.LoadLibrary("libZ")
	requireErrorIs(t, err, classloader.ErrLibraryLoad)
	requireErrorIs(t, err, fs.ErrNotExist)

	if ml.IsLibraryAvailable("libZ") {
		t.Error("IsLibraryAvailable(libZ) = true after failed load")
	}
}

func TestLoadLibraries(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)

	err := ml.LoadLibraries("libB", "libZ", "libA")
	requireErrorIs(t, err, classloader.ErrLibraryLoad)

	if got, want := ml.RegisteredLibraries(), []string{"libB", "libA"}; !slices.Equal(got, want) {
		t.Errorf("RegisteredLibraries() = %v, want %v", got, want)
	}

	// libB comes first in the search order now.
	inst, err := classloader.CreateInstance[Greeter](ml, "Foo")
	if err != nil {
		t.Fatalf("CreateInstance(Foo) error = %v", err)
	}
	defer func() { _ = inst.Release() }()
	if inst.Library() != "libB" {
		t.Errorf("Library() = %q, want libB", inst.Library())
	}
}

func TestCreateInstance_NoLibraries(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)

	_, err := classloader.CreateInstance[Greeter](ml, "Foo")
	requireErrorIs(t, err, classloader.ErrCreateClass)

	_, err = classloader.CreateUnmanagedInstance[Greeter](ml, "Foo")
	requireErrorIs(t, err, classloader.ErrCreateClass)

	_, err = classloader.CreateInstanceFrom[Greeter](ml, "Foo", "")
	requireErrorIs(t, err, classloader.ErrLibraryNotFound)
}

func TestCreateInstance_ConcreteBase(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)
	if err := ml.LoadLibrary("libB"); err != nil {
		t.Fatal(err)
	}

	inst, err := classloader.CreateInstance[*tally](ml, "Tally")
	if err != nil {
		t.Fatalf("CreateInstance[*tally] error = %v", err)
	}
	defer func() { _ = inst.Release() }()

	obj, err := inst.Object()
	if err != nil {
		t.Fatalf("Object() error = %v", err)
	}
	if obj.Count() != 3 {
		t.Errorf("Count() = %d, want 3", obj.Count())
	}

	_, err = classloader.CreateInstance[Counter](ml, "Foo")
	requireErrorIs(t, err, classloader.ErrCreateClass)
}

func TestInstance_Release(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)
	if err := ml.LoadLibrary("libA"); err != nil {
		t.Fatal(err)
	}

	inst, err := classloader.CreateInstance[Greeter](ml, "Foo")
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID() == "" || inst.ClassName() != "Foo" || inst.Library() != "libA" {
		t.Errorf("instance = {%q %q %q}", inst.ID(), inst.ClassName(), inst.Library())
	}

	if err := inst.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	requireErrorIs(t, inst.Release(), classloader.ErrInstanceReleased)

	obj, err := inst.Object()
	requireErrorIs(t, err, classloader.ErrInstanceReleased)
	if obj != nil {
		t.Errorf("Object() after Release = %v, want nil", obj)
	}
}

func TestOnDemandLoadUnload(t *testing.T) {
	t.Parallel()
	ml := newLoader(t, classloader.WithOnDemandLoadUnload(true))
	if err := ml.LoadLibrary("libA"); err != nil {
		t.Fatal(err)
	}
	if !ml.IsLibraryLoaded("libA") {
		t.Fatal("libA not opened by LoadLibrary")
	}

	inst, err := classloader.CreateInstance[Greeter](ml, "Foo")
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Release(); err != nil {
		t.Fatal(err)
	}

	if ml.IsLibraryLoaded("libA") {
		t.Error("libA still open after its last instance was released")
	}
	if !ml.IsLibraryAvailable("libA") {
		t.Error("libA forgotten after on-demand unload")
	}
	if !classloader.IsClassAvailable[Greeter](ml, "Foo") {
		t.Error("Foo unavailable while libA is closed")
	}

	again, err := classloader.CreateInstance[Greeter](ml, "Foo")
	if err != nil {
		t.Fatalf("CreateInstance after on-demand unload error = %v", err)
	}
	defer func() { _ = again.Release() }()
	if !ml.IsLibraryLoaded("libA") {
		t.Error("libA not reopened")
	}
}

func TestUnmanagedInstance(t *testing.T) {
	t.Parallel()
	ml := newLoader(t, classloader.WithOnDemandLoadUnload(true))
	if err := ml.LoadLibraries("libA", "libB"); err != nil {
		t.Fatal(err)
	}

	g, err := classloader.CreateUnmanagedInstanceFrom[Greeter](ml, "Foo", "libB")
	if err != nil {
		t.Fatalf("CreateUnmanagedInstanceFrom error = %v", err)
	}
	if got := g.Greet(); got != "hello from libB" {
		t.Errorf("Greet() = %q", got)
	}

	inst, err := classloader.CreateInstanceFrom[Greeter](ml, "Bar", "libB")
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Release(); err != nil {
		t.Fatal(err)
	}

	st, ok := ml.Library("libB")
	if !ok || !st.Loaded || !st.Unmanaged {
		t.Errorf("Library(libB) = %+v, %v, want loaded and unmanaged", st, ok)
	}

	_, err = classloader.CreateUnmanagedInstanceFrom[Greeter](ml, "Foo", "")
	requireErrorIs(t, err, classloader.ErrLibraryNotFound)
}

func TestLibraries(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)
	if err := ml.LoadLibraries("libB", "libA"); err != nil {
		t.Fatal(err)
	}

	var paths []string
	for st := range ml.Libraries() {
		paths = append(paths, st.Path)
	}
	if want := []string{"libB", "libA"}; !slices.Equal(paths, want) {
		t.Errorf("Libraries() paths = %v, want %v", paths, want)
	}

	got, err := classloader.AvailableClassesForLibrary[Greeter](ml, "libB")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Foo", "Bar"}; !slices.Equal(got, want) {
		t.Errorf("AvailableClassesForLibrary(libB) = %v, want %v", got, want)
	}
	_, err = classloader.AvailableClassesForLibrary[Greeter](ml, "libZ")
	requireErrorIs(t, err, classloader.ErrLibraryNotFound)
}

func TestShutdown(t *testing.T) {
	t.Parallel()
	ml := newLoader(t)
	if err := ml.LoadLibraries("libA", "libB"); err != nil {
		t.Fatal(err)
	}

	if err := ml.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := ml.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	requireErrorIs(t, ml.LoadLibrary("libA"), classloader.ErrShuttingDown)
	_, err := classloader.CreateInstance[Greeter](ml, "Foo")
	requireErrorIs(t, err, classloader.ErrShuttingDown)
	if ml.IsLibraryAvailable("libA") {
		t.Error("libA still available after Shutdown")
	}
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()
	ml := newLoader(t, classloader.WithOnDemandLoadUnload(true))

	var g errgroup.Group
	for i := range 32 {
		g.Go(func() error {
			lib := []string{"libA", "libB"}[i%2]
			if err := ml.LoadLibrary(lib); err != nil {
				return err
			}
			inst, err := classloader.CreateInstanceFrom[Greeter](ml, "Foo", lib)
			if err != nil {
				return err
			}
			if _, err := inst.Object(); err != nil {
				return err
			}
			return inst.Release()
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for st := range ml.Libraries() {
		if st.LiveInstances != 0 || st.Loaded {
			t.Errorf("%s = %+v, want closed with no live instances", st.Path, st)
		}
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	ml := newLoader(t, classloader.WithMetricsRegisterer(reg))

	if err := ml.LoadLibraries("libA", "libB"); err != nil {
		t.Fatal(err)
	}
	inst, err := classloader.CreateInstance[Greeter](ml, "Bar")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = inst.Release() }()

	expected := `
# HELP classloader_libraries_registered Number of registered libraries
# TYPE classloader_libraries_registered gauge
classloader_libraries_registered 2
# HELP classloader_instances_live Managed instances not yet released, per library
# TYPE classloader_instances_live gauge
classloader_instances_live{library="libA"} 0
classloader_instances_live{library="libB"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"classloader_libraries_registered", "classloader_instances_live"); err != nil {
		t.Error(err)
	}
}

// SetLogger mutates package state, so this test does not run in parallel.
func TestSetLogger(t *testing.T) {
	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	classloader.SetLogger(slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &buf},
		&slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { classloader.SetLogger(nil) })

	ml := classloader.NewMultiLoader(classloader.WithStaticLibraries(testLibraries()))
	if err := ml.LoadLibrary("libA"); err != nil {
		t.Fatal(err)
	}
	if err := ml.Shutdown(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "library registered") {
		t.Errorf("log output %q does not mention the registration", buf.String())
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
