package classloader

import (
	"fmt"
	"time"

	"github.com/giantswarm/classloader/factory"
	"github.com/prometheus/client_golang/prometheus"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("classloader: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonNil panics if ok is false with a descriptive message.
func requireNonNil(name string, ok bool) {
	if !ok {
		panic(fmt.Sprintf("classloader: %s must not be nil", name))
	}
}

// Option configures a MultiLoader during construction via NewMultiLoader.
//
// Several With* functions panic on invalid input. Option values are
// normally constants or package-level variables, so an invalid value is a
// programmer error and fails at initialization, like [regexp.MustCompile].
type Option func(*multiLoaderConfig)

// WithUnloadPolicy sets when library images are closed.
//
// Default: UnloadExplicit.
//
// Panics if p is not a recognized policy.
func WithUnloadPolicy(p UnloadPolicy) Option {
	if !p.IsValid() {
		panic(fmt.Sprintf("classloader: invalid unload policy: %v", p))
	}
	return func(c *multiLoaderConfig) {
		c.UnloadPolicy = p
	}
}

// WithOnDemandLoadUnload is shorthand for WithUnloadPolicy(UnloadOnDemand)
// when enabled, and WithUnloadPolicy(UnloadExplicit) otherwise.
func WithOnDemandLoadUnload(enabled bool) Option {
	if enabled {
		return WithUnloadPolicy(UnloadOnDemand)
	}
	return WithUnloadPolicy(UnloadExplicit)
}

// WithLoaderFactory replaces the Go plugin loader with f. The plugin
// options (WithLibraryFileLock, WithLockTimeout) do not apply to loaders
// built by f.
//
// Panics if f is nil.
func WithLoaderFactory(f LoaderFactory) Option {
	requireNonNil("loader factory", f != nil)
	return func(c *multiLoaderConfig) {
		c.LoaderFactory = f
	}
}

// WithStaticLibraries serves the libraries in libs, keyed by the path
// callers pass to LoadLibrary, from registrars compiled into the binary
// instead of plugin images. Loading any other path fails with an error
// wrapping fs.ErrNotExist. The map is copied.
//
// Panics if libs is empty, or if a path is empty or a registrar is nil.
func WithStaticLibraries(libs map[string]factory.Registrar) Option {
	if len(libs) == 0 {
		panic("classloader: static libraries must not be empty")
	}
	for path, register := range libs {
		if path == "" {
			panic("classloader: static library path must not be empty")
		}
		requireNonNil(fmt.Sprintf("registrar for static library %q", path), register != nil)
	}
	f := staticLoaders(libs)
	return func(c *multiLoaderConfig) {
		c.LoaderFactory = f
	}
}

// WithLibraryFileLock makes plugin libraries hold a shared advisory lock on
// their file while loaded. Installers that take an exclusive lock before
// replacing a library then wait until the image is unloaded.
//
// Default: false.
func WithLibraryFileLock(enabled bool) Option {
	return func(c *multiLoaderConfig) {
		c.plugin.LockFile = enabled
	}
}

// WithLockTimeout bounds how long loading a plugin library waits for its
// shared file lock. Only used with WithLibraryFileLock(true).
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithLockTimeout(d time.Duration) Option {
	requirePositive("lock timeout", d)
	return func(c *multiLoaderConfig) {
		c.plugin.LockTimeout = d
	}
}

// WithMetricsRegisterer registers the MultiLoader's Prometheus metrics with
// reg. Without it the metrics are kept but not exported.
//
// Panics if reg is nil.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	requireNonNil("metrics registerer", reg != nil)
	return func(c *multiLoaderConfig) {
		c.MetricsRegisterer = reg
	}
}
