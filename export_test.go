package classloader

import "time"

// ConfigSnapshot holds a copy of multiLoaderConfig fields for test
// assertions, so the _test package can verify option closures without
// reaching into internals.
type ConfigSnapshot struct {
	UnloadPolicy      UnloadPolicy
	HasLoaderFactory  bool
	HasMetrics        bool
	LockLibraryFiles  bool
	LockTimeout       time.Duration
	DefaultsToPlugins bool
}

// ApplyOptionsForTesting creates a default multiLoaderConfig, applies the
// given options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultMultiLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		UnloadPolicy:      cfg.UnloadPolicy,
		HasLoaderFactory:  cfg.LoaderFactory != nil,
		HasMetrics:        cfg.MetricsRegisterer != nil,
		LockLibraryFiles:  cfg.plugin.LockFile,
		LockTimeout:       cfg.plugin.LockTimeout,
		DefaultsToPlugins: cfg.LoaderFactory == nil && cfg.toCoreConfig().LoaderFactory != nil,
	}
}
