package classloader

import (
	"fmt"
	"io/fs"
	"maps"

	"github.com/giantswarm/classloader/factory"
	"github.com/giantswarm/classloader/internal/core"
	"github.com/giantswarm/classloader/internal/loader"
)

// The bundled loaders must satisfy the interface WithLoaderFactory accepts.
var (
	_ ClassLoader = (*loader.Plugin)(nil)
	_ ClassLoader = (*loader.Static)(nil)
)

// multiLoaderConfig holds configuration for a MultiLoader. It embeds
// core.Config to keep internal types out of the public API, and adds the
// options of the default plugin loader.
type multiLoaderConfig struct {
	core.Config
	plugin loader.PluginOptions
}

func defaultMultiLoaderConfig() multiLoaderConfig {
	return multiLoaderConfig{
		Config: core.Config{UnloadPolicy: DefaultUnloadPolicy},
		plugin: loader.PluginOptions{LockTimeout: DefaultLockTimeout},
	}
}

// toCoreConfig returns the core configuration. Without an explicit loader
// factory, libraries are opened as Go plugins.
func (c multiLoaderConfig) toCoreConfig() core.Config {
	cfg := c.Config
	if cfg.LoaderFactory == nil {
		cfg.LoaderFactory = pluginLoaders(c.plugin)
	}
	return cfg
}

func pluginLoaders(opts loader.PluginOptions) LoaderFactory {
	return func(path string) (ClassLoader, error) {
		return loader.NewPlugin(path, opts), nil
	}
}

// staticLoaders serves libraries linked into the binary. Paths missing from
// libs fail with an error wrapping fs.ErrNotExist.
func staticLoaders(libs map[string]factory.Registrar) LoaderFactory {
	libs = maps.Clone(libs)
	return func(path string) (ClassLoader, error) {
		register, ok := libs[path]
		if !ok {
			return nil, fmt.Errorf("static library %s: %w", path, fs.ErrNotExist)
		}
		return loader.NewStatic(path, register), nil
	}
}
