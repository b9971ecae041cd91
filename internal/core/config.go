package core

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LoaderFactory builds the ClassLoader for a library path. The returned
// loader must be closed; the Manager opens it.
type LoaderFactory func(path string) (ClassLoader, error)

// Config holds configuration for a Manager. It is immutable after
// NewManager.
type Config struct {
	// UnloadPolicy selects explicit or on-demand unloading.
	UnloadPolicy UnloadPolicy

	// LoaderFactory builds the single-library loaders.
	LoaderFactory LoaderFactory

	// MetricsRegisterer receives the Prometheus collectors. nil keeps the
	// metrics unexported.
	MetricsRegisterer prometheus.Registerer
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if !c.UnloadPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("invalid unload policy: %v", c.UnloadPolicy))
	}
	if c.LoaderFactory == nil {
		errs = append(errs, errors.New("loader factory must not be nil"))
	}

	return errors.Join(errs...)
}
