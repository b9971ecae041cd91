//go:build !(linux || darwin || freebsd)

package loader

import "github.com/giantswarm/classloader/factory"

func openRegistrar(path string) (factory.Registrar, error) {
	return nil, ErrUnsupported.Errorf("cannot open %s", path)
}
