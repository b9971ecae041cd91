//go:build linux || darwin || freebsd

package loader

import (
	"fmt"
	"plugin"

	"github.com/giantswarm/classloader/factory"
)

// openRegistrar opens the plugin image and resolves its registrar symbol.
// The symbol may be an exported function or an exported variable of type
// factory.Registrar.
func openRegistrar(path string) (factory.Registrar, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(factory.RegistrarSymbol)
	if err != nil {
		return nil, ErrSymbol.Errorf("%s in %s: %w", factory.RegistrarSymbol, path, err)
	}

	switch fn := sym.(type) {
	case func(*factory.Table):
		return fn, nil
	case *factory.Registrar:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, ErrSymbol.Errorf("%s in %s has type %T, want %T",
		factory.RegistrarSymbol, path, sym, factory.Registrar(nil))
}
