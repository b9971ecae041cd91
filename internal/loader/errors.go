package loader

import "github.com/giantswarm/classloader/internal/sentinel"

// ErrNotLoaded is returned by New when the library is closed.
const ErrNotLoaded = sentinel.Error("library not loaded")

// ErrSymbol is returned by Load when a plugin does not export a usable
// factory.RegistrarSymbol.
const ErrSymbol = sentinel.Error("invalid plugin registrar symbol")

// ErrUnsupported is returned by Plugin.Load on platforms without Go plugin
// support.
const ErrUnsupported = sentinel.Error("go plugins are not supported on this platform")
