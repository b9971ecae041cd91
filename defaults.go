package classloader

import "github.com/giantswarm/classloader/internal/loader"

// Default configuration values for NewMultiLoader.
const (
	// DefaultUnloadPolicy keeps libraries open until they are unloaded
	// explicitly.
	DefaultUnloadPolicy = UnloadExplicit

	// DefaultLockTimeout bounds how long loading a library waits for the
	// shared file lock when WithLibraryFileLock is enabled.
	DefaultLockTimeout = loader.DefaultLockTimeout
)
