// Package loader provides the single-library class loaders the classloader
// coordinator drives: Plugin opens Go plugin images with the standard plugin
// package, Static serves registrars linked into the host binary.
//
// Both satisfy the coordinator's ClassLoader contract: Load and Unload are
// idempotent, Classes is empty and New fails with ErrNotLoaded while the
// library is closed.
package loader
