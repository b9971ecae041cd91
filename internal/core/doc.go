// Package core implements the classloader coordination layer: a registry of
// per-library class loaders keyed by path (registration order is the search
// order), an instance broker that resolves class names to the first library
// providing them, and the lifecycle rules that open libraries at registration
// and, under the on-demand policy, close them when their last managed
// instance is released.
package core
