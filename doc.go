// Package classloader loads classes from many plugin libraries at once.
//
// A library is a Go plugin image (built with -buildmode=plugin) that exports
// a factory.Registrar under the symbol factory.RegistrarSymbol. Each library
// registers named classes; callers instantiate them through a capability
// type of their choice, usually an interface every plugin class implements.
//
// The MultiLoader keeps one loader per library path. Class lookups without
// an explicit library search the libraries in the order they were loaded,
// and the first library that provides the class as the requested type wins.
//
// # Basic Usage
//
//	import "github.com/giantswarm/classloader"
//
//	type Shape interface{ Area() float64 }
//
//	ml := classloader.NewMultiLoader()
//	defer ml.Shutdown()
//
//	if err := ml.LoadLibrary("./plugins/shapes.so"); err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := classloader.CreateInstance[Shape](ml, "Square")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Release()
//
//	sq, err := inst.Object()
//	// Use sq...
//
// # Writing a Library
//
//	package main
//
//	import "github.com/giantswarm/classloader/factory"
//
//	func RegisterClasses(t *factory.Table) {
//	    factory.Register(t, "Square", func() *Square { return &Square{Side: 1} })
//	}
//
//	func main() {}
//
// # Unloading
//
// By default a library stays open until UnloadLibrary or Shutdown. With
// WithOnDemandLoadUnload(true) the image is closed as soon as the last
// managed instance created from it is released, and reopened by the next
// creation that needs it. UnloadLibrary refuses to close a library while
// managed instances from it are alive.
//
// Unmanaged instances (CreateUnmanagedInstance) are not tracked. Creating
// one disables on-demand unloading for its library; the caller must not
// unload that library explicitly while the instance is still in use.
package classloader
