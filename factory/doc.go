// Package factory is the registration surface shared by plugin libraries and
// the classloader host.
//
// A plugin library is a Go main package built with -buildmode=plugin that
// exports a function named RegisterClasses with the Registrar signature:
//
//	package main
//
//	import "github.com/giantswarm/classloader/factory"
//
//	func RegisterClasses(t *factory.Table) {
//	    factory.Register(t, "Circle", func() *Circle { return &Circle{} })
//	    factory.Register(t, "Square", func() *Square { return &Square{} })
//	}
//
//	func main() {}
//
// The host matches each registered class against a capability type with
// [ClassInfo.Implements]: a class is available as Base when the static return
// type of its constructor implements Base, or is Base itself.
package factory
