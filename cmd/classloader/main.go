// Command classloader loads plugin libraries and inspects or instantiates
// the classes they register.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
