package core

import "fmt"

// UnloadPolicy decides when a registered library image is closed.
type UnloadPolicy int

const (
	// UnloadExplicit opens a library when it is registered and closes it
	// only on UnloadLibrary or Shutdown. Live instance counts are kept for
	// diagnostics and never trigger a close.
	UnloadExplicit UnloadPolicy = iota

	// UnloadOnDemand also opens at registration, but closes the image as
	// soon as the last managed instance built from it is released. The
	// library stays registered and is reopened by the next creation that
	// resolves to it.
	UnloadOnDemand
)

// IsValid reports whether p is a recognized UnloadPolicy value.
func (p UnloadPolicy) IsValid() bool {
	switch p {
	case UnloadExplicit, UnloadOnDemand:
		return true
	default:
		return false
	}
}

// String returns the name of the policy.
func (p UnloadPolicy) String() string {
	switch p {
	case UnloadExplicit:
		return "UnloadExplicit"
	case UnloadOnDemand:
		return "UnloadOnDemand"
	default:
		return fmt.Sprintf("UnloadPolicy(%d)", int(p))
	}
}
