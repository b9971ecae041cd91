// Package sentinel provides an immutable error type for the classloader
// error taxonomy.
//
// Errors declared with errors.New are variables that consumers could
// reassign. Error is string-backed, so it can be declared as a const and
// still matches through wrapped chains with errors.Is.
package sentinel

import "fmt"

var _ error = Error("")

// Error is an immutable error kind backed by a string constant.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Errorf returns an error that reads "<kind>: <formatted detail>" and
// matches e via errors.Is. Any %w verbs in format are wrapped as well, so
// the collaborator cause stays inspectable next to the kind.
func (e Error) Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{e}, args...)...)
}
