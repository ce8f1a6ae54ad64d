//go:build !debug

// Package debug provides assertions that are compiled in with the debug
// build tag and are no-ops otherwise.
//
// Runtime checks aren't idiomatic Go, but in an embedded environment a
// failed assertion during development is a lot cheaper than the silent
// memory corruption it replaces.
package debug

// Enabled reports whether assertions are compiled in. Guard assertions that
// do any work of their own with `if debug.Enabled {...}` so they can be
// eliminated entirely in release builds.
const Enabled = false

// Assert panics with message if b is false.
func Assert(b bool, message string) {}

// AssertErrNil panics if err is not nil.
func AssertErrNil(err error) {}
