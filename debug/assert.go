//go:build debug

package debug

// Enabled reports whether assertions are compiled in. Guard assertions that
// do any work of their own with `if debug.Enabled {...}` so they can be
// eliminated entirely in release builds.
const Enabled = true

// Assert panics with message if b is false.
func Assert(b bool, message string) {
	if !b {
		panic(message)
	}
}

// AssertErrNil panics if err is not nil.
func AssertErrNil(err error) {
	if err != nil {
		panic(err)
	}
}
