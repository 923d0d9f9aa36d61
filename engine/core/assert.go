package core

import "fmt"

// Assert reports a broken programming contract. Builds tagged `debug` panic,
// release builds log the message and carry on.
func Assert(cond bool, msg string, args ...interface{}) {
	if cond {
		return
	}
	text := fmt.Sprintf(msg, args...)
	if debugAsserts {
		panic("assertion failed: " + text)
	}
	getLogger().Error("assertion failed: " + text)
}

// AssertsPanic reports whether Assert panics in this build.
func AssertsPanic() bool {
	return debugAsserts
}
