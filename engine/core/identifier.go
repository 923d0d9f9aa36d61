package core

import "sync/atomic"

// InvalidHandle is never returned by NextHandle.
const InvalidHandle int = 0

var lastHandle atomic.Int64

// NextHandle returns a process-wide unique, monotonically increasing handle.
// Handles are never reused, so a stale handle can never address a newer entry.
func NextHandle() int {
	return int(lastHandle.Add(1))
}
