//go:build !windows

package platform

import "golang.org/x/sys/unix"

// ThreadID returns the calling OS thread's id, for inclusion in log lines
// the way the original C implementation's LOG_DEBUG macro included
// GetThreadId(). Go schedules goroutines onto OS threads, so this value
// can change between calls from the same goroutine; it is diagnostic only.
func ThreadID() int {
	return unix.Gettid()
}
