//go:build windows

package platform

import "golang.org/x/sys/windows"

// ThreadID returns the calling OS thread's id. The NP backend's acceptor
// and reader threads log it on entry and exit, matching the original
// implementation's thread-tagged debug lines.
func ThreadID() int {
	return int(windows.GetCurrentThreadId())
}
