// Package platform holds the handful of OS-specific primitives the
// channel backends need for diagnostics: which OS thread is running, and a
// monotonic timestamp for log lines. Everything else a backend needs
// (errno formatting, clock-for-logs) comes straight from the standard
// library, which already does this uniformly across platforms.
package platform

import "time"

// Uptime returns a monotonic duration suitable for measuring how long an
// operation (a connect retry loop, a blocked receive) has been running.
// time.Since is monotonic in Go 1.9+, so no OS-specific clock is needed.
func Uptime(start time.Time) time.Duration {
	return time.Since(start)
}
