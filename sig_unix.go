//go:build !windows

package ipc

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// interruptFlag is the process-wide flag the original implementation's
// signal handler sets and a blocked msgrcv checks on EINTR to decide
// between a clean shutdown and a spurious wakeup. It is unavoidably
// process-wide (POSIX signal delivery is process-wide, not per-channel),
// so it is modeled as a single lazily-initialized atomic rather than a
// per-channel field, per the design notes.
type interruptedFlag struct{ v int32 }

func (f *interruptedFlag) set()          { atomic.StoreInt32(&f.v, 1) }
func (f *interruptedFlag) isSet() bool   { return atomic.LoadInt32(&f.v) != 0 }

var interruptFlag interruptedFlag

var signalHookOnce sync.Once

// installSignalHookOnce installs handlers for SIGINT, SIGQUIT, and SIGTERM
// exactly once per process, no matter how many MQ Receivers are
// constructed. The handler does nothing but set interruptFlag; all actual
// shutdown work happens in the blocked receive loop that observes the
// flag on its next EINTR wakeup.
//
// SIGKILL is deliberately not in this list: the OS does not allow
// catching it, so attempting to register a handler for it would be a
// silent no-op. The original C implementation attempted it anyway and
// relied on the OS ignoring the request; this port skips the attempt
// rather than imitating the no-op.
func installSignalHookOnce() {
	signalHookOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
		go func() {
			for range ch {
				interruptFlag.set()
			}
		}()
	})
}
