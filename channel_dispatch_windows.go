//go:build windows

package ipc

// newChannel constructs the backend channel for resolved on Windows. Only
// NamedPipe is available on this platform; MessageQueue is a POSIX-only
// backend and is rejected here rather than silently falling back.
func newChannel(resolved Backend, name string, dir Direction, key uint32) (channel, error) {
	switch resolved {
	case NamedPipe:
		return newNPChannel(name, dir, key)
	case MessageQueue:
		return nil, ErrUnknownBackend
	default:
		return nil, ErrUnknownBackend
	}
}
