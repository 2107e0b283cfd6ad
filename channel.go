package ipc

import "sync"

// channel is the capability every backend implements. A Node owns exactly
// one channel for its lifetime and forwards Send/Receive/Remove to it
// verbatim; direction enforcement happens one layer up, in Node, so a
// channel implementation never has to check it.
type channel interface {
	send(payload []byte) bool
	receive() (*Buffer, bool)
	remove() bool
}

// depther is implemented by backends that hold buffers in an in-process
// queue ahead of receive draining them. Only the named-pipe backend does;
// the message-queue backend hands the OS's own queue straight to msgrcv
// with nothing buffered on this side, so it does not implement this.
type depther interface {
	queueLen() int
}

// registry enforces the "at most one Receiver per channel name is alive at
// any time" invariant and the key-collision check from the third Open
// Question in the design notes. It is process-wide because the invariant
// it protects — one live OS receiver resource per name — is a process-wide
// fact on both backends: the System V queue namespace is shared by every
// goroutine that can call msgget, and a named pipe path is equally global.
// Note that on POSIX this is a second, Go-level enforcement layered on top
// of the OS's own IPC_EXCL rejection (see channel_mq_unix.go); on Windows
// it is the *only* enforcement, since CreateNamedPipe happily accepts
// multiple server instances of the same path.
type registry struct {
	mu   sync.Mutex
	byKey map[uint32]string
}

var receivers = &registry{byKey: make(map[uint32]string)}

// register records a new live Receiver for (name, key). It returns
// ErrDuplicateReceiver if this exact name already has a live Receiver, or
// ErrKeyCollision if a different name already occupies the same key.
func (r *registry) register(name string, key uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[key]; ok {
		if existing == name {
			return ErrDuplicateReceiver
		}
		return ErrKeyCollision
	}
	r.byKey[key] = name
	return nil
}

// unregister releases the slot taken by register. It is safe to call more
// than once for the same key (idempotent, mirroring Remove's contract).
func (r *registry) unregister(key uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byKey, key)
}
