package ipc

import "github.com/pkg/errors"

// Sentinel errors returned by New. All of them represent the
// "configuration error" and "resource-creation error" taxonomy from the
// design: the caller cannot retry these without changing arguments, so
// they are returned from the constructor rather than surfacing later as a
// false/nil result from Send/Receive.
var (
	// ErrEmptyName is returned when a channel name is the empty string.
	ErrEmptyName = errors.New("ipc: channel name must not be empty")

	// ErrUnknownBackend is returned for a Backend value other than
	// MessageQueue, NamedPipe, or Unspecified.
	ErrUnknownBackend = errors.New("ipc: unknown backend")

	// ErrInvalidKey is returned when a channel name hashes to the
	// reserved System V IPC_PRIVATE key (0). Choose a different name.
	ErrInvalidKey = errors.New("ipc: derived queue key equals the reserved private key")

	// ErrDuplicateReceiver is returned when constructing a second
	// Receiver for a channel name that already has a live Receiver in
	// this process.
	ErrDuplicateReceiver = errors.New("ipc: a receiver for this channel already exists")

	// ErrKeyCollision is returned when a channel name hashes to the same
	// System V key as a different, already-registered channel name.
	ErrKeyCollision = errors.New("ipc: channel name collides with another channel's derived key")
)
