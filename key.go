package ipc

import "github.com/cespare/xxhash/v2"

// privateKey is the System V IPC_PRIVATE sentinel (0). A derived key that
// equals it is rejected at construction time: the caller must pick a
// different channel name.
const privateKey uint32 = 0

// deriveKey maps a channel name to a 32-bit queue key. Any name hashes
// identically every time within one build of this library (sender and
// receiver rendezvous on the value), and distinct names may collide — that
// is an accepted limitation of a 64-to-32-bit truncation, flagged at
// registration time by the process-wide receiver registry rather than
// detected here.
func deriveKey(name string) uint32 {
	sum := xxhash.Sum64String(name)
	return uint32(sum)
}
