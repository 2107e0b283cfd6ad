package ipc

// Buffer is the owned byte region returned from Receive. Its storage always
// comes from the backend that produced it (a fresh allocation copied out of
// OS-owned scratch space), never an alias of internal backend state, so
// callers may retain it indefinitely without pinning anything else in the
// channel alive.
type Buffer struct {
	data []byte
}

// newBuffer copies all of src into a freshly owned Buffer. The
// caller's src may be reused or freed immediately after this returns.
func newBuffer(src []byte) *Buffer {
	data := make([]byte, len(src))
	copy(data, src)
	return &Buffer{data: data}
}

// Data returns the buffer's bytes. The returned slice must not be retained
// past any call that could mutate the Buffer; in this implementation the
// Buffer is immutable once constructed, so the slice is safe to hold.
func (b *Buffer) Data() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Size returns the number of bytes in the buffer.
func (b *Buffer) Size() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}
