package ipc

import (
	"bytes"
	"testing"
)

func TestBufferCopiesItsSource(t *testing.T) {
	src := []byte("hello")
	b := newBuffer(src)

	src[0] = 'H'
	if !bytes.Equal(b.Data(), []byte("hello")) {
		t.Fatalf("Buffer retained a reference to its source slice: got %q", b.Data())
	}
}

func TestBufferSize(t *testing.T) {
	b := newBuffer([]byte("abcde"))
	if b.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", b.Size())
	}
}

func TestNilBufferIsEmpty(t *testing.T) {
	var b *Buffer
	if b.Size() != 0 {
		t.Fatalf("Size() on nil Buffer = %d, want 0", b.Size())
	}
	if b.Data() != nil {
		t.Fatalf("Data() on nil Buffer = %v, want nil", b.Data())
	}
}

func TestNewBufferFromNilIsEmpty(t *testing.T) {
	b := newBuffer(nil)
	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", b.Size())
	}
}
