//go:build windows

package ipc

import (
	"bytes"
	"testing"
	"time"
)

func TestNPSendReceiveRoundTrip(t *testing.T) {
	name := "go-ipc-test-roundtrip"
	key := deriveKey(name)

	rx, err := newNPChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newNPChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	tx, err := newNPChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newNPChannel(Sender) failed: %v", err)
	}
	defer tx.remove()

	payload := []byte("hello over the wire")
	if !tx.send(payload) {
		t.Fatalf("send() returned false")
	}

	buf, ok := rx.receive()
	if !ok {
		t.Fatalf("receive() returned false")
	}
	if !bytes.Equal(buf.Data(), payload) {
		t.Fatalf("receive() = %q, want %q", buf.Data(), payload)
	}
}

func TestNPMultipleSendersFanIn(t *testing.T) {
	name := "go-ipc-test-fanin"
	key := deriveKey(name)

	rx, err := newNPChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newNPChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	const senderCount = 3
	senders := make([]channel, senderCount)
	for i := range senders {
		tx, err := newNPChannel(name, Sender, key)
		if err != nil {
			t.Fatalf("newNPChannel(Sender) failed: %v", err)
		}
		senders[i] = tx
		defer tx.remove()
		if !tx.send([]byte("message")) {
			t.Fatalf("send() returned false for sender %d", i)
		}
	}

	got := 0
	for got < senderCount {
		if _, ok := rx.receive(); !ok {
			t.Fatalf("receive() returned false before all %d messages arrived", senderCount)
		}
		got++
	}
}

func TestNPRejectsInvalidName(t *testing.T) {
	if _, err := newNPChannel(`bad\name`, Receiver, 1); err == nil {
		t.Fatalf("newNPChannel accepted a name containing a backslash")
	}
}

func TestNPSendRejectsNilPayload(t *testing.T) {
	name := "go-ipc-test-nil-payload"
	key := deriveKey(name)

	rx, err := newNPChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newNPChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	tx, err := newNPChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newNPChannel(Sender) failed: %v", err)
	}
	defer tx.remove()

	if tx.send(nil) {
		t.Fatalf("send(nil) returned true, want false")
	}
}

func TestNPReceiveUnblocksOnRemove(t *testing.T) {
	name := "go-ipc-test-remove-unblocks"
	key := deriveKey(name)

	rx, err := newNPChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newNPChannel(Receiver) failed: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		_, ok := rx.receive()
		done <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	rx.remove()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("receive() returned true after remove(), want false")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("receive() did not unblock within 5s of remove()")
	}
}
