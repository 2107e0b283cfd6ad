//go:build !windows

package ipc

import (
	"bytes"
	"testing"
)

func TestMQSendReceiveRoundTrip(t *testing.T) {
	name := "go-ipc-test-roundtrip"
	key := deriveKey(name)

	rx, err := newMQChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newMQChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	tx, err := newMQChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newMQChannel(Sender) failed: %v", err)
	}

	payload := []byte("hello from sender")
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

func TestMQSendBeforeReceiverExistsFails(t *testing.T) {
	name := "go-ipc-test-no-receiver"
	key := deriveKey(name)

	tx, err := newMQChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newMQChannel(Sender) failed: %v", err)
	}
	if tx.send([]byte("nobody home")) {
		t.Fatalf("send() succeeded with no receiver attached")
	}
}

func TestMQOversizePayloadRejected(t *testing.T) {
	name := "go-ipc-test-oversize"
	key := deriveKey(name)

	rx, err := newMQChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newMQChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	mq := rx.(*mqChannel)
	tx, err := newMQChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newMQChannel(Sender) failed: %v", err)
	}

	oversized := make([]byte, mq.maxMsg+1)
	if tx.send(oversized) {
		t.Fatalf("send() accepted a payload larger than the queue's max message size")
	}
}

func TestMQSendRejectsNilPayload(t *testing.T) {
	name := "go-ipc-test-nil-payload"
	key := deriveKey(name)

	rx, err := newMQChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newMQChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	tx, err := newMQChannel(name, Sender, key)
	if err != nil {
		t.Fatalf("newMQChannel(Sender) failed: %v", err)
	}
	if tx.send(nil) {
		t.Fatalf("send(nil) returned true, want false")
	}
}

func TestMQSecondReceiverAtOSLevelFails(t *testing.T) {
	name := "go-ipc-test-duplicate-queue"
	key := deriveKey(name)

	rx, err := newMQChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("first newMQChannel(Receiver) failed: %v", err)
	}
	defer rx.remove()

	if _, err := newMQChannel(name, Receiver, key); err == nil {
		t.Fatalf("second newMQChannel(Receiver) for the same key succeeded, want IPC_EXCL failure")
	}
}

func TestMQRemoveIsIdempotent(t *testing.T) {
	name := "go-ipc-test-remove-idempotent"
	key := deriveKey(name)

	rx, err := newMQChannel(name, Receiver, key)
	if err != nil {
		t.Fatalf("newMQChannel(Receiver) failed: %v", err)
	}
	if !rx.remove() {
		t.Fatalf("first remove() returned false")
	}
	if !rx.remove() {
		t.Fatalf("second remove() returned false, want idempotent success")
	}
}
