package ipc

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectionString(t *testing.T) {
	cases := map[Direction]string{Sender: "sender", Receiver: "receiver"}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Fatalf("Direction(%d).String() = %q, want %q", d, got, want)
		}
	}
}

func TestBackendString(t *testing.T) {
	cases := map[Backend]string{
		Unspecified:  "unspecified",
		MessageQueue: "message-queue",
		NamedPipe:    "named-pipe",
	}
	for b, want := range cases {
		if got := b.String(); got != want {
			t.Fatalf("Backend(%d).String() = %q, want %q", b, got, want)
		}
	}
}

func TestResolveBackendDefaultsToPlatform(t *testing.T) {
	resolved, err := resolveBackend(Unspecified)
	if err != nil {
		t.Fatalf("resolveBackend(Unspecified) returned error: %v", err)
	}
	want := MessageQueue
	if runtime.GOOS == "windows" {
		want = NamedPipe
	}
	if resolved != want {
		t.Fatalf("resolveBackend(Unspecified) = %v, want %v", resolved, want)
	}
}

func TestResolveBackendPassesThroughExplicitChoice(t *testing.T) {
	for _, b := range []Backend{MessageQueue, NamedPipe} {
		resolved, err := resolveBackend(b)
		if err != nil {
			t.Fatalf("resolveBackend(%v) returned error: %v", b, err)
		}
		if resolved != b {
			t.Fatalf("resolveBackend(%v) = %v", b, resolved)
		}
	}
}

func TestResolveBackendRejectsUnknownValues(t *testing.T) {
	if _, err := resolveBackend(Backend(99)); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("resolveBackend(99) error = %v, want ErrUnknownBackend", err)
	}
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New("", Sender, Unspecified)
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("New(\"\") error = %v, want ErrEmptyName", err)
	}
}

// fakeChannel is a minimal in-memory channel used to exercise Node's
// direction-enforcement and metrics wiring without touching any OS
// resource.
type fakeChannel struct {
	sendCalls    int
	receiveCalls int
	removeCalls  int
	sendResult   bool
	receiveBuf   *Buffer
	receiveOK    bool
}

func (f *fakeChannel) send(payload []byte) bool {
	f.sendCalls++
	return f.sendResult
}

func (f *fakeChannel) receive() (*Buffer, bool) {
	f.receiveCalls++
	return f.receiveBuf, f.receiveOK
}

func (f *fakeChannel) remove() bool {
	f.removeCalls++
	return true
}

func newTestNode(dir Direction, fc *fakeChannel) *Node {
	return &Node{
		name:    "test-channel",
		dir:     dir,
		backend: MessageQueue,
		key:     deriveKey("test-channel"),
		ch:      fc,
		metrics: newMetrics(nil, "test-channel", dir),
		log:     newLoggerEntry("test-channel", dir),
	}
}

func TestSendRejectedOnReceiverNode(t *testing.T) {
	fc := &fakeChannel{sendResult: true}
	n := newTestNode(Receiver, fc)
	if n.Send([]byte("x")) {
		t.Fatalf("Send succeeded on a Receiver node")
	}
	if fc.sendCalls != 0 {
		t.Fatalf("backend send called %d times, want 0", fc.sendCalls)
	}
}

func TestReceiveRejectedOnSenderNode(t *testing.T) {
	fc := &fakeChannel{receiveOK: true, receiveBuf: newBuffer([]byte("x"))}
	n := newTestNode(Sender, fc)
	buf, ok := n.Receive()
	if ok || buf != nil {
		t.Fatalf("Receive succeeded on a Sender node")
	}
	if fc.receiveCalls != 0 {
		t.Fatalf("backend receive called %d times, want 0", fc.receiveCalls)
	}
}

func TestSendForwardsToChannel(t *testing.T) {
	fc := &fakeChannel{sendResult: true}
	n := newTestNode(Sender, fc)
	if !n.Send([]byte("payload")) {
		t.Fatalf("Send returned false, want true")
	}
	if fc.sendCalls != 1 {
		t.Fatalf("backend send called %d times, want 1", fc.sendCalls)
	}
}

func TestReceiveForwardsToChannel(t *testing.T) {
	want := newBuffer([]byte("payload"))
	fc := &fakeChannel{receiveOK: true, receiveBuf: want}
	n := newTestNode(Receiver, fc)
	got, ok := n.Receive()
	if !ok || got != want {
		t.Fatalf("Receive() = (%v, %v), want (%v, true)", got, ok, want)
	}
}

func TestRemoveUnregistersReceiver(t *testing.T) {
	fc := &fakeChannel{}
	n := newTestNode(Receiver, fc)
	receivers.byKey[n.key] = n.name

	if !n.Remove() {
		t.Fatalf("Remove() = false, want true")
	}
	if fc.removeCalls != 1 {
		t.Fatalf("backend remove called %d times, want 1", fc.removeCalls)
	}
	receivers.mu.Lock()
	_, stillPresent := receivers.byKey[n.key]
	receivers.mu.Unlock()
	if stillPresent {
		t.Fatalf("Remove() did not release the receiver registry slot")
	}
}

func TestRegistryDetectsDuplicateAndCollision(t *testing.T) {
	r := &registry{byKey: make(map[uint32]string)}

	require.NoError(t, r.register("a", 1))
	require.ErrorIs(t, r.register("a", 1), ErrDuplicateReceiver)
	require.ErrorIs(t, r.register("b", 1), ErrKeyCollision)

	r.unregister(1)
	require.NoError(t, r.register("b", 1))
}
