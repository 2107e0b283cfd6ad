//go:build windows

// Package winpipe is the low-level overlapped-I/O engine behind the
// named-pipe channel backend. It owns exactly the Win32 calls the backend
// needs — create a server instance, accept one connection, read or write
// one buffer, cancel a pending operation at shutdown — and nothing of the
// higher-level acceptor/reader/queue orchestration, which lives in the
// parent package's channel_np_windows.go.
//
// The overlapped pattern here is event-per-operation (CreateEvent +
// WaitForMultipleObjects), not the global I/O-completion-port dispatcher
// go-winio's own pipe.go uses. The design this package implements calls
// for exactly two wait objects per blocking operation — the operation's
// own completion and a shared stop event — which maps directly onto
// WaitForMultipleObjects and does not need a completion port's
// fan-in/fan-out machinery.
package winpipe

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// Prefix is the local-pipe namespace every channel name is mounted under.
const Prefix = `\\.\pipe\`

// Path turns an application-provided channel name into a pipe path.
func Path(name string) string {
	return Prefix + name
}

// ValidateName enforces the pipe name format: length < 256, no
// backslashes. Matching is not case-sensitive at the OS level, so no case
// check is needed here.
func ValidateName(name string) error {
	if len(name) >= 256 {
		return os.ErrInvalid
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' {
			return os.ErrInvalid
		}
	}
	return nil
}

const (
	bufferSize = 4096

	// pipeMode is message-type, message-read, blocking-wait: the server
	// instance itself waits for data the normal (non-overlapped) way
	// once connected; it is the connect and read *calls* that are
	// issued overlapped, not the pipe's own byte-delivery mode.
	pipeMode = windows.PIPE_TYPE_MESSAGE | windows.PIPE_READMODE_MESSAGE | windows.PIPE_WAIT
)

// CreateInstance creates one server-side pipe instance in message mode,
// duplex access, overlapped, with an effectively unlimited instance count
// so any number of concurrent senders can be accepted.
func CreateInstance(path string) (windows.Handle, error) {
	path16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return windows.InvalidHandle, err
	}
	h, err := createNamedPipe(
		path16,
		windows.PIPE_ACCESS_DUPLEX|windows.FILE_FLAG_OVERLAPPED,
		pipeMode,
		windows.PIPE_UNLIMITED_INSTANCES,
		bufferSize,
		bufferSize,
		0, // default timeout
		nil,
	)
	if err != nil {
		return windows.InvalidHandle, err
	}
	return h, nil
}

// Op is one in-flight overlapped operation: a connect or a read issued
// against a single pipe instance.
type Op struct {
	ov windows.Overlapped
}

// NewOp allocates an Op with a fresh manual-reset event for its Overlapped
// structure. Manual-reset is required: WaitForMultipleObjects would
// otherwise race a second waiter (there is only ever one waiter here, but
// auto-reset events are also cleared by GetOverlappedResult's internal
// wait, which this package avoids entirely by waiting on the event
// itself first).
func NewOp() (*Op, error) {
	ev, err := createEvent(nil, 1, 0, nil)
	if err != nil {
		return nil, err
	}
	return &Op{ov: windows.Overlapped{HEvent: ev}}, nil
}

// Close releases the Op's event handle. It does not touch any pipe handle.
func (o *Op) Close() {
	if o.ov.HEvent != 0 {
		windows.CloseHandle(o.ov.HEvent)
		o.ov.HEvent = 0
	}
}

// Connect issues an asynchronous ConnectNamedPipe on h and waits for
// either the connection or stopEvent. stopped is true when stopEvent won
// the race, in which case the pending connect has already been cancelled.
func Connect(h windows.Handle, op *Op, stopEvent windows.Handle) (stopped bool, err error) {
	err = connectNamedPipe(h, &op.ov)
	if err == windows.ERROR_PIPE_CONNECTED {
		return false, nil
	}
	if err != nil && err != windows.ERROR_IO_PENDING {
		return false, err
	}
	_, stopped, err = wait(h, op, stopEvent)
	return stopped, err
}

// Read issues an asynchronous ReadFile into buf and waits for either the
// read or stopEvent.
func Read(h windows.Handle, op *Op, buf []byte, stopEvent windows.Handle) (n int, stopped bool, err error) {
	var bytes uint32
	err = windows.ReadFile(h, buf, &bytes, &op.ov)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, false, err
	}
	if err == nil {
		return int(bytes), false, nil
	}
	got, stopped, err := wait(h, op, stopEvent)
	return int(got), stopped, err
}

// wait blocks on the operation's own completion event and stopEvent,
// cancelling and draining the operation if stopEvent wins.
func wait(h windows.Handle, op *Op, stopEvent windows.Handle) (n uint32, stopped bool, err error) {
	idx, err := waitForMultipleObjects([]windows.Handle{op.ov.HEvent, stopEvent}, false, windows.INFINITE)
	if err != nil {
		return 0, false, err
	}
	if idx == 1 {
		_ = cancelIoEx(h, &op.ov)
		// Drain the (now cancelled) operation so its event handle can
		// be reused or closed without a dangling kernel reference.
		_, _ = getOverlappedResult(h, &op.ov, true)
		return 0, true, nil
	}
	n, err = getOverlappedResult(h, &op.ov, false)
	return n, false, err
}

// NewStopEvent creates a manual-reset event used to cancel any number of
// pending Connect/Read calls at shutdown.
func NewStopEvent() (windows.Handle, error) {
	return createEvent(nil, 1, 0, nil)
}

// SignalEvent sets an event object, waking every waiter blocked on it.
func SignalEvent(h windows.Handle) error {
	return setEvent(h)
}

// Disconnect disconnects and the caller then closes the handle.
func Disconnect(h windows.Handle) error {
	return disconnectNamedPipe(h)
}

// DialSender opens the client side of the pipe, retrying on any failure of
// WaitNamedPipe or CreateFile (busy, not yet created, ...). It matches the
// design's sender connect policy: up to 30 attempts at 100ms intervals,
// calling WaitNamedPipe then CreateFile, and returns the last error once
// the attempts are used up.
func DialSender(path string) (windows.Handle, error) {
	path16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return windows.InvalidHandle, err
	}

	const (
		maxRetries = 30
		interval   = 100 * time.Millisecond
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(interval)
		}
		if err := waitNamedPipe(path16, waitNamedPipeDefaultWait); err != nil {
			lastErr = err
			continue
		}
		h, err := windows.CreateFile(
			path16,
			windows.GENERIC_READ|windows.GENERIC_WRITE,
			0,
			nil,
			windows.OPEN_EXISTING,
			0,
			0,
		)
		if err != nil {
			lastErr = err
			continue
		}
		return h, nil
	}
	return windows.InvalidHandle, lastErr
}

// Write performs a synchronous write of the entire payload, the way the
// design's sender path does (the sender never uses overlapped I/O; only
// the receiver's acceptor and readers do).
func Write(h windows.Handle, data []byte) (int, error) {
	var written uint32
	err := windows.WriteFile(h, data, &written, nil)
	if err != nil {
		return int(written), err
	}
	return int(written), nil
}
