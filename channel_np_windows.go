//go:build windows

package ipc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/leinfinitr/go-ipc/internal/platform"
	"github.com/leinfinitr/go-ipc/internal/winpipe"
)

const npReadBufferSize = 4096

// npAcceptRetryInterval is how long the acceptor pauses before retrying a
// CreateNamedPipe call that failed with ERROR_PIPE_BUSY.
const npAcceptRetryInterval = 100 * time.Millisecond

// npChannel implements channel over a named pipe. A Receiver runs an
// acceptor goroutine that keeps a server instance open for connection at
// all times and hands each accepted connection to its own reader
// goroutine; both feed a single mutex/condvar-guarded queue that receive
// drains. A Sender holds at most one client handle, opened lazily and
// reopened once when a write fails with ERROR_PIPE_NOT_CONNECTED.
type npChannel struct {
	name string
	dir  Direction
	path string
	log  *loggerEntry

	stopEvent windows.Handle
	stopOnce  sync.Once
	stopped   int32
	wg        sync.WaitGroup

	mu    sync.Mutex
	cond  *sync.Cond
	queue []*Buffer

	sendMu    sync.Mutex
	sendH     windows.Handle
	connected bool
}

func newNPChannel(name string, dir Direction, key uint32) (channel, error) {
	if err := winpipe.ValidateName(name); err != nil {
		return nil, errors.Wrapf(err, "ipc: invalid pipe name %q", name)
	}

	c := &npChannel{
		name: name,
		dir:  dir,
		path: winpipe.Path(name),
		log:  newLoggerEntry(name, dir),
	}
	c.cond = sync.NewCond(&c.mu)

	if dir != Receiver {
		return c, nil
	}

	ev, err := winpipe.NewStopEvent()
	if err != nil {
		return nil, errors.Wrap(err, "ipc: creating stop event for named pipe receiver")
	}
	c.stopEvent = ev

	c.wg.Add(1)
	go c.acceptLoop()
	return c, nil
}

// acceptLoop keeps exactly one server instance open for connection,
// handing each accepted client off to a new reader goroutine, until the
// channel is removed. A busy CreateNamedPipe is retried after a short
// pause; any other failure to create an instance or its overlapped event
// is logged and stops the acceptor.
func (c *npChannel) acceptLoop() {
	defer c.wg.Done()
	c.log.debugf("acceptor started (thread %d)", platform.ThreadID())
	defer c.log.debugf("acceptor stopped (thread %d)", platform.ThreadID())

	for {
		h, err := winpipe.CreateInstance(c.path)
		if err != nil {
			if err == windows.ERROR_PIPE_BUSY && atomic.LoadInt32(&c.stopped) == 0 {
				c.log.debugf("acceptor: CreateNamedPipe busy, retrying")
				time.Sleep(npAcceptRetryInterval)
				continue
			}
			c.log.errorf(err, "acceptor: CreateNamedPipe failed")
			return
		}

		op, err := winpipe.NewOp()
		if err != nil {
			c.log.errorf(err, "acceptor: allocating overlapped op failed")
			windows.CloseHandle(h)
			return
		}
		stopped, err := winpipe.Connect(h, op, c.stopEvent)
		op.Close()

		if stopped {
			windows.CloseHandle(h)
			return
		}
		if err != nil {
			c.log.errorf(err, "acceptor: connect failed")
			windows.CloseHandle(h)
			continue
		}

		c.wg.Add(1)
		go c.readLoop(h)
	}
}

// readLoop drains one connected client's messages into the shared queue
// until the client disconnects or the channel is removed.
func (c *npChannel) readLoop(h windows.Handle) {
	defer c.wg.Done()
	defer windows.CloseHandle(h)

	c.log.debugf("reader started (thread %d)", platform.ThreadID())
	defer c.log.debugf("reader stopped (thread %d)", platform.ThreadID())

	op, err := winpipe.NewOp()
	if err != nil {
		c.log.errorf(err, "reader: allocating overlapped op failed")
		return
	}
	defer op.Close()

	buf := make([]byte, npReadBufferSize)
	for {
		n, stopped, err := winpipe.Read(h, op, buf, c.stopEvent)
		if stopped {
			return
		}
		if err != nil {
			if err == windows.ERROR_BROKEN_PIPE {
				c.log.debugf("reader: sender disconnected")
			} else {
				c.log.errorf(err, "reader: read failed")
			}
			return
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		c.enqueue(newBuffer(payload))
	}
}

func (c *npChannel) enqueue(b *Buffer) {
	c.mu.Lock()
	c.queue = append(c.queue, b)
	c.cond.Signal()
	c.mu.Unlock()
}

// queueLen reports how many buffers are waiting to be drained by receive.
// Node.Receive surfaces this through the ipc_np_recv_queue_depth gauge; it
// is a no-op on the message-queue backend, which has no such queue.
func (c *npChannel) queueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *npChannel) receive() (*Buffer, bool) {
	if c.dir != Receiver {
		return nil, false
	}

	c.mu.Lock()
	for len(c.queue) == 0 {
		if atomic.LoadInt32(&c.stopped) != 0 {
			c.mu.Unlock()
			return nil, false
		}
		c.cond.Wait()
	}
	b := c.queue[0]
	c.queue = c.queue[1:]
	c.mu.Unlock()
	return b, true
}

// dialLocked opens the client handle on first use. Callers hold sendMu.
func (c *npChannel) dialLocked() error {
	if c.connected {
		return nil
	}
	h, err := winpipe.DialSender(c.path)
	if err != nil {
		return err
	}
	c.sendH = h
	c.connected = true
	return nil
}

// writeFull writes payload in one call and treats a short write (the OS
// reporting success with fewer bytes written than requested) the same as
// an outright write error.
func writeFull(h windows.Handle, payload []byte) error {
	n, err := winpipe.Write(h, payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return errors.Errorf("ipc: short write: wrote %d of %d bytes", n, len(payload))
	}
	return nil
}

func (c *npChannel) send(payload []byte) bool {
	if payload == nil {
		c.log.warnf("send rejected: nil payload")
		return false
	}
	if c.dir != Sender {
		return false
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.dialLocked(); err != nil {
		c.log.errorf(err, "send: connect failed")
		return false
	}

	if err := writeFull(c.sendH, payload); err != nil {
		if !errors.Is(err, windows.ERROR_PIPE_NOT_CONNECTED) {
			c.log.errorf(err, "send: write failed")
			return false
		}

		c.log.warnf("send: write failed (%v), reconnecting once", err)
		windows.CloseHandle(c.sendH)
		c.connected = false

		if err2 := c.dialLocked(); err2 != nil {
			c.log.errorf(err2, "send: reconnect failed")
			return false
		}
		if err2 := writeFull(c.sendH, payload); err2 != nil {
			c.log.errorf(err2, "send: write failed after reconnect")
			return false
		}
	}
	return true
}

func (c *npChannel) remove() bool {
	if c.dir != Receiver {
		c.sendMu.Lock()
		if c.connected {
			windows.CloseHandle(c.sendH)
			c.connected = false
		}
		c.sendMu.Unlock()
		return true
	}

	c.stopOnce.Do(func() {
		atomic.StoreInt32(&c.stopped, 1)
		_ = winpipe.SignalEvent(c.stopEvent)

		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()

		c.wg.Wait()
		windows.CloseHandle(c.stopEvent)

		c.mu.Lock()
		pending := len(c.queue)
		c.queue = nil
		c.mu.Unlock()
		if pending > 0 {
			c.log.warnf("receiver shut down, queue drained of %d pending message(s)", pending)
		} else {
			c.log.infof("receiver shut down")
		}
	})
	return true
}
