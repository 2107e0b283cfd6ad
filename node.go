// Package ipc provides a small, cross-platform local IPC channel: one
// process opens a named channel as a Sender, another opens the same name
// as a Receiver, and the two exchange discrete, length-delimited byte
// messages. On POSIX hosts the channel is backed by a System V message
// queue; on Windows it is backed by an overlapped-I/O named pipe. Callers
// never see the difference beyond the Backend they asked for.
package ipc

import (
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/leinfinitr/go-ipc/internal/platform"
)

// Direction fixes whether a Node may Send or Receive. It is set once at
// construction and never changes.
type Direction int

const (
	// Sender may only Send.
	Sender Direction = iota
	// Receiver may only Receive, and is the only direction that owns
	// (creates and removes) the underlying OS resource.
	Receiver
)

func (d Direction) String() string {
	switch d {
	case Sender:
		return "sender"
	case Receiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// Backend selects the OS primitive behind a channel.
type Backend int

const (
	// Unspecified resolves to the platform default: MessageQueue on
	// POSIX, NamedPipe on Windows.
	Unspecified Backend = iota
	// MessageQueue is the System V message-queue backend (POSIX only).
	MessageQueue
	// NamedPipe is the overlapped-I/O named-pipe backend (Windows only).
	NamedPipe
)

func (b Backend) String() string {
	switch b {
	case MessageQueue:
		return "message-queue"
	case NamedPipe:
		return "named-pipe"
	default:
		return "unspecified"
	}
}

func resolveBackend(b Backend) (Backend, error) {
	switch b {
	case Unspecified:
		if runtime.GOOS == "windows" {
			return NamedPipe, nil
		}
		return MessageQueue, nil
	case MessageQueue, NamedPipe:
		return b, nil
	default:
		return 0, ErrUnknownBackend
	}
}

// Node is the application-visible handle binding a channel name, a
// direction, and a backend. It is the sole owner of the underlying
// channel: nothing else in this package retains a reference to it once
// New returns, so calling Remove on the Node is always sufficient to
// release its OS resource. A Node that is dropped without Remove does not
// release it; there is no finalizer.
type Node struct {
	name      string
	dir       Direction
	backend   Backend
	key       uint32
	ch        channel
	metrics   *metrics
	log       *loggerEntry
	startedAt time.Time
}

// options configure optional behavior of New. New starts from the
// documented defaults (process-wide logger, the default Prometheus
// registerer) and then applies each NodeOption.
type options struct {
	registerer prometheus.Registerer
	logger     *logrus.Logger
}

// NodeOption customizes New beyond its three required arguments, following
// the functional-options idiom used elsewhere in this ecosystem for
// optional construction parameters.
type NodeOption func(*options)

// WithRegisterer overrides the Prometheus registerer a Node's metrics are
// registered against. Passing nil disables registration (the collectors
// still exist and are updated, they are simply never exposed to a
// scraper).
func WithRegisterer(reg prometheus.Registerer) NodeOption {
	return func(o *options) { o.registerer = reg }
}

// WithLogger overrides the logrus.Logger the Node's own log lines are
// written through. Lines logged by the backend channel (send, receive and
// connection errors) still go through the process-wide default. Passing
// nil is a no-op; the process-wide default (configured via XLOG_LEVEL) is
// used instead.
func WithLogger(logger *logrus.Logger) NodeOption {
	return func(o *options) { o.logger = logger }
}

// New constructs a Node bound to name and dir. backend selects the OS
// primitive; pass Unspecified to get the platform default.
//
// New fails when: name is empty, backend is not one of the recognized
// values, the derived queue key equals the reserved private-key sentinel,
// a live Receiver for this name already exists in this process, or name
// collides with a different channel's derived key. All of these are
// configuration/resource-creation errors per the design's error taxonomy:
// they are returned here, never panicked or exited, so callers can retry
// with different arguments.
func New(name string, dir Direction, backend Backend, opts ...NodeOption) (*Node, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	resolved, err := resolveBackend(backend)
	if err != nil {
		return nil, errors.Wrapf(err, "ipc: resolving backend for channel %q", name)
	}

	key := deriveKey(name)
	if key == privateKey {
		return nil, errors.Wrapf(ErrInvalidKey, "ipc: channel %q", name)
	}

	o := &options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}

	lg := newLoggerEntry(name, dir)
	if o.logger != nil {
		lg = newLoggerEntryFrom(o.logger, name, dir)
	}

	if dir == Receiver {
		if err := receivers.register(name, key); err != nil {
			lg.errorf(err, "receiver registration failed")
			return nil, err
		}
	}

	n := &Node{
		name:      name,
		dir:       dir,
		backend:   resolved,
		key:       key,
		metrics:   newMetrics(o.registerer, name, dir),
		log:       lg,
		startedAt: time.Now(),
	}

	ch, err := newChannel(resolved, name, dir, key)
	if err != nil {
		if dir == Receiver {
			receivers.unregister(key)
		}
		lg.errorf(err, "failed to construct %s channel", resolved)
		return nil, err
	}
	n.ch = ch

	lg.infof("channel opened (backend=%s, key=%d)", resolved, key)
	return n, nil
}

// Name returns the channel name this Node was constructed with.
func (n *Node) Name() string { return n.name }

// Direction returns the Node's fixed direction.
func (n *Node) Direction() Direction { return n.dir }

// Backend returns the resolved backend this Node is using.
func (n *Node) Backend() Backend { return n.backend }

// Send hands payload to the OS for delivery to the Receiver. It returns
// false, without touching the backend, when called on a Receiver Node —
// direction enforcement is a precondition check at this facade layer.
func (n *Node) Send(payload []byte) bool {
	if n.dir != Sender {
		n.log.warnf("send called on a %s node", n.dir)
		return false
	}
	ok := n.ch.send(payload)
	if ok {
		n.metrics.sendOK(len(payload))
	} else {
		n.metrics.sendErr()
	}
	return ok
}

// Receive blocks until a message arrives, the channel is removed, or (on
// POSIX) a registered signal interrupts the wait. It returns (nil, false)
// on clean shutdown, interruption, or a malformed frame, and (nil, false)
// immediately, without blocking, when called on a Sender Node.
func (n *Node) Receive() (*Buffer, bool) {
	if n.dir != Receiver {
		n.log.warnf("receive called on a %s node", n.dir)
		return nil, false
	}
	buf, ok := n.ch.receive()
	if ok {
		n.metrics.recvOK(buf.Size())
	} else {
		n.metrics.recvErr()
	}
	if d, ok := n.ch.(depther); ok {
		n.metrics.setQueueDepth(d.queueLen())
	}
	return buf, ok
}

// Remove releases the channel. It is idempotent and safe to call more than
// once, including from a deferred cleanup alongside an explicit call
// earlier in the same function.
//
// On the named-pipe backend, removing a Receiver is not synchronized with
// Sends running concurrently in other Nodes: such a Send may fail, or its
// write may be accepted by the OS and never read.
func (n *Node) Remove() bool {
	if n.dir == Receiver {
		receivers.unregister(n.key)
	}
	ok := n.ch.remove()
	n.log.infof("channel removed (ok=%v, uptime=%s)", ok, platform.Uptime(n.startedAt))
	return ok
}
