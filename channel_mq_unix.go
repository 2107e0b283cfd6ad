//go:build !windows

package ipc

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/leinfinitr/go-ipc/internal/platform"
)

// System V ipc flags. golang.org/x/sys/unix does not export typed wrappers
// for msgget/msgsnd/msgrcv/msgctl (they are rare enough that the generator
// leaves them as bare syscall numbers), so this file calls them the way
// go-winio's own zsyscall_windows.go calls Win32 procs it needs but that
// golang.org/x/sys/windows doesn't wrap either: a small, explicit,
// hand-written binding layer around the syscall numbers the module does
// export.
const (
	ipcCreat = 0o1000
	ipcExcl  = 0o2000
	ipcRmid  = 0
	ipcStat  = 2
)

// msgTypeSize is sizeof(long) on every 64-bit POSIX target this backend
// supports: the mtype field of the System V `struct msgbuf`, mandated by
// the msgsnd/msgrcv ABI and not under this package's control.
const msgTypeSize = 8

// sizeFieldSize is this package's own length-prefix field, carried inside
// the `mtext` portion of the System V message right after mtype. System V
// message queues preserve exact send boundaries, so in principle the
// kernel-reported byte count already tells a receiver how much data
// arrived; the explicit size field additionally lets receive detect a
// message whose mtext was truncated or corrupted in transit before it
// reaches this package, by cross-checking the sender's declared length
// against what was actually delivered.
const sizeFieldSize = 4

// frameHeaderSize is the full frame header this package writes ahead of
// every payload: {mtype, size}.
const frameHeaderSize = msgTypeSize + sizeFieldSize

const mtype = 1

// ipcPerm mirrors struct ipc_perm from <bits/ipc.h> on 64-bit Linux.
type ipcPerm struct {
	Key  int32
	UID  uint32
	GID  uint32
	CUID uint32
	CGID uint32
	Mode uint16
	_    uint16
	Seq  uint16
	_    uint16
	_    uint64
	_    uint64
}

// msqidDS mirrors struct msqid_ds from <bits/msq.h> on 64-bit Linux. Only
// Qbytes is consumed by this package; the rest is kept so the struct's
// size and field offsets line up with what msgctl(IPC_STAT) writes.
type msqidDS struct {
	Perm   ipcPerm
	Stime  int64
	Rtime  int64
	Ctime  int64
	Cbytes uint64
	Qnum   uint64
	Qbytes uint64
	Lspid  int32
	Lrpid  int32
	_      uint64
	_      uint64
}

func sysvMsgget(key uint32, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_MSGGET, uintptr(key), uintptr(flags), 0)
	if errno != 0 {
		return -1, errno
	}
	return int(id), nil
}

func sysvMsgctlStat(id int) (*msqidDS, error) {
	var ds msqidDS
	_, _, errno := unix.Syscall(unix.SYS_MSGCTL, uintptr(id), uintptr(ipcStat), uintptr(unsafe.Pointer(&ds)))
	if errno != 0 {
		return nil, errno
	}
	return &ds, nil
}

func sysvMsgctlRmid(id int) error {
	_, _, errno := unix.Syscall(unix.SYS_MSGCTL, uintptr(id), uintptr(ipcRmid), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// sysvMsgsnd writes the frame {mtype, size, payload}: size is payload's
// length, written as this package's own length prefix immediately after
// the kernel-mandated mtype field.
func sysvMsgsnd(id int, payload []byte, flags int) error {
	buf := make([]byte, frameHeaderSize+len(payload))
	*(*int64)(unsafe.Pointer(&buf[0])) = mtype
	*(*uint32)(unsafe.Pointer(&buf[msgTypeSize])) = uint32(len(payload))
	copy(buf[frameHeaderSize:], payload)
	_, _, errno := unix.Syscall6(unix.SYS_MSGSND, uintptr(id), uintptr(unsafe.Pointer(&buf[0])), uintptr(sizeFieldSize+len(payload)), uintptr(flags), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// sysvMsgrcv receives into a buffer sized for the largest frame this queue
// will carry and returns the {size, payload} portion of the frame that
// followed mtype, for the caller to validate.
func sysvMsgrcv(id int, maxPayload int, flags int) ([]byte, error) {
	buf := make([]byte, frameHeaderSize+maxPayload)
	n, _, errno := unix.Syscall6(unix.SYS_MSGRCV, uintptr(id), uintptr(unsafe.Pointer(&buf[0])), uintptr(sizeFieldSize+maxPayload), 0, uintptr(flags), 0)
	if errno != 0 {
		return nil, errno
	}
	return buf[msgTypeSize : msgTypeSize+int(n)], nil
}

// mqChannel implements channel over a System V message queue. Receivers
// create the queue exclusively and own its removal; Senders attach lazily
// on first use and never remove anything.
type mqChannel struct {
	name    string
	dir     Direction
	key     uint32
	msgid   int
	maxMsg  int
	log     *loggerEntry
}

func newMQChannel(name string, dir Direction, key uint32) (channel, error) {
	lg := newLoggerEntry(name, dir)
	c := &mqChannel{name: name, dir: dir, key: key, msgid: -1, log: lg}

	if dir != Receiver {
		// Sender construction is a no-op on the OS resource: first
		// Send attaches.
		return c, nil
	}

	installSignalHookOnce()
	lg.debugf("creating queue (thread %d)", platform.ThreadID())

	id, err := sysvMsgget(key, ipcExcl|ipcCreat|0o666)
	if err != nil {
		lg.errorf(err, "msgget(IPC_EXCL|IPC_CREAT) failed for key %d", key)
		return nil, errors.Wrapf(err, "ipc: message queue for channel %q (key %d) already exists or could not be created", name, key)
	}
	c.msgid = id

	if err := c.cacheMaxMsgSize(); err != nil {
		_ = sysvMsgctlRmid(id)
		lg.errorf(err, "failed to read queue metadata after create")
		return nil, errors.Wrapf(err, "ipc: reading metadata for channel %q", name)
	}
	return c, nil
}

func (c *mqChannel) cacheMaxMsgSize() error {
	ds, err := sysvMsgctlStat(c.msgid)
	if err != nil {
		return err
	}
	c.maxMsg = int(ds.Qbytes)
	return nil
}

func (c *mqChannel) attach() error {
	if c.msgid != -1 {
		return nil
	}
	id, err := sysvMsgget(c.key, 0)
	if err != nil {
		return errors.Wrapf(err, "ipc: no receiver for channel %q", c.name)
	}
	c.msgid = id
	return c.cacheMaxMsgSize()
}

func (c *mqChannel) send(payload []byte) bool {
	if payload == nil {
		c.log.warnf("send rejected: nil payload")
		return false
	}
	if c.dir != Sender {
		return false
	}
	if err := c.attach(); err != nil {
		c.log.errorf(err, "send: attach failed")
		return false
	}

	total := frameHeaderSize + len(payload)
	if total > c.maxMsg {
		c.log.warnf("send rejected: framed size %d exceeds max_msg_size %d", total, c.maxMsg)
		return false
	}

	if err := sysvMsgsnd(c.msgid, payload, 0); err != nil {
		if errors.Is(err, unix.EIDRM) || errors.Is(err, unix.EINVAL) {
			// The receiver that owned this queue was restarted; the
			// queue we were attached to no longer exists. Re-attach
			// once and retry, mirroring the NP sender's
			// reconnect-once-and-resend policy.
			c.log.warnf("send: queue identifier stale (%v), re-attaching", err)
			c.msgid = -1
			if err2 := c.attach(); err2 != nil {
				c.log.errorf(err2, "send: re-attach failed")
				return false
			}
			if err2 := sysvMsgsnd(c.msgid, payload, 0); err2 != nil {
				c.log.errorf(err2, "send: msgsnd failed after re-attach")
				return false
			}
			return true
		}
		c.log.errorf(err, "send: msgsnd failed")
		return false
	}
	return true
}

func (c *mqChannel) receive() (*Buffer, bool) {
	if c.dir != Receiver {
		return nil, false
	}

	data, err := sysvMsgrcv(c.msgid, c.maxMsg-frameHeaderSize, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			if interruptFlag.isSet() {
				c.log.infof("receive interrupted by signal, shutting down cleanly")
				_ = c.removeQueue()
				return nil, false
			}
			c.log.debugf("receive: spurious EINTR")
			return nil, false
		}
		c.log.errorf(err, "receive: msgrcv failed")
		return nil, false
	}

	if len(data) < sizeFieldSize {
		c.log.warnf("receive: malformed frame: %d bytes, want at least %d", len(data), sizeFieldSize)
		return nil, false
	}
	declaredSize := *(*uint32)(unsafe.Pointer(&data[0]))
	payload := data[sizeFieldSize:]
	if int(declaredSize) != len(payload) {
		c.log.warnf("receive: malformed frame: declared size %d, got %d bytes", declaredSize, len(payload))
		return nil, false
	}

	return newBuffer(payload), true
}

func (c *mqChannel) remove() bool {
	if c.dir != Receiver {
		return true
	}
	return c.removeQueue()
}

func (c *mqChannel) removeQueue() bool {
	if c.msgid == -1 {
		return true
	}
	err := sysvMsgctlRmid(c.msgid)
	c.msgid = -1
	if err != nil && !errors.Is(err, unix.EINVAL) {
		c.log.errorf(err, "remove: msgctl(IPC_RMID) failed")
		return false
	}
	return true
}
