//go:build windows

package winpipe

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// This file hand-binds the handful of kernel32 procedures
// golang.org/x/sys/windows does not expose as typed wrappers, the same way
// go-winio's own zsyscall_windows.go binds ConnectNamedPipe and
// GetNamedPipeInfo: a LazyDLL plus NewProc per procedure, called through
// syscall.SyscallN.

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateNamedPipeW     = modkernel32.NewProc("CreateNamedPipeW")
	procConnectNamedPipe     = modkernel32.NewProc("ConnectNamedPipe")
	procDisconnectNamedPipe  = modkernel32.NewProc("DisconnectNamedPipe")
	procCreateEventW         = modkernel32.NewProc("CreateEventW")
	procWaitForMultipleObjs  = modkernel32.NewProc("WaitForMultipleObjects")
	procCancelIoEx           = modkernel32.NewProc("CancelIoEx")
	procGetOverlappedResult  = modkernel32.NewProc("GetOverlappedResult")
	procWaitNamedPipeW       = modkernel32.NewProc("WaitNamedPipeW")
	procSetEvent             = modkernel32.NewProc("SetEvent")
)

const waitNamedPipeDefaultWait = 0x00000002 // NMPWAIT_USE_DEFAULT_WAIT

func errnoErr(e syscall.Errno) error {
	if e == 0 {
		return syscall.EINVAL
	}
	return e
}

func createNamedPipe(name *uint16, openMode uint32, pipeMode uint32, maxInstances uint32, outBufferSize uint32, inBufferSize uint32, defaultTimeout uint32, sa *windows.SecurityAttributes) (windows.Handle, error) {
	r0, _, e1 := syscall.SyscallN(
		procCreateNamedPipeW.Addr(),
		uintptr(unsafe.Pointer(name)),
		uintptr(openMode),
		uintptr(pipeMode),
		uintptr(maxInstances),
		uintptr(outBufferSize),
		uintptr(inBufferSize),
		uintptr(defaultTimeout),
		uintptr(unsafe.Pointer(sa)),
	)
	h := windows.Handle(r0)
	if h == windows.InvalidHandle {
		return h, errnoErr(e1.(syscall.Errno))
	}
	return h, nil
}

func connectNamedPipe(h windows.Handle, ov *windows.Overlapped) error {
	r0, _, e1 := syscall.SyscallN(
		procConnectNamedPipe.Addr(),
		uintptr(h),
		uintptr(unsafe.Pointer(ov)),
	)
	if r0 == 0 {
		return errnoErr(e1.(syscall.Errno))
	}
	return nil
}

func disconnectNamedPipe(h windows.Handle) error {
	r0, _, e1 := syscall.SyscallN(procDisconnectNamedPipe.Addr(), uintptr(h))
	if r0 == 0 {
		return errnoErr(e1.(syscall.Errno))
	}
	return nil
}

func createEvent(sa *windows.SecurityAttributes, manualReset uint32, initialState uint32, name *uint16) (windows.Handle, error) {
	r0, _, e1 := syscall.SyscallN(
		procCreateEventW.Addr(),
		uintptr(unsafe.Pointer(sa)),
		uintptr(manualReset),
		uintptr(initialState),
		uintptr(unsafe.Pointer(name)),
	)
	h := windows.Handle(r0)
	if h == 0 {
		return h, errnoErr(e1.(syscall.Errno))
	}
	return h, nil
}

// waitForMultipleObjects waits for any one of handles to become signaled
// and returns its index in the slice.
func waitForMultipleObjects(handles []windows.Handle, waitAll bool, timeoutMillis uint32) (int, error) {
	var waitAllFlag uintptr
	if waitAll {
		waitAllFlag = 1
	}
	r0, _, e1 := syscall.SyscallN(
		procWaitForMultipleObjs.Addr(),
		uintptr(len(handles)),
		uintptr(unsafe.Pointer(&handles[0])),
		waitAllFlag,
		uintptr(timeoutMillis),
	)
	const waitObject0 = 0
	const waitFailed = 0xFFFFFFFF
	if r0 == waitFailed {
		return 0, errnoErr(e1.(syscall.Errno))
	}
	return int(r0 - waitObject0), nil
}

func cancelIoEx(h windows.Handle, ov *windows.Overlapped) error {
	r0, _, e1 := syscall.SyscallN(
		procCancelIoEx.Addr(),
		uintptr(h),
		uintptr(unsafe.Pointer(ov)),
	)
	if r0 == 0 {
		return errnoErr(e1.(syscall.Errno))
	}
	return nil
}

func getOverlappedResult(h windows.Handle, ov *windows.Overlapped, wait bool) (uint32, error) {
	var waitFlag uintptr
	if wait {
		waitFlag = 1
	}
	var bytes uint32
	r0, _, e1 := syscall.SyscallN(
		procGetOverlappedResult.Addr(),
		uintptr(h),
		uintptr(unsafe.Pointer(ov)),
		uintptr(unsafe.Pointer(&bytes)),
		waitFlag,
	)
	if r0 == 0 {
		return bytes, errnoErr(e1.(syscall.Errno))
	}
	return bytes, nil
}

func setEvent(h windows.Handle) error {
	r0, _, e1 := syscall.SyscallN(procSetEvent.Addr(), uintptr(h))
	if r0 == 0 {
		return errnoErr(e1.(syscall.Errno))
	}
	return nil
}

func waitNamedPipe(name *uint16, timeoutMillis uint32) error {
	r0, _, e1 := syscall.SyscallN(
		procWaitNamedPipeW.Addr(),
		uintptr(unsafe.Pointer(name)),
		uintptr(timeoutMillis),
	)
	if r0 == 0 {
		return errnoErr(e1.(syscall.Errno))
	}
	return nil
}
