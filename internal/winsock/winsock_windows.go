//go:build windows
// +build windows

// File: internal/winsock/winsock_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Winsock primitives for the completion-port layer: overlapped zero-length
// reads and sends, AcceptEx through its extension pointer, accept context
// update and the attach sub-steps.

package winsock

import (
	"syscall"
	"unsafe"

	"github.com/momentics/hioload-iocp/api"
	"golang.org/x/sys/windows"
)

const fionbio = 0x8004667e

var (
	wsaidAcceptEx = windows.GUID{
		Data1: 0xb5367df1, Data2: 0xcbac, Data3: 0x11cf,
		Data4: [8]byte{0x95, 0xca, 0x00, 0x80, 0x5f, 0x48, 0xa1, 0x92},
	}
	wsaidGetAcceptExSockaddrs = windows.GUID{
		Data1: 0xb5367df2, Data2: 0xcbac, Data3: 0x11cf,
		Data4: [8]byte{0x95, 0xca, 0x00, 0x80, 0x5f, 0x48, 0xa1, 0x92},
	}

	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
)

// zeroByte backs every zero-length read buffer.
var zeroByte [1]byte

// Sys implements the socket primitives over Winsock.
type Sys struct{}

// New returns the Winsock primitives.
func New() *Sys { return &Sys{} }

func handle(fd api.Fd) windows.Handle { return windows.Handle(fd) }

func overlapped(ov *api.Overlapped) *windows.Overlapped {
	return (*windows.Overlapped)(unsafe.Pointer(ov))
}

// pending folds ERROR_IO_PENDING into success.
func pending(err error) error {
	if err == windows.ERROR_IO_PENDING {
		return nil
	}
	return err
}

func (*Sys) Socket(family int) (api.Fd, error) {
	h, err := windows.WSASocket(int32(family), windows.SOCK_STREAM, windows.IPPROTO_TCP, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		return api.InvalidFd, err
	}
	return api.Fd(h), nil
}

func (*Sys) Close(fd api.Fd) error {
	return windows.Closesocket(handle(fd))
}

func (*Sys) SetNonblock(fd api.Fd) error {
	mode := uint32(1)
	r1, _, e1 := procIoctlsocket.Call(uintptr(fd), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if int32(r1) != 0 {
		return e1
	}
	return nil
}

func (*Sys) DisableInherit(fd api.Fd) error {
	return windows.SetHandleInformation(handle(fd), windows.HANDLE_FLAG_INHERIT, 0)
}

func (*Sys) Associate(fd api.Fd, port api.Handle, key uintptr) error {
	_, err := windows.CreateIoCompletionPort(handle(fd), windows.Handle(port), key, 0)
	return err
}

func (*Sys) Listen(fd api.Fd, backlog int) error {
	return windows.Listen(handle(fd), backlog)
}

func extensionFunc(fd api.Fd, id *windows.GUID) (uintptr, error) {
	var fn uintptr
	var n uint32
	err := windows.WSAIoctl(
		handle(fd),
		windows.SIO_GET_EXTENSION_FUNCTION_POINTER,
		(*byte)(unsafe.Pointer(id)),
		uint32(unsafe.Sizeof(*id)),
		(*byte)(unsafe.Pointer(&fn)),
		uint32(unsafe.Sizeof(fn)),
		&n,
		nil,
		0,
	)
	if err != nil {
		return 0, err
	}
	return fn, nil
}

func (*Sys) LoadAcceptEx(fd api.Fd) (api.AcceptExFunc, error) {
	fn, err := extensionFunc(fd, &wsaidAcceptEx)
	if err != nil {
		return nil, err
	}
	return func(listen, accept api.Fd, buf []byte, addrLen uint32, ov *api.Overlapped) error {
		var received uint32
		r1, _, e1 := syscall.SyscallN(fn,
			uintptr(listen),
			uintptr(accept),
			uintptr(unsafe.Pointer(&buf[0])),
			0,
			uintptr(addrLen),
			uintptr(addrLen),
			uintptr(unsafe.Pointer(&received)),
			uintptr(unsafe.Pointer(ov)),
		)
		if r1 == 0 {
			return pending(e1)
		}
		return nil
	}, nil
}

func (*Sys) LoadSockaddrs(fd api.Fd) (api.SockaddrsFunc, error) {
	fn, err := extensionFunc(fd, &wsaidGetAcceptExSockaddrs)
	if err != nil {
		return nil, err
	}
	return func(buf []byte, addrLen uint32) ([]byte, []byte) {
		var local, remote *windows.RawSockaddrAny
		var localLen, remoteLen int32
		syscall.SyscallN(fn,
			uintptr(unsafe.Pointer(&buf[0])),
			0,
			uintptr(addrLen),
			uintptr(addrLen),
			uintptr(unsafe.Pointer(&local)),
			uintptr(unsafe.Pointer(&localLen)),
			uintptr(unsafe.Pointer(&remote)),
			uintptr(unsafe.Pointer(&remoteLen)),
		)
		return rawBytes(local, localLen), rawBytes(remote, remoteLen)
	}, nil
}

func rawBytes(sa *windows.RawSockaddrAny, n int32) []byte {
	if sa == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(sa)), n)
}

func (*Sys) UpdateAcceptContext(accepted, listener api.Fd) error {
	l := handle(listener)
	return windows.Setsockopt(handle(accepted), windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&l)), int32(unsafe.Sizeof(l)))
}

func (*Sys) ShutdownSend(fd api.Fd) error {
	return windows.Shutdown(handle(fd), windows.SHUT_WR)
}

func (*Sys) Recv(fd api.Fd, p []byte) (int, error) {
	var n, flags uint32
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: bufPtr(p)}
	if err := windows.WSARecv(handle(fd), &buf, 1, &n, &flags, nil, nil); err != nil {
		return -1, err
	}
	return int(n), nil
}

func (*Sys) Send(fd api.Fd, p []byte, flags int) (int, error) {
	var n uint32
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: bufPtr(p)}
	if err := windows.WSASend(handle(fd), &buf, 1, &n, uint32(flags), nil, nil); err != nil {
		return -1, err
	}
	return int(n), nil
}

func (*Sys) RecvOverlapped(fd api.Fd, ov *api.Overlapped) error {
	var flags uint32
	buf := windows.WSABuf{Len: 0, Buf: &zeroByte[0]}
	return pending(windows.WSARecv(handle(fd), &buf, 1, nil, &flags, overlapped(ov), nil))
}

func (*Sys) SendOverlapped(fd api.Fd, p []byte, flags int, ov *api.Overlapped) error {
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: bufPtr(p)}
	return pending(windows.WSASend(handle(fd), &buf, 1, nil, uint32(flags), overlapped(ov), nil))
}

func bufPtr(p []byte) *byte {
	if len(p) == 0 {
		return &zeroByte[0]
	}
	return &p[0]
}
