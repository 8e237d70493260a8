// Package wsiocp
// Author: momentics <momentics@gmail.com>

package wsiocp

import "github.com/momentics/hioload-iocp/api"

// Sys is the set of socket primitives the layer issues. The Windows
// implementation lives in internal/winsock; tests use fake.Sys.
//
// Overlapped calls return nil both for synchronous success and for
// "will complete later"; either way a completion packet is queued.
type Sys interface {
	Socket(family int) (api.Fd, error)
	Close(fd api.Fd) error
	SetNonblock(fd api.Fd) error
	DisableInherit(fd api.Fd) error
	Associate(fd api.Fd, port api.Handle, key uintptr) error
	Listen(fd api.Fd, backlog int) error

	LoadAcceptEx(fd api.Fd) (api.AcceptExFunc, error)
	LoadSockaddrs(fd api.Fd) (api.SockaddrsFunc, error)
	UpdateAcceptContext(accepted, listener api.Fd) error

	ShutdownSend(fd api.Fd) error
	// Recv is a plain receive; (0, nil) means the peer closed.
	Recv(fd api.Fd, p []byte) (int, error)
	// Send is a plain synchronous send.
	Send(fd api.Fd, p []byte, flags int) (int, error)

	// RecvOverlapped issues a zero-length overlapped read.
	RecvOverlapped(fd api.Fd, ov *api.Overlapped) error
	SendOverlapped(fd api.Fd, p []byte, flags int, ov *api.Overlapped) error
}
