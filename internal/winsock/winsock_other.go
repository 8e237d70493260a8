//go:build !windows
// +build !windows

// File: internal/winsock/winsock_other.go
// Author: momentics <momentics@gmail.com>
//
// Completion ports exist only on Windows; elsewhere every primitive reports
// api.ErrNotSupported and the layer is exercised through fake.Sys.

package winsock

import (
	"net"

	"github.com/momentics/hioload-iocp/api"
)

// Sys is the unsupported-platform stub.
type Sys struct{}

// New returns the stub.
func New() *Sys { return &Sys{} }

func (*Sys) Socket(int) (api.Fd, error)                      { return api.InvalidFd, api.ErrNotSupported }
func (*Sys) Close(api.Fd) error                              { return api.ErrNotSupported }
func (*Sys) SetNonblock(api.Fd) error                        { return api.ErrNotSupported }
func (*Sys) DisableInherit(api.Fd) error                     { return api.ErrNotSupported }
func (*Sys) Associate(api.Fd, api.Handle, uintptr) error     { return api.ErrNotSupported }
func (*Sys) Listen(api.Fd, int) error                        { return api.ErrNotSupported }
func (*Sys) UpdateAcceptContext(api.Fd, api.Fd) error        { return api.ErrNotSupported }
func (*Sys) ShutdownSend(api.Fd) error                       { return api.ErrNotSupported }
func (*Sys) Recv(api.Fd, []byte) (int, error)                { return -1, api.ErrNotSupported }
func (*Sys) Send(api.Fd, []byte, int) (int, error)           { return -1, api.ErrNotSupported }
func (*Sys) RecvOverlapped(api.Fd, *api.Overlapped) error    { return api.ErrNotSupported }
func (*Sys) SendOverlapped(api.Fd, []byte, int, *api.Overlapped) error {
	return api.ErrNotSupported
}

func (*Sys) LoadAcceptEx(api.Fd) (api.AcceptExFunc, error) { return nil, api.ErrNotSupported }

func (*Sys) LoadSockaddrs(api.Fd) (api.SockaddrsFunc, error) { return nil, api.ErrNotSupported }

// BoundSocket is not available without Winsock.
func BoundSocket(string) (api.Fd, error) { return api.InvalidFd, api.ErrNotSupported }

// LocalAddr is not available without Winsock.
func LocalAddr(api.Fd) (net.Addr, error) { return nil, api.ErrNotSupported }
