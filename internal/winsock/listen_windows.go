//go:build windows
// +build windows

// Author: momentics <momentics@gmail.com>

package winsock

import (
	"net"
	"strconv"

	"github.com/momentics/hioload-iocp/api"
	"golang.org/x/sys/windows"
)

// BoundSocket creates an overlapped TCP socket bound to addr ("host:port"),
// ready to be handed to Listen.
func BoundSocket(addr string) (api.Fd, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return api.InvalidFd, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return api.InvalidFd, err
	}
	var sa windows.Sockaddr
	family := int32(windows.AF_INET)
	ip := net.ParseIP(host)
	switch {
	case host == "" || (ip != nil && ip.To4() != nil):
		v4 := &windows.SockaddrInet4{Port: port}
		if ip != nil {
			copy(v4.Addr[:], ip.To4())
		}
		sa = v4
	case ip != nil:
		v6 := &windows.SockaddrInet6{Port: port}
		copy(v6.Addr[:], ip.To16())
		sa = v6
		family = windows.AF_INET6
	default:
		return api.InvalidFd, &net.AddrError{Err: "host must be an IP literal", Addr: addr}
	}
	h, err := windows.WSASocket(family, windows.SOCK_STREAM, windows.IPPROTO_TCP, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		return api.InvalidFd, err
	}
	if err := windows.Bind(h, sa); err != nil {
		windows.Closesocket(h)
		return api.InvalidFd, err
	}
	return api.Fd(h), nil
}

// LocalAddr returns the bound address of fd.
func LocalAddr(fd api.Fd) (net.Addr, error) {
	sa, err := windows.Getsockname(windows.Handle(fd))
	if err != nil {
		return nil, err
	}
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}, nil
	case *windows.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}, nil
	}
	return nil, api.ErrNotSupported
}
