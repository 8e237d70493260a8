// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations for sockets, completion tokens and
// the OS extension entry points used by the accept pipeline.

package api

// Fd is a socket descriptor (SOCKET on Windows).
type Fd uintptr

// InvalidFd mirrors INVALID_SOCKET.
const InvalidFd = ^Fd(0)

// Handle is an OS handle, used for the completion port.
type Handle uintptr

// Overlapped is layout-compatible with the OS OVERLAPPED structure. A pointer
// to it is the completion token of one asynchronous operation; the memory must
// stay reachable and unmoved until the completion is dequeued.
type Overlapped struct {
	Internal     uintptr
	InternalHigh uintptr
	Offset       uint32
	OffsetHigh   uint32
	HEvent       uintptr
}

// Completion is one dequeued completion-port packet.
type Completion struct {
	Key        uintptr
	Overlapped *Overlapped
	Bytes      uint32
	Err        error
}

// AcceptExFunc issues an overlapped accept of a connection on listen into the
// pre-created accept socket. buf receives the local and remote addresses, each
// slot addrLen bytes wide. A nil return means success or completion later.
type AcceptExFunc func(listen, accept Fd, buf []byte, addrLen uint32, ov *Overlapped) error

// SockaddrsFunc parses an address buffer filled by AcceptExFunc into the raw
// local and remote socket addresses. Returned slices alias buf.
type SockaddrsFunc func(buf []byte, addrLen uint32) (local, remote []byte)
