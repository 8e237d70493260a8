// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable socket primitives and a completion
// port so the completion-port layer runs on every platform.

package fake

import (
	"sync"

	"github.com/momentics/hioload-iocp/api"
)

// Call names a primitive for failure injection and call counting.
type Call string

const (
	CallSocket         Call = "socket"
	CallClose          Call = "close"
	CallNonblock       Call = "nonblock"
	CallNoInherit      Call = "noinherit"
	CallAssociate      Call = "associate"
	CallListen         Call = "listen"
	CallLoadAcceptEx   Call = "load-acceptex"
	CallLoadSockaddrs  Call = "load-sockaddrs"
	CallAcceptEx       Call = "acceptex"
	CallUpdateContext  Call = "update-accept-context"
	CallShutdown       Call = "shutdown"
	CallRecv           Call = "recv"
	CallSend           Call = "send"
	CallRecvOverlapped Call = "recv-overlapped"
	CallSendOverlapped Call = "send-overlapped"
)

// OpKind is the kind of an issued overlapped operation.
type OpKind int

const (
	OpAccept OpKind = iota
	OpRead
	OpSend
)

// Op is an overlapped operation issued through Sys and not yet completed.
type Op struct {
	Kind       OpKind
	Fd         api.Fd // socket the operation was issued on
	Accept     api.Fd // pre-created socket for OpAccept
	Buf        []byte
	AddrLen    uint32
	Flags      int
	Overlapped *api.Overlapped
}

// Socket is the simulated state of one descriptor.
type Socket struct {
	Fd            api.Fd
	Family        int
	Nonblocking   bool
	NoInherit     bool
	Associated    bool
	Port          api.Handle
	Key           uintptr
	Listening     bool
	Backlog       int
	Closed        bool
	ShutdownSend  bool
	AcceptContext api.Fd

	// Inbound chunks are returned by Recv; afterwards Recv reports RecvErr,
	// or 0 (peer closed) when RecvErr is nil.
	Inbound [][]byte
	RecvErr error

	// Sent collects bytes accepted by synchronous Send. SendLimit caps one
	// Send call, 0 meaning unlimited.
	Sent      []byte
	SendLimit int
}

// Sys is a scriptable in-memory implementation of the socket primitives.
type Sys struct {
	mu      sync.Mutex
	next    api.Fd
	sockets map[api.Fd]*Socket
	fail    map[Call]error
	calls   map[Call]int
	issued  []*Op
}

// NewSys returns an empty simulator. Descriptors start at 100 and step by 4
// like Winsock handles.
func NewSys() *Sys {
	return &Sys{
		next:    100,
		sockets: make(map[api.Fd]*Socket),
		fail:    make(map[Call]error),
		calls:   make(map[Call]int),
	}
}

// AddSocket creates a socket as an application would before handing it over.
func (s *Sys) AddSocket() api.Fd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSocketLocked(2).Fd
}

func (s *Sys) newSocketLocked(family int) *Socket {
	fd := s.next
	s.next += 4
	sock := &Socket{Fd: fd, Family: family}
	s.sockets[fd] = sock
	return sock
}

// Sock returns the simulated socket for fd, nil if unknown.
func (s *Sys) Sock(fd api.Fd) *Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sockets[fd]
}

// Fail makes every later call of c return err. A nil err clears it.
func (s *Sys) Fail(c Call, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, c)
		return
	}
	s.fail[c] = err
}

// Calls returns how often c was invoked.
func (s *Sys) Calls(c Call) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[c]
}

// Outstanding returns the issued, uncompleted operations of kind k on fd.
func (s *Sys) Outstanding(k OpKind, fd api.Fd) []*Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Op
	for _, op := range s.issued {
		if op.Kind == k && op.Fd == fd {
			out = append(out, op)
		}
	}
	return out
}

// Pending returns every issued, uncompleted operation.
func (s *Sys) Pending() []*Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Op(nil), s.issued...)
}

// enter counts c and returns the injected failure, if any.
func (s *Sys) enter(c Call) error {
	s.calls[c]++
	return s.fail[c]
}

func (s *Sys) sock(fd api.Fd) (*Socket, error) {
	sock, ok := s.sockets[fd]
	if !ok || sock.Closed {
		return nil, errNotSocket
	}
	return sock, nil
}

func (s *Sys) Socket(family int) (api.Fd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallSocket); err != nil {
		return api.InvalidFd, err
	}
	return s.newSocketLocked(family).Fd, nil
}

func (s *Sys) Close(fd api.Fd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallClose); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	sock.Closed = true
	return nil
}

func (s *Sys) SetNonblock(fd api.Fd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallNonblock); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	sock.Nonblocking = true
	return nil
}

func (s *Sys) DisableInherit(fd api.Fd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallNoInherit); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	sock.NoInherit = true
	return nil
}

func (s *Sys) Associate(fd api.Fd, port api.Handle, key uintptr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallAssociate); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	if sock.Associated {
		return errAlreadyAssociated
	}
	sock.Associated, sock.Port, sock.Key = true, port, key
	return nil
}

func (s *Sys) Listen(fd api.Fd, backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallListen); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	sock.Listening, sock.Backlog = true, backlog
	return nil
}

func (s *Sys) UpdateAcceptContext(accepted, listener api.Fd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallUpdateContext); err != nil {
		return err
	}
	sock, err := s.sock(accepted)
	if err != nil {
		return err
	}
	sock.AcceptContext = listener
	return nil
}

func (s *Sys) ShutdownSend(fd api.Fd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallShutdown); err != nil {
		return err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return err
	}
	sock.ShutdownSend = true
	return nil
}

func (s *Sys) Recv(fd api.Fd, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallRecv); err != nil {
		return -1, err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return -1, err
	}
	if len(sock.Inbound) == 0 {
		if sock.RecvErr != nil {
			return -1, sock.RecvErr
		}
		return 0, nil
	}
	chunk := sock.Inbound[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		sock.Inbound[0] = chunk[n:]
	} else {
		sock.Inbound = sock.Inbound[1:]
	}
	return n, nil
}

func (s *Sys) Send(fd api.Fd, p []byte, flags int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallSend); err != nil {
		return -1, err
	}
	sock, err := s.sock(fd)
	if err != nil {
		return -1, err
	}
	n := len(p)
	if sock.SendLimit > 0 && n > sock.SendLimit {
		n = sock.SendLimit
	}
	sock.Sent = append(sock.Sent, p[:n]...)
	return n, nil
}

func (s *Sys) RecvOverlapped(fd api.Fd, ov *api.Overlapped) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallRecvOverlapped); err != nil {
		return err
	}
	if _, err := s.sock(fd); err != nil {
		return err
	}
	s.issued = append(s.issued, &Op{Kind: OpRead, Fd: fd, Overlapped: ov})
	return nil
}

func (s *Sys) SendOverlapped(fd api.Fd, p []byte, flags int, ov *api.Overlapped) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallSendOverlapped); err != nil {
		return err
	}
	if _, err := s.sock(fd); err != nil {
		return err
	}
	s.issued = append(s.issued, &Op{Kind: OpSend, Fd: fd, Buf: p, Flags: flags, Overlapped: ov})
	return nil
}
