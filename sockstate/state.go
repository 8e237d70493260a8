// Package sockstate
// Author: momentics <momentics@gmail.com>

package sockstate

import (
	"github.com/eapache/queue"
	"github.com/momentics/hioload-iocp/api"
)

// SocketState is the record kept for every descriptor known to the
// completion-port layer. It is owned by a Store; callers borrow it for the
// duration of one operation and look it up again on the next one.
type SocketState struct {
	Fd    api.Fd
	Masks Mask

	// PendingWrites counts asynchronous sends issued and not yet completed.
	PendingWrites int

	// ReadToken is the in-flight zero-length read, set only while ReadQueued.
	ReadToken *api.Overlapped

	accepts  *queue.Queue // of *PendingAccept
	released bool
}

// NewSocketState returns an empty record for fd.
func NewSocketState(fd api.Fd) *SocketState {
	return &SocketState{Fd: fd}
}

// Reset clears all flags and counters, keeping the descriptor.
func (s *SocketState) Reset() {
	s.Masks = 0
	s.PendingWrites = 0
	s.ReadToken = nil
	s.accepts = nil
}

// MarkReleased records that the record was handed back to its store.
func (s *SocketState) MarkReleased() { s.released = true }

// Released reports whether MarkReleased was called.
func (s *SocketState) Released() bool { return s.released }

// PushAccept appends a completed accept to the tail of the accept queue.
func (s *SocketState) PushAccept(pa *PendingAccept) {
	if s.accepts == nil {
		s.accepts = queue.New()
	}
	s.accepts.Add(pa)
}

// PopAccept removes the head of the accept queue, nil when it is empty.
func (s *SocketState) PopAccept() *PendingAccept {
	if s.accepts == nil || s.accepts.Length() == 0 {
		return nil
	}
	return s.accepts.Remove().(*PendingAccept)
}

// AcceptQueueLen returns the number of completed, unconsumed accepts.
func (s *SocketState) AcceptQueueLen() int {
	if s.accepts == nil {
		return 0
	}
	return s.accepts.Length()
}

// Deletable reports the safe-deletion rule: nothing asynchronous still
// references the record.
func (s *SocketState) Deletable() bool {
	return s.PendingWrites == 0 && s.Masks&ReadQueued == 0
}

// PendingAccept is one outstanding or completed-but-unconsumed accept.
type PendingAccept struct {
	Token    api.Overlapped
	Listener api.Fd
	Accepted api.Fd
	// Buf holds the local and remote address slots filled by the OS.
	Buf     []byte
	AddrLen uint32
	// Err is the completion status reported by the port.
	Err error
}

// SendCallback is invoked once a PendingSend completes.
type SendCallback func(ps *PendingSend)

// PendingSend is one outstanding asynchronous write. Buf is the caller's
// slice, not a copy; it must stay valid until the callback has run.
type PendingSend struct {
	Token    api.Overlapped
	Fd       api.Fd
	Buf      []byte
	Flags    int
	Loop     any
	Client   any
	Data     any
	Callback SendCallback

	// Written and Err are set when the completion is processed.
	Written int
	Err     error

	done chan struct{}
}

// NewPendingSend prepares a send request for buf.
func NewPendingSend(fd api.Fd, buf []byte, flags int, cb SendCallback) *PendingSend {
	return &PendingSend{Fd: fd, Buf: buf, Flags: flags, Callback: cb, done: make(chan struct{})}
}

// Done is closed after the completion has been processed.
func (ps *PendingSend) Done() <-chan struct{} { return ps.done }

// Finish records the result, runs the callback and closes Done.
func (ps *PendingSend) Finish(written int, err error) {
	ps.Written = written
	ps.Err = err
	if ps.Callback != nil {
		ps.Callback(ps)
	}
	close(ps.done)
}
