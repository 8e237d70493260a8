// Package wsiocp
// Author: momentics <momentics@gmail.com>
//
// Read-readiness emulation through zero-length overlapped reads.

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// ArmReadReadiness issues a zero-length overlapped read on fd. It completes
// once data is buffered, the peer closes or the connection fails, and
// consumes nothing; the event loop then reads for itself.
//
// The signal is one-shot: after draining readable data the caller must arm
// again or readability notifications stop for good. Sockets that are not
// attached, or already have a read queued, are left alone and nil is
// returned.
func (c *Context) ArmReadReadiness(fd api.Fd) error {
	st := c.lookup(fd)
	if st == nil || st.Masks&sockstate.Attached == 0 {
		return nil
	}
	if st.Masks&sockstate.ReadQueued != 0 {
		return nil
	}
	ov := new(api.Overlapped)
	c.track(ov, readRequest{fd: fd, st: st})
	if err := c.sys.RecvOverlapped(fd, ov); err != nil {
		c.untrack(ov)
		st.Masks &^= sockstate.ReadQueued
		st.ReadToken = nil
		return api.OpError(api.ErrCodeOS, "arm read", fd, "zero-length read", err)
	}
	st.Masks |= sockstate.ReadQueued
	st.ReadToken = ov
	c.count(MetricReadsArmed)
	return nil
}

// ReadArmed reports whether a readiness read is outstanding on fd.
func (c *Context) ReadArmed(fd api.Fd) bool {
	st := c.lookup(fd)
	return st != nil && st.Masks&sockstate.ReadQueued != 0
}

// AddInterest records event-loop interest in mask (READABLE and/or
// WRITABLE). Readable interest on an attached, non-listening socket arms the
// read emulation.
func (c *Context) AddInterest(fd api.Fd, mask sockstate.Mask) error {
	st := c.lookup(fd)
	if st == nil {
		return api.OpError(api.ErrCodeInvalidState, "add interest", fd, "no socket state", nil)
	}
	st.Masks |= mask & sockstate.Interest
	if mask&sockstate.Readable != 0 &&
		st.Masks&sockstate.Attached != 0 &&
		st.Masks&sockstate.ListenSock == 0 {
		return c.ArmReadReadiness(fd)
	}
	return nil
}

// RemoveInterest clears interest bits. An outstanding zero-length read stays
// in flight; its completion is then not reported.
func (c *Context) RemoveInterest(fd api.Fd, mask sockstate.Mask) {
	if st := c.lookup(fd); st != nil {
		st.Masks &^= mask & sockstate.Interest
	}
}
