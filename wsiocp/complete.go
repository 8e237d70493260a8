// Package wsiocp
// Author: momentics <momentics@gmail.com>
//
// Completion processing: retires requests and reports emulated readiness.

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// HandleCompletion retires the request behind comp's token. When the
// completion amounts to readiness the event loop asked for, it returns the
// descriptor and the fired mask with ok set.
//
// Completions for detached sockets are expected: counts are updated, nothing
// is re-armed, and the record is deleted once the last request retires.
func (c *Context) HandleCompletion(comp api.Completion) (fd api.Fd, fired sockstate.Mask, ok bool) {
	req, found := c.inflight[comp.Overlapped]
	if !found {
		c.count(MetricStray)
		c.log.WithField("key", comp.Key).Debug("completion without request")
		return api.InvalidFd, 0, false
	}
	c.untrack(comp.Overlapped)

	switch r := req.(type) {
	case acceptRequest:
		return c.acceptDone(r, comp)
	case readRequest:
		return c.readDone(r, comp)
	case sendRequest:
		c.sendDone(r, comp)
	}
	return api.InvalidFd, 0, false
}

func (c *Context) acceptDone(r acceptRequest, comp api.Completion) (api.Fd, sockstate.Mask, bool) {
	pa, st := r.pa, r.st
	st.Masks &^= sockstate.AcceptPending
	if st.Masks&sockstate.Attached == 0 || !c.current(st) {
		// listener detached or its record replaced; the accept has no owner
		c.discardAccept(pa)
		if st.Masks&sockstate.Attached == 0 && !st.Released() {
			c.release(st)
		}
		c.log.WithField("fd", pa.Listener).Debug("accept completed after listener detached")
		return api.InvalidFd, 0, false
	}
	pa.Err = comp.Err
	st.PushAccept(pa)
	if st.Masks&sockstate.Readable != 0 {
		return st.Fd, sockstate.Readable, true
	}
	return api.InvalidFd, 0, false
}

func (c *Context) readDone(r readRequest, comp api.Completion) (api.Fd, sockstate.Mask, bool) {
	st := r.st
	if st.ReadToken == comp.Overlapped {
		st.Masks &^= sockstate.ReadQueued
		st.ReadToken = nil
	}
	if !c.current(st) {
		// record already deleted or replaced
		c.count(MetricStray)
		return api.InvalidFd, 0, false
	}
	if st.Masks&sockstate.Attached == 0 {
		c.release(st)
		return api.InvalidFd, 0, false
	}
	if st.Masks&sockstate.Readable != 0 {
		return st.Fd, sockstate.Readable, true
	}
	return api.InvalidFd, 0, false
}

func (c *Context) sendDone(r sendRequest, comp api.Completion) {
	ps, st := r.ps, r.st
	if st.PendingWrites > 0 {
		st.PendingWrites--
	}
	c.count(MetricSendsCompleted)
	// the callback runs after detach too, so the caller can release buf
	ps.Finish(int(comp.Bytes), comp.Err)

	// the callback may have detached fd and deleted the record already
	if !c.current(st) {
		return
	}
	if st.Masks&sockstate.Attached == 0 {
		c.release(st)
	}
}
