// Package wsiocp
// Author: momentics <momentics@gmail.com>

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// SendResult is the tagged outcome of Send: either an immediate byte count
// or a pending request whose result is delivered to the callback.
type SendResult struct {
	N       int
	Pending bool
	Request *sockstate.PendingSend
}

// Err returns api.ErrOperationPending for a pending result and nil
// otherwise, for callers bridging to errno-style code.
func (r SendResult) Err() error {
	if r.Pending {
		return api.ErrOperationPending
	}
	return nil
}

// Send writes buf to fd.
//
// Sockets without a record, not attached, or called without cb take the
// synchronous path: the result and error of a plain send are returned as is.
// A short write is neither retried nor flagged.
//
// Otherwise an overlapped write is issued and a Pending result returned. buf
// is referenced, not copied, and must stay untouched until cb has run; the
// byte count arrives there, never as a return value.
func (c *Context) Send(fd api.Fd, buf []byte, flags int, loop, client, data any, cb sockstate.SendCallback) (SendResult, error) {
	st := c.lookup(fd)
	if st == nil || st.Masks&sockstate.Attached == 0 || cb == nil {
		n, err := c.sys.Send(fd, buf, flags)
		c.count(MetricSendsSync)
		return SendResult{N: n}, err
	}

	ps := sockstate.NewPendingSend(fd, buf, flags, cb)
	ps.Loop, ps.Client, ps.Data = loop, client, data
	c.track(&ps.Token, sendRequest{ps: ps, st: st})
	if err := c.sys.SendOverlapped(fd, buf, flags, &ps.Token); err != nil {
		c.untrack(&ps.Token)
		return SendResult{}, api.OpError(api.ErrCodeOS, "send", fd, "overlapped send", err)
	}
	st.PendingWrites++
	c.count(MetricSendsIssued)
	return SendResult{Pending: true, Request: ps}, nil
}

// PendingWrites returns the outstanding asynchronous writes on fd.
func (c *Context) PendingWrites(fd api.Fd) int {
	if st := c.lookup(fd); st != nil {
		return st.PendingWrites
	}
	return 0
}
