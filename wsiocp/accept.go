// Package wsiocp
// Author: momentics <momentics@gmail.com>
//
// Accept pipelining: one overlapped accept in flight per listening socket,
// completed connections queued until the event loop consumes them.

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// Listen attaches fd, marks it as a listening socket, resolves the accept
// extension functions, starts listening and queues the first accept.
func (c *Context) Listen(fd api.Fd, backlog int) error {
	if err := c.Attach(fd); err != nil {
		return err
	}
	st := c.lookup(fd)
	if st == nil {
		return api.OpError(api.ErrCodeInvalidState, "listen", fd, "no socket state", nil)
	}
	st.Masks |= sockstate.ListenSock
	if err := c.loadExtensions(fd); err != nil {
		return err
	}
	if err := c.sys.Listen(fd, backlog); err != nil {
		return api.OpError(api.ErrCodeOS, "listen", fd, "listen", err)
	}
	return c.QueueAccept(fd)
}

func (c *Context) loadExtensions(fd api.Fd) error {
	if c.acceptEx == nil {
		fn, err := c.sys.LoadAcceptEx(fd)
		if err != nil {
			return api.OpError(api.ErrCodeOS, "listen", fd, "resolve AcceptEx", err)
		}
		c.acceptEx = fn
	}
	if c.sockaddrs == nil {
		fn, err := c.sys.LoadSockaddrs(fd)
		if err != nil {
			return api.OpError(api.ErrCodeOS, "listen", fd, "resolve GetAcceptExSockaddrs", err)
		}
		c.sockaddrs = fn
	}
	return nil
}

// QueueAccept pre-creates a socket for the next connection and issues an
// overlapped accept for it. It refuses to run while an accept is in flight
// or a completed one is still unconsumed.
func (c *Context) QueueAccept(listen api.Fd) error {
	st := c.lookup(listen)
	if st == nil {
		return api.OpError(api.ErrCodeInvalidState, "queue accept", listen, "no socket state", nil)
	}
	switch {
	case st.Masks&sockstate.ListenSock == 0:
		return api.OpError(api.ErrCodeInvalidState, "queue accept", listen, "not a listening socket", nil)
	case st.Masks&sockstate.AcceptPending != 0 || st.AcceptQueueLen() > 0:
		return api.OpError(api.ErrCodeInvalidState, "queue accept", listen, "accept already in flight", nil)
	case c.acceptEx == nil:
		return api.OpError(api.ErrCodeInvalidState, "queue accept", listen, "accept extensions not resolved", nil)
	}

	afd, err := c.sys.Socket(c.cfg.AddressFamily)
	if err != nil {
		return api.OpError(api.ErrCodeOS, "queue accept", listen, "create accept socket", err)
	}
	ast := c.get(afd)
	if ast == nil {
		_ = c.sys.Close(afd)
		return api.OpError(api.ErrCodeInvalidArgument, "queue accept", listen, "no state for accept socket", nil)
	}
	// usable right after the accept completes
	ast.Masks = sockstate.Attached

	pa := &sockstate.PendingAccept{
		Listener: listen,
		Accepted: afd,
		Buf:      c.addrBufs.Get(),
		AddrLen:  c.cfg.AddressSize,
	}
	c.track(&pa.Token, acceptRequest{pa: pa, st: st})
	if err := c.acceptEx(listen, afd, pa.Buf, pa.AddrLen, &pa.Token); err != nil {
		c.untrack(&pa.Token)
		st.Masks &^= sockstate.AcceptPending
		c.discardAccept(pa)
		return api.OpError(api.ErrCodeOS, "queue accept", listen, "AcceptEx", err)
	}
	st.Masks |= sockstate.AcceptPending
	c.count(MetricAcceptsQueued)
	return nil
}

// AcceptCompleted consumes the oldest completed accept on listen. The remote
// address is copied into sa, truncated to len(sa); the copied length is
// returned with the new descriptor, which is already attached.
//
// The next accept is queued before returning. If that fails the returned
// descriptor is still a valid connection and the error reports the stalled
// pipeline; the event loop may call QueueAccept again.
func (c *Context) AcceptCompleted(listen api.Fd, sa []byte) (api.Fd, int, error) {
	st := c.lookup(listen)
	if st == nil {
		return api.InvalidFd, 0, api.OpError(api.ErrCodeInvalidState, "accept", listen, "no socket state", nil)
	}
	pa := st.PopAccept()
	if pa == nil {
		return api.InvalidFd, 0, api.OpError(api.ErrCodeInvalidState, "accept", listen, "no completed accept", nil)
	}

	if pa.Err != nil {
		c.discardAccept(pa)
		cause := pa.Err
		if err := c.QueueAccept(listen); err != nil {
			c.log.WithError(err).WithField("fd", listen).Warn("re-queue after failed accept")
		}
		return api.InvalidFd, 0, api.OpError(api.ErrCodeOS, "accept", listen, "accept completion", cause)
	}
	if err := c.sys.UpdateAcceptContext(pa.Accepted, listen); err != nil {
		c.discardAccept(pa)
		return api.InvalidFd, 0, api.OpError(api.ErrCodeOS, "accept", listen, "update accept context", err)
	}

	afd := pa.Accepted
	if err := c.Attach(afd); err != nil {
		c.discardAccept(pa)
		if qerr := c.QueueAccept(listen); qerr != nil {
			c.log.WithError(qerr).WithField("fd", listen).Warn("re-queue after failed attach")
		}
		return api.InvalidFd, 0, err
	}
	_, remote := c.sockaddrs(pa.Buf, pa.AddrLen)
	n := copy(sa, remote)
	c.addrBufs.Put(pa.Buf)
	pa.Buf = nil
	c.count(MetricAcceptsConsumed)
	c.log.WithField("fd", listen).WithField("accepted", afd).Debug("accepted")

	if err := c.QueueAccept(listen); err != nil {
		return afd, n, err
	}
	return afd, n, nil
}

// discardQueued closes every completed, unconsumed accept of a listener.
func (c *Context) discardQueued(st *sockstate.SocketState) int {
	n := 0
	for pa := st.PopAccept(); pa != nil; pa = st.PopAccept() {
		c.discardAccept(pa)
		n++
	}
	return n
}

// discardAccept closes the pre-created socket of pa and releases its record
// and buffer.
func (c *Context) discardAccept(pa *sockstate.PendingAccept) {
	c.closeAccepted(pa.Accepted)
	if pa.Buf != nil {
		c.addrBufs.Put(pa.Buf)
		pa.Buf = nil
	}
}

func (c *Context) closeAccepted(fd api.Fd) {
	if err := c.sys.Close(fd); err != nil {
		c.log.WithError(err).WithField("fd", fd).Debug("close accept socket")
	}
	if ast := c.lookup(fd); ast != nil {
		ast.Reset()
		c.store.Delete(ast)
		ast.MarkReleased()
	}
}
