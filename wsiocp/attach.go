// Package wsiocp
// Author: momentics <momentics@gmail.com>

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// Attach puts fd in non-blocking mode, makes its handle non-inheritable and
// associates it with the completion port, keyed by the descriptor itself.
// Every failure is reported as api.ErrAttachFailed: a missing record wraps
// api.ErrInvalidArgument, a failed sub-step wraps the OS cause. Closing fd
// is then up to the caller.
func (c *Context) Attach(fd api.Fd) error {
	st := c.get(fd)
	if st == nil {
		return api.OpError(api.ErrCodeAttach, "attach", fd, "no socket state", api.ErrInvalidArgument)
	}
	if err := c.sys.SetNonblock(fd); err != nil {
		return api.OpError(api.ErrCodeAttach, "attach", fd, "set non-blocking", err)
	}
	if err := c.sys.DisableInherit(fd); err != nil {
		return api.OpError(api.ErrCodeAttach, "attach", fd, "disable handle inheritance", err)
	}
	if err := c.sys.Associate(fd, c.port, uintptr(fd)); err != nil {
		return api.OpError(api.ErrCodeAttach, "attach", fd, "associate completion port", err)
	}
	st.Masks = sockstate.Attached
	st.PendingWrites = 0
	c.count(MetricAttached)
	c.log.WithField("fd", fd).Debug("attached")
	return nil
}

// DetachOutcome annotates a successful Detach.
type DetachOutcome struct {
	// Deleted is false when in-flight operations keep the record alive; the
	// completion that retires the last of them deletes it.
	Deleted bool
	// Drained counts bytes discarded by the graceful drain.
	Drained int
	// Discarded counts unconsumed accepts closed on a listening socket.
	Discarded int
	// ShutdownErr and DrainErr are best-effort failures; they never fail Detach.
	ShutdownErr error
	DrainErr    error
}

// Detach ends fd's participation in readiness emulation. With graceful set,
// the send side is shut down and incoming bytes are read and discarded until
// the peer closes or an error occurs; this blocks for as long as the peer
// keeps sending.
//
// ATTACHED, WRITABLE and READABLE are cleared. A listener's completed but
// unconsumed accepts are closed. The record is deleted only if no
// asynchronous write and no zero-length read are outstanding.
func (c *Context) Detach(fd api.Fd, graceful bool) (DetachOutcome, error) {
	var out DetachOutcome
	st := c.lookup(fd)
	if st == nil {
		return out, api.OpError(api.ErrCodeInvalidState, "detach", fd, "no socket state", nil)
	}
	logger := c.log.WithField("fd", fd)
	if graceful {
		if err := c.sys.ShutdownSend(fd); err != nil {
			out.ShutdownErr = err
			logger.WithError(err).Warn("shutdown before detach failed")
		} else {
			out.Drained, out.DrainErr = c.drain(fd)
		}
	}
	st.Masks &^= sockstate.Attached | sockstate.Writable | sockstate.Readable
	if st.Masks&sockstate.ListenSock != 0 {
		out.Discarded = c.discardQueued(st)
	}
	c.count(MetricDetached)
	if c.release(st) {
		out.Deleted = true
	} else {
		c.count(MetricDeferred)
		logger.WithField("pending_writes", st.PendingWrites).
			WithField("masks", st.Masks.String()).
			Debug("detached, deletion deferred to completion")
	}
	return out, nil
}

func (c *Context) drain(fd api.Fd) (int, error) {
	buf := make([]byte, c.cfg.DrainBufferSize)
	total := 0
	for {
		n, err := c.sys.Recv(fd, buf)
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, err
		}
		if n <= 0 {
			return total, nil
		}
	}
}
