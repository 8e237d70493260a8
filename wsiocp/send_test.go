// Author: momentics <momentics@gmail.com>

package wsiocp_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/fake"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/stretchr/testify/require"
)

func payload(n int) []byte {
	return bytes.Repeat([]byte("0123456789abcdef"), n/16+1)[:n]
}

func TestSendSynchronousFallback(t *testing.T) {
	noop := func(*sockstate.PendingSend) {}
	for _, size := range []int{0, 1, 100, 4096, 1 << 20} {
		h := newHarness(t)
		buf := payload(size)

		// unattached socket with a callback
		fd := h.sys.AddSocket()
		res, err := h.ctx.Send(fd, buf, 0, nil, nil, nil, noop)
		require.NoError(t, err)
		require.False(t, res.Pending)
		require.NoError(t, res.Err())

		direct := h.sys.AddSocket()
		n, err := h.sys.Send(direct, buf, 0)
		require.NoError(t, err)
		require.Equal(t, n, res.N, "size %d", size)
		require.Equal(t, h.sys.Sock(direct).Sent, h.sys.Sock(fd).Sent)

		// attached socket without a callback
		afd := h.attached(t)
		res, err = h.ctx.Send(afd, buf, 0, nil, nil, nil, nil)
		require.NoError(t, err)
		require.Equal(t, size, res.N)
		require.Equal(t, 0, h.ctx.PendingWrites(afd))
	}
}

func TestSendSynchronousShortWrite(t *testing.T) {
	h := newHarness(t)
	fd := h.sys.AddSocket()
	h.sys.Sock(fd).SendLimit = 10

	res, err := h.ctx.Send(fd, payload(64), 0, nil, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 10, res.N)
	require.False(t, res.Pending)
	require.EqualValues(t, 1, h.counter(wsiocp.MetricSendsSync))
}

func TestSendSynchronousErrorIsRaw(t *testing.T) {
	h := newHarness(t)
	h.sys.Fail(fake.CallSend, fake.ErrWouldBlock)
	res, err := h.ctx.Send(h.sys.AddSocket(), payload(8), 0, nil, nil, nil, nil)
	require.Equal(t, fake.ErrWouldBlock, err)
	require.Equal(t, -1, res.N)
}

func TestSendAsynchronous(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	buf := payload(300)
	loop, client, data := "loop", "client", 42

	var got *sockstate.PendingSend
	res, err := h.ctx.Send(fd, buf, 7, loop, client, data, func(ps *sockstate.PendingSend) { got = ps })
	require.NoError(t, err)
	require.True(t, res.Pending)
	require.ErrorIs(t, res.Err(), api.ErrOperationPending)
	require.Zero(t, res.N)
	require.Equal(t, 1, h.ctx.PendingWrites(fd))

	op := h.only(t, fake.OpSend, fd)
	require.Equal(t, 7, op.Flags)
	require.Same(t, &buf[0], &op.Buf[0])
	require.Empty(t, h.sys.Sock(fd).Sent)

	_, _, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 300, nil))
	require.False(t, ok)
	require.Same(t, res.Request, got)
	require.Equal(t, 300, got.Written)
	require.NoError(t, got.Err)
	require.Equal(t, loop, got.Loop)
	require.Equal(t, client, got.Client)
	require.Equal(t, data, got.Data)
	<-res.Request.Done()

	require.Equal(t, 0, h.ctx.PendingWrites(fd))
	require.NotNil(t, h.table.Lookup(fd))
	require.EqualValues(t, 1, h.counter(wsiocp.MetricSendsCompleted))
}

func TestSendAsynchronousFailure(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	cause := errors.New("connection reset")
	h.sys.Fail(fake.CallSendOverlapped, cause)

	called := false
	res, err := h.ctx.Send(fd, payload(10), 0, nil, nil, nil, func(*sockstate.PendingSend) { called = true })
	require.ErrorIs(t, err, api.ErrOSFailure)
	require.ErrorIs(t, err, cause)
	require.False(t, res.Pending)
	require.Equal(t, 0, h.ctx.PendingWrites(fd))
	require.Equal(t, 0, h.ctx.Inflight())
	require.False(t, called)
}

func TestSendCompletionReportsError(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	res, err := h.ctx.Send(fd, payload(10), 0, nil, nil, nil, func(*sockstate.PendingSend) {})
	require.NoError(t, err)

	op := h.only(t, fake.OpSend, fd)
	h.ctx.HandleCompletion(h.sys.Complete(op, 0, fake.ErrConnReset))
	require.ErrorIs(t, res.Request.Err, fake.ErrConnReset)
	require.Equal(t, 0, res.Request.Written)
}

func TestSendCallbackMayDetach(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	var out wsiocp.DetachOutcome
	_, err := h.ctx.Send(fd, payload(10), 0, nil, nil, nil, func(ps *sockstate.PendingSend) {
		var derr error
		out, derr = h.ctx.Detach(ps.Fd, false)
		require.NoError(t, derr)
	})
	require.NoError(t, err)

	op := h.only(t, fake.OpSend, fd)
	h.ctx.HandleCompletion(h.sys.Complete(op, 10, nil))
	require.True(t, out.Deleted)
	require.Nil(t, h.table.Lookup(fd))
}

func TestSendCompletionAfterRecordReplaced(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	_, err := h.ctx.Send(fd, payload(10), 0, nil, nil, nil, func(*sockstate.PendingSend) {})
	require.NoError(t, err)
	op := h.only(t, fake.OpSend, fd)

	// the descriptor is detached, its record dropped by the owner and reused
	_, err = h.ctx.Detach(fd, false)
	require.NoError(t, err)
	h.table.Delete(h.table.Lookup(fd))
	fresh := h.table.Get(fd)

	h.ctx.HandleCompletion(h.sys.Complete(op, 10, nil))
	require.Same(t, fresh, h.table.Lookup(fd))
	require.Equal(t, 0, fresh.PendingWrites)
}
