// Author: momentics <momentics@gmail.com>

package wsiocp_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/fake"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/stretchr/testify/require"
)

func TestArmReadReadiness(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)

	require.NoError(t, h.ctx.ArmReadReadiness(fd))
	require.True(t, h.ctx.ReadArmed(fd))
	op := h.only(t, fake.OpRead, fd)
	require.Same(t, op.Overlapped, h.ctx.State(fd).ReadToken)
	require.EqualValues(t, 1, h.counter(wsiocp.MetricReadsArmed))

	// already queued: nothing new is issued
	require.NoError(t, h.ctx.ArmReadReadiness(fd))
	require.Equal(t, 1, h.sys.Calls(fake.CallRecvOverlapped))
	require.Equal(t, 1, h.ctx.Inflight())
}

func TestArmReadReadinessSkipsUnattached(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctx.ArmReadReadiness(6000))

	fd := h.sys.AddSocket()
	h.table.Get(fd)
	require.NoError(t, h.ctx.ArmReadReadiness(fd))
	require.False(t, h.ctx.ReadArmed(fd))
	require.Equal(t, 0, h.sys.Calls(fake.CallRecvOverlapped))
}

func TestArmReadReadinessFailure(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	cause := errors.New("connection aborted")
	h.sys.Fail(fake.CallRecvOverlapped, cause)

	err := h.ctx.ArmReadReadiness(fd)
	require.ErrorIs(t, err, api.ErrOSFailure)
	require.ErrorIs(t, err, cause)
	require.False(t, h.ctx.ReadArmed(fd))
	require.Nil(t, h.ctx.State(fd).ReadToken)
	require.Equal(t, 0, h.ctx.Inflight())
}

func TestReadCompletionFiresOnceAndRearms(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.AddInterest(fd, sockstate.Readable))

	for round := 0; round < 3; round++ {
		op := h.only(t, fake.OpRead, fd)
		rfd, mask, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 0, nil))
		require.True(t, ok)
		require.Equal(t, fd, rfd)
		require.Equal(t, sockstate.Readable, mask)
		require.False(t, h.ctx.ReadArmed(fd))
		require.Empty(t, h.sys.Outstanding(fake.OpRead, fd))

		require.NoError(t, h.ctx.ArmReadReadiness(fd))
	}
	require.Equal(t, 4, h.sys.Calls(fake.CallRecvOverlapped))
}

func TestReadCompletionWithErrorReportsReadable(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.AddInterest(fd, sockstate.Readable))
	op := h.only(t, fake.OpRead, fd)

	_, mask, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 0, fake.ErrConnReset))
	require.True(t, ok)
	require.Equal(t, sockstate.Readable, mask)
}

func TestReadCompletionWithoutInterest(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.AddInterest(fd, sockstate.Readable|sockstate.Writable))
	h.ctx.RemoveInterest(fd, sockstate.Readable)
	op := h.only(t, fake.OpRead, fd)

	_, _, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 0, nil))
	require.False(t, ok)
	require.False(t, h.ctx.ReadArmed(fd))
	require.True(t, h.ctx.State(fd).Masks.Has(sockstate.Writable))
}

func TestAddInterestWithoutRecord(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.ctx.AddInterest(5000, sockstate.Readable), api.ErrInvalidState)
	h.ctx.RemoveInterest(5000, sockstate.Readable)
}

func TestAddInterestIgnoresInternalBits(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.AddInterest(fd, sockstate.Writable|sockstate.ListenSock))
	require.Equal(t, sockstate.Attached|sockstate.Writable, h.ctx.State(fd).Masks)
}
