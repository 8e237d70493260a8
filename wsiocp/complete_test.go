// Author: momentics <momentics@gmail.com>

package wsiocp_test

import (
	"math/rand"
	"testing"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/control"
	"github.com/momentics/hioload-iocp/fake"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/stretchr/testify/require"
)

func TestStrayCompletion(t *testing.T) {
	h := newHarness(t)
	fd, _, ok := h.ctx.HandleCompletion(api.Completion{Key: 100, Overlapped: new(api.Overlapped)})
	require.False(t, ok)
	require.Equal(t, api.InvalidFd, fd)
	require.EqualValues(t, 1, h.counter(wsiocp.MetricStray))
}

func TestReadCompletionAfterRecordReplaced(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.ArmReadReadiness(fd))
	op := h.only(t, fake.OpRead, fd)

	_, err := h.ctx.Detach(fd, false)
	require.NoError(t, err)
	h.table.Delete(h.table.Lookup(fd))
	fresh := h.table.Get(fd)

	_, _, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 0, nil))
	require.False(t, ok)
	require.Same(t, fresh, h.table.Lookup(fd))
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	fd := h.attached(t)
	h.ctx.Shutdown()

	err := h.ctx.Attach(h.sys.AddSocket())
	require.ErrorIs(t, err, api.ErrAttachFailed)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = h.ctx.Detach(fd, false)
	require.ErrorIs(t, err, api.ErrInvalidState)
	require.Nil(t, h.ctx.State(fd))
	require.Equal(t, fake.PortHandle, h.ctx.Port())
}

// hookStore is a get-or-create map behind the hook functions.
type hookStore struct {
	records map[api.Fd]*sockstate.SocketState
	created int
	deleted int
}

func newHookStore() *hookStore {
	return &hookStore{records: map[api.Fd]*sockstate.SocketState{}}
}

func hookGet(handle any, fd api.Fd) *sockstate.SocketState {
	s := handle.(*hookStore)
	if s.records[fd] == nil {
		s.records[fd] = sockstate.NewSocketState(fd)
		s.created++
	}
	return s.records[fd]
}

func hookLookup(handle any, fd api.Fd) *sockstate.SocketState {
	return handle.(*hookStore).records[fd]
}

func hookDelete(handle any, rec *sockstate.SocketState) {
	s := handle.(*hookStore)
	delete(s.records, rec.Fd)
	s.deleted++
}

func TestInitializeWithHooks(t *testing.T) {
	s := newHookStore()
	sys := fake.NewSys()
	ctx := wsiocp.Initialize(s, fake.PortHandle, hookGet, hookDelete, wsiocp.WithSys(sys))

	fd := sys.AddSocket()
	require.NoError(t, ctx.Attach(fd))
	require.Equal(t, sockstate.Attached, s.records[fd].Masks)
	out, err := ctx.Detach(fd, false)
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Equal(t, 1, s.deleted)
}

func TestHooksLateAcceptAfterListenerDetach(t *testing.T) {
	s := newHookStore()
	sys := fake.NewSys()
	ctx := wsiocp.Initialize(s, fake.PortHandle, hookGet, hookDelete, wsiocp.WithSys(sys))

	fd := sys.AddSocket()
	require.NoError(t, ctx.Listen(fd, 16))
	ops := sys.Outstanding(fake.OpAccept, fd)
	require.Len(t, ops, 1)
	out, err := ctx.Detach(fd, false)
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.NotContains(t, s.records, fd)

	_, _, ok := ctx.HandleCompletion(sys.CompleteAccept(ops[0], localAddr, remoteAddr))
	require.False(t, ok)
	require.NotContains(t, s.records, fd)
	require.Empty(t, s.records)
	require.True(t, sys.Sock(ops[0].Accept).Closed)
	require.Equal(t, 0, ctx.Inflight())
}

func TestHooksSendCallbackDetaches(t *testing.T) {
	s := newHookStore()
	sys := fake.NewSys()
	ctx := wsiocp.Initialize(s, fake.PortHandle, hookGet, hookDelete, wsiocp.WithSys(sys))

	fd := sys.AddSocket()
	require.NoError(t, ctx.Attach(fd))
	var detached wsiocp.DetachOutcome
	res, err := ctx.Send(fd, payload(32), 0, nil, nil, nil, func(*sockstate.PendingSend) {
		var derr error
		detached, derr = ctx.Detach(fd, false)
		require.NoError(t, derr)
	})
	require.NoError(t, err)
	require.True(t, res.Pending)
	ops := sys.Outstanding(fake.OpSend, fd)
	require.Len(t, ops, 1)

	ctx.HandleCompletion(sys.Complete(ops[0], 32, nil))
	require.True(t, detached.Deleted)
	require.Empty(t, s.records)
	require.Equal(t, 1, s.created)
	require.Equal(t, 1, s.deleted)
}

func TestHooksReadCompletionAfterDetach(t *testing.T) {
	s := newHookStore()
	sys := fake.NewSys()
	ctx := wsiocp.Initialize(s, fake.PortHandle, hookGet, hookDelete, wsiocp.WithSys(sys))

	fd := sys.AddSocket()
	require.NoError(t, ctx.Attach(fd))
	require.NoError(t, ctx.ArmReadReadiness(fd))
	ops := sys.Outstanding(fake.OpRead, fd)
	require.Len(t, ops, 1)
	out, err := ctx.Detach(fd, false)
	require.NoError(t, err)
	require.False(t, out.Deleted)

	_, _, ok := ctx.HandleCompletion(sys.Complete(ops[0], 0, nil))
	require.False(t, ok)
	require.Empty(t, s.records)
	require.Equal(t, 1, s.created)
	require.Equal(t, 1, s.deleted)
}

func TestLookupHookDoesNotCreate(t *testing.T) {
	s := newHookStore()
	sys := fake.NewSys()
	ctx := wsiocp.Initialize(s, fake.PortHandle, hookGet, hookDelete,
		wsiocp.WithSys(sys), wsiocp.WithLookupHook(hookLookup))

	fd := sys.AddSocket()
	res, err := ctx.Send(fd, payload(8), 0, nil, nil, nil, func(*sockstate.PendingSend) {})
	require.NoError(t, err)
	require.False(t, res.Pending)
	require.NoError(t, ctx.ArmReadReadiness(fd))
	require.False(t, ctx.ReadArmed(fd))
	require.Nil(t, ctx.State(fd))
	require.Empty(t, s.records)

	require.NoError(t, ctx.Attach(fd))
	require.Same(t, s.records[fd], ctx.State(fd))
}

func TestConfigFromStore(t *testing.T) {
	cs := control.NewConfigStore()
	cs.SetConfig(map[string]any{
		"address_family":    float64(wsiocp.AFInet6),
		"address_size":      64,
		"drain_buffer_size": 512,
	})
	cfg := wsiocp.ConfigFromStore(cs)
	require.Equal(t, wsiocp.AFInet6, cfg.AddressFamily)
	require.EqualValues(t, 64, cfg.AddressSize)
	require.Equal(t, 64, cfg.AcceptSlack)
	require.Equal(t, 512, cfg.DrainBufferSize)

	h := newHarness(t, wsiocp.WithConfig(wsiocp.Config{AcceptSlack: -1}))
	require.Equal(t, wsiocp.Config{AddressFamily: wsiocp.AFInet, AddressSize: 128, DrainBufferSize: 100}, h.ctx.Config())
}

func TestRegisterProbes(t *testing.T) {
	h := newHarness(t)
	h.ctx.RegisterProbes(h.ctl.Debug)
	h.attached(t)
	fd := h.attached(t)
	require.NoError(t, h.ctx.ArmReadReadiness(fd))
	stats := h.ctl.Stats()
	require.Equal(t, 1, stats["debug.wsiocp.inflight"])
	require.EqualValues(t, 2, stats[wsiocp.MetricAttached])
}

// Detach is interleaved with arbitrarily delayed completions; records must
// survive exactly as long as something is in flight and every callback must
// run once.
func TestDetachInterleavedWithCompletions(t *testing.T) {
	rng := rand.New(rand.NewSource(20251019))
	for iter := 0; iter < 300; iter++ {
		h := newHarness(t)
		fd := h.attached(t)
		require.NoError(t, h.ctx.AddInterest(fd, sockstate.Readable))

		sends := rng.Intn(4)
		calls := make([]int, sends)
		for i := 0; i < sends; i++ {
			i := i
			_, err := h.ctx.Send(fd, payload(8), 0, nil, nil, nil, func(*sockstate.PendingSend) { calls[i]++ })
			require.NoError(t, err)
		}
		if rng.Intn(3) == 0 {
			h.ctx.RemoveInterest(fd, sockstate.Readable)
		}

		ops := h.sys.Pending()
		rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
		detachAt := rng.Intn(len(ops) + 1)
		detached := false
		for i := 0; i <= len(ops); i++ {
			if i == detachAt {
				_, err := h.ctx.Detach(fd, rng.Intn(2) == 0)
				require.NoError(t, err)
				detached = true
			}
			if i == len(ops) {
				break
			}
			op := ops[i]
			_, _, ok := h.ctx.HandleCompletion(h.sys.Complete(op, 8, nil))
			if detached {
				require.False(t, ok, "iter %d: readiness after detach", iter)
			}

			remaining := len(ops) - i - 1
			if detached {
				require.Equal(t, remaining > 0, h.table.Lookup(fd) != nil, "iter %d step %d", iter, i)
			} else {
				require.NotNil(t, h.table.Lookup(fd))
			}
		}
		require.Nil(t, h.table.Lookup(fd), "iter %d", iter)
		require.Equal(t, 0, h.ctx.Inflight())
		for i, n := range calls {
			require.Equal(t, 1, n, "iter %d send %d", iter, i)
		}
	}
}
