// Author: momentics <momentics@gmail.com>

package wsiocp_test

import (
	"testing"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/control"
	"github.com/momentics/hioload-iocp/fake"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/stretchr/testify/require"
)

var _ wsiocp.Sys = (*fake.Sys)(nil)

type harness struct {
	sys   *fake.Sys
	table *sockstate.Table
	ctl   *control.Control
	ctx   *wsiocp.Context
}

func newHarness(t *testing.T, opts ...wsiocp.Option) *harness {
	t.Helper()
	h := &harness{
		sys:   fake.NewSys(),
		table: sockstate.NewTable(8),
		ctl:   control.New(),
	}
	opts = append([]wsiocp.Option{wsiocp.WithSys(h.sys), wsiocp.WithControl(h.ctl)}, opts...)
	h.ctx = wsiocp.New(fake.PortHandle, h.table, opts...)
	return h
}

// attached returns a fresh socket already attached to the port.
func (h *harness) attached(t *testing.T) api.Fd {
	t.Helper()
	fd := h.sys.AddSocket()
	require.NoError(t, h.ctx.Attach(fd))
	return fd
}

// listener returns a listening socket with its first accept in flight.
func (h *harness) listener(t *testing.T) api.Fd {
	t.Helper()
	fd := h.sys.AddSocket()
	require.NoError(t, h.ctx.Listen(fd, 16))
	return fd
}

// only returns the single outstanding op of kind k on fd.
func (h *harness) only(t *testing.T, k fake.OpKind, fd api.Fd) *fake.Op {
	t.Helper()
	ops := h.sys.Outstanding(k, fd)
	require.Len(t, ops, 1)
	return ops[0]
}

func (h *harness) counter(key string) int64 {
	return h.ctl.Metrics.Counter(key)
}
