//go:build windows
// +build windows

// Author: momentics <momentics@gmail.com>

package wsiocp_test

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/internal/winsock"
	"github.com/momentics/hioload-iocp/reactor"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/stretchr/testify/require"
)

func TestLoopbackEcho(t *testing.T) {
	port, err := reactor.NewPort(0)
	require.NoError(t, err)
	defer port.Close()

	sys := winsock.New()
	ctx := wsiocp.New(port.Handle(), sockstate.NewTable(8), wsiocp.WithSys(sys))
	fired := map[api.Fd]bool{}
	loop := reactor.NewLoop(port, ctx, func(fd api.Fd, _ sockstate.Mask) { fired[fd] = true })
	waitFor := func(cond func() bool) {
		deadline := time.Now().Add(5 * time.Second)
		for !cond() {
			require.True(t, time.Now().Before(deadline), "timed out")
			_, err := loop.Poll(50)
			require.NoError(t, err)
		}
	}

	lfd, err := winsock.BoundSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer sys.Close(lfd)
	require.NoError(t, ctx.Listen(lfd, 4))
	require.NoError(t, ctx.AddInterest(lfd, sockstate.Readable))
	addr, err := winsock.LocalAddr(lfd)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	waitFor(func() bool { return fired[lfd] })
	sa := make([]byte, 128)
	afd, n, err := ctx.AcceptCompleted(lfd, sa)
	require.NoError(t, err)
	require.Positive(t, n)
	require.NoError(t, ctx.AddInterest(afd, sockstate.Readable))

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	waitFor(func() bool { return fired[afd] })

	buf := make([]byte, 64)
	n, err = sys.Recv(afd, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	res, err := ctx.Send(afd, buf[:n], 0, nil, nil, nil, func(*sockstate.PendingSend) {})
	require.NoError(t, err)
	require.True(t, res.Pending)
	waitFor(func() bool {
		select {
		case <-res.Request.Done():
			return true
		default:
			return false
		}
	})
	require.NoError(t, res.Request.Err)
	require.Equal(t, 4, res.Request.Written)

	got := make([]byte, 4)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Read(got)
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))

	require.NoError(t, conn.Close())
	out, err := ctx.Detach(afd, true)
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.NoError(t, sys.Close(afd))
}
