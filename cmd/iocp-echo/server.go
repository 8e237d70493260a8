// File: cmd/iocp-echo/server.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/control"
	"github.com/momentics/hioload-iocp/internal/log"
	"github.com/momentics/hioload-iocp/internal/winsock"
	"github.com/momentics/hioload-iocp/pool"
	"github.com/momentics/hioload-iocp/reactor"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/momentics/hioload-iocp/wsiocp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type flags struct {
	Listen     string
	Backlog    int
	ConfigFile string
	LogLevel   string
	Batch      int
}

type server struct {
	sys    *winsock.Sys
	ctx    *wsiocp.Context
	ctl    *control.Control
	lfd    api.Fd
	bufs   *pool.FixedBytes
	logger *logrus.Entry
}

func run(parent context.Context, f *flags) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := log.NewLogger("iocp-echo")
	if err := log.SetLevel(f.LogLevel); err != nil {
		return err
	}

	ctl := control.New()
	if f.ConfigFile != "" {
		if err := ctl.Config.LoadFile(f.ConfigFile); err != nil {
			return err
		}
	}
	ctl.OnReload(func() {
		lvl := ctl.Config.String("log_level", f.LogLevel)
		if err := log.SetLevel(lvl); err != nil {
			logger.WithError(err).Warn("ignoring log_level")
		}
	})
	control.RegisterReloadHook(func() {
		logger.WithField("stats", ctl.Stats()).Debug("reload applied")
	})
	if lvl := ctl.Config.String("log_level", ""); lvl != "" {
		if err := log.SetLevel(lvl); err != nil {
			return err
		}
	}

	port, err := reactor.NewPort(0)
	if err != nil {
		return err
	}
	defer port.Close()

	s := &server{
		sys:    winsock.New(),
		ctl:    ctl,
		bufs:   pool.NewFixedBytes(ctl.Config.Int("echo_buffer_size", 16<<10)),
		logger: logger,
	}
	s.ctx = wsiocp.New(port.Handle(), sockstate.NewTable(64),
		wsiocp.WithSys(s.sys),
		wsiocp.WithConfig(wsiocp.ConfigFromStore(ctl.Config)),
		wsiocp.WithControl(ctl),
		wsiocp.WithLogger(log.NewLogger("wsiocp")))
	s.ctx.RegisterProbes(ctl.Debug)
	defer s.ctx.Shutdown()

	s.lfd, err = winsock.BoundSocket(f.Listen)
	if err != nil {
		return err
	}
	defer s.sys.Close(s.lfd)
	if err := s.ctx.Listen(s.lfd, f.Backlog); err != nil {
		return err
	}
	if err := s.ctx.AddInterest(s.lfd, sockstate.Readable); err != nil {
		return err
	}
	if addr, err := winsock.LocalAddr(s.lfd); err == nil {
		logger.Info("server started at ", addr)
	}

	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	loop := reactor.NewLoop(port, s.ctx, s.ready,
		reactor.WithBatchSize(f.Batch),
		reactor.WithLoopLogger(logger))
	g.Go(func() error { return loop.Run(gctx) })
	if f.ConfigFile != "" {
		g.Go(func() error { return control.WatchFile(gctx, ctl.Config, f.ConfigFile, logger) })
	}

	err = g.Wait()
	logger.WithField("stats", ctl.Stats()).Info("server stopped")
	return err
}

// ready runs on the loop goroutine.
func (s *server) ready(fd api.Fd, mask sockstate.Mask) {
	if fd == s.lfd {
		s.accept()
		return
	}
	s.echo(fd)
}

func (s *server) accept() {
	for {
		st := s.ctx.State(s.lfd)
		if st == nil || st.AcceptQueueLen() == 0 {
			return
		}
		sa := make([]byte, s.ctx.Config().AddressSize)
		afd, n, err := s.ctx.AcceptCompleted(s.lfd, sa)
		if afd == api.InvalidFd {
			s.logger.WithError(err).Warn("accept")
			continue
		}
		if err != nil {
			s.logger.WithError(err).Warn("accept pipeline stalled")
		}
		s.logger.WithField("fd", afd).WithField("peer_len", n).Debug("connection accepted")
		if err := s.ctx.AddInterest(afd, sockstate.Readable); err != nil {
			s.logger.WithError(err).WithField("fd", afd).Warn("arm read")
			s.close(afd, false)
		}
	}
}

func (s *server) echo(fd api.Fd) {
	for {
		buf := s.bufs.Get()
		n, err := s.sys.Recv(fd, buf)
		switch {
		case err != nil && wouldBlock(err):
			s.bufs.Put(buf)
			if err := s.ctx.ArmReadReadiness(fd); err != nil {
				s.logger.WithError(err).WithField("fd", fd).Debug("re-arm read")
				s.close(fd, false)
			}
			return
		case err != nil:
			s.bufs.Put(buf)
			s.logger.WithError(err).WithField("fd", fd).Debug("recv")
			s.close(fd, false)
			return
		case n == 0:
			s.bufs.Put(buf)
			s.close(fd, true)
			return
		}
		res, err := s.ctx.Send(fd, buf[:n], 0, nil, nil, nil, func(ps *sockstate.PendingSend) {
			if ps.Err != nil {
				s.logger.WithError(ps.Err).WithField("fd", ps.Fd).Debug("send completion")
			}
			s.bufs.Put(ps.Buf[:cap(ps.Buf)])
		})
		if err != nil {
			s.bufs.Put(buf)
			s.close(fd, false)
			return
		}
		if !res.Pending {
			s.bufs.Put(buf)
		}
	}
}

func (s *server) close(fd api.Fd, graceful bool) {
	if _, err := s.ctx.Detach(fd, graceful); err != nil {
		s.logger.WithError(err).WithField("fd", fd).Debug("detach")
	}
	if err := s.sys.Close(fd); err != nil {
		s.logger.WithError(err).WithField("fd", fd).Debug("close")
	}
}
