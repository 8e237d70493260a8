// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
//
// Completion loop: dequeues packets in batches and reports readiness.

package reactor

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/internal/log"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/sirupsen/logrus"
)

// ReadyFunc receives emulated readiness. It runs on the loop goroutine and
// may call back into the Handler.
type ReadyFunc func(fd api.Fd, mask sockstate.Mask)

// Loop drives one Port. Handler and ReadyFunc are only ever called from the
// goroutine running Run or Poll.
type Loop struct {
	port      Port
	handler   Handler
	ready     ReadyFunc
	batch     []api.Completion
	timeoutMs int
	log       *logrus.Entry

	running int32
	stopped atomic.Bool
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithBatchSize sets how many packets one Wait may return.
func WithBatchSize(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.batch = make([]api.Completion, n)
		}
	}
}

// WithPollTimeout bounds a single Wait inside Run, in milliseconds.
func WithPollTimeout(ms int) LoopOption {
	return func(l *Loop) { l.timeoutMs = ms }
}

// WithLoopLogger sets the logger entry.
func WithLoopLogger(e *logrus.Entry) LoopOption {
	return func(l *Loop) { l.log = e }
}

// NewLoop creates a loop dispatching port's packets to h.
func NewLoop(port Port, h Handler, ready ReadyFunc, opts ...LoopOption) *Loop {
	l := &Loop{
		port:      port,
		handler:   h,
		ready:     ready,
		batch:     make([]api.Completion, 64),
		timeoutMs: 1000,
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = log.NewLogger("reactor")
	}
	return l
}

// Poll waits once and dispatches what arrived. It returns the number of
// readiness events reported.
func (l *Loop) Poll(timeoutMs int) (int, error) {
	n, err := l.port.Wait(l.batch, timeoutMs)
	if err != nil {
		return 0, err
	}
	fired := 0
	for i := 0; i < n; i++ {
		c := l.batch[i]
		l.batch[i] = api.Completion{}
		if c.Overlapped == nil {
			continue // wake-up
		}
		fd, mask, ok := l.handler.HandleCompletion(c)
		if ok && l.ready != nil {
			l.ready(fd, mask)
			fired++
		}
	}
	return fired, nil
}

// Run polls until ctx is cancelled, Stop is called or the port fails.
// Cancellation and Stop return nil.
func (l *Loop) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		return api.NewError(api.ErrCodeInvalidState, "reactor: loop already running")
	}
	defer atomic.StoreInt32(&l.running, 0)
	stop := context.AfterFunc(ctx, l.Stop)
	defer stop()

	l.log.Debug("loop started")
	for !l.stopped.Load() {
		if _, err := l.Poll(l.timeoutMs); err != nil {
			if errors.Is(err, ErrPortClosed) && l.stopped.Load() {
				break
			}
			return err
		}
	}
	l.log.Debug("loop stopped")
	return nil
}

// Stop makes Run return after the current batch. It is safe from any
// goroutine.
func (l *Loop) Stop() {
	if l.stopped.Swap(true) {
		return
	}
	if err := l.port.Post(api.Completion{}); err != nil && !errors.Is(err, ErrPortClosed) {
		l.log.WithError(err).Warn("wake loop")
	}
}
