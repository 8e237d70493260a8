// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/reactor"
)

// PortHandle is the handle value reported by Port.
const PortHandle api.Handle = 0x1f00

// Port is an in-memory completion queue.
type Port struct {
	ch        chan api.Completion
	closeOnce sync.Once
	closed    chan struct{}
}

var _ reactor.Port = (*Port)(nil)

// NewPort returns a port buffering up to capacity packets.
func NewPort(capacity int) *Port {
	return &Port{ch: make(chan api.Completion, capacity), closed: make(chan struct{})}
}

func (p *Port) Handle() api.Handle { return PortHandle }

func (p *Port) Wait(entries []api.Completion, timeoutMs int) (int, error) {
	var timer <-chan time.Time
	if timeoutMs >= 0 {
		t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer t.Stop()
		timer = t.C
	}
	select {
	case c := <-p.ch:
		entries[0] = c
	case <-timer:
		return 0, nil
	case <-p.closed:
		return 0, reactor.ErrPortClosed
	}
	n := 1
	for n < len(entries) {
		select {
		case c := <-p.ch:
			entries[n] = c
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (p *Port) Post(c api.Completion) error {
	select {
	case <-p.closed:
		return reactor.ErrPortClosed
	default:
	}
	select {
	case p.ch <- c:
		return nil
	case <-p.closed:
		return reactor.ErrPortClosed
	}
}

func (p *Port) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
