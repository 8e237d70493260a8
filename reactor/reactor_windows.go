//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) implementation and factory.

package reactor

import (
	"errors"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/momentics/hioload-iocp/api"
	"golang.org/x/sys/windows"
)

// iocpPort is a completion port created by the process.
type iocpPort struct {
	iocp   windows.Handle
	closed atomic.Bool
}

// NewPort creates a completion port for concurrency threads (0: one per CPU).
func NewPort(concurrency int) (Port, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, uint32(concurrency))
	if err != nil {
		return nil, api.OpError(api.ErrCodeOS, "create port", api.InvalidFd, "CreateIoCompletionPort", err)
	}
	return &iocpPort{iocp: port}, nil
}

func (p *iocpPort) Handle() api.Handle { return api.Handle(p.iocp) }

// Wait dequeues with one blocking call and then drains what is already
// queued without waiting.
func (p *iocpPort) Wait(entries []api.Completion, timeoutMs int) (int, error) {
	if len(entries) == 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "reactor: empty completion buffer")
	}
	timeout := uint32(windows.INFINITE)
	if timeoutMs >= 0 {
		timeout = uint32(timeoutMs)
	}
	n := 0
	for n < len(entries) {
		c, ok, err := p.dequeue(timeout)
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if !ok {
			break
		}
		entries[n] = c
		n++
		timeout = 0
	}
	return n, nil
}

func (p *iocpPort) dequeue(timeout uint32) (api.Completion, bool, error) {
	var (
		bytes uint32
		key   uintptr
		ov    *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(p.iocp, &bytes, &key, &ov, timeout)
	if ov == nil {
		switch {
		case err == nil:
			// posted wake-up
			return api.Completion{Key: key}, true, nil
		case errors.Is(err, syscall.Errno(windows.WAIT_TIMEOUT)):
			return api.Completion{}, false, nil
		case p.closed.Load(),
			errors.Is(err, windows.ERROR_ABANDONED_WAIT_0),
			errors.Is(err, windows.ERROR_INVALID_HANDLE):
			return api.Completion{}, false, ErrPortClosed
		default:
			return api.Completion{}, false, api.OpError(api.ErrCodeOS, "wait", api.InvalidFd, "GetQueuedCompletionStatus", err)
		}
	}
	// a failed operation still dequeues its packet
	return api.Completion{
		Key:        key,
		Overlapped: (*api.Overlapped)(unsafe.Pointer(ov)),
		Bytes:      bytes,
		Err:        err,
	}, true, nil
}

func (p *iocpPort) Post(c api.Completion) error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	ov := (*windows.Overlapped)(unsafe.Pointer(c.Overlapped))
	if err := windows.PostQueuedCompletionStatus(p.iocp, c.Bytes, c.Key, ov); err != nil {
		return api.OpError(api.ErrCodeOS, "post", api.InvalidFd, "PostQueuedCompletionStatus", err)
	}
	return nil
}

func (p *iocpPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return windows.CloseHandle(p.iocp)
}
