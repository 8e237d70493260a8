// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral completion port interface.

package reactor

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/sockstate"
)

// ErrPortClosed is returned by Wait and Post once the port is closed.
var ErrPortClosed = api.NewError(api.ErrCodeInvalidState, "completion port closed")

// Port is a completion queue.
type Port interface {
	// Handle is the OS handle sockets are associated with.
	Handle() api.Handle

	// Wait blocks up to timeoutMs (negative: forever) for at least one
	// packet and fills entries with as many as are ready. It returns 0, nil
	// on timeout.
	Wait(entries []api.Completion, timeoutMs int) (int, error)

	// Post enqueues a packet. A packet with a nil Overlapped is a wake-up.
	Post(c api.Completion) error

	// Close releases the port. Blocked waiters return ErrPortClosed.
	Close() error
}

// Handler retires the request behind one completion packet and reports the
// readiness it produced, if any.
type Handler interface {
	HandleCompletion(c api.Completion) (fd api.Fd, fired sockstate.Mask, ok bool)
}
