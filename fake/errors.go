// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import "errors"

// Errors mimicking the Winsock conditions the fakes can produce.
var (
	errNotSocket         = errors.New("fake: not a socket")
	errAlreadyAssociated = errors.New("fake: handle already associated with a port")

	// ErrWouldBlock stands in for WSAEWOULDBLOCK.
	ErrWouldBlock = errors.New("fake: operation would block")
	// ErrConnReset stands in for WSAECONNRESET.
	ErrConnReset = errors.New("fake: connection reset by peer")
)
