// Package sockstate
// Author: momentics <momentics@gmail.com>
//
// Per-socket state records shared between the completion-port adaptation
// layer and the socket state store that owns them.

package sockstate

import "strings"

// Mask is the per-socket flag set.
type Mask uint32

const (
	Readable      Mask = 0x0001 // event loop wants readable notifications
	Writable      Mask = 0x0002 // event loop wants writable notifications
	ReadQueued    Mask = 0x0100 // zero-length read in flight
	Attached      Mask = 0x0400 // associated with the completion port
	AcceptPending Mask = 0x0800 // overlapped accept in flight
	ListenSock    Mask = 0x1000 // socket is listening

	// Interest is the subset of flags owned by the event loop.
	Interest = Readable | Writable
)

var maskNames = []struct {
	bit  Mask
	name string
}{
	{Attached, "ATTACHED"},
	{ListenSock, "LISTEN_SOCK"},
	{AcceptPending, "ACCEPT_PENDING"},
	{ReadQueued, "READ_QUEUED"},
	{Writable, "WRITABLE"},
	{Readable, "READABLE"},
}

// Has reports whether all bits of f are set.
func (m Mask) Has(f Mask) bool { return m&f == f }

func (m Mask) String() string {
	if m == 0 {
		return "0"
	}
	var parts []string
	for _, n := range maskNames {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
