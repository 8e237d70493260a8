// Package sockstate
// Author: momentics <momentics@gmail.com>

package sockstate

import "github.com/momentics/hioload-iocp/api"

// Store maps descriptors to their state records. Implementations must return
// the same record for the same descriptor until it is deleted.
type Store interface {
	// Get returns the record for fd, creating it when absent. It returns nil
	// only when the store cannot provide a record.
	Get(fd api.Fd) *SocketState
	// Lookup returns the existing record for fd or nil.
	Lookup(fd api.Fd) *SocketState
	// Delete removes and releases s. Callers only invoke it once
	// s.Deletable() holds.
	Delete(s *SocketState)
}

// GetFunc is the lookup hook of an external state store.
type GetFunc func(handle any, fd api.Fd) *SocketState

// DeleteFunc is the delete hook of an external state store.
type DeleteFunc func(handle any, s *SocketState)

// LookupFunc returns the existing record for fd, nil if there is none.
type LookupFunc func(handle any, fd api.Fd) *SocketState

// Hooks adapts an opaque store handle and its hook functions to Store.
// Without LookupFn, Lookup falls back to the get hook and may create.
type Hooks struct {
	Handle   any
	GetFn    GetFunc
	LookupFn LookupFunc
	DelFn    DeleteFunc
}

// NewHooks builds a Store from the injected hook functions.
func NewHooks(handle any, get GetFunc, del DeleteFunc) *Hooks {
	return &Hooks{Handle: handle, GetFn: get, DelFn: del}
}

func (h *Hooks) Get(fd api.Fd) *SocketState {
	if h.GetFn == nil {
		return nil
	}
	return h.GetFn(h.Handle, fd)
}

func (h *Hooks) Lookup(fd api.Fd) *SocketState {
	if h.LookupFn != nil {
		return h.LookupFn(h.Handle, fd)
	}
	return h.Get(fd)
}

func (h *Hooks) Delete(s *SocketState) {
	if h.DelFn != nil && s != nil {
		h.DelFn(h.Handle, s)
	}
}
