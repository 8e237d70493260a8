//go:build !windows
// +build !windows

// File: reactor/reactor_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without completion ports.

package reactor

import "github.com/momentics/hioload-iocp/api"

// NewPort returns api.ErrNotSupported outside Windows.
func NewPort(concurrency int) (Port, error) {
	return nil, api.ErrNotSupported
}
