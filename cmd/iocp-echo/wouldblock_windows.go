//go:build windows
// +build windows

package main

import (
	"errors"
	"syscall"
)

// WSAEWOULDBLOCK
const errWouldBlock = syscall.Errno(10035)

func wouldBlock(err error) bool {
	return errors.Is(err, errWouldBlock)
}
