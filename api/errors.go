// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-iocp.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInvalidState
	ErrCodeAttach
	ErrCodeOS
	ErrCodePending
	ErrCodeNotSupported
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeInvalidState:
		return "invalid state"
	case ErrCodeAttach:
		return "attach failed"
	case ErrCodeOS:
		return "os primitive failed"
	case ErrCodePending:
		return "operation pending"
	case ErrCodeNotSupported:
		return "operation not supported"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// Sentinels usable with errors.Is. Any *Error with the same code matches.
var (
	ErrInvalidArgument  = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidState     = &Error{Code: ErrCodeInvalidState, Message: "invalid socket state"}
	ErrAttachFailed     = &Error{Code: ErrCodeAttach, Message: "socket attach failed"}
	ErrOSFailure        = &Error{Code: ErrCodeOS, Message: "os primitive failed"}
	ErrOperationPending = &Error{Code: ErrCodePending, Message: "operation pending"}
	ErrNotSupported     = &Error{Code: ErrCodeNotSupported, Message: "operation not supported"}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Fd      Fd
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s fd=%d: %s", e.Op, e.Fd, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	return msg
}

// Unwrap exposes the OS-reported cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// OpError builds an error for operation op on fd with an optional cause.
func OpError(code ErrorCode, op string, fd Fd, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Fd: fd, Message: message, Cause: cause}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the code of err, ErrCodeOK for nil and ErrCodeOS for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeOS
}
