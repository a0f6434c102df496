package kernel

import (
	"errors"
	"fmt"
)

// Code identifies the category of a kernel error, per the error enumeration
// in the coordination-core specification. NONE is represented by a nil
// error rather than a zero Code, since Go's error interface already encodes
// the "no error" case.
type Code int8

const (
	// CodeInvalidArg means an input violated a documented precondition. The
	// caller has a bug and must fix the call.
	CodeInvalidArg Code = iota + 1
	// CodeInvalidState means an operation was attempted out of order (e.g.
	// exiting a critical section that was never entered).
	CodeInvalidState
	// CodeTimeout means a bounded wait elapsed without the expected
	// progress. The caller may retry or escalate.
	CodeTimeout
	// CodeOverflow means a unit conversion overflowed int64. The caller
	// should clamp the input.
	CodeOverflow
	// CodeInternal means a sub-operation (typically a clock read) failed.
	// Callers should treat this as fatal.
	CodeInternal
	// CodeBusy means the operation could not proceed because a resource was
	// held by other in-progress work.
	CodeBusy
)

// String returns a human-readable name for the code.
func (c Code) String() string {
	switch c {
	case CodeInvalidArg:
		return "InvalidArg"
	case CodeInvalidState:
		return "InvalidState"
	case CodeTimeout:
		return "Timeout"
	case CodeOverflow:
		return "Overflow"
	case CodeInternal:
		return "Internal"
	case CodeBusy:
		return "Busy"
	default:
		return fmt.Sprintf("Code(%d)", int8(c))
	}
}

// Error is the concrete error type returned by kernel operations. It carries
// a [Code] plus an optional message and cause, and supports [errors.Is] and
// [errors.As] via Unwrap, mirroring the cause-chain convention the teacher
// package uses for its own JS-flavored error types.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("kernel: %s: %v", msg, e.Cause)
	}
	return "kernel: " + msg
}

// Unwrap returns the wrapped cause, if any, for [errors.Is]/[errors.As].
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel for e's Code, so that
// errors.Is(e, ErrTimeout) works without requiring e to be that exact
// sentinel value.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// newError constructs an *Error with the given code and message.
func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// wrapError constructs an *Error with the given code, message, and cause.
func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinel errors, suitable for errors.Is comparisons against any error
// returned by this package.
var (
	ErrInvalidArg   = newError(CodeInvalidArg, "invalid argument")
	ErrInvalidState = newError(CodeInvalidState, "invalid state")
	ErrTimeout      = newError(CodeTimeout, "timeout")
	ErrOverflow     = newError(CodeOverflow, "overflow")
	ErrInternal     = newError(CodeInternal, "internal error")
	ErrBusy         = newError(CodeBusy, "busy")
)

// AsError recovers the [Code] from err, if err is (or wraps) a kernel
// [Error]. The second return value is false if err is nil or not a kernel
// error.
func AsError(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
