package engine

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"narengine/internal/backend"
	"narengine/internal/sampling"
	"narengine/pkg/types"
)

// Error carries a boundary result code alongside the detailed message.
type Error struct {
	Code types.ResultCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.Description()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code types.ResultCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func errInvalidParams(format string, args ...any) error {
	return newError(types.ErrInvalidParams, nil, format, args...)
}

func errNotInitialized() error {
	return &Error{Code: types.ErrEngineNotInitialized}
}

func errAlreadyInitialized() error {
	return &Error{Code: types.ErrEngineAlreadyInitialized}
}

func errCancelled(err error) error {
	return &Error{Code: types.ErrCancelled, Err: err}
}

func errTimeout(err error) error {
	return &Error{Code: types.ErrTimeout, Err: err}
}

// CodeOf maps any error to a result code. nil maps to Success.
func CodeOf(err error) types.ResultCode {
	if err == nil {
		return types.Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var re *sampling.RangeError
	switch {
	case errors.As(err, &re):
		return types.ErrInvalidParams
	case errors.Is(err, context.Canceled):
		return types.ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrTimeout
	case errors.Is(err, backend.ErrOutOfMemory):
		return types.ErrOutOfMemory
	}
	return types.ErrUnknown
}

// IsCancelled reports whether err is a cancellation (engine-wide cancel,
// shutdown or caller context).
func IsCancelled(err error) bool { return CodeOf(err) == types.ErrCancelled }

// IsTimeout reports whether err is a generation timeout.
func IsTimeout(err error) bool { return CodeOf(err) == types.ErrTimeout }

// IsInvalidParams reports whether a request or config was rejected before
// any work started.
func IsInvalidParams(err error) bool { return CodeOf(err) == types.ErrInvalidParams }

// IsNotInitialized reports whether the engine was not initialized.
func IsNotInitialized(err error) bool { return CodeOf(err) == types.ErrEngineNotInitialized }

// truncateMessage bounds error text to the ABI error buffer.
func truncateMessage(s string) string {
	if len(s) < types.MaxErrorMessageLen {
		return s
	}
	s = s[:types.MaxErrorMessageLen-1]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Message renders err for the boundary, bounded to the ABI error buffer.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return truncateMessage(err.Error())
}
