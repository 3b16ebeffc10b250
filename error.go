package climabus

import (
	"errors"
	"fmt"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable reports whether err, or anything it wraps, was not marked
// with Unrecoverable
func IsRecoverable(err error) bool {
	var u unrecoverableError
	return !errors.As(err, &u)
}

var (
	ErrDroppedFrame   = errors.New("adapter incoming channel full")
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrAdapterClosed  = errors.New("adapter closed")
	ErrNilAdapter     = errors.New("adapter is nil")
	ErrTraceLine      = errors.New("malformed trace line")
)

// ParseError locates a malformed trace line.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error {
	return ErrTraceLine
}
