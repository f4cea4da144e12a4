package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownStep is returned when a script entry matches no step shape.
	ErrUnknownStep = errors.New("unknown command")

	// ErrInvalidScript is returned when a script document cannot be decoded.
	ErrInvalidScript = errors.New("invalid script")

	// ErrMismatch is returned when a received message differs from the expected one.
	ErrMismatch = errors.New("protocol mismatch")

	// ErrConnectionClosed is returned when the stream ends while a response or a pause is pending.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrLaunch is returned when the server process cannot be started or reached.
	ErrLaunch = errors.New("launch failed")

	// ErrTimeout is returned when a receive or a pause wait exceeds its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrUsage is returned for invalid command lines and configuration.
	ErrUsage = errors.New("invalid usage")

	// ErrReportNotFound is returned when a run ID cannot be found in a report store.
	ErrReportNotFound = errors.New("report not found")
)

// Exit codes reported to the invoking test framework.
const (
	ExitOK               = 0
	ExitMismatch         = 1
	ExitUnknownStep      = 2
	ExitLaunch           = 3
	ExitTimeout          = 4
	ExitUsage            = 64
	ExitInterrupted      = 130
	ExitConnectionClosed = 255
)

// StepError attributes a failure to a transport method and a script step.
type StepError struct {
	Method string
	Index  int
	Kind   string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %d (%s): %v", e.Method, e.Index, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// MismatchError carries the expected and the actual packet of a failed comparison.
type MismatchError struct {
	Expected Message
	Actual   Message
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: expected %s, got %s", ErrMismatch, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// ExitCode maps an error chain to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrUnknownStep):
		return ExitUnknownStep
	case errors.Is(err, ErrConnectionClosed):
		return ExitConnectionClosed
	case errors.Is(err, ErrLaunch):
		return ExitLaunch
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, ErrInvalidScript), errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitMismatch
	}
}
