package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrValidation = errors.New("invalid stream request")
	ErrLaunch     = errors.New("failed to launch stream process")
)

// Request fields named by ValidationError.
const (
	FieldSource   = "source"
	FieldProtocol = "protocol"
	FieldAddress  = "address"
	FieldPort     = "port"
)

// ValidationError reports a rejected StreamRequest. The controller state is
// unchanged when Start returns it.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// LaunchError reports that the OS refused to spawn ffmpeg. The controller
// is Idle when Start returns it.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

// Unwrap returns the OS error.
func (e *LaunchError) Unwrap() error { return e.Err }

// Is matches ErrLaunch.
func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// TerminationError describes a termination request that could not be
// delivered. Stop logs it and never returns it.
type TerminationError struct {
	PID int
	Err error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("terminate pid %d: %v", e.PID, e.Err)
}

// Unwrap returns the signal error.
func (e *TerminationError) Unwrap() error { return e.Err }
