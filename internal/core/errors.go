package core

import (
	"errors"
	"fmt"
	"strings"
)

// Operator guidance attached to errors that threaten shared-state integrity.
const RecoveryHint = "aitch is either in a bad state or not running; consider `aitch stop --force` (if necessary) followed by `aitch start`"

// errors on reading or mutating scheduler state.
var (
	ErrNotRunning        = errors.New("scheduler is not running")
	ErrCorruptState      = errors.New("scheduler state is corrupt")
	ErrAlreadyRunning    = errors.New("scheduler is already running")
	ErrJobNotFound       = errors.New("no such job found")
	ErrJobsOutstanding   = errors.New("jobs are still queued")
	ErrSignalUnsupported = errors.New("signal not supported on this platform")
	ErrSpawnFailure      = errors.New("failed to launch job")
	ErrStaleProcess      = errors.New("job process not found")
)

// errors on validating a submitted job.
var (
	ErrInvalidJob          = errors.New("invalid job")
	ErrCommandIsEmpty      = errors.New("command is empty")
	ErrShellOperator       = errors.New("command contains an unquoted shell operator")
	ErrRequestLength       = errors.New("slot request does not match the number of dimensions")
	ErrNegativeRequest     = errors.New("slot request must not be negative")
	ErrInvalidEnv          = errors.New("env must be NAME=VALUE without whitespace")
	ErrInvalidDependency   = errors.New("dependency must name a previously submitted job")
	ErrNewlineNotAllowed   = errors.New("value must not contain a newline")
	ErrInvalidInstanceName = errors.New("instance name must be a non-empty base name")
)

// StateError marks an error as damaging to shared state; it carries the
// recovery hint for the operator.
type StateError struct {
	Path string
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("error reading %s: %v; %s", e.Path, e.Err, RecoveryHint)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NewStateError wraps err (usually ErrNotRunning or ErrCorruptState) with the
// path of the offending file or directory.
func NewStateError(path string, err error) error {
	return &StateError{Path: path, Err: err}
}

// ErrorList is just a list of errors.
// It is used to collect every problem found while validating a job.
type ErrorList []error

// Error implements the error interface.
// It returns a string with all the errors separated by a semicolon.
func (e ErrorList) Error() string {
	errStrings := make([]string, len(e))
	for i, err := range e {
		errStrings[i] = err.Error()
	}
	return strings.Join(errStrings, "; ")
}

// Unwrap implements the errors.Unwrap interface.
func (e ErrorList) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	return append([]error{ErrInvalidJob}, e...)
}

// ValidationError represents an error in a specific field of a job.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field '%s': %v (value: %+v)", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps an error with field context.
func NewValidationError(field string, value any, err error) error {
	return &ValidationError{
		Field: field,
		Value: value,
		Err:   err,
	}
}
