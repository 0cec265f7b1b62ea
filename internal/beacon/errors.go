package beacon

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied indicates the OS refused radio access.
	ErrPermissionDenied = errors.New("bluetooth permission denied")
	// ErrHardwareUnavailable indicates the adapter is missing, powered off or failed.
	ErrHardwareUnavailable = errors.New("bluetooth hardware unavailable")
	// ErrNotFound indicates no live entry exists for the requested beacon.
	// Callers treat it as "distance unknown", never as zero.
	ErrNotFound = errors.New("beacon not found")
	// ErrInvalidConfig indicates a malformed UUID, major or minor.
	ErrInvalidConfig = errors.New("invalid beacon config")
	// ErrMalformedSample indicates a sample that was dropped without changing state.
	ErrMalformedSample = errors.New("malformed beacon sample")
)

// RadioError is returned when the radio adapter fails a lifecycle transition.
// It matches both its Kind (ErrPermissionDenied or ErrHardwareUnavailable)
// and the underlying adapter error with errors.Is.
type RadioError struct {
	Op   string
	Kind error
	Err  error
}

// NewRadioError classifies err for op. Errors that already carry
// ErrPermissionDenied keep that kind; anything else is a hardware failure.
func NewRadioError(op string, err error) *RadioError {
	kind := ErrHardwareUnavailable
	if errors.Is(err, ErrPermissionDenied) {
		kind = ErrPermissionDenied
	}
	return &RadioError{Op: op, Kind: kind, Err: err}
}

func (e *RadioError) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return fmt.Sprintf("beacon: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("beacon: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *RadioError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// PermissionDenied reports whether the failure was an authorization problem.
func (e *RadioError) PermissionDenied() bool {
	return e.Kind == ErrPermissionDenied
}
