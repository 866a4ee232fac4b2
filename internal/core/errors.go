package core

import (
	"errors"
	"fmt"
)

// FailureKind distinguishes why an operation failed, so callers can
// tell bad input apart from a missing or broken capability.
type FailureKind string

const (
	// FailureInput marks invalid caller input (empty file, malformed
	// token). These are handled by skip-and-continue, never surfaced as
	// hard errors.
	FailureInput FailureKind = "input_invalid"
	// FailureUnavailable marks a capability that is not configured,
	// such as structured extraction without an API key.
	FailureUnavailable FailureKind = "capability_unavailable"
	// FailureFailed marks a configured capability that errored, such as
	// an OCR run on an unreadable image or a store write failure.
	FailureFailed FailureKind = "capability_failed"
)

// CapabilityError wraps a failure with its operation name and kind.
type CapabilityError struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Failure builds a CapabilityError.
func Failure(op string, kind FailureKind, err error) error {
	return &CapabilityError{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain. Errors that do
// not carry a kind report FailureFailed.
func KindOf(err error) FailureKind {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return FailureFailed
}
