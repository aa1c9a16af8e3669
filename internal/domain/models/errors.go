package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError lists every problem found with a client-supplied value.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PartialFailureError marks a mutation that left the blob store and the
// metadata store out of step. Operators reconcile these by hand, so the error
// keeps the identifiers needed to find both sides.
type PartialFailureError struct {
	Op       string
	Filename string
	PhotoID  uuid.UUID
	Err      error
}

func (e *PartialFailureError) Error() string {
	switch e.Op {
	case "upload":
		return fmt.Sprintf("photo %q uploaded but not recorded: %v", e.Filename, e.Err)
	case "delete":
		return fmt.Sprintf("photo %s kept: blob %q could not be deleted: %v", e.PhotoID, e.Filename, e.Err)
	default:
		return fmt.Sprintf("%s partially failed for %q: %v", e.Op, e.Filename, e.Err)
	}
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}
