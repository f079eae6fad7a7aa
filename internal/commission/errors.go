package commission

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is an expected absence. Stores return it when no override
	// or history row matches; callers fall back instead of failing.
	ErrNotFound = errors.New("commission: not found")

	ErrInvalidInput  = errors.New("commission: invalid input")
	ErrSaleNotPaid   = errors.New("commission: sale is not paid")
	ErrStaffMismatch = errors.New("commission: sale belongs to another staff member")
)

// LookupError means a store could not answer. It is never the same as ErrNotFound.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("commission: %s lookup failed: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// WriteError means a history record could not be persisted. The enclosing
// sale finalization must be treated as failed.
type WriteError struct {
	SaleID     string
	LineItemID string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("commission: record for sale %s line %s not written: %v", e.SaleID, e.LineItemID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
