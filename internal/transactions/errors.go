package transactions

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a cancel or ownership-check target that does not
	// exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrNoRowsAffected reports a store write that did not touch the expected
	// rows or returned no generated id. It always forces a full rollback of
	// the enclosing call.
	ErrNoRowsAffected = errors.New("write affected no rows")
)

// ValidationError reports a malformed command, rejected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid transaction: " + e.Reason
}

func errValidation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BulkRowError marks the batch row whose validation or persistence failed.
// The whole batch rolls back; no earlier row survives.
type BulkRowError struct {
	Index int
	Err   error
}

func (e *BulkRowError) Error() string {
	return fmt.Sprintf("bulk transaction row %d: %v", e.Index, e.Err)
}

func (e *BulkRowError) Unwrap() error {
	return e.Err
}
