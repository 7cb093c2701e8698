package engine

import (
	"errors"
	"fmt"
)

// ErrLookupFailed marks failures of the configuration collaborator. Callers may retry.
var ErrLookupFailed = errors.New("configuration lookup failed")

// ValidationError reports a request the engine refuses to evaluate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError reports a rejected field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// LookupError wraps a storage failure while reading rates, rules, thresholds or VAT rates.
// It is never produced for a key that simply has no configuration.
type LookupError struct {
	Op  string
	Key string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookupFailed }

func lookupFailed(op, key string, err error) error {
	return &LookupError{Op: op, Key: key, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
