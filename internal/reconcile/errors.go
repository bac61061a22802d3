package reconcile

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes reconciliation errors.
type ErrorCode string

const (
	// ErrCodeStoreQuery indicates the store failed a lookup.
	ErrCodeStoreQuery ErrorCode = "STORE_QUERY"

	// ErrCodeStoreInsert indicates the store failed to create an entity.
	ErrCodeStoreInsert ErrorCode = "STORE_INSERT"

	// ErrCodeMissingIdentity indicates a root payload has no usable
	// identifier.
	ErrCodeMissingIdentity ErrorCode = "MISSING_IDENTITY"

	// ErrCodeUnknownEntity indicates an entity name with no description.
	ErrCodeUnknownEntity ErrorCode = "UNKNOWN_ENTITY"
)

// Error is returned when reconciliation cannot proceed. Per-field data
// problems never produce an Error; only collaborator failures and unusable
// root calls do.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Entity is the entity being reconciled.
	Entity string

	// Field is the identifying field, when relevant.
	Field string

	// Err is the underlying store error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Entity != "" {
		msg += fmt.Sprintf(" (entity=%s", e.Entity)
		if e.Field != "" {
			msg += fmt.Sprintf(", field=%s", e.Field)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so
// errors.Is(err, &Error{Code: ErrCodeStoreQuery}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsStoreError returns true if the error came from the store.
// Uses errors.As to handle wrapped errors.
func IsStoreError(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreQuery || re.Code == ErrCodeStoreInsert
	}
	return false
}

// IsMissingIdentity returns true if a root payload lacked its identifier.
func IsMissingIdentity(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeMissingIdentity
}

func newStoreError(code ErrorCode, entity, field string, err error) *Error {
	// Errors from nested reconciliations pass through unchanged.
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	msg := "lookup failed"
	if code == ErrCodeStoreInsert {
		msg = "insert failed"
	}
	return &Error{Code: code, Message: msg, Entity: entity, Field: field, Err: err}
}
