// Package apperr defines the error taxonomy shared by the domain packages and
// the HTTP layer: validation failures, unresolved identifiers, and storage
// failures. The transport maps each kind to a status code at the request
// boundary.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ValidationError reports a missing or malformed input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid returns a ValidationError for field with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an identifier that does not resolve to a record.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NotFound returns a NotFoundError for the named resource. Domain packages
// keep the result in a package-level sentinel so errors.Is works on it.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a StorageError for operation op. A nil err stays nil.
func Storage(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
