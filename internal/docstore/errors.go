package docstore

import (
	"errors"
	"fmt"
)

// ValidationError reports rejected input along with the field that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports an operation referencing an entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Kind, e.ID)
}

// DuplicateError reports an attempt to create an entity that already exists.
type DuplicateError struct {
	Kind  string
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s '%s' already exists", e.Kind, e.Field, e.Value)
}

// StorageError wraps an unexpected database failure. Domain errors
// (validation, not-found, duplicate) are never wrapped in it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFoundErr(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func duplicateErr(kind, field, value string) error {
	return &DuplicateError{Kind: kind, Field: field, Value: value}
}

// storageErr wraps err as a StorageError unless it already carries a domain
// error, which passes through untouched.
func storageErr(op string, err error) error {
	var ve *ValidationError
	var nfe *NotFoundError
	var de *DuplicateError
	if errors.As(err, &ve) || errors.As(err, &nfe) || errors.As(err, &de) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
