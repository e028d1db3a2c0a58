package datacat

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrSchemaMismatch is returned when supplied metadata keys do not match
	// the declared schema fields. It is raised before any disk or catalog I/O.
	ErrSchemaMismatch = errors.New("metadata keys do not match schema")

	// ErrNotFound is returned when an identifier is absent from the catalog
	ErrNotFound = errors.New("object not found")

	// ErrIntegrity is returned when a catalog row exists but its blob is
	// missing (or vice versa). It signals a violated invariant, never a
	// "never existed" condition, and is never repaired automatically.
	ErrIntegrity = errors.New("catalog row and blob are out of sync")

	// ErrStoreClosed is returned when trying to use a closed storage
	ErrStoreClosed = errors.New("storage is closed")

	// ErrInvalidBundle is returned when a bundle or one of its arrays is malformed
	ErrInvalidBundle = errors.New("invalid bundle")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StorageError wraps errors with operation context
type StorageError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("datacat: %v", e.Err)
	}
	return fmt.Sprintf("datacat: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// CodecError wraps any failure surfaced by a Codec while reading or writing
// a blob. The path names the blob the codec was working on.
type CodecError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *CodecError) Unwrap() error {
	return e.Err
}

// wrapCodecError wraps a codec failure, leaving nil untouched. Errors that
// already carry codec context pass through unchanged.
func wrapCodecError(path string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CodecError
	if errors.As(err, &ce) {
		return err
	}
	return &CodecError{Path: path, Err: err}
}
