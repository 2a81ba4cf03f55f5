// Package errors provides custom error types for the renewals system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the renewals system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates the catalog export could not be read.
	// Nothing can be shown when this happens.
	ErrSourceUnavailable = errors.New("catalog source unavailable")

	// ErrOverlayUnavailable indicates the follow-up overlay could not be read.
	// Callers are expected to continue with an empty follow-up set.
	ErrOverlayUnavailable = errors.New("overlay unavailable")

	// ErrPersist indicates a follow-up write did not reach the overlay
	ErrPersist = errors.New("persist failed")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// SourceUnavailableError reports a catalog export that is missing, unreadable,
// or lacks a required sheet or column.
type SourceUnavailableError struct {
	Path    string
	Sheet   string
	Missing []string // required columns not found in the header row
	Err     error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("catalog %s is missing required columns %v", e.Path, e.Missing)
	case e.Sheet != "" && e.Err != nil:
		return fmt.Sprintf("catalog %s sheet %q unavailable: %v", e.Path, e.Sheet, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("catalog %s unavailable: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("catalog %s unavailable", e.Path)
	}
}

// Unwrap implements errors.Unwrap
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceUnavailableError creates a new SourceUnavailableError
func NewSourceUnavailableError(path string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Path: path, Err: err}
}

// OverlayReadError reports a failed read of the follow-up overlay.
type OverlayReadError struct {
	Backend string
	Err     error
}

// Error implements the error interface
func (e *OverlayReadError) Error() string {
	return fmt.Sprintf("overlay read from %s failed: %v", e.Backend, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *OverlayReadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *OverlayReadError) Is(target error) bool {
	return target == ErrOverlayUnavailable
}

// NewOverlayReadError creates a new OverlayReadError
func NewOverlayReadError(backend string, err error) *OverlayReadError {
	return &OverlayReadError{Backend: backend, Err: err}
}

// PersistError reports a follow-up batch that could not be written.
// None of the records in the batch should be assumed stored.
type PersistError struct {
	Backend string
	IDs     []string
	Err     error
}

// Error implements the error interface
func (e *PersistError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("persist to %s failed for %d records %v: %v", e.Backend, len(e.IDs), e.IDs, e.Err)
	}
	return fmt.Sprintf("persist to %s failed: %v", e.Backend, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}

// NewPersistError creates a new PersistError
func NewPersistError(backend string, ids []string, err error) *PersistError {
	return &PersistError{Backend: backend, IDs: ids, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "xlsx", "csv", "yaml", "date", ...
	File    string
	Line    int
	Column  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d (%s): %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "rename", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsLookupMiss reports whether err means a queried plan identifier does not
// exist. A miss is a normal empty result, not a failure.
func IsLookupMiss(err error) bool {
	return IsNotFound(err)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsSourceUnavailable checks if an error means the catalog could not be read
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsOverlayUnavailable checks if an error means the overlay could not be read
func IsOverlayUnavailable(err error) bool {
	return errors.Is(err, ErrOverlayUnavailable)
}

// IsPersistError checks if an error is a failed overlay write
func IsPersistError(err error) bool {
	return errors.Is(err, ErrPersist)
}

// As is re-exported so callers need not import both errors packages.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is re-exported so callers need not import both errors packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapPersist wraps an error as a PersistError
func WrapPersist(backend string, ids []string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistError
	if errors.As(err, &pe) {
		return err
	}
	return NewPersistError(backend, ids, err)
}
