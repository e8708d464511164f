// Package errors provides custom error types for syncals.
// These errors enable programmatic error checking with errors.Is / errors.As
// and carry enough context to explain which record or meeting failed.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for syncals
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrUnclassifiable indicates a participant tag found in neither the
	// room table nor the person table
	ErrUnclassifiable = errors.New("unclassifiable subject")

	// ErrMalformedBooking indicates a target booking whose subject does not
	// have the expected shape
	ErrMalformedBooking = errors.New("malformed booking")

	// ErrMissingMapping indicates a configured tag lacking an office or
	// resource mapping
	ErrMissingMapping = errors.New("missing mapping")

	// ErrUnsupported indicates an operation the collaborator does not offer
	ErrUnsupported = errors.New("unsupported")

	// ErrConflict indicates a sync started while another one was running
	ErrConflict = errors.New("sync already running")
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

// UnclassifiableSubjectError is reported when a source record's subject is
// neither a configured room tag nor a configured person tag.
type UnclassifiableSubjectError struct {
	Subject     string
	Start       time.Time
	Description string
}

// Error implements the error interface
func (e *UnclassifiableSubjectError) Error() string {
	return fmt.Sprintf("subject %q at %s (%q) is neither a room nor a person",
		e.Subject, e.Start.Format("2006-01-02 15:04"), e.Description)
}

// Is implements errors.Is support
func (e *UnclassifiableSubjectError) Is(target error) bool {
	return target == ErrUnclassifiable
}

// MalformedBookingError is reported when a target booking cannot be parsed
// into its identity fields. The booking is skipped, never deleted.
type MalformedBookingError struct {
	Subject string
	Fields  int
	Want    int
}

// Error implements the error interface
func (e *MalformedBookingError) Error() string {
	return fmt.Sprintf("booking subject %q has %d fields, want %d", e.Subject, e.Fields, e.Want)
}

// Is implements errors.Is support
func (e *MalformedBookingError) Is(target error) bool {
	return target == ErrMalformedBooking
}

// MappingError is reported when a tag referenced by a meeting has no usable
// office or resource mapping. Only that meeting fails.
type MappingError struct {
	Kind  string // "room" or "person"
	Tag   string
	Field string
}

// Error implements the error interface
func (e *MappingError) Error() string {
	return fmt.Sprintf("%s %q has no %s configured", e.Kind, e.Tag, e.Field)
}

// Is implements errors.Is support
func (e *MappingError) Is(target error) bool {
	return target == ErrMissingMapping
}

// ProviderError represents a failure in an event source or booking sink
type ProviderError struct {
	Provider  string
	Operation string // "fetch", "apply"
	Err       error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, operation string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Operation: operation, Err: err}
}

// ApplyError reports a single change record the sink could not apply
type ApplyError struct {
	Change string
	Err    error
}

// Error implements the error interface
func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Change, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout reports whether err is ErrTimeout or an expired context
// deadline, as when a source exceeds the fetch timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled reports whether err is ErrCanceled or a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// IsConflict checks if an error reports an overlapping sync
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnclassifiable checks if an error reports an unknown participant tag
func IsUnclassifiable(err error) bool {
	return errors.Is(err, ErrUnclassifiable)
}

// IsMalformedBooking checks if an error reports an unparsable booking
func IsMalformedBooking(err error) bool {
	return errors.Is(err, ErrMalformedBooking)
}

// IsMissingMapping checks if an error reports an incomplete tag mapping
func IsMissingMapping(err error) bool {
	return errors.Is(err, ErrMissingMapping)
}

// ParseError reports a calendar, snapshot or rules file that could not be
// read. Line is 0 when unknown.
type ParseError struct {
	Format  string
	File    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.File
	if where != "" && e.Line > 0 {
		where = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if where == "" {
		return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parse error in %s file %s: %s", e.Format, where, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError reports a failed file operation such as reading a calendar or
// writing a snapshot.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError creates an IOError.
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// ResourceError reports a failed operation on a named part of the system:
// the config, the rules, a source, a sink or the journal.
type ResourceError struct {
	Operation string
	Resource  string
	ID        string
	Err       error
}

func (e *ResourceError) Error() string {
	msg := "failed to " + e.Operation + " " + e.Resource
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError creates a ResourceError.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapValidation reports err as invalid input for field. It returns nil
// for a nil err, as do the other Wrap helpers.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps err as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps err as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps err as a ParseError carrying its message.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
