// Package errors provides the error taxonomy for concilia.
// Sentinels support errors.Is checks; typed errors carry the context
// needed to report a failure without inspecting message strings.
package errors

import (
	"errors"
	"fmt"
)

// Aliases for the standard library helpers, so callers need one import.
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested client or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNothingExtracted indicates an extraction that found no payments and no clients.
	ErrNothingExtracted = errors.New("nothing extracted from documents")

	// ErrUnsupportedDocument indicates a document type that cannot be prepared for extraction.
	ErrUnsupportedDocument = errors.New("unsupported document")

	// ErrInvariant indicates a broken ledger invariant (programming error).
	ErrInvariant = errors.New("invariant violation")

	// ErrIneligibleCell indicates a mutation on a cell before the client's billing start.
	ErrIneligibleCell = errors.New("cell is before billing start")

	// ErrAPIKeyRequired indicates that the extraction API key is missing.
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrProviderUnavailable indicates that the extraction service is temporarily unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates that the extraction service rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// UnsupportedDocumentError is returned when a document cannot be converted
// into an extraction payload. It is raised before any extraction call.
type UnsupportedDocumentError struct {
	Filename string
	MIMEType string
}

// Error implements the error interface.
func (e *UnsupportedDocumentError) Error() string {
	if e.MIMEType != "" {
		return fmt.Sprintf("unsupported document %q (type %s)", e.Filename, e.MIMEType)
	}
	return fmt.Sprintf("unsupported document %q", e.Filename)
}

// Is implements errors.Is support.
func (e *UnsupportedDocumentError) Is(target error) bool {
	return target == ErrUnsupportedDocument
}

// NewUnsupportedDocumentError creates a new UnsupportedDocumentError.
func NewUnsupportedDocumentError(filename, mimeType string) *UnsupportedDocumentError {
	return &UnsupportedDocumentError{Filename: filename, MIMEType: mimeType}
}

// InvariantError reports a ledger state that breaks one of its invariants,
// such as two payments for the same cell.
type InvariantError struct {
	Invariant string
	Detail    string
	Err       error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
}

// Unwrap implements errors.Unwrap.
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError creates a new InvariantError.
func NewInvariantError(invariant, detail string, err error) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: detail, Err: err}
}

// APIError represents an error from the extraction provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Provider, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrProviderUnavailable
	}
	return false
}

// NewAPIError creates a new APIError.
func NewAPIError(provider string, statusCode int, message string) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MergeError represents a failure to persist a merged import.
type MergeError struct {
	BatchID string
	Err     error
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	if e.BatchID != "" {
		return fmt.Sprintf("merge of import %s failed: %v", e.BatchID, e.Err)
	}
	return fmt.Sprintf("merge failed: %v", e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError creates a new MergeError.
func NewMergeError(batchID string, err error) *MergeError {
	return &MergeError{BatchID: batchID, Err: err}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml", "csv", "xlsx", ...
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during blob or file I/O.
type IOError struct {
	Operation string // "get", "set", "read", "write", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
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

// TimeoutError represents an operation timeout.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNothingExtracted checks if an extraction produced no data.
func IsNothingExtracted(err error) bool {
	return errors.Is(err, ErrNothingExtracted)
}

// IsUnsupportedDocument checks if a document was rejected during preparation.
func IsUnsupportedDocument(err error) bool {
	return errors.Is(err, ErrUnsupportedDocument)
}

// IsInvariant checks if an error reports a broken ledger invariant.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant) || errors.Is(err, ErrIneligibleCell)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// WrapValidation wraps an error as a ValidationError.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError.
func WrapAPI(provider string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
