// Package errors provides the error taxonomy shared by the SBLGNT viewer tooling.
//
// Every failure that aborts a build or inspection run is one of the typed errors
// below. Each type unwraps to a sentinel so callers can test with errors.Is and
// recover details with errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput indicates a source file had no lines at all
	ErrEmptyInput = errors.New("input is empty")
	// ErrUnexpectedContent indicates verse text appeared before any verse header
	ErrUnexpectedContent = errors.New("unexpected content")
	// ErrEmptyCorpus indicates parsing finished without producing a verse
	ErrEmptyCorpus = errors.New("no verses parsed")
	// ErrMalformedManifest indicates an existing manifest could not be used
	ErrMalformedManifest = errors.New("malformed manifest")
	// ErrUnknownBook indicates the requested book is absent from the corpus
	ErrUnknownBook = errors.New("unknown book")
	// ErrCorpusMissing indicates the corpus directory is absent or unpopulated
	ErrCorpusMissing = errors.New("corpus missing")
)

// EmptyInputError is returned when a book file contains no usable lines.
type EmptyInputError struct {
	Path string // Source path, if known
}

func (e *EmptyInputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("input file is empty: %s", e.Path)
	}
	return "input file is empty"
}

func (e *EmptyInputError) Unwrap() error {
	return ErrEmptyInput
}

// UnexpectedContentError is returned by strict parsing when a continuation
// line shows up before the first verse header.
type UnexpectedContentError struct {
	Line       string // Offending line, right-trimmed
	LineNumber int    // 1-based physical line number
}

func (e *UnexpectedContentError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("unexpected line before any verse content (line %d): %s", e.LineNumber, e.Line)
	}
	return fmt.Sprintf("unexpected line before any verse content: %s", e.Line)
}

func (e *UnexpectedContentError) Unwrap() error {
	return ErrUnexpectedContent
}

// EmptyCorpusError is returned when a source parsed cleanly but yielded no verses.
type EmptyCorpusError struct {
	Path string
}

func (e *EmptyCorpusError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("no verses were parsed from %s", e.Path)
	}
	return "no verses were parsed from the file"
}

func (e *EmptyCorpusError) Unwrap() error {
	return ErrEmptyCorpus
}

// MalformedManifestError is returned when an existing manifest file is not
// valid JSON or its top-level value is not an object.
type MalformedManifestError struct {
	Path   string
	Reason string // e.g. "contains invalid JSON", "must contain a JSON object"
	Err    error  // Underlying decode error, if any
}

func (e *MalformedManifestError) Error() string {
	return fmt.Sprintf("manifest file '%s' %s", e.Path, e.Reason)
}

func (e *MalformedManifestError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedManifest, e.Err}
	}
	return []error{ErrMalformedManifest}
}

// UnknownBookError is returned when a book is not present in the selected corpus.
type UnknownBookError struct {
	Book      string
	Source    string   // "text" or "xml"
	Available []string // Sorted book identifiers that do exist
}

func (e *UnknownBookError) Error() string {
	return fmt.Sprintf("Unknown book '%s' for source '%s'.\nAvailable options: %s",
		e.Book, e.Source, strings.Join(e.Available, ", "))
}

func (e *UnknownBookError) Unwrap() error {
	return ErrUnknownBook
}

// CorpusMissingError is returned when the expected corpus directory is absent
// or holds no source files.
type CorpusMissingError struct {
	Source string // "text" or "xml"
	Dir    string
	Reason string // Set when the directory exists but is unusable
}

func (e *CorpusMissingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("SBLGNT %s corpus at %s %s", e.Source, e.Dir, e.Reason)
	}
	return fmt.Sprintf("SBLGNT %s corpus not found at %s.\n"+
		"Fetch it with: git submodule update --init --recursive", e.Source, e.Dir)
}

func (e *CorpusMissingError) Unwrap() error {
	return ErrCorpusMissing
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "verse", "payload", "start reference")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "XML", "reference")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Helper functions for creating common errors

// NewUnknownBook creates an UnknownBookError
func NewUnknownBook(book, source string, available []string) *UnknownBookError {
	return &UnknownBookError{
		Book:      book,
		Source:    source,
		Available: available,
	}
}

// NewCorpusMissing creates a CorpusMissingError for an absent directory
func NewCorpusMissing(source, dir string) *CorpusMissingError {
	return &CorpusMissingError{
		Source: source,
		Dir:    dir,
	}
}

// NewMalformedManifest creates a MalformedManifestError
func NewMalformedManifest(path, reason string, err error) *MalformedManifestError {
	return &MalformedManifestError{
		Path:   path,
		Reason: reason,
		Err:    err,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
