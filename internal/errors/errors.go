// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotTimetablePage indicates the captured page carries none of the timetable markers.
	ErrNotTimetablePage = errors.New("not a timetable page")

	// ErrNoCourses indicates a timetable page was recognized but no course could be parsed.
	ErrNoCourses = errors.New("no courses found")

	// ErrTooManyCourses indicates the parse produced more courses than a weekly timetable can hold.
	ErrTooManyCourses = errors.New("implausible number of courses")

	// ErrParseFailed indicates the HTML could not be parsed at all.
	ErrParseFailed = errors.New("timetable parse failed")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsImportRejected reports whether err is one of the import outcomes that
// discard a batch (gate rejection, empty or implausible result).
func IsImportRejected(err error) bool {
	return errors.Is(err, ErrNotTimetablePage) ||
		errors.Is(err, ErrNoCourses) ||
		errors.Is(err, ErrTooManyCourses)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ExtractionError represents a browser-side capture failure with context.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("extraction error (url=%s): %v", e.URL, e.Err)
	}
	return fmt.Sprintf("extraction error: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new extraction error.
func NewExtractionError(url string, err error) *ExtractionError {
	return &ExtractionError{
		URL: url,
		Err: err,
	}
}
