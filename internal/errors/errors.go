package errors

import (
	"errors"
	"fmt"
)

// SearchError is the structured error type for colsearch.
// It carries a stable code plus context for logging and reports.
type SearchError struct {
	// Code is the unique error code (e.g. "ERR_301_NO_EXTRACTOR").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Extraction, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with sentinel SearchErrors.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a SearchError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a SearchError with a formatted message.
func Newf(code string, format string, args ...any) *SearchError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a SearchError from an existing error.
// Returns nil if err is nil.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a collection-configuration error.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// QueryError creates a query-syntax error.
func QueryError(message string, cause error) *SearchError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// CommitError creates an index commit error.
func CommitError(message string, cause error) *SearchError {
	return New(ErrCodeCommitFailed, message, cause)
}

// IsFatal reports whether an error has fatal severity.
// Fatal errors abort the current operation on the affected collection.
func IsFatal(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsExtraction reports whether an error is a recoverable per-file
// extraction error.
func IsExtraction(err error) bool {
	return GetCategory(err) == CategoryExtraction
}

// GetCode extracts the error code, or "" if err is not a SearchError.
func GetCode(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err is not a SearchError.
func GetCategory(err error) Category {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
