// Package errors provides a structured error system for the exporter with
// error codes, categories, and per-file context.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents a structured error code for exporter operations.
type ErrorCode string

const (
	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// File selection and tailing errors
	ErrCodeBadPattern ErrorCode = "BAD_PATTERN"
	ErrCodeFileStat   ErrorCode = "FILE_STAT"
	ErrCodeFileOpen   ErrorCode = "FILE_OPEN"
	ErrCodeFileRead   ErrorCode = "FILE_READ"

	// Log record errors
	ErrCodeLineDecode      ErrorCode = "LINE_DECODE"
	ErrCodeInvalidStatus   ErrorCode = "INVALID_STATUS"
	ErrCodeMissingDuration ErrorCode = "MISSING_DURATION"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFile          ErrorCategory = "file"
	CategoryRecord        ErrorCategory = "record"
)

// ExporterError represents a structured error with context and metadata.
type ExporterError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	// Path is the log file the error relates to, when applicable.
	Path      string    `json:"path,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`

	// Transient marks per-file errors that skip one scrape cycle without
	// mutating tracked state (the file is retried on the next scrape).
	Transient bool `json:"transient"`
}

// Error implements the error interface.
func (e *ExporterError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *ExporterError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code.
func (e *ExporterError) Is(target error) bool {
	if other, ok := target.(*ExporterError); ok {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a new exporter error with default values.
func NewError(code ErrorCode, message string) *ExporterError {
	return &ExporterError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Transient: IsTransientByDefault(code),
	}
}

// Newf creates a new exporter error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *ExporterError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeConfigLoad:
		return CategoryConfiguration
	case ErrCodeBadPattern, ErrCodeFileStat, ErrCodeFileOpen, ErrCodeFileRead:
		return CategoryFile
	default:
		return CategoryRecord
	}
}

// IsTransientByDefault determines if an error code denotes a per-file error
// that is skipped for the current scrape and retried on the next one.
func IsTransientByDefault(code ErrorCode) bool {
	transientCodes := map[ErrorCode]bool{
		ErrCodeFileStat: true,
		ErrCodeFileOpen: true,
		ErrCodeFileRead: true,
	}
	return transientCodes[code]
}

// WithPath sets the log file path the error relates to.
func (e *ExporterError) WithPath(path string) *ExporterError {
	e.Path = path
	return e
}

// WithCause sets the underlying cause.
func (e *ExporterError) WithCause(cause error) *ExporterError {
	e.Cause = cause
	return e
}

// CodeOf returns the error code of err if it is an ExporterError, or an
// empty code otherwise.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*ExporterError); ok {
		return e.Code
	}
	return ""
}

// IsTransient reports whether err is a transient per-file error.
func IsTransient(err error) bool {
	if e, ok := err.(*ExporterError); ok {
		return e.Transient
	}
	return false
}
