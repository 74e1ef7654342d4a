package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"

	// Configuration errors (pre-flight, before any network call)
	ErrConfigMissingToken ErrorCode = "CONFIG_MISSING_TOKEN"
	ErrConfigInvalid      ErrorCode = "CONFIG_INVALID"

	// Upstream lookup errors
	ErrReleaseNotFound ErrorCode = "RELEASE_NOT_FOUND"
	ErrTagNotFound     ErrorCode = "TAG_NOT_FOUND"

	// Formula errors
	ErrFormulaStructure ErrorCode = "FORMULA_STRUCTURE"
	ErrRewriteInternal  ErrorCode = "REWRITE_INTERNAL"

	// Network and commit errors
	ErrNetwork        ErrorCode = "NETWORK"
	ErrDownload       ErrorCode = "DOWNLOAD"
	ErrCommitConflict ErrorCode = "COMMIT_CONFLICT"

	// Normalizer errors
	ErrNormalizerUnavailable ErrorCode = "NORMALIZER_UNAVAILABLE"
	ErrNormalizerFailed      ErrorCode = "NORMALIZER_FAILED"
)

// TapbumpError represents a structured error with code and details
type TapbumpError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *TapbumpError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *TapbumpError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *TapbumpError) Is(target error) bool {
	var targetErr *TapbumpError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new TapbumpError with the given code and message
func New(code ErrorCode, message string) *TapbumpError {
	return &TapbumpError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new TapbumpError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *TapbumpError {
	return &TapbumpError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a TapbumpError
func Wrap(err error, code ErrorCode, message string) *TapbumpError {
	if err == nil {
		return nil
	}
	return &TapbumpError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *TapbumpError {
	if err == nil {
		return nil
	}
	return &TapbumpError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *TapbumpError) WithDetail(key string, value interface{}) *TapbumpError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var terr *TapbumpError
	if errors.As(err, &terr) {
		return terr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a TapbumpError
func GetErrorCode(err error) ErrorCode {
	var terr *TapbumpError
	if errors.As(err, &terr) {
		return terr.Code
	}
	return ErrUnknown
}
