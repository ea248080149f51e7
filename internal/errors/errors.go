package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Pocket error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrMalformedInput   ErrorCode = "MALFORMED_INPUT"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrFileTooLarge     ErrorCode = "FILE_TOO_LARGE"    // 413
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED" // 422
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// PocketError represents a structured error with code, status, and details.
type PocketError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PocketError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PocketError {
	return &PocketError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMalformedInput creates a 400 error for input that could not be parsed.
func NewMalformedInput(source string, err error) *PocketError {
	msg := fmt.Sprintf("invalid JSON in %s", source)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &PocketError{
		Code:    ErrMalformedInput,
		Status:  400,
		Message: msg,
		Details: map[string]any{"source": source},
	}
}

// NewNotFound creates a 404 error for when a capsule cannot be found.
func NewNotFound(id string) *PocketError {
	return &PocketError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capsule not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *PocketError {
	return &PocketError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewFileTooLarge creates a 413 error when an import file exceeds the size limit.
func NewFileTooLarge(max, actual int64) *PocketError {
	return &PocketError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("import file exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewValidation creates a 422 error for content that fails validation.
// The reason is shown to the user as is.
func NewValidation(reason string) *PocketError {
	return &PocketError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: reason,
	}
}

// NewCancelled creates a 499 error when an operation is cancelled.
func NewCancelled(operation string) *PocketError {
	return &PocketError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The underlying error is kept in Details for logging, not in Message.
func NewInternal(err error) *PocketError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &PocketError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a PocketError with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *PocketError
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// As reports whether err is a PocketError, returning it.
// Errors of any other type are wrapped as INTERNAL.
func As(err error) (*PocketError, bool) {
	var pErr *PocketError
	if stderrors.As(err, &pErr) {
		return pErr, true
	}
	return NewInternal(err), false
}
