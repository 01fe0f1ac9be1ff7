package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Common Error Constructors ---

// FrameTooLarge creates an AppError for a frame longer than maxLength.
func FrameTooLarge(maxLength int) *AppError {
	return &AppError{
		Code:    ErrCodeFrameTooLarge,
		Message: fmt.Sprintf("frame exceeds maximum length of %d bytes", maxLength),
		Details: map[string]any{"max_length": maxLength},
	}
}

// UnterminatedFrame creates an AppError for a trailing frame without delimiter.
func UnterminatedFrame(length int) *AppError {
	return &AppError{
		Code:    ErrCodeUnterminatedFrame,
		Message: "stream ended before the final frame was delimited",
		Details: map[string]any{"length": length},
	}
}

// NilElement creates an AppError for a nil element injected into a pipeline.
func NilElement() *AppError {
	return &AppError{Code: ErrCodeNilElement, Message: "nil elements are not allowed in a pipeline"}
}

// SubmissionFailed creates an AppError for a batch that could not be delivered.
func SubmissionFailed(endpoint string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSubmissionFailed,
		Message: fmt.Sprintf("bulk submission to %s failed", endpoint),
		Details: map[string]any{"endpoint": endpoint},
		Cause:   cause,
	}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates an AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}
