package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation      ErrorCategory = "validation"       // Invalid input or configuration
	ErrCatRateLimit       ErrorCategory = "rate_limit"       // Provider rate limited the call
	ErrCatTimeout         ErrorCategory = "timeout"          // Call attempt timed out
	ErrCatInvalidResponse ErrorCategory = "invalid_response" // Provider output could not be decoded
	ErrCatProvider        ErrorCategory = "provider"         // Provider unavailable
	ErrCatBudget          ErrorCategory = "budget"           // Gate retry budget exhausted
	ErrCatExecution       ErrorCategory = "execution"        // Runtime failure
	ErrCatCancelled       ErrorCategory = "cancelled"        // Run cancelled by caller
	ErrCatInternal        ErrorCategory = "internal"         // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRateLimit creates a rate limit error. Always retryable.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error. Always retryable.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrInvalidResponse creates an error for undecodable provider output.
// Not retryable: re-issuing the identical prompt is a gate decision, not
// an infrastructure retry.
func ErrInvalidResponse(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInvalidResponse,
		Code:      "INVALID_RESPONSE",
		Message:   message,
		Retryable: false,
	}
}

// ErrProviderUnavailable creates an error for an unreachable provider.
func ErrProviderUnavailable(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatProvider,
		Code:      "PROVIDER_UNAVAILABLE",
		Message:   message,
		Retryable: true,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRetryBudgetExhausted creates the terminal gate-budget error.
func ErrRetryBudgetExhausted(gate string, attempts int) *DomainError {
	return &DomainError{
		Category:  ErrCatBudget,
		Code:      "RETRY_BUDGET_EXHAUSTED",
		Message:   fmt.Sprintf("retry budget exhausted at %s", gate),
		Retryable: false,
		Details: map[string]interface{}{
			"gate":     gate,
			"attempts": attempts,
		},
	}
}

// ErrCancelled creates a cancellation error.
func ErrCancelled(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCancelled,
		Code:      "CANCELLED",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeStageNotFound    = "STAGE_NOT_FOUND"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidState     = "INVALID_STATE"
	CodeMissingWorld     = "MISSING_WORLD"
	CodeMissingTimeline  = "MISSING_TIMELINE"
	CodeNoCharacters     = "NO_CHARACTERS"
	CodeKillerUnknown    = "KILLER_UNKNOWN"
	CodeGeneratorFailed  = "GENERATOR_FAILED"
	CodeSchemaViolation  = "SCHEMA_VIOLATION"
	CodeBinaryNotFound   = "BINARY_NOT_FOUND"
	CodeArchiveFailed    = "ARCHIVE_FAILED"
	CodePackagingFailed  = "PACKAGING_FAILED"
)
