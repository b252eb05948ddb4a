package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for redscan errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Text-generation provider error codes
const (
	PROVIDER_AUTH_FAILED    ErrorCode = "PROVIDER_AUTH_FAILED"
	PROVIDER_CALL_FAILED    ErrorCode = "PROVIDER_CALL_FAILED"
	PROVIDER_RATE_LIMITED   ErrorCode = "PROVIDER_RATE_LIMITED"
	PROVIDER_BAD_RESPONSE   ErrorCode = "PROVIDER_BAD_RESPONSE"
	PROVIDER_NOT_CONFIGURED ErrorCode = "PROVIDER_NOT_CONFIGURED"
)

// Dataset error codes
const (
	DATASET_NOT_FOUND     ErrorCode = "DATASET_NOT_FOUND"
	DATASET_INSERT_FAILED ErrorCode = "DATASET_INSERT_FAILED"
	DATASET_DECODE_FAILED ErrorCode = "DATASET_DECODE_FAILED"
)

// Job queue error codes
const (
	JOB_NOT_FOUND        ErrorCode = "JOB_NOT_FOUND"
	JOB_EXECUTION_FAILED ErrorCode = "JOB_EXECUTION_FAILED"
)

// Credit ledger error codes
const (
	CREDIT_INSUFFICIENT  ErrorCode = "CREDIT_INSUFFICIENT"
	CREDIT_DEBIT_FAILED  ErrorCode = "CREDIT_DEBIT_FAILED"
	CREDIT_REFUND_FAILED ErrorCode = "CREDIT_REFUND_FAILED"
)

// Plugin error codes
const (
	PLUGIN_UNKNOWN        ErrorCode = "PLUGIN_UNKNOWN"
	PLUGIN_INVALID_CONFIG ErrorCode = "PLUGIN_INVALID_CONFIG"
)

// CodedError is a structured error carrying an error code, a message, and an
// optional cause. It supports error wrapping and retryability hints.
type CodedError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error returns "[CODE] message" or "[CODE] message: cause" if a cause exists.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against sentinel CodedErrors.
func (e *CodedError) Is(target error) bool {
	var coded *CodedError
	if errors.As(target, &coded) {
		return e.Code == coded.Code
	}
	return false
}

// NewError creates a non-retryable CodedError.
func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a retryable CodedError for transient failures
// such as provider timeouts or rate limits.
func NewRetryableError(code ErrorCode, message string) *CodedError {
	return &CodedError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a non-retryable CodedError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRetryable reports whether err carries a retryable CodedError.
func IsRetryable(err error) bool {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Retryable
	}
	return false
}
