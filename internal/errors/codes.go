// Package errors defines the typed error taxonomy for engine operations.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for engine operations.
type ErrorCode string

const (
	// CodePoolExhausted indicates no pooled connection became available in time.
	// Recoverable: callers should treat the backend as busy and fall back.
	CodePoolExhausted ErrorCode = "POOL_EXHAUSTED"
	// CodeBackendUnavailable indicates the vector backend cannot be reached.
	CodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// CodeQueryError indicates a malformed filter or query.
	CodeQueryError ErrorCode = "QUERY_ERROR"
	// CodeEmbeddingFailure indicates the embedding service failed or timed out.
	CodeEmbeddingFailure ErrorCode = "EMBEDDING_FAILURE"
	// CodeColdStart indicates a user without a preference vector. This is an
	// expected branch, not a failure: callers switch to popularity ranking.
	CodeColdStart ErrorCode = "COLD_START"
	// CodeInvalidArgument indicates invalid input parameters.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// EngineError represents a structured error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches engine errors by code so that sentinel comparisons via
// errors.Is work across independently constructed instances.
func (e *EngineError) Is(target error) bool {
	var te *EngineError
	if stderrors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrPoolExhausted      = &EngineError{Code: CodePoolExhausted, Message: "connection pool exhausted"}
	ErrBackendUnavailable = &EngineError{Code: CodeBackendUnavailable, Message: "vector backend unavailable"}
	ErrColdStart          = &EngineError{Code: CodeColdStart, Message: "user has no preference vector"}
)

// Convenience constructors for common error types.

// PoolExhausted creates a pool exhaustion error.
func PoolExhausted(msg string) *EngineError {
	return &EngineError{Code: CodePoolExhausted, Message: msg}
}

// BackendUnavailable creates a backend unavailability error.
func BackendUnavailable(msg string, cause error) *EngineError {
	return &EngineError{Code: CodeBackendUnavailable, Message: msg, Cause: cause}
}

// QueryError creates a query error.
func QueryError(msg string, cause error) *EngineError {
	return &EngineError{Code: CodeQueryError, Message: msg, Cause: cause}
}

// EmbeddingFailure creates an embedding failure error.
func EmbeddingFailure(msg string, cause error) *EngineError {
	return &EngineError{Code: CodeEmbeddingFailure, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: CodeInvalidArgument, Message: msg}
}

// CodeOf extracts the engine error code, or empty string for foreign errors.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
