package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
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

// Is reports whether target is an AppError with the same code, which lets
// the sentinels below match any instance of their class.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
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

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Sentinels for use with errors.Is. Never mutate them.
var (
	ErrLockedState      = &AppError{Code: ErrCodeLockedState, Message: "traversal is locked"}
	ErrPlanVerification = &AppError{Code: ErrCodePlanVerification, Message: "plan verification failed"}
	ErrStrategyCycle    = &AppError{Code: ErrCodeStrategyCycle, Message: "strategy constraints form a cycle"}
	ErrExhausted        = &AppError{Code: ErrCodeExhausted, Message: "no more input"}
	ErrChannelFailure   = &AppError{Code: ErrCodeChannelFailure, Message: "remote channel failed", Retryable: true}
	ErrCircuitOpen      = &AppError{Code: ErrCodeCircuitOpen, Message: "circuit is open", Retryable: true}
	ErrConflict         = &AppError{Code: ErrCodeConflict, Message: "conflict"}
)

// --- Constructors ---

// LockedState creates an error for a mutation attempted on a finalized traversal.
func LockedState(operation string) *AppError {
	return &AppError{
		Code:    ErrCodeLockedState,
		Message: fmt.Sprintf("cannot %s: traversal is locked after finalize", operation),
		Details: map[string]any{"operation": operation},
	}
}

// PlanVerification creates an error for a violated structural precondition.
func PlanVerification(reason string) *AppError {
	return &AppError{
		Code:    ErrCodePlanVerification,
		Message: reason,
	}
}

// StrategyCycle creates an error naming the strategies that participate in a cycle.
func StrategyCycle(names []string) *AppError {
	return &AppError{
		Code:    ErrCodeStrategyCycle,
		Message: fmt.Sprintf("strategy constraints form a cycle between [%s]", strings.Join(names, ", ")),
		Details: map[string]any{"strategies": names},
	}
}

// ChannelFailure wraps a remote channel error. It is surfaced once and not retried.
func ChannelFailure(channel string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeChannelFailure,
		Message:   fmt.Sprintf("remote channel %s failed", channel),
		Retryable: true,
		Details:   map[string]any{"channel": channel},
		Cause:     cause,
	}
}

// CircuitOpen creates an error for a channel rejected by an open circuit breaker.
func CircuitOpen(channel string) *AppError {
	return &AppError{
		Code:      ErrCodeCircuitOpen,
		Message:   fmt.Sprintf("circuit for %s is open", channel),
		Retryable: true,
		Details:   map[string]any{"channel": channel},
	}
}

// InvalidInput creates an error for an invalid argument.
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

// InvalidConfig creates an error for configuration that failed validation.
func InvalidConfig(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidConfig,
		Message: message,
	}
}

// NotFound creates an error for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Details: details,
	}
}

// Conflict creates an error for two values that could not be reconciled.
func Conflict(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: reason,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "an unexpected error occurred",
		Cause:   cause,
	}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsExhausted reports whether err signals end of input.
func IsExhausted(err error) bool {
	return stderrors.Is(err, ErrExhausted)
}
