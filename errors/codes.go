package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Traversal lifecycle errors
const (
	// ErrCodeLockedState indicates a mutation was attempted on a finalized traversal.
	ErrCodeLockedState ErrorCode = "LOCKED_STATE"
	// ErrCodePlanVerification indicates a structural precondition of the plan was violated.
	ErrCodePlanVerification ErrorCode = "PLAN_VERIFICATION"
	// ErrCodeStrategyCycle indicates the strategy constraint graph is not acyclic.
	ErrCodeStrategyCycle ErrorCode = "STRATEGY_CYCLE"
	// ErrCodeExhausted indicates there is no more input. It ends iteration.
	ErrCodeExhausted ErrorCode = "EXHAUSTED_INPUT"
)

// Remote execution errors (retryable by surrounding orchestration)
const (
	// ErrCodeChannelFailure indicates the remote channel failed to submit or stream.
	ErrCodeChannelFailure ErrorCode = "CHANNEL_FAILURE"
	// ErrCodeCircuitOpen indicates a channel is short-circuited after repeated failures.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
)

// Input and state errors
const (
	// ErrCodeInvalidInput indicates an argument is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidConfig indicates configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates two values could not be reconciled.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeChannelFailure: true,
	ErrCodeCircuitOpen:    true,
	ErrCodeInternal:       false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// The traversal core never retries; the flag is a hint for the caller.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
