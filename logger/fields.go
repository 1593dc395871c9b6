package logger

import (
	"time"
)

// Field keys used across the engine.
const (
	FieldComponent   = "component"
	FieldTraceID     = "trace_id"
	FieldSpanID      = "span_id"
	FieldTraversalID = "traversal_id"
	FieldStrategy    = "strategy"
	FieldCategory    = "category"
	FieldStep        = "step"
	FieldStepCount   = "step_count"
	FieldRequire     = "requirements"
	FieldChannel     = "channel"
	FieldShard       = "shard"
	FieldSubmission  = "submission_id"
	FieldAttempt     = "attempt"
	FieldOperation   = "operation"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Fields builds a field map from alternating key-value pairs.
//
//	log.Debug("applied", logger.Fields(logger.FieldStrategy, "dedup", logger.FieldStepCount, 3))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]any {
	return map[string]any{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return map[string]any{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
