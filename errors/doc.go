// Package errors provides the structured error type shared by every traverse
// package.
//
// Errors carry a machine-readable ErrorCode so callers can branch on the
// failure class without string matching:
//
//	if errors.Is(err, apperrors.ErrLockedState) { ... }
//
// Exhaustion (ErrExhausted) is a normal end-of-sequence signal, not a failure.
package errors
