package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeChannelFailure, "stream broke")
	if !err.Retryable {
		t.Error("CHANNEL_FAILURE should be retryable")
	}
}

func TestAppError_LockedState(t *testing.T) {
	err := LockedState("add step")
	if !stderrors.Is(err, ErrLockedState) {
		t.Fatal("expected errors.Is to match ErrLockedState")
	}
	if stderrors.Is(err, ErrPlanVerification) {
		t.Fatal("did not expect match with ErrPlanVerification")
	}
	if err.Details["operation"] != "add step" {
		t.Errorf("expected operation detail, got %v", err.Details["operation"])
	}
}

func TestAppError_StrategyCycle(t *testing.T) {
	err := StrategyCycle([]string{"a", "b"})
	if !strings.Contains(err.Error(), "[a, b]") {
		t.Errorf("expected strategy names in message, got %q", err.Error())
	}
	if !IsCode(err, ErrCodeStrategyCycle) {
		t.Error("expected STRATEGY_CYCLE code")
	}
}

func TestAppError_ChannelFailure_Wraps(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := ChannelFailure("loopback", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !stderrors.Is(err, ErrChannelFailure) {
		t.Error("expected match with ErrChannelFailure")
	}
	if !err.Retryable {
		t.Error("channel failures are marked retryable for the caller")
	}
}

func TestAppError_WrappedStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("finalize: %w", PlanVerification("bad plan"))
	if !stderrors.Is(wrapped, ErrPlanVerification) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if CodeOf(wrapped) != ErrCodePlanVerification {
		t.Errorf("expected PLAN_VERIFICATION, got %s", CodeOf(wrapped))
	}
}

func TestIsExhausted(t *testing.T) {
	if !IsExhausted(ErrExhausted) {
		t.Error("expected sentinel to be exhausted")
	}
	if !IsExhausted(fmt.Errorf("pull: %w", ErrExhausted)) {
		t.Error("expected wrapped sentinel to be exhausted")
	}
	if IsExhausted(Internal(nil)) {
		t.Error("internal error is not exhaustion")
	}
	if IsExhausted(nil) {
		t.Error("nil is not exhaustion")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("strategy", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := Conflict("x").WithDetails(map[string]any{"a": 1}).WithDetail("b", 2)
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("unexpected details %v", err.Details)
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeInternal, "boom")
	if err.Error() != "INTERNAL_ERROR: boom" {
		t.Errorf("unexpected format %q", err.Error())
	}
	err.WithCause(fmt.Errorf("root"))
	if !strings.Contains(err.Error(), "cause: root") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error is not an AppError")
	}
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", InvalidInput("index", "out of range")))
	if !ok {
		t.Fatal("expected AppError")
	}
	if appErr.Details["field"] != "index" {
		t.Errorf("expected field=index, got %v", appErr.Details["field"])
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeChannelFailure, true},
		{ErrCodeCircuitOpen, true},
		{ErrCodeLockedState, false},
		{ErrCodePlanVerification, false},
		{ErrCodeExhausted, false},
		{ErrCodeInternal, false},
	}
	for _, tc := range tests {
		if got := IsRetryableCode(tc.code); got != tc.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
