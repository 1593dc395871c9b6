package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kbukum/traverse/errors"
)

// RetryPolicy decides whether and when a failed submission is tried again.
type RetryPolicy struct {
	// MaxAttempts bounds attempts, the first included.
	MaxAttempts uint
	// Initial is the wait before the second attempt.
	Initial time.Duration
	// Max caps the wait between attempts.
	Max time.Duration
	// Multiplier grows the wait after each attempt.
	Multiplier float64
	// Jitter randomizes each wait by up to this fraction.
	Jitter float64
	// Retryable classifies errors. Nil uses Retryable.
	Retryable func(error) bool
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(RetryEvent)
}

// RetryEvent describes a failed attempt about to be retried.
type RetryEvent struct {
	Channel string
	Attempt uint
	Err     error
	Wait    time.Duration
}

// DefaultRetryPolicy returns three attempts starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Initial:     100 * time.Millisecond,
		Max:         10 * time.Second,
		Multiplier:  2,
		Jitter:      0.1,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = Retryable
	}
	return p
}

// BackOff returns the wait schedule of p.
func (p RetryPolicy) BackOff() *backoff.ExponentialBackOff {
	p = p.withDefaults()
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Initial,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.Max,
	}
	b.Reset()
	return b
}

// Retryable reports whether a submission failing with err may succeed if
// tried again. Cancellation never is; classified errors carry the answer;
// anything else is assumed transient.
func Retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// Do calls fn until it succeeds, fails with an error p does not retry, the
// attempts run out or ctx ends. The error of the last attempt is returned
// unchanged.
func Do[T any](ctx context.Context, channel string, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var attempt uint
	op := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(RetryEvent{Channel: channel, Attempt: attempt, Err: err, Wait: wait})
		}
	}
	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	var perm *backoff.PermanentError
	if stderrors.As(err, &perm) {
		err = perm.Err
	}
	return v, err
}
