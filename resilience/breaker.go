package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/traverse/errors"
)

// State is the position of a Breaker.
type State int

const (
	// StateClosed submits normally.
	StateClosed State = iota
	// StateOpen rejects submissions until the cooldown passes.
	StateOpen
	// StateHalfOpen admits a bounded number of trial submissions.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Channel names the guarded channel in errors and transitions.
	Channel string
	// Threshold is the number of consecutive channel failures that opens
	// the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open.
	Cooldown time.Duration
	// Trials is how many submissions a half-open circuit admits. All of
	// them must succeed to close it; any failure opens it again.
	Trials int
	// Trips reports whether err says something about the channel's health.
	// Errors it rejects neither count as failures nor reset the count.
	// Nil uses Retryable.
	Trips func(error) bool
	// OnTransition is called after every state change, outside the lock.
	OnTransition func(Transition)
}

// Transition records a state change of a Breaker.
type Transition struct {
	Channel string
	From    State
	To      State
	// Cause is the failure that opened the circuit. Nil for other changes.
	Cause error
	At    time.Time
}

// Breaker stops submissions to a channel that keeps failing.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inflight int
	passed   int
}

// NewBreaker creates a closed Breaker. Zero values default to five
// failures, a 30s cooldown and one trial.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trials <= 0 {
		cfg.Trials = 1
	}
	if cfg.Trips == nil {
		cfg.Trips = Retryable
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Channel returns the guarded channel's name.
func (b *Breaker) Channel() string { return b.cfg.Channel }

// State returns the current state. An open circuit whose cooldown passed
// reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooled(b.now()) {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive channel failures counted while closed.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	t := b.move(StateClosed, nil, b.now())
	b.failures = 0
	b.mu.Unlock()
	b.notify(t)
}

// Do calls fn if the circuit admits a submission, and records its outcome.
// A rejected submission fails with CIRCUIT_OPEN without calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	trial, err := b.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(trial, err)
	return err
}

func (b *Breaker) cooled(now time.Time) bool {
	return now.Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	now := b.now()
	var t *Transition
	if b.state == StateOpen {
		if !b.cooled(now) {
			wait := b.cfg.Cooldown - now.Sub(b.openedAt)
			b.mu.Unlock()
			return false, errors.CircuitOpen(b.cfg.Channel).WithDetail("retry_after", wait.String())
		}
		t = b.move(StateHalfOpen, nil, now)
	}
	switch {
	case b.state != StateHalfOpen:
	case b.inflight+b.passed < b.cfg.Trials:
		b.inflight++
		trial = true
	default:
		err = errors.CircuitOpen(b.cfg.Channel)
	}
	b.mu.Unlock()
	b.notify(t)
	return trial, err
}

func (b *Breaker) record(trial bool, err error) {
	b.mu.Lock()
	now := b.now()
	if trial && b.inflight > 0 {
		b.inflight--
	}
	var t *Transition
	switch {
	case err == nil:
		switch {
		case b.state == StateClosed:
			b.failures = 0
		case b.state == StateHalfOpen && trial:
			b.passed++
			if b.passed >= b.cfg.Trials {
				t = b.move(StateClosed, nil, now)
			}
		}
	case b.cfg.Trips(err):
		switch b.state {
		case StateClosed:
			b.failures++
			if b.failures >= b.cfg.Threshold {
				t = b.move(StateOpen, err, now)
			}
		case StateHalfOpen:
			t = b.move(StateOpen, err, now)
		}
	}
	b.mu.Unlock()
	b.notify(t)
}

// move changes state and returns the transition, or nil when to is the
// current state. Callers hold mu.
func (b *Breaker) move(to State, cause error, now time.Time) *Transition {
	if b.state == to {
		return nil
	}
	t := &Transition{Channel: b.cfg.Channel, From: b.state, To: to, Cause: cause, At: now}
	b.state = to
	b.inflight, b.passed = 0, 0
	switch to {
	case StateOpen:
		b.openedAt = now
	case StateClosed, StateHalfOpen:
		b.failures = 0
	}
	return t
}

func (b *Breaker) notify(t *Transition) {
	if t != nil && b.cfg.OnTransition != nil {
		b.cfg.OnTransition(*t)
	}
}
