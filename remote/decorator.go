package remote

import (
	"context"

	"github.com/kbukum/traverse/resilience"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// WithRetry retries failed submissions of conn under p. Failures while
// streaming are not retried: results may already have been emitted.
func WithRetry(conn Connection, p resilience.RetryPolicy) Connection {
	return &retrying{Connection: conn, policy: p}
}

type retrying struct {
	Connection
	policy resilience.RetryPolicy
}

func (r *retrying) Submit(ctx context.Context, sub *traversal.Traversal) (traversal.Iterator[*traverser.Traverser], error) {
	return resilience.Do(ctx, r.Name(), r.policy, func(ctx context.Context) (traversal.Iterator[*traverser.Traverser], error) {
		return r.Connection.Submit(ctx, sub)
	})
}

// WithCircuitBreaker guards submissions of conn with b. While the circuit
// is open submissions fail with CIRCUIT_OPEN without reaching conn.
func WithCircuitBreaker(conn Connection, b *resilience.Breaker) Connection {
	return &breaking{Connection: conn, breaker: b}
}

type breaking struct {
	Connection
	breaker *resilience.Breaker
}

func (b *breaking) Submit(ctx context.Context, sub *traversal.Traversal) (traversal.Iterator[*traverser.Traverser], error) {
	var it traversal.Iterator[*traverser.Traverser]
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		it, err = b.Connection.Submit(ctx, sub)
		return err
	})
	return it, err
}
