// Package resilience guards remote channels: a Breaker stops submitting to
// a channel that keeps failing, and Do retries failed submissions with
// exponential backoff. The traversal engine itself never retries; remote
// wraps a Connection with these.
//
//	b := resilience.NewBreaker(resilience.BreakerConfig{Channel: "graph-server"})
//	it, err := resilience.Do(ctx, "graph-server", resilience.DefaultRetryPolicy(),
//	    func(ctx context.Context) (Iterator, error) {
//	        var it Iterator
//	        err := b.Do(ctx, func(ctx context.Context) (err error) {
//	            it, err = conn.Submit(ctx, sub)
//	            return err
//	        })
//	        return it, err
//	    })
package resilience
