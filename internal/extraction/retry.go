package extraction

import (
	"context"
	"log"
	"time"
)

// RetryPolicy is the single retry policy applied at the extraction-service
// call boundary. A call is retried only when the classifier marks its error
// transient, with a fixed backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Transient decides whether an error is retryable.
	Transient func(error) bool
}

// Attempts returns how many calls Do may make, at least one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, a non-transient error occurs, the attempt
// budget is exhausted, or ctx is done. It returns the last error together
// with the number of retries performed.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) (retries int, err error) {
	attempts := p.Attempts()
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt - 1, nil
		}
		if p.Transient == nil || !p.Transient(err) || attempt == attempts {
			return attempt - 1, err
		}
		log.Printf("extraction.RetryPolicy: %s attempt %d/%d failed, retrying in %s: %v",
			op, attempt, attempts, p.Backoff, err)
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
}
