package vectorstore

import (
	"context"
	"time"
)

// Backoff is an exponential backoff policy. It is consumed by connection
// establishment and by transient query retries, so both share one tuning
// surface.
type Backoff struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Base is the delay after the first failed attempt.
	Base time.Duration
	// Cap bounds the delay regardless of attempt count.
	Cap time.Duration
	// Multiplier scales the delay between attempts.
	Multiplier float64
}

// DefaultBackoff returns the connection backoff policy: 3 attempts, 1s base
// doubling to a 10s cap.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts:   3,
		Base:       time.Second,
		Cap:        10 * time.Second,
		Multiplier: 2,
	}
}

// Delay returns the wait before attempt n (0-based; Delay(0) is the wait
// after the first failure).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * b.Multiplier)
		if d >= b.Cap {
			return b.Cap
		}
	}
	if d > b.Cap {
		return b.Cap
	}
	return d
}

// Retry runs op up to Attempts times, sleeping the policy delay between
// failures. It stops early when ctx is done or op succeeds, and returns the
// last error otherwise.
func (b Backoff) Retry(ctx context.Context, op func(context.Context) error) error {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Delay(attempt)):
		}
	}
	return lastErr
}
