package apiclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var errBackoffPastDeadline = errors.New("rate limit backoff outlasts the request deadline")

// limiter controls the frequency of outgoing requests.
type limiter struct {
	// main limiter
	limiter *rate.Limiter

	// additional backoff after a 429
	backoffUntil time.Time
	mu           sync.Mutex
}

// newLimiter creates a limiter. rps <= 0 disables limiting.
func newLimiter(rps float64, burst int) *limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next request is allowed.
func (l *limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	waitUntil := l.backoffUntil
	l.mu.Unlock()

	// if a backoff is active - wait for it, unless it cannot end in time
	if time.Now().Before(waitUntil) {
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(waitUntil) {
			return errBackoffPastDeadline
		}
		timer := time.NewTimer(time.Until(waitUntil))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff pauses every request for d, capped at ceiling when ceiling > 0.
func (l *limiter) Backoff(d, ceiling time.Duration) {
	if ceiling > 0 && d > ceiling {
		d = ceiling
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(l.backoffUntil) {
		l.backoffUntil = until
	}
}
