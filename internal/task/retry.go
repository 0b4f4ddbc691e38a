package task

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how failed tasks are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions allowed, including the
	// first. A task that fails on its MaxAttempts-th run is marked failed
	// permanently.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; subsequent retries
	// back off exponentially from it.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns a RetryPolicy with reasonable defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// ShouldRetry reports whether a task that has now failed `attempts` times
// is eligible for another run.
func (p RetryPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.MaxAttempts
}

// Delay returns the backoff delay before the retry following the given
// failed attempt count. The delay grows exponentially and is jittered to
// avoid thundering-herd retries:
//
//	delay = BaseDelay * 2^(attempts-1) * rand[0.5, 1.0)
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempts-1))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(backoff * jitter)
}
