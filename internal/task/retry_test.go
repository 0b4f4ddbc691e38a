package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

	tests := []struct {
		name     string
		attempts int
		want     bool
	}{
		{name: "first failure retries", attempts: 1, want: true},
		{name: "second failure retries", attempts: 2, want: true},
		{name: "max attempts reached", attempts: 3, want: false},
		{name: "beyond max attempts", attempts: 4, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, policy.ShouldRetry(tc.attempts))
		})
	}
}

func TestRetryPolicyDelayBounds(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second}

	// delay = base * 2^(attempts-1) * jitter, jitter in [0.5, 1.0)
	for attempts := 1; attempts <= 4; attempts++ {
		scaled := policy.BaseDelay * time.Duration(1<<(attempts-1))
		for i := 0; i < 20; i++ {
			d := policy.Delay(attempts)
			assert.GreaterOrEqual(t, d, scaled/2,
				"delay for attempt %d below jitter floor", attempts)
			assert.Less(t, d, scaled,
				"delay for attempt %d above jitter ceiling", attempts)
		}
	}
}

func TestRetryPolicyDelayGrows(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()

	// The floor of each attempt's delay must exceed the ceiling of the
	// attempt two steps earlier, so backoff trends upward despite jitter.
	first := policy.BaseDelay / 2
	third := policy.BaseDelay * 4 / 2
	assert.Greater(t, third, first)
}
