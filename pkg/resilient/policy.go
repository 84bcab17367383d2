package resilient

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy is a pure function of attempt number to wait duration:
// delay = base * 2^attempt + jitter, jitter drawn uniformly from [0, 1s).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      func() float64 // uniform in [0, 1)
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Jitter:      rand.Float64,
	}
}

// Delay computes the backoff before retrying attempt+1. Attempts are
// indexed 0..MaxAttempts-1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	backoff := p.BaseDelay << uint(attempt)
	jitter := time.Duration(p.Jitter() * float64(time.Second))
	return backoff + jitter
}

// RetriesExhaustedError is the terminal failure after the full backoff
// schedule. The last classified error is preserved in the chain.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// IsRetriesExhausted reports whether err's chain contains a
// RetriesExhaustedError.
func IsRetriesExhausted(err error) bool {
	var target *RetriesExhaustedError
	return errors.As(err, &target)
}
