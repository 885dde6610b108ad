package domain

import (
	"errors"
	"math/rand/v2"
	"time"

	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
)

// JobOutcome is what a queue does with a job after one attempt.
type JobOutcome int

const (
	JobCompleted JobOutcome = iota
	JobRetry
	JobDead
)

func (o JobOutcome) String() string {
	switch o {
	case JobCompleted:
		return "completed"
	case JobRetry:
		return "retry"
	default:
		return "dead"
	}
}

const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = time.Second
	maxRetryBackoff     = 5 * time.Minute
)

// RetryPolicy decides between retrying and dead-lettering a failed job.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	// Jitter returns extra delay added to each backoff. Nil means none.
	Jitter func() time.Duration
}

// DefaultRetryPolicy returns a policy with small random jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultRetryBackoff,
		Jitter: func() time.Duration {
			return time.Duration(100+rand.IntN(400)) * time.Millisecond
		},
	}
}

// Decide classifies the result of attempt (1-based).
func (p RetryPolicy) Decide(err error, attempt int) JobOutcome {
	if err == nil {
		return JobCompleted
	}
	if errors.Is(err, apperrors.ErrInvalidJob) {
		return JobDead
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if attempt >= maxAttempts {
		return JobDead
	}
	return JobRetry
}

// Backoff is the delay before the attempt after attempt: base, 2*base,
// 4*base and so on, capped at five minutes.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = DefaultRetryBackoff
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt && delay < maxRetryBackoff; i++ {
		delay *= 2
	}
	if delay > maxRetryBackoff {
		delay = maxRetryBackoff
	}
	if p.Jitter != nil {
		delay += p.Jitter()
	}
	return delay
}
