// File: internal/usecase/backoff.go
package usecase

import (
	"time"

	"catalog-console/internal/domain/ports/adapter"
)

// RetryPolicy decides whether a failed generation call is retried and how
// long to wait before the retry. Delays are a pure function of the attempt
// number; the policy carries no per-call state.
type RetryPolicy struct {
	Base       time.Duration
	MaxRetries int
}

// DefaultRetryPolicy matches the item-generation defaults: three retries,
// delays of 2x, 4x, 8x the base.
func DefaultRetryPolicy(base time.Duration) RetryPolicy {
	return RetryPolicy{Base: base, MaxRetries: 3}
}

// AuthRetryPolicy is the more patient variant for the first,
// authentication-sensitive call of a session.
func AuthRetryPolicy(base time.Duration) RetryPolicy {
	return RetryPolicy{Base: base, MaxRetries: 5}
}

// ShouldRetry is true only for a rate-limit refusal within the retry cap.
// Every other error kind surfaces immediately as an item-level failure.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt > p.MaxRetries {
		return false
	}
	se, ok := adapter.AsServiceError(err)
	return ok && se.RateLimited()
}

// DelayFor returns base * 2^attempt, attempt starting at 1 for the first
// retry. A server-suggested wait from a ServiceError takes precedence when
// it is longer.
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.Base * (1 << uint(attempt))
}

// DelayForError is DelayFor with the optional Retry-After hint applied.
func (p RetryPolicy) DelayForError(attempt int, err error) time.Duration {
	d := p.DelayFor(attempt)
	if se, ok := adapter.AsServiceError(err); ok && se.RetryAfter > d {
		return se.RetryAfter
	}
	return d
}

// PacingPolicy is the proactive throttle between successive item calls
// within one category: a fixed wait applied regardless of success, so the
// steady-state request rate stays under the remote limit. Distinct from the
// reactive backoff above.
type PacingPolicy struct {
	Floor time.Duration
}

// pacing grows with the requested batch size past this point
const pacingScaleThreshold = 10

// Delay returns the wait inserted before items 2..N of a category. Never
// below the floor; scaled up linearly once the requested count exceeds the
// threshold so large batches self-throttle harder.
func (p PacingPolicy) Delay(requestedCount int) time.Duration {
	d := p.Floor
	if requestedCount > pacingScaleThreshold {
		d = p.Floor * time.Duration(requestedCount) / pacingScaleThreshold
	}
	if d < p.Floor {
		d = p.Floor
	}
	return d
}
