package integration

import (
	"strings"
	"time"
)

// Default retry settings
const (
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 60 * time.Second
	DefaultMaxRetryDelay  = 30 * time.Minute
)

var rateLimitPatterns = []string{
	"rate limit",
	"ratelimit",
	"too many requests",
	"429",
	"throttl",
}

// IsRateLimitMessage reports whether an error text describes throttling
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range rateLimitPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// RetryPolicy
// ---------------------------------------------------------------------------

// RetryPolicy decides whether a failed attempt is retried automatically.
type RetryPolicy struct {
	// MaxAttempts is the number of consecutive failures after which the
	// mapping stops retrying
	MaxAttempts int
	// BaseDelay seeds the exponential backoff
	BaseDelay time.Duration
	// MaxDelay caps the backoff, and is also how long rate-limited attempts
	// wait for the next scheduled cycle
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		BaseDelay:   DefaultRetryBaseDelay,
		MaxDelay:    DefaultMaxRetryDelay,
	}
}

// RetryDecision is the outcome of RetryPolicy.Decide
type RetryDecision struct {
	// Retry is true when a delayed retry should be scheduled now
	Retry bool
	// Delay before the retry runs
	Delay time.Duration
	// NextRetryAt is when the retry sweep may pick the mapping up again
	NextRetryAt *time.Time
	// Exhausted is true when the failure hit the attempt limit
	Exhausted bool
	// CountsTowardLimit is true when the failure increments the retry counter
	CountsTowardLimit bool
	// Reason explains the decision
	Reason string
}

// Delay returns BaseDelay * 2^retryCount capped at MaxDelay
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 30 {
		return p.MaxDelay
	}
	delay := p.BaseDelay * time.Duration(1<<uint(retryCount))
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	return delay
}

// Decide classifies a failure of op on mapping m.
func (p RetryPolicy) Decide(m *EntityMapping, op OperationType, kind ErrorKind, errText string, now time.Time) RetryDecision {
	if !op.IsRetryable() {
		return RetryDecision{Reason: "operation " + op.String() + " is not retried"}
	}

	if kind == ErrorKindRateLimit || IsRateLimitMessage(errText) {
		// Wait for the next scheduled cycle instead of retrying straight away
		next := now.Add(p.MaxDelay)
		return RetryDecision{
			NextRetryAt: &next,
			Reason:      "rate limited, deferred to next scheduled cycle",
		}
	}

	switch kind {
	case ErrorKindConfiguration, ErrorKindValidation, ErrorKindRemoteClient:
		return RetryDecision{Reason: "not retried until the entity changes"}
	}

	failures := m.RetryCount + 1
	if failures >= p.MaxAttempts {
		return RetryDecision{
			Exhausted:         true,
			CountsTowardLimit: true,
			Reason:            "retry limit reached, manual reset required",
		}
	}

	delay := p.Delay(m.RetryCount)
	next := now.Add(delay)
	return RetryDecision{
		Retry:             true,
		Delay:             delay,
		NextRetryAt:       &next,
		CountsTowardLimit: true,
		Reason:            "transient failure, retry scheduled",
	}
}
