package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Error is the typed failure raised when a policy trips. It carries the HTTP
// status the boundary should return, a human-readable message, and a
// retry-after hint in seconds.
type Error struct {
	StatusCode        int
	Message           string
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s (retry after %ds)", e.Message, e.RetryAfterSeconds)
}

// Policy is a rolling-window call budget guarding one upstream dependency.
// Allow admits a call when fewer than limit calls were admitted within the
// trailing window; on trip it returns the policy's Error without recording
// the attempt. Policies are independent per upstream, never shared.
type Policy struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
	trip   *Error

	now func() time.Time // test hook
}

// NewPolicy creates a Policy admitting limit calls per window. statusCode,
// message and retryAfterSeconds describe the failure returned on trip.
func NewPolicy(limit int, window time.Duration, statusCode int, message string, retryAfterSeconds int) *Policy {
	return &Policy{
		limit:  limit,
		window: window,
		trip: &Error{
			StatusCode:        statusCode,
			Message:           message,
			RetryAfterSeconds: retryAfterSeconds,
		},
		now: time.Now,
	}
}

// Allow records and admits the call when the budget permits, or returns the
// policy's *Error when the budget is exhausted. The guarded upstream call must
// not be attempted after a non-nil return.
func (p *Policy) Allow() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.pruneLocked(now)
	if len(p.calls) >= p.limit {
		return p.trip
	}
	p.calls = append(p.calls, now)
	return nil
}

// InWindow returns the number of admitted calls within the trailing window.
func (p *Policy) InWindow() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(p.now())
	return len(p.calls)
}

// Reset clears all recorded calls. For tests only.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// pruneLocked drops call timestamps that have aged out of the window.
// Must be called with the mutex held.
func (p *Policy) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.window)
	i := 0
	for ; i < len(p.calls) && p.calls[i].Before(cutoff); i++ {
	}
	if i > 0 {
		p.calls = append(p.calls[:0], p.calls[i:]...)
	}
}
