package models

import "time"

// Policy is a sliding-window allowance: at most Limit requests in any
// Window-long span.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the policy limits anything.
func (p Policy) Enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`
}

type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
