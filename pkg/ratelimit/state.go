// Package ratelimit tracks the GitHub REST API request quota.
// It reads the X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// response headers and can share the resulting state across processes via
// Redis, so a client can stop sending requests once the quota is exhausted.
package ratelimit

import (
	"time"
)

// Response headers carrying the quota.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// WarningRatio is the fraction of the quota below which updates are logged
// at warn level.
const WarningRatio = 0.1

// QuotaState is the last observed request quota.
type QuotaState struct {
	// Limit is the quota size for the current window (0 when not reported).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets. Zero when not reported.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was observed.
	LastUpdate time.Time `json:"last_update"`
}

// IsExhausted reports whether no requests are left and the window has not
// reset yet.
func (s *QuotaState) IsExhausted() bool {
	if s.Remaining > 0 {
		return false
	}
	// Without a reset time the window could be over already.
	return !s.ResetAt.IsZero() && time.Now().Before(s.ResetAt)
}

// IsLow reports whether the remaining quota dropped below WarningRatio of the limit.
func (s *QuotaState) IsLow() bool {
	if s.Limit <= 0 {
		return s.Remaining == 0
	}
	return float64(s.Remaining) < float64(s.Limit)*WarningRatio
}

// TimeUntilReset returns the duration until the window resets,
// or 0 if the reset time has passed or is unknown.
func (s *QuotaState) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
