package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// IsExhausted reports whether the response headers signal a zero remaining quota.
func IsExhausted(h http.Header) bool {
	return strings.TrimSpace(h.Get(HeaderRemaining)) == "0"
}

// ResetTime returns the reset timestamp advertised in X-RateLimit-Reset
// (unix seconds). ok is false when the header is absent or malformed.
func ResetTime(h http.Header) (reset time.Time, ok bool) {
	v := strings.TrimSpace(h.Get(HeaderReset))
	if v == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// RetryAfter returns how long to wait before the quota resets, measured from
// now in whole seconds and clamped at zero. ok is false when the reset header
// is missing.
func RetryAfter(h http.Header, now time.Time) (wait time.Duration, ok bool) {
	reset, ok := ResetTime(h)
	if !ok {
		return 0, false
	}
	secs := reset.Unix() - now.Unix()
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs) * time.Second, true
}

// ParseHeaders builds a QuotaState from response headers.
// It returns (nil, nil) when the response carries no quota headers.
func ParseHeaders(h http.Header, now time.Time) (*QuotaState, error) {
	remainStr := strings.TrimSpace(h.Get(HeaderRemaining))
	if remainStr == "" {
		return nil, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	state := &QuotaState{
		Remaining:  remain,
		LastUpdate: now,
	}

	if limitStr := strings.TrimSpace(h.Get(HeaderLimit)); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
		state.Limit = limit
	}

	if reset, ok := ResetTime(h); ok {
		state.ResetAt = reset
	} else if h.Get(HeaderReset) != "" {
		return nil, fmt.Errorf("parse %s header: %q", HeaderReset, h.Get(HeaderReset))
	}

	return state, nil
}
