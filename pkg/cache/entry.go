// Package cache stores GitHub REST responses in Redis so repeated listing
// and detail requests can be answered locally or revalidated with a
// conditional request.
//
// A fresh entry (within its Cache-Control max-age or Expires) is served
// without touching the network. A stale entry is kept for StaleRetention and
// revalidated with If-None-Match / If-Modified-Since; GitHub answers 304
// without charging the request against the rate limit.
package cache

import (
	"net/http"
	"time"
)

// Entry is a cached response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	// LastModified from the Last-Modified header, zero if absent.
	LastModified time.Time `json:"last_modified"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// Headers of the cached response. Link must survive for listing pages.
	Headers http.Header `json:"headers"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true once the entry is no longer fresh.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, 0 if already stale.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether a stale entry can be checked with a
// conditional request.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
