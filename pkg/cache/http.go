package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL applies when a response carries no freshness information.
// GitHub sends max-age=60 for public resources.
const DefaultTTL = 60 * time.Second

// NewEntry builds an entry from a response. The header map is cloned.
func NewEntry(status int, header http.Header, body []byte, now time.Time) *Entry {
	entry := &Entry{
		Data:       body,
		ETag:       header.Get("ETag"),
		StatusCode: status,
		Headers:    header.Clone(),
		CachedAt:   now,
		Expires:    now.Add(freshness(header, now)),
	}

	if lastModStr := header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// IsCacheable reports whether a response may be stored.
func IsCacheable(status int, header http.Header) bool {
	if status != http.StatusOK {
		return false
	}
	for _, directive := range cacheControl(header) {
		if directive == "no-store" {
			return false
		}
	}
	return true
}

// Revalidated returns a copy of entry whose freshness and validators are
// taken from a 304 response.
func Revalidated(entry *Entry, header http.Header, now time.Time) *Entry {
	updated := *entry
	updated.Expires = now.Add(freshness(header, now))
	if etag := header.Get("ETag"); etag != "" {
		updated.ETag = etag
	}
	return &updated
}

// AddConditionalHeaders sets If-None-Match, or If-Modified-Since when the
// entry has no ETag.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// freshness prefers Cache-Control max-age over Expires.
func freshness(header http.Header, now time.Time) time.Duration {
	for _, directive := range cacheControl(header) {
		if directive == "no-cache" {
			return 0
		}
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}

	if expiresStr := header.Get("Expires"); expiresStr != "" {
		expires, err := http.ParseTime(expiresStr)
		if err != nil {
			return DefaultTTL
		}
		if d := expires.Sub(now); d > 0 {
			return d
		}
		return 0
	}

	return DefaultTTL
}

func cacheControl(header http.Header) []string {
	var directives []string
	for _, v := range header.Values("Cache-Control") {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				directives = append(directives, part)
			}
		}
	}
	return directives
}
