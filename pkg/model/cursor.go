package model

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Cursor is an opaque pointer to the next listing request.
// It wraps the absolute URL advertised by the server and round-trips it
// untouched. The zero value means "no cursor".
type Cursor struct {
	raw string
}

// NewCursor builds a cursor from an absolute URL.
func NewCursor(rawURL string) (Cursor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Cursor{}, fmt.Errorf("parse cursor url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Cursor{}, fmt.Errorf("cursor url must be absolute: %q", rawURL)
	}
	return Cursor{raw: u.String()}, nil
}

// IsZero reports whether c carries no next request.
func (c Cursor) IsZero() bool {
	return c.raw == ""
}

// URL returns a fresh copy of the request target, or nil for the zero cursor.
func (c Cursor) URL() *url.URL {
	if c.raw == "" {
		return nil
	}
	u, err := url.Parse(c.raw)
	if err != nil {
		// NewCursor already validated raw.
		return nil
	}
	return u
}

// String returns the raw URL ("" for the zero cursor).
func (c Cursor) String() string {
	return c.raw
}

// MarshalJSON encodes the cursor as its URL, or null when zero.
func (c Cursor) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(c.raw)
}
