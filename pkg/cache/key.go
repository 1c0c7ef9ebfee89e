package cache

import (
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces cache keys in a shared Redis.
const keyPrefix = "repolist:http"

// Key identifies a cached GET response.
type Key struct {
	// Path is the request path, e.g. "/repos/mojombo/grit".
	Path string

	// Query holds the query parameters, e.g. since=369.
	Query url.Values
}

// KeyForURL derives the key of a request URL. Host and scheme are ignored.
func KeyForURL(u *url.URL) Key {
	return Key{
		Path:  u.EscapedPath(),
		Query: u.Query(),
	}
}

// String generates a deterministic key.
// Format: repolist:http:<path>[:name=v1,v2]...
//
// Example:
//
//	repolist:http:/repositories:since=369
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte(':')

	path := "/" + strings.Trim(k.Path, "/")
	b.WriteString(path)

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := append([]string(nil), k.Query[name]...)
		sort.Strings(values)
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, ","))
	}

	return b.String()
}
