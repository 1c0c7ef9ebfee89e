// Package testutil provides testing utilities for the repository browser.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockOwner is the wire form of a repository owner.
type MockOwner struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// MockRepo is the wire form of a listing entry.
type MockRepo struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Owner    MockOwner `json:"owner"`
}

// Repos builds n repositories with consecutive ids starting at startID, all
// owned by login. Names are "repo-<id>".
func Repos(n int, startID int64, login string) []MockRepo {
	repos := make([]MockRepo, 0, n)
	for i := int64(0); i < int64(n); i++ {
		id := startID + i
		name := fmt.Sprintf("repo-%d", id)
		repos = append(repos, MockRepo{
			ID:       id,
			Name:     name,
			FullName: login + "/" + name,
			Owner: MockOwner{
				ID:        1,
				Login:     login,
				AvatarURL: fmt.Sprintf("https://avatars.example.com/u/%d", 1),
			},
		})
	}
	return repos
}

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock of the GitHub REST endpoints used by
// the browser: GET /repositories and GET /repos/{owner}/{repo}.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// listing pages keyed by the "since" value that requests them ("" = first)
	pages map[string][]MockRepo
	next  map[string]string

	stars map[string]int

	requests          map[string]int
	requestCount      int
	conditionalCount  int
	lastRequestHeader http.Header
}

// NewMockGitHub creates a new mock server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers: make(map[string]http.HandlerFunc),
		pages:    make(map[string][]MockRepo),
		next:     make(map[string]string),
		stars:    make(map[string]int),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requests[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch {
		case r.URL.Path == "/repositories":
			mock.listingHandler(w, r)
		case strings.HasPrefix(r.URL.Path, "/repos/"):
			mock.detailHandler(w, r)
		default:
			writeQuotaHeaders(w)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found"}`))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SetHandler overrides the handler for a path.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetListing configures the pages served by /repositories. Page i+1 is
// linked from page i with since=<last id of page i>, as GitHub does.
func (m *MockGitHub) SetListing(pages ...[]MockRepo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages = make(map[string][]MockRepo)
	m.next = make(map[string]string)

	since := ""
	for i, page := range pages {
		m.pages[since] = page
		if i == len(pages)-1 || len(page) == 0 {
			break
		}
		nextSince := strconv.FormatInt(page[len(page)-1].ID, 10)
		m.next[since] = nextSince
		since = nextSince
	}
}

// SetStars configures the star count served for owner/repo.
func (m *MockGitHub) SetStars(owner, repo string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stars[owner+"/"+repo] = count
}

// RequestCount returns the number of requests made to the server.
func (m *MockGitHub) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests made to path.
func (m *MockGitHub) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// ConditionalCount returns the number of conditional requests.
func (m *MockGitHub) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.requestCount = 0
	m.conditionalCount = 0
	m.lastRequestHeader = nil
}

func (m *MockGitHub) listingHandler(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")

	m.mu.RLock()
	page, ok := m.pages[since]
	nextSince, hasNext := m.next[since]
	m.mu.RUnlock()

	if !ok {
		page = []MockRepo{}
	}

	etag := fmt.Sprintf(`"listing-%s"`, since)
	writeQuotaHeaders(w)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60, s-maxage=60")
	if hasNext {
		w.Header().Set("Link", fmt.Sprintf(`<%s/repositories?since=%s>; rel="next", <%s/repositories{?since}>; rel="first"`,
			m.server.URL, nextSince, m.server.URL))
	}

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (m *MockGitHub) detailHandler(w http.ResponseWriter, r *http.Request) {
	fullName := strings.TrimPrefix(r.URL.Path, "/repos/")

	m.mu.RLock()
	count, ok := m.stars[fullName]
	m.mu.RUnlock()

	writeQuotaHeaders(w)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"full_name":        fullName,
		"stargazers_count": count,
		"watchers_count":   count,
	})
}

func writeQuotaHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "60")
	w.Header().Set("X-RateLimit-Remaining", "59")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewRateLimitResponse creates the 403 GitHub sends once the quota is
// exhausted. A zero reset omits X-RateLimit-Reset.
func NewRateLimitResponse(reset time.Time) MockResponse {
	headers := map[string]string{
		"X-RateLimit-Limit":     "60",
		"X-RateLimit-Remaining": "0",
		"Content-Type":          "application/json; charset=utf-8",
	}
	if !reset.IsZero() {
		headers["X-RateLimit-Reset"] = strconv.FormatInt(reset.Unix(), 10)
	}
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers:    headers,
	}
}

// NewForbiddenResponse creates a 403 that is not a rate limit.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "Repository access blocked"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "42",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewJSONResponse creates a 200 response with body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
