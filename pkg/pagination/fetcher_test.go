package pagination

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/model"
)

type fakeResult struct {
	page *model.Page
	err  error
}

// fakeFetcher serves pages keyed by cursor string ("" is the origin).
// A gated cursor blocks until released or until the context is done.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResult
	gates     map[string]chan struct{}
	calls     []string
	started   chan string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]fakeResult),
		gates:     make(map[string]chan struct{}),
		started:   make(chan string, 64),
	}
}

func (f *fakeFetcher) set(cursor string, page *model.Page, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cursor] = fakeResult{page: page, err: err}
}

func (f *fakeFetcher) gate(cursor string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[cursor] = ch
	return ch
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor model.Cursor) (*model.Page, error) {
	key := cursor.String()

	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	f.mu.Unlock()

	select {
	case f.started <- key:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("list request: %w", ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.responses[key]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", key)
	}
	return res.page, res.err
}

// waitStarted blocks until a fetch for cursor has begun.
func (f *fakeFetcher) waitStarted(t *testing.T, cursor string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.started:
			if got == cursor {
				return
			}
		case <-timeout:
			t.Fatalf("fetch for cursor %q never started", cursor)
		}
	}
}

func repo(id int64) model.Repository {
	return model.Repository{
		ID:    id,
		Name:  fmt.Sprintf("repo-%d", id),
		Owner: model.Owner{ID: 1, Login: "octocat"},
	}
}

func repos(ids ...int64) []model.Repository {
	out := make([]model.Repository, 0, len(ids))
	for _, id := range ids {
		out = append(out, repo(id))
	}
	return out
}

func cursorFor(t *testing.T, since int) model.Cursor {
	t.Helper()
	c, err := model.NewCursor(fmt.Sprintf("https://api.github.com/repositories?since=%d", since))
	if err != nil {
		t.Fatalf("NewCursor() error = %v", err)
	}
	return c
}

func ids(items []model.Repository) []int64 {
	out := make([]int64, 0, len(items))
	for _, r := range items {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
