package browser

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/repolist-client/internal/testutil"
	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/detail"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/Sternrassler/repolist-client/pkg/pagination"
	"github.com/rs/zerolog"
)

func newTestBrowser(t *testing.T, mock *testutil.MockGitHub, opts ...Option) *Browser {
	t.Helper()

	cfg := client.DefaultConfig("repolist-test/1.0")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return New(c, append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

func TestBrowser_PagesThroughListing(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetListing(testutil.Repos(3, 1, "mojombo"), testutil.Repos(3, 4, "defunkt"))

	b := newTestBrowser(t, mock)
	ctx := context.Background()

	if got := b.LoadFirstPage(ctx); got != model.OutcomeLoaded {
		t.Fatalf("LoadFirstPage() = %v, want loaded", got)
	}
	state := b.Snapshot()
	if len(state.List.Items) != 3 || !state.List.HasMore {
		t.Fatalf("after first page: %d items, HasMore = %v", len(state.List.Items), state.List.HasMore)
	}

	last := state.List.Items[len(state.List.Items)-1]
	if got := b.LoadNextPageIfNeeded(ctx, last); got != model.OutcomeLoaded {
		t.Fatalf("LoadNextPageIfNeeded() = %v, want loaded", got)
	}

	state = b.Snapshot()
	if len(state.List.Items) != 6 {
		t.Errorf("Items = %d, want 6", len(state.List.Items))
	}
	if state.List.HasMore {
		t.Error("HasMore should be false after the last page")
	}
	for i, r := range state.List.Items {
		if r.ID != int64(i+1) {
			t.Errorf("Items[%d].ID = %d, want %d", i, r.ID, i+1)
		}
	}

	if got := b.LoadNextPageIfNeeded(ctx, state.List.Items[5]); got != model.OutcomeSkipped {
		t.Errorf("LoadNextPageIfNeeded() at end = %v, want skipped", got)
	}
	if n := mock.RequestsFor("/repositories"); n != 2 {
		t.Errorf("listing requests = %d, want 2", n)
	}
}

func TestBrowser_LoadDetail(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetListing(testutil.Repos(2, 1, "mojombo"))
	mock.SetStars("mojombo", "repo-1", 42)

	b := newTestBrowser(t, mock)
	ctx := context.Background()
	b.LoadFirstPage(ctx)

	first, ok := b.Repository(1)
	if !ok {
		t.Fatal("Repository(1) not found")
	}
	second, _ := b.Repository(2)

	if got := b.LoadDetail(ctx, first); got != model.OutcomeLoaded {
		t.Errorf("LoadDetail(repo-1) = %v, want loaded", got)
	}
	if got := b.LoadDetail(ctx, second); got != model.OutcomeFailed {
		t.Errorf("LoadDetail(repo-2) = %v, want failed (404)", got)
	}

	details := b.Snapshot().Details
	if details[1] != (detail.Entry{Status: detail.StatusLoaded, Stars: 42}) {
		t.Errorf("details[1] = %+v", details[1])
	}
	if details[2].Status != detail.StatusFailed {
		t.Errorf("details[2] = %+v, want failed", details[2])
	}
	if b.Snapshot().List.Err != "" {
		t.Error("a detail failure must not reach the list error")
	}

	mock.SetStars("mojombo", "repo-2", 8)
	if got := b.LoadDetail(ctx, second); got != model.OutcomeLoaded {
		t.Errorf("retry LoadDetail(repo-2) = %v, want loaded", got)
	}
	if got := b.LoadDetail(ctx, first); got != model.OutcomeSkipped {
		t.Errorf("LoadDetail(repo-1) again = %v, want skipped", got)
	}
	if n := mock.RequestsFor("/repos/mojombo/repo-1"); n != 1 {
		t.Errorf("detail requests for repo-1 = %d, want 1", n)
	}
}

func TestBrowser_RefreshClearsDetails(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetListing(testutil.Repos(2, 1, "mojombo"))
	mock.SetStars("mojombo", "repo-1", 1)

	b := newTestBrowser(t, mock)
	ctx := context.Background()
	b.LoadFirstPage(ctx)

	r, _ := b.Repository(1)
	b.LoadDetail(ctx, r)
	if len(b.Snapshot().Details) != 1 {
		t.Fatal("expected one detail entry before refresh")
	}

	if got := b.LoadFirstPage(ctx); got != model.OutcomeLoaded {
		t.Fatalf("refresh = %v, want loaded", got)
	}
	if n := len(b.Snapshot().Details); n != 0 {
		t.Errorf("details after refresh = %d entries, want 0", n)
	}
}

func TestBrowser_RateLimitedFirstPage(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/repositories", testutil.NewRateLimitResponse(time.Now().Add(time.Minute)))

	b := newTestBrowser(t, mock)
	if got := b.LoadFirstPage(context.Background()); got != model.OutcomeFailed {
		t.Fatalf("LoadFirstPage() = %v, want failed", got)
	}

	state := b.Snapshot()
	if len(state.List.Items) != 0 {
		t.Errorf("Items = %d, want 0", len(state.List.Items))
	}
	if !strings.HasPrefix(state.List.Err, "API rate limit exceeded. Try again in ") {
		t.Errorf("Err = %q", state.List.Err)
	}
}

func TestBrowser_OnChange(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetListing(testutil.Repos(2, 1, "mojombo"))

	var changes atomic.Int32
	b := newTestBrowser(t, mock,
		WithOnChange(func() { changes.Add(1) }),
		WithListerOptions(pagination.WithPrefetchThreshold(1)),
	)
	ctx := context.Background()

	b.LoadFirstPage(ctx)
	r, _ := b.Repository(1)
	b.LoadNextPageIfNeeded(ctx, r)
	b.LoadDetail(ctx, r)

	if got := changes.Load(); got != 2 {
		t.Errorf("OnChange calls = %d, want 2 (skipped loads do not notify)", got)
	}
}
