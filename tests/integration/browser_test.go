//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/repolist-client/internal/testutil"
	"github.com/Sternrassler/repolist-client/pkg/browser"
	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/detail"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newBrowser creates a browser as a separate process would: its own client
// over the shared Redis.
func newBrowser(t *testing.T, redisClient *redis.Client, baseURL string) *browser.Browser {
	t.Helper()

	cfg := client.DefaultConfig("repolist-integration/1.0")
	cfg.BaseURL = baseURL
	cfg.Redis = redisClient
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return browser.New(c, browser.WithLogger(zerolog.Nop()))
}

func TestIntegration_SharedCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetListing(testutil.Repos(3, 1, "mojombo"), testutil.Repos(3, 4, "mojombo"))
	mock.SetStars("mojombo", "repo-1", 10)

	ctx := context.Background()
	first := newBrowser(t, redisClient, mock.URL())
	second := newBrowser(t, redisClient, mock.URL())

	for _, b := range []*browser.Browser{first, second} {
		if got := b.LoadFirstPage(ctx); got != model.OutcomeLoaded {
			t.Fatalf("LoadFirstPage() = %v, want loaded", got)
		}
		items := b.Snapshot().List.Items
		if got := b.LoadNextPageIfNeeded(ctx, items[len(items)-1]); got != model.OutcomeLoaded {
			t.Fatalf("LoadNextPageIfNeeded() = %v, want loaded", got)
		}
		repo, _ := b.Repository(1)
		if got := b.LoadDetail(ctx, repo); got != model.OutcomeLoaded {
			t.Fatalf("LoadDetail() = %v, want loaded", got)
		}
	}

	if n := mock.RequestsFor("/repositories"); n != 2 {
		t.Errorf("listing requests = %d, want 2 (second browser served from cache)", n)
	}
	if n := mock.RequestsFor("/repos/mojombo/repo-1"); n != 1 {
		t.Errorf("detail requests = %d, want 1", n)
	}

	state := second.Snapshot()
	if len(state.List.Items) != 6 || state.List.HasMore {
		t.Errorf("second browser: %d items, hasMore %v", len(state.List.Items), state.List.HasMore)
	}
	if state.Details[1] != (detail.Entry{Status: detail.StatusLoaded, Stars: 10}) {
		t.Errorf("second browser details[1] = %+v", state.Details[1])
	}
}

func TestIntegration_SharedRateLimit(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/repositories", testutil.NewRateLimitResponse(time.Now().Add(2*time.Minute)))

	ctx := context.Background()
	first := newBrowser(t, redisClient, mock.URL())
	second := newBrowser(t, redisClient, mock.URL())

	if got := first.LoadFirstPage(ctx); got != model.OutcomeFailed {
		t.Fatalf("first LoadFirstPage() = %v, want failed", got)
	}
	if got := second.LoadFirstPage(ctx); got != model.OutcomeFailed {
		t.Fatalf("second LoadFirstPage() = %v, want failed", got)
	}

	if n := mock.RequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1 (second browser blocked before sending)", n)
	}
	for i, b := range []*browser.Browser{first, second} {
		if msg := b.Snapshot().List.Err; !strings.HasPrefix(msg, "API rate limit exceeded. Try again in ") {
			t.Errorf("browser %d Err = %q", i, msg)
		}
	}
}
