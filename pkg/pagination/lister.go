package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPrefetchThreshold is how close to the end of the collection an
// accessed item must be for the next page to load.
const DefaultPrefetchThreshold = 5

// PageFetcher is the interface the transport must implement for listing pages.
type PageFetcher interface {
	// FetchPage fetches one page. The zero cursor requests the first page.
	FetchPage(ctx context.Context, cursor model.Cursor) (*model.Page, error)
}

// ListState is a point-in-time copy of the lister state.
type ListState struct {
	Items       []model.Repository `json:"items"`
	Cursor      model.Cursor       `json:"cursor"`
	HasMore     bool               `json:"hasMore"`
	Loading     bool               `json:"loading"`
	LoadingMore bool               `json:"loadingMore"`
	Err         string             `json:"error,omitempty"`
}

// ListerOption configures a Lister.
type ListerOption func(*Lister)

// WithPrefetchThreshold sets the prefetch threshold. Values below 1 are ignored.
func WithPrefetchThreshold(n int) ListerOption {
	return func(l *Lister) {
		if n > 0 {
			l.threshold = n
		}
	}
}

// WithDescribe sets how load errors are turned into messages.
func WithDescribe(describe func(error) string) ListerOption {
	return func(l *Lister) {
		if describe != nil {
			l.describe = describe
		}
	}
}

// WithOnReplace registers a hook run when a first page replaces the
// collection. It runs under the lister lock before the new items become
// visible, so it must not call back into the Lister.
func WithOnReplace(fn func()) ListerOption {
	return func(l *Lister) {
		l.onReplace = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ListerOption {
	return func(l *Lister) {
		l.logger = logger
	}
}

// Lister is the pagination state machine over a PageFetcher.
// It is safe for concurrent use.
type Lister struct {
	fetcher   PageFetcher
	threshold int
	describe  func(error) string
	onReplace func()
	logger    zerolog.Logger

	mu          sync.Mutex
	items       []model.Repository
	cursor      model.Cursor
	hasMore     bool
	loading     bool
	loadingMore bool
	lastErr     string
	// epoch counts successful first-page loads. An incremental load started
	// under an older epoch must not append to the new collection.
	epoch uint64
}

// NewLister creates a lister with an empty collection.
func NewLister(fetcher PageFetcher, opts ...ListerOption) *Lister {
	l := &Lister{
		fetcher:   fetcher,
		threshold: DefaultPrefetchThreshold,
		describe:  client.Describe,
		logger:    log.With().Str("component", "lister").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFirstPage fetches the first page and replaces the collection with it.
// It is a no-op (OutcomeSkipped) while another first-page load is in flight.
func (l *Lister) LoadFirstPage(ctx context.Context) model.LoadOutcome {
	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		l.logger.Debug().Str("kind", kindFirst).Msg("Load already in flight")
		return l.record(kindFirst, model.OutcomeSkipped)
	}
	l.loading = true
	prevErr := l.lastErr
	l.lastErr = ""
	l.mu.Unlock()

	start := time.Now()
	page, err := l.fetcher.FetchPage(ctx, model.Cursor{})

	l.mu.Lock()
	l.loading = false
	if err != nil {
		outcome := l.failLocked(kindFirst, err, prevErr)
		l.mu.Unlock()
		return l.record(kindFirst, outcome)
	}

	if l.onReplace != nil {
		l.onReplace()
	}
	l.items = append([]model.Repository(nil), page.Repositories...)
	l.cursor = page.Next
	l.hasMore = page.HasNext()
	l.epoch++
	size := len(l.items)
	l.mu.Unlock()

	CollectionSize.Set(float64(size))
	l.logger.Info().
		Int("repositories", size).
		Bool("has_more", page.HasNext()).
		Dur("duration", time.Since(start)).
		Msg("First page loaded")

	return l.record(kindFirst, model.OutcomeLoaded)
}

// LoadNextPageIfNeeded appends the next page when ref is within the prefetch
// threshold of the end of the collection. It is a no-op (OutcomeSkipped)
// when there are no more pages, an incremental load is in flight, or ref is
// not in the collection or not close enough to its end.
func (l *Lister) LoadNextPageIfNeeded(ctx context.Context, ref model.Repository) model.LoadOutcome {
	l.mu.Lock()
	if !l.hasMore || l.loadingMore {
		l.mu.Unlock()
		return l.record(kindNext, model.OutcomeSkipped)
	}
	index := l.indexLocked(ref.ID)
	if index < 0 || index < len(l.items)-l.threshold {
		l.mu.Unlock()
		return l.record(kindNext, model.OutcomeSkipped)
	}
	l.loadingMore = true
	prevErr := l.lastErr
	l.lastErr = ""
	cursor := l.cursor
	epoch := l.epoch
	l.mu.Unlock()

	l.logger.Debug().
		Int64("ref", ref.ID).
		Int("index", index).
		Str("cursor", cursor.String()).
		Msg("Prefetching next page")

	start := time.Now()
	page, err := l.fetcher.FetchPage(ctx, cursor)

	l.mu.Lock()
	l.loadingMore = false
	if epoch != l.epoch {
		l.mu.Unlock()
		l.logger.Debug().Err(err).Msg("Discarding page fetched for a replaced collection")
		return l.record(kindNext, model.OutcomeSkipped)
	}

	if err != nil {
		outcome := l.failLocked(kindNext, err, prevErr)
		l.mu.Unlock()
		return l.record(kindNext, outcome)
	}

	l.items = append(l.items, page.Repositories...)
	l.cursor = page.Next
	l.hasMore = page.HasNext()
	size := len(l.items)
	l.mu.Unlock()

	CollectionSize.Set(float64(size))
	l.logger.Info().
		Int("appended", len(page.Repositories)).
		Int("repositories", size).
		Bool("has_more", page.HasNext()).
		Dur("duration", time.Since(start)).
		Msg("Next page loaded")

	return l.record(kindNext, model.OutcomeLoaded)
}

// Snapshot returns a copy of the current state.
func (l *Lister) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return ListState{
		Items:       append([]model.Repository(nil), l.items...),
		Cursor:      l.cursor,
		HasMore:     l.hasMore,
		Loading:     l.loading,
		LoadingMore: l.loadingMore,
		Err:         l.lastErr,
	}
}

// Find returns the loaded repository with the given id.
func (l *Lister) Find(id int64) (model.Repository, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	return model.Repository{}, false
}

// failLocked handles a failed fetch. Cancellation puts back the message the
// attempt cleared unless another load recorded one meanwhile; any other
// error records its message. Caller holds l.mu.
func (l *Lister) failLocked(kind string, err error, prevErr string) model.LoadOutcome {
	if client.IsCancelled(err) {
		if l.lastErr == "" {
			l.lastErr = prevErr
		}
		l.logger.Debug().Str("kind", kind).Msg("Page load cancelled")
		return model.OutcomeCancelled
	}

	l.lastErr = l.describe(err)
	l.logger.Warn().
		Err(err).
		Str("kind", kind).
		Int("repositories", len(l.items)).
		Msg("Page load failed")
	return model.OutcomeFailed
}

func (l *Lister) indexLocked(id int64) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Lister) record(kind string, outcome model.LoadOutcome) model.LoadOutcome {
	PageLoads.WithLabelValues(kind, outcome.String()).Inc()
	return outcome
}
