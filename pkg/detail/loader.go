// Package detail loads the star count of individual repositories on demand.
//
// The Loader keeps one entry per repository id. An entry is Loading from the
// moment a fetch is started, so a concurrent request for the same repository
// sees it and returns without a second network call. Loaded entries are
// final; Failed entries are retried on the next request. A cancelled fetch
// removes the entry, so the next request is a first attempt.
package detail

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Status of a detail entry.
type Status int

const (
	// StatusLoading means a fetch is in flight.
	StatusLoading Status = iota + 1

	// StatusLoaded means Stars holds the fetched value.
	StatusLoaded

	// StatusFailed means the last fetch failed. Load retries it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is the detail state of one repository.
type Entry struct {
	Status Status
	Stars  int
}

// MarshalJSON encodes the entry as {"status": ..., "stars": ...}. Stars is
// present for loaded entries only, including a count of zero.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := struct {
		Status Status `json:"status"`
		Stars  *int   `json:"stars,omitempty"`
	}{Status: e.Status}
	if e.Status == StatusLoaded {
		stars := e.Stars
		out.Stars = &stars
	}
	return json.Marshal(out)
}

// Fetcher is the interface the transport must implement for detail requests.
type Fetcher interface {
	FetchDetail(ctx context.Context, ownerLogin, repoName string) (int, error)
}

var (
	detailLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repolist_detail_loads_total",
		Help: "Total star count loads by outcome",
	}, []string{"outcome"})

	detailInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repolist_detail_loads_in_flight",
		Help: "Star count fetches currently in flight",
	})
)

// Loader tracks per-repository detail loads. It is safe for concurrent use.
type Loader struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[int64]Entry
	// generation is bumped by Reset; fetches started before a reset do not
	// write their result.
	generation uint64
}

// NewLoader creates a loader with an empty status map.
func NewLoader(fetcher Fetcher, logger zerolog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "detail-loader").Logger(),
		entries: make(map[int64]Entry),
	}
}

// Load fetches the star count of repo unless it is already loading or
// loaded (OutcomeSkipped).
func (l *Loader) Load(ctx context.Context, repo model.Repository) model.LoadOutcome {
	l.mu.Lock()
	if entry, ok := l.entries[repo.ID]; ok && entry.Status != StatusFailed {
		l.mu.Unlock()
		return record(model.OutcomeSkipped)
	}
	l.entries[repo.ID] = Entry{Status: StatusLoading}
	generation := l.generation
	l.mu.Unlock()

	detailInFlight.Inc()
	start := time.Now()
	stars, err := l.fetcher.FetchDetail(ctx, repo.Owner.Login, repo.Name)
	detailInFlight.Dec()

	l.mu.Lock()
	defer l.mu.Unlock()

	if generation != l.generation {
		l.logger.Debug().Int64("repo_id", repo.ID).Msg("Discarding detail for a replaced collection")
		return record(model.OutcomeSkipped)
	}

	switch {
	case err == nil:
		l.entries[repo.ID] = Entry{Status: StatusLoaded, Stars: stars}
		l.logger.Debug().
			Str("repo", repo.FullName()).
			Int("stars", stars).
			Dur("duration", time.Since(start)).
			Msg("Detail loaded")
		return record(model.OutcomeLoaded)

	case client.IsCancelled(err):
		delete(l.entries, repo.ID)
		l.logger.Debug().Str("repo", repo.FullName()).Msg("Detail load cancelled")
		return record(model.OutcomeCancelled)

	default:
		l.entries[repo.ID] = Entry{Status: StatusFailed}
		l.logger.Warn().
			Err(err).
			Str("repo", repo.FullName()).
			Str("kind", string(client.KindOf(err))).
			Msg("Detail load failed")
		return record(model.OutcomeFailed)
	}
}

// Status returns the entry for id and whether one exists.
func (l *Loader) Status(id int64) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	return entry, ok
}

// Snapshot returns a copy of the status map.
func (l *Loader) Snapshot() map[int64]Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[int64]Entry, len(l.entries))
	for id, entry := range l.entries {
		out[id] = entry
	}
	return out
}

// Reset clears every entry. Fetches still in flight are ignored when they
// complete.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[int64]Entry)
	l.generation++
}

func record(outcome model.LoadOutcome) model.LoadOutcome {
	detailLoads.WithLabelValues(outcome.String()).Inc()
	return outcome
}
