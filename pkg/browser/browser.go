// Package browser composes the listing state machine and the star count
// loader over one GitHub transport, which is the surface a UI layer drives.
package browser

import (
	"context"

	"github.com/Sternrassler/repolist-client/pkg/detail"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/Sternrassler/repolist-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport fetches listing pages and star counts. *client.Client
// implements it.
type Transport interface {
	pagination.PageFetcher
	detail.Fetcher
}

// State is a point-in-time copy of everything a renderer needs.
type State struct {
	List    pagination.ListState   `json:"list"`
	Details map[int64]detail.Entry `json:"details"`
}

// Option configures a Browser.
type Option func(*options)

type options struct {
	logger       zerolog.Logger
	onChange     func()
	listerOption []pagination.ListerOption
}

// WithLogger sets the logger used by the browser and its components.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnChange registers a callback run after each load that was not
// skipped. It must not block.
func WithOnChange(fn func()) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// WithListerOptions passes options through to the pagination lister.
func WithListerOptions(opts ...pagination.ListerOption) Option {
	return func(o *options) {
		o.listerOption = append(o.listerOption, opts...)
	}
}

// Browser holds one listing and the star counts of its repositories.
type Browser struct {
	lister   *pagination.Lister
	details  *detail.Loader
	onChange func()
	logger   zerolog.Logger
}

// New creates a browser over transport. Replacing the listing with a fresh
// first page clears all star counts.
func New(transport Transport, opts ...Option) *Browser {
	o := options{
		logger: log.With().Str("component", "browser").Logger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Browser{
		details:  detail.NewLoader(transport, o.logger),
		onChange: o.onChange,
		logger:   o.logger,
	}

	listerOpts := []pagination.ListerOption{
		pagination.WithLogger(o.logger.With().Str("component", "lister").Logger()),
		pagination.WithOnReplace(b.details.Reset),
	}
	b.lister = pagination.NewLister(transport, append(listerOpts, o.listerOption...)...)

	return b
}

// LoadFirstPage loads (or reloads) the first page of the listing.
func (b *Browser) LoadFirstPage(ctx context.Context) model.LoadOutcome {
	return b.notify(b.lister.LoadFirstPage(ctx))
}

// LoadNextPageIfNeeded loads the next page if ref is close to the end of the
// listing.
func (b *Browser) LoadNextPageIfNeeded(ctx context.Context, ref model.Repository) model.LoadOutcome {
	return b.notify(b.lister.LoadNextPageIfNeeded(ctx, ref))
}

// LoadDetail loads the star count of repo.
func (b *Browser) LoadDetail(ctx context.Context, repo model.Repository) model.LoadOutcome {
	return b.notify(b.details.Load(ctx, repo))
}

// Repository returns the loaded repository with the given id.
func (b *Browser) Repository(id int64) (model.Repository, bool) {
	return b.lister.Find(id)
}

// Snapshot returns the current listing and star counts.
func (b *Browser) Snapshot() State {
	return State{
		List:    b.lister.Snapshot(),
		Details: b.details.Snapshot(),
	}
}

func (b *Browser) notify(outcome model.LoadOutcome) model.LoadOutcome {
	if outcome != model.OutcomeSkipped && b.onChange != nil {
		b.onChange()
	}
	return outcome
}
