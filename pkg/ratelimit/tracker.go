package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKey is the hash holding the shared quota state.
const RedisKey = "repolist:rate_limit"

// Hash fields of RedisKey.
const (
	fieldLimit      = "limit"
	fieldRemaining  = "remaining"
	fieldReset      = "reset"
	fieldLastUpdate = "last_update"
)

// stateRetention keeps the hash around a little longer than the window so a
// late reader still sees that the window has passed.
const stateRetention = time.Minute

// ErrNoState is returned by GetState when no quota has been observed yet.
var ErrNoState = errors.New("no rate limit state")

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repolist_ratelimit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repolist_ratelimit_blocks_total",
		Help: "Total number of requests not sent because the quota was exhausted",
	})
)

// Tracker shares the observed quota through Redis and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the shared quota state.
// Returns ErrNoState if nothing has been recorded.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	fields, err := t.redis.HGetAll(ctx, RedisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoState
	}

	state := &QuotaState{}
	if state.Remaining, err = strconv.Atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	if v := fields[fieldLimit]; v != "" {
		if state.Limit, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse limit: %w", err)
		}
	}
	if v := fields[fieldReset]; v != "" && v != "0" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse reset: %w", err)
		}
		state.ResetAt = time.Unix(secs, 0)
	}
	if v := fields[fieldLastUpdate]; v != "" {
		if state.LastUpdate, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return state, nil
}

// UpdateFromHeaders records the quota carried by a response.
// Responses without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, err := ParseHeaders(headers, time.Now())
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	var reset int64
	if !state.ResetAt.IsZero() {
		reset = state.ResetAt.Unix()
	}

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, RedisKey, map[string]interface{}{
		fieldLimit:      state.Limit,
		fieldRemaining:  state.Remaining,
		fieldReset:      reset,
		fieldLastUpdate: state.LastUpdate.Format(time.RFC3339Nano),
	})
	if !state.ResetAt.IsZero() {
		pipe.ExpireAt(ctx, RedisKey, state.ResetAt.Add(stateRetention))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	quotaRemaining.Set(float64(state.Remaining))

	event := t.logger.Debug()
	if state.IsLow() {
		event = t.logger.Warn()
	}
	event.
		Int("limit", state.Limit).
		Int("remaining", state.Remaining).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit state updated")

	return nil
}

// ShouldAllowRequest reports whether a request may be sent. When the quota is
// exhausted it returns false and the time left until the window resets.
// Unknown state allows the request.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.GetState(ctx)
	if errors.Is(err, ErrNoState) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	if !state.IsExhausted() {
		return true, 0, nil
	}

	wait := state.TimeUntilReset()
	t.logger.Error().
		Int("remaining", state.Remaining).
		Dur("wait_duration", wait).
		Msg("Rate limit exhausted - blocking request")
	quotaBlocksTotal.Inc()

	return false, wait, nil
}
