// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package feed

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/feedline/internal/breaker"
	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/health"
	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/metrics"
	"github.com/tomtom215/feedline/internal/stampede"
)

var errStrategyPanic = errors.New("ranking strategy panicked")

// Default orchestrator settings.
const (
	DefaultMaxLimit    = 50
	DefaultMaxPage     = 1000
	DefaultFeedTTL     = 5 * time.Minute
	DefaultDegradedTTL = 30 * time.Second
)

// Strategies holds one ranking function per tier. All three are required.
type Strategies struct {
	Hybrid        Strategy
	Simplified    Strategy
	Chronological Strategy
}

// Options configures an Orchestrator.
type Options struct {
	// FeedTTL applies to HYBRID pages.
	FeedTTL time.Duration

	// DegradedTTL applies to SIMPLIFIED and CHRONOLOGICAL pages so a
	// recovered ranker takes over quickly.
	DegradedTTL time.Duration

	// MaxLimit caps the page size.
	MaxLimit int

	// MaxPage caps the page number.
	MaxPage int

	// FailureThreshold and ResetTimeout configure both tier breakers.
	FailureThreshold uint32
	ResetTimeout     time.Duration

	// StampedeThreshold is the number of concurrent misses on one page that
	// is reported as a stampede.
	StampedeThreshold int
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		FeedTTL:           DefaultFeedTTL,
		DegradedTTL:       DefaultDegradedTTL,
		MaxLimit:          DefaultMaxLimit,
		MaxPage:           DefaultMaxPage,
		FailureThreshold:  breaker.DefaultFailureThreshold,
		ResetTimeout:      breaker.DefaultResetTimeout,
		StampedeThreshold: stampede.DefaultThreshold,
	}
}

// tier is one step of the fallback walk. The terminal tier has no breaker.
type tier struct {
	name    Tier
	rank    Strategy
	breaker *breaker.Breaker[[]ContentItem]
}

// Orchestrator serves feed pages through the cache, the stampede guard and
// the tier walk. It is safe for concurrent use and owns its breakers and
// guard for its whole lifetime.
type Orchestrator struct {
	tiers   []tier
	store   cache.Store
	guard   *stampede.Guard
	monitor *health.Monitor
	opts    Options
	logger  zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. store may be cache.Unavailable()
// to disable page caching. Zero option fields take their defaults.
func NewOrchestrator(s Strategies, store cache.Store, monitor *health.Monitor, opts Options) (*Orchestrator, error) {
	if s.Hybrid == nil || s.Simplified == nil || s.Chronological == nil {
		return nil, errors.New("all three ranking strategies are required")
	}
	if store == nil {
		store = cache.Unavailable()
	}
	if monitor == nil {
		monitor = health.NewMonitor(health.DefaultConfig())
	}
	opts = withDefaults(opts)

	settings := func(name string) breaker.Settings {
		return breaker.Settings{
			Name:             name,
			FailureThreshold: opts.FailureThreshold,
			ResetTimeout:     opts.ResetTimeout,
		}
	}

	return &Orchestrator{
		tiers: []tier{
			{name: TierHybrid, rank: s.Hybrid, breaker: breaker.New[[]ContentItem](settings("feed_hybrid"))},
			{name: TierSimplified, rank: s.Simplified, breaker: breaker.New[[]ContentItem](settings("feed_simplified"))},
			{name: TierChronological, rank: s.Chronological},
		},
		store:   store,
		guard:   stampede.New(opts.StampedeThreshold, monitor),
		monitor: monitor,
		opts:    opts,
		logger:  logging.WithComponent("feed"),
	}, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.FeedTTL <= 0 {
		opts.FeedTTL = def.FeedTTL
	}
	if opts.DegradedTTL <= 0 {
		opts.DegradedTTL = def.DegradedTTL
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.MaxPage <= 0 {
		opts.MaxPage = def.MaxPage
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = def.FailureThreshold
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = def.ResetTimeout
	}
	if opts.StampedeThreshold <= 0 {
		opts.StampedeThreshold = def.StampedeThreshold
	}
	return opts
}

// Monitor returns the health monitor the orchestrator reports to.
func (o *Orchestrator) Monitor() *health.Monitor {
	return o.monitor
}

// BreakerStates returns the state of each guarded tier.
func (o *Orchestrator) BreakerStates() map[Tier]breaker.State {
	states := make(map[Tier]breaker.State, len(o.tiers))
	for _, t := range o.tiers {
		if t.breaker != nil {
			states[t.name] = t.breaker.State()
		}
	}
	return states
}

// GetFeed returns one ranked page for userID. page is clamped to [1, MaxPage]
// and limit to [1, MaxLimit].
//
// Under normal and degraded conditions it returns a non-nil result whose Tier
// names the strategy that produced the items. When every tier fails it
// returns an error wrapping ErrServiceUnavailable.
func (o *Orchestrator) GetFeed(ctx context.Context, userID string, page, limit int) (*FeedResult, error) {
	page, limit = o.clamp(page, limit)

	return health.WithMonitoring(o.monitor, func() (*FeedResult, error) {
		result, err := o.getFeed(ctx, userID, page, limit)
		if err != nil {
			return nil, err
		}
		o.monitor.RecordTier(string(result.Tier))
		return result, nil
	})
}

func (o *Orchestrator) getFeed(ctx context.Context, userID string, page, limit int) (*FeedResult, error) {
	key := o.pageKey(ctx, userID, page, limit)

	// The page cache is read once, by this caller. A decodable entry is kept
	// so the hit path does not decode twice.
	var cached *FeedResult
	get := func(ctx context.Context, key string) ([]byte, bool) {
		raw, ok := o.store.Get(ctx, key)
		if !ok {
			return nil, false
		}
		var r FeedResult
		if err := json.Unmarshal(raw, &r); err != nil || r.Tier == "" {
			o.logger.Debug().Str("key", key).Msg("Discarding undecodable cached page")
			return nil, false
		}
		cached = &r
		return raw, true
	}

	compute := func(ctx context.Context) ([]byte, error) {
		result, err := o.walk(ctx, userID, page, limit)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode feed page: %w", err)
		}
		return data, nil
	}

	raw, err := o.guard.GetOrCompute(ctx, key, compute, get, o.setPage, o.opts.FeedTTL)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		cached.Cached = true
		return cached, nil
	}

	var result FeedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode feed page: %w", err)
	}
	return &result, nil
}

// walk tries each tier in order and returns the first page produced. Each
// strategy is called at most once.
func (o *Orchestrator) walk(ctx context.Context, userID string, page, limit int) (*FeedResult, error) {
	var lastErr error

	for _, t := range o.tiers {
		rank := func() (items []ContentItem, err error) {
			// A panicking strategy counts as a tier failure.
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error().
						Str("tier", string(t.name)).
						Str("user_id", userID).
						Interface("panic", r).
						Bytes("stack", debug.Stack()).
						Msg("Ranking strategy panicked")
					items, err = nil, fmt.Errorf("%w: %v", errStrategyPanic, r)
				}
			}()
			return t.rank(ctx, userID, page, limit)
		}

		var items []ContentItem
		var err error
		if t.breaker != nil {
			items, err = t.breaker.Try(rank)
		} else {
			items, err = rank()
		}

		if err == nil {
			if items == nil {
				items = []ContentItem{}
			}
			return &FeedResult{
				Items:       items,
				Tier:        t.name,
				Page:        page,
				Limit:       limit,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}

		lastErr = err
		if errors.Is(err, breaker.ErrOpen) {
			o.logger.Debug().Str("tier", string(t.name)).Str("user_id", userID).Msg("Tier skipped, breaker open")
			continue
		}
		metrics.FeedStrategyFailures.WithLabelValues(string(t.name)).Inc()
		o.logger.Warn().Err(err).Str("tier", string(t.name)).Str("user_id", userID).Msg("Ranking strategy failed, falling back")
	}

	return nil, fmt.Errorf("%w: all ranking tiers failed: %w", ErrServiceUnavailable, lastErr)
}

// setPage stores a computed page with the TTL of the tier that produced it.
func (o *Orchestrator) setPage(ctx context.Context, key string, value []byte, _ time.Duration) {
	var head struct {
		Tier Tier `json:"tier"`
	}
	ttl := o.opts.DegradedTTL
	if err := json.Unmarshal(value, &head); err == nil && !head.Tier.Degraded() {
		ttl = o.opts.FeedTTL
	}
	o.store.Set(ctx, key, value, ttl)
}

// InvalidateUser makes every cached page of userID unreachable and drops
// their interest vector. Old pages expire on their own.
func (o *Orchestrator) InvalidateUser(ctx context.Context, userID string) {
	gen := o.store.Incr(ctx, generationKey(userID))
	o.store.Delete(ctx, InterestKey(userID))
	o.logger.Debug().Str("user_id", userID).Int64("generation", gen).Msg("Invalidated user feed")
}

func (o *Orchestrator) pageKey(ctx context.Context, userID string, page, limit int) string {
	return fmt.Sprintf("%s%s:v%d:p%d:l%d", pageKeyPrefix, userID, o.generation(ctx, userID), page, limit)
}

// generation returns the user's cache generation, 0 when unknown.
func (o *Orchestrator) generation(ctx context.Context, userID string) int64 {
	raw, ok := o.store.Get(ctx, generationKey(userID))
	if !ok {
		return 0
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func (o *Orchestrator) clamp(page, limit int) (clampedPage, clampedLimit int) {
	if page < 1 {
		page = 1
	}
	if page > o.opts.MaxPage {
		page = o.opts.MaxPage
	}
	if limit < 1 {
		limit = 1
	}
	if limit > o.opts.MaxLimit {
		limit = o.opts.MaxLimit
	}
	return page, limit
}
