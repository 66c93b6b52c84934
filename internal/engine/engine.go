// Package engine runs the periodic feature computation cycle: select
// tokens under the call budget, fan out to a bounded worker pool, derive
// technical and behavioral features per token, fuse and persist. Per-token
// failures are isolated; a snapshot is always written for every selected
// token, degrading to error_fallback rather than being skipped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"token-feature-engine/internal/behavior"
	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/feed"
	"token-feature-engine/internal/fusion"
	"token-feature-engine/internal/indicator"
	"token-feature-engine/internal/observability"
	"token-feature-engine/internal/registry"
	"token-feature-engine/internal/selector"
	"token-feature-engine/internal/storage"
)

// Config holds engine-level parameters; calculator-specific thresholds
// live in the respective package configs.
type Config struct {
	// PrimaryTimeframe is the timeframe snapshots are computed on.
	PrimaryTimeframe domain.Timeframe
	// Timeframes is the full set fetched for trend alignment; it should
	// include PrimaryTimeframe.
	Timeframes []domain.Timeframe

	// CandleLookbackBars bounds how many bars are fetched per timeframe.
	CandleLookbackBars int
	// TransferLookbackMs bounds the per-cycle transfer fetch window.
	TransferLookbackMs int64

	// WorkerPoolSize bounds per-cycle parallelism.
	WorkerPoolSize int
	// FeedRatePerSec and FeedBurst configure the shared upstream rate
	// limiter; permit acquisition is serialized across workers.
	FeedRatePerSec float64
	FeedBurst      int

	// CycleInterval is the period between cycles in Run.
	CycleInterval time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		PrimaryTimeframe:   domain.Timeframe1h,
		Timeframes:         []domain.Timeframe{domain.Timeframe15m, domain.Timeframe1h, domain.Timeframe4h},
		CandleLookbackBars: 200,
		TransferLookbackMs: 7 * 24 * 3600000,
		WorkerPoolSize:     8,
		FeedRatePerSec:     10,
		FeedBurst:          5,
		CycleInterval:      5 * time.Minute,
	}
}

// Options wires the engine's collaborators.
type Options struct {
	Candles   storage.CandleStore
	Transfers storage.TransferStore
	Snapshots storage.SnapshotStore
	Tokens    storage.TokenStore
	Universe  *registry.Cache
	Source    feed.TransferSource

	Selector   *selector.Selector
	Indicators *indicator.Calculator
	Behavior   *behavior.Calculator
	Fuser      *fusion.Fuser

	Metrics *observability.Metrics
	Logger  *log.Logger
}

// Engine coordinates computation cycles.
type Engine struct {
	cfg  Config
	opts Options

	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time
}

// New creates an engine.
func New(cfg Config, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:     cfg,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(cfg.FeedRatePerSec), cfg.FeedBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	Selected   int
	Succeeded  int
	Fallbacks  int
	Failed     int
	Duplicates int
}

// Run executes cycles on the configured interval until the context is
// canceled. An in-flight cycle may be cut short by cancellation;
// already-persisted snapshots stand.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		start := e.now()
		stats, err := e.RunCycle(ctx)
		elapsed := e.now().Sub(start).Seconds()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			e.opts.Metrics.RecordCycle("error", elapsed)
			e.logger.Printf("cycle failed: %v", err)
		} else {
			e.opts.Metrics.RecordCycle("ok", elapsed)
			e.opts.Metrics.LastSuccessfulCycle.Set(float64(e.now().Unix()))
			e.logger.Printf("cycle done: selected=%d ok=%d fallback=%d failed=%d dup=%d (%.1fs)",
				stats.Selected, stats.Succeeded, stats.Fallbacks, stats.Failed, stats.Duplicates, elapsed)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle executes one cycle: selection runs synchronously, then the
// selected tokens are processed by a fixed-size worker pool.
func (e *Engine) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	universe, err := e.opts.Universe.Universe(ctx)
	if err != nil {
		return stats, fmt.Errorf("load token universe: %w", err)
	}

	nowMs := e.now().UnixMilli()
	candidates := make([]domain.PriorityCandidate, 0, universe.Len())
	for _, tok := range universe.Tokens() {
		vol, err := e.volume24h(ctx, tok.TokenID)
		if err != nil {
			return stats, fmt.Errorf("volume for %s: %w", tok.TokenID, err)
		}
		candidates = append(candidates, e.opts.Selector.BuildCandidate(tok, vol, nowMs))
	}

	selected := e.opts.Selector.Select(candidates)
	stats.Selected = len(selected)
	e.opts.Metrics.TokensSelected.Set(float64(len(selected)))

	jobs := make(chan domain.PriorityCandidate)
	results := make(chan tokenResult, len(selected))

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.WorkerPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				results <- e.processToken(ctx, cand.TokenID)
			}
		}()
	}

	for _, cand := range selected {
		select {
		case jobs <- cand:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			close(results)
			e.drain(results, &stats)
			return stats, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	e.drain(results, &stats)

	return stats, nil
}

type tokenResult struct {
	tokenID   string
	source    domain.AnalysisSource
	duplicate bool
	err       error
}

func (e *Engine) drain(results <-chan tokenResult, stats *CycleStats) {
	for res := range results {
		switch {
		case res.err != nil:
			stats.Failed++
			e.opts.Metrics.TokenPipelineRuns.WithLabelValues("error").Inc()
			e.logger.Printf("token %s failed: %v", res.tokenID, res.err)
		case res.source == domain.SourceRealOnly || res.source == domain.SourceRealPrimary:
			stats.Succeeded++
			e.opts.Metrics.TokenPipelineRuns.WithLabelValues("ok").Inc()
		default:
			stats.Fallbacks++
			e.opts.Metrics.TokenPipelineRuns.WithLabelValues("fallback").Inc()
		}
		if res.duplicate {
			stats.Duplicates++
		}
	}
}

// processToken runs one token's pipeline. The behavioral and indicator
// paths run concurrently over disjoint inputs and join before fusion.
// Panics are contained and yield an error_fallback snapshot.
func (e *Engine) processToken(ctx context.Context, tokenID string) (res tokenResult) {
	res.tokenID = tokenID
	start := e.now()
	defer func() {
		e.opts.Metrics.TokenPipelineTime.Observe(e.now().Sub(start).Seconds())
		if r := recover(); r != nil {
			e.logger.Printf("token %s: recovered panic: %v", tokenID, r)
			res = e.writeErrorFallback(ctx, tokenID)
		}
	}()

	nowMs := e.now().UnixMilli()

	var (
		tech      domain.TechnicalFeatures
		beh       domain.BehavioralFeatures
		transfers []*domain.TransferEvent
		behErr    error
		indErr    error
		wg        sync.WaitGroup
	)

	byTimeframe := make(map[domain.Timeframe][]*domain.Candle, len(e.cfg.Timeframes))

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				behErr = fmt.Errorf("behavioral path panic: %v", r)
			}
		}()
		beh, transfers, behErr = e.computeBehavioral(ctx, tokenID, nowMs)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				indErr = fmt.Errorf("indicator path panic: %v", r)
			}
		}()
		for _, tf := range e.cfg.Timeframes {
			candles, err := e.fetchCandles(ctx, tokenID, tf, nowMs)
			if err != nil {
				indErr = err
				return
			}
			byTimeframe[tf] = candles
		}
		tech = e.opts.Indicators.Compute(e.cfg.PrimaryTimeframe, byTimeframe)
	}()
	wg.Wait()

	if indErr != nil {
		e.logger.Printf("token %s: indicator path failed: %v", tokenID, indErr)
		return e.writeErrorFallback(ctx, tokenID)
	}
	if behErr != nil && !errors.Is(behErr, behavior.ErrNoHistory) {
		e.logger.Printf("token %s: behavioral path failed: %v", tokenID, behErr)
		return e.writeErrorFallback(ctx, tokenID)
	}

	ts := e.snapshotTimestamp(byTimeframe[e.cfg.PrimaryTimeframe], nowMs)
	snap := e.opts.Fuser.Fuse(tokenID, e.cfg.PrimaryTimeframe, ts, tech, beh, transfers, nowMs)
	return e.persist(ctx, snap)
}

// computeBehavioral fetches transfers, mirrors them into the local store
// and runs the behavioral calculator. Feed failures are not fatal: they
// flow into the calculator as FeedErr and trigger the estimation path.
func (e *Engine) computeBehavioral(ctx context.Context, tokenID string, nowMs int64) (domain.BehavioralFeatures, []*domain.TransferEvent, error) {
	windowStart := nowMs - e.cfg.TransferLookbackMs

	var feedErr error
	if err := e.limiter.Wait(ctx); err != nil {
		feedErr = fmt.Errorf("%w: %v", feed.ErrUpstreamUnavailable, err)
	} else {
		fetchStart := e.now()
		fetched, err := e.opts.Source.GetTransfers(ctx, tokenID, windowStart)
		e.opts.Metrics.FeedCallLatency.Observe(e.now().Sub(fetchStart).Seconds())
		if err != nil {
			feedErr = err
			e.opts.Metrics.FeedRequestsTotal.WithLabelValues("error").Inc()
			if errors.Is(err, feed.ErrUpstreamMalformed) {
				e.logger.Printf("token %s: malformed feed response: %v", tokenID, err)
			}
		} else {
			e.opts.Metrics.FeedRequestsTotal.WithLabelValues("ok").Inc()
			e.mirrorTransfers(ctx, fetched)
		}
	}

	// The local store is the full-history record for first-appearance
	// holder scans; fetched events were merged into it above.
	history, err := e.opts.Transfers.GetByToken(ctx, tokenID, 0)
	if err != nil {
		return domain.BehavioralFeatures{}, nil, fmt.Errorf("read transfer history: %w", err)
	}

	primary, err := e.fetchCandles(ctx, tokenID, e.cfg.PrimaryTimeframe, nowMs)
	if err != nil {
		return domain.BehavioralFeatures{}, nil, fmt.Errorf("read candles: %w", err)
	}
	current, baseline := behavior.WindowVolumes(primary, e.opts.Behavior.Config())

	var earliestCandle *int64
	if ts, err := e.opts.Candles.EarliestTimestamp(ctx, tokenID); err == nil {
		earliestCandle = &ts
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.BehavioralFeatures{}, nil, fmt.Errorf("earliest candle: %w", err)
	}

	in := behavior.Input{
		NowMs:                nowMs,
		Transfers:            history,
		PartialHistory:       partialHistory(history, earliestCandle, windowStart),
		FeedErr:              feedErr,
		EarliestCandleMs:     earliestCandle,
		CurrentWindowVolume:  current,
		BaselineWindowVolume: baseline,
	}
	beh, err := e.opts.Behavior.Compute(in)
	return beh, history, err
}

// partialHistory reports whether the known transfer history may be
// truncated: nothing predates the fetch window while the candle record
// shows the token existed before it.
func partialHistory(history []*domain.TransferEvent, earliestCandle *int64, windowStart int64) bool {
	if len(history) == 0 {
		return false
	}
	if history[0].TimestampMs < windowStart {
		return false
	}
	return earliestCandle != nil && *earliestCandle < windowStart
}

// mirrorTransfers appends fetched events to the local store, treating
// duplicates as no-ops.
func (e *Engine) mirrorTransfers(ctx context.Context, events []*domain.TransferEvent) {
	for _, ev := range events {
		err := e.opts.Transfers.Append(ctx, ev)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			e.logger.Printf("mirror transfer %s: %v", ev.Signature, err)
		}
	}
}

func (e *Engine) fetchCandles(ctx context.Context, tokenID string, tf domain.Timeframe, nowMs int64) ([]*domain.Candle, error) {
	from := nowMs - int64(e.cfg.CandleLookbackBars)*tf.Duration().Milliseconds()
	return e.opts.Candles.GetCandles(ctx, tokenID, tf, from, nowMs)
}

// volume24h sums primary-timeframe volume over the last 24h for tiering.
func (e *Engine) volume24h(ctx context.Context, tokenID string) (float64, error) {
	nowMs := e.now().UnixMilli()
	candles, err := e.opts.Candles.GetCandles(ctx, tokenID, e.cfg.PrimaryTimeframe, nowMs-24*3600000, nowMs)
	if err != nil {
		return 0, err
	}
	var vol float64
	for _, c := range candles {
		vol += c.Volume
	}
	return vol, nil
}

// snapshotTimestamp anchors the snapshot identity to the last primary bar
// so that recomputation over the same data stays idempotent.
func (e *Engine) snapshotTimestamp(primary []*domain.Candle, nowMs int64) int64 {
	if len(primary) > 0 {
		return primary[len(primary)-1].TimestampMs
	}
	return nowMs - nowMs%e.cfg.PrimaryTimeframe.Duration().Milliseconds()
}

func (e *Engine) persist(ctx context.Context, snap *domain.TokenFeatureSnapshot) tokenResult {
	res := tokenResult{tokenID: snap.TokenID, source: snap.Behavioral.Source}

	err := e.opts.Snapshots.Append(ctx, snap)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		res.duplicate = true
		e.opts.Metrics.SnapshotDuplicates.Inc()
	case err != nil:
		res.err = fmt.Errorf("append snapshot: %w", err)
		return res
	default:
		e.opts.Metrics.RecordSnapshot(string(snap.Behavioral.Source))
	}

	if err := e.opts.Tokens.MarkEnriched(ctx, snap.TokenID, e.now().UnixMilli()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		e.logger.Printf("mark enriched %s: %v", snap.TokenID, err)
	}
	return res
}

// writeErrorFallback persists the minimal degraded snapshot; a selected
// token is never silently skipped.
func (e *Engine) writeErrorFallback(ctx context.Context, tokenID string) tokenResult {
	nowMs := e.now().UnixMilli()
	snap := &domain.TokenFeatureSnapshot{
		TokenID:     tokenID,
		Timeframe:   e.cfg.PrimaryTimeframe,
		TimestampMs: nowMs - nowMs%e.cfg.PrimaryTimeframe.Duration().Milliseconds(),
		Behavioral: domain.BehavioralFeatures{
			Source:         domain.SourceErrorFallback,
			DataConfidence: 0,
		},
	}
	return e.persist(ctx, snap)
}
