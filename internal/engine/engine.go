// Package engine wires the bar pipeline, scorer and persistence into a
// single evaluation loop: one tick in, one snapshot out.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/barcache"
	"signal-enginev1/internal/marketdata/agg"
	"signal-enginev1/internal/marketdata/compound"
	"signal-enginev1/internal/metrics"
	"signal-enginev1/internal/model"
	"signal-enginev1/internal/momentum"
	"signal-enginev1/internal/scorer"
	"signal-enginev1/internal/store/redis"
	"signal-enginev1/internal/store/sqlite"
)

const (
	// External bar sets older than this are treated as stale and rebuilt
	// from the tick history instead.
	maxExternalBarAge = 300 * time.Second

	flushInterval = 60 * time.Second
)

// Input is one evaluation cycle's worth of collaborator data. Bars and
// HourlyBars are optional pre-built series from an external feed; when
// present and fresh they bypass the aggregator for this cycle.
type Input struct {
	Tick       model.Tick
	Bars       []model.Bar
	HourlyBars []model.Bar
	BarsAge    time.Duration // age of the external bar set
}

// Snapshot is the full engine output for one tick.
type Snapshot struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Updated   string `json:"updated"`
	Timestamp int64  `json:"timestamp"`

	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Spread float64 `json:"spread"`
	Source string  `json:"source,omitempty"`

	Bars   []model.Bar `json:"bars"`
	BarsH1 []model.Bar `json:"bars_h1"`
	BarsD1 []model.Bar `json:"bars_d1"`

	Signal   *scorer.Evaluation `json:"server_signal"`
	Momentum *momentum.Window   `json:"momentum_1h"`
}

// Options configures an Engine. Archive, Publisher, Metrics and Health are
// all optional; nil disables the corresponding concern.
type Options struct {
	Symbol       string
	CachePath    string
	BacktestPath string

	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Archive   *sqlite.Archive
	Publisher *redis.Publisher
}

// Engine owns the evaluation pipeline. A single mutex serializes cycles;
// every collaborator behind it is single-threaded by construction.
type Engine struct {
	mu sync.Mutex

	symbol    string
	agg       *agg.Aggregator
	cache     *barcache.Cache
	validator *backtest.Validator
	scorer    *scorer.Scorer

	log       *slog.Logger
	metrics   *metrics.Metrics
	health    *metrics.HealthStatus
	archive   *sqlite.Archive
	publisher *redis.Publisher
}

// New builds an Engine and loads persisted state (bar cache, pending
// backtest entries) from disk.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := barcache.New(opts.CachePath)
	cache.Load()

	validator := backtest.New(opts.BacktestPath)
	validator.Load()

	logger.Info("engine ready",
		"symbol", opts.Symbol,
		"cached_bars", cache.Len(),
		"pending_signals", validator.PendingCount(),
	)

	return &Engine{
		symbol:    opts.Symbol,
		agg:       agg.New(),
		cache:     cache,
		validator: validator,
		scorer:    scorer.New(validator),
		log:       logger,
		metrics:   opts.Metrics,
		health:    opts.Health,
		archive:   opts.Archive,
		publisher: opts.Publisher,
	}
}

// Evaluate runs one full cycle: bar assembly, cache merge, scoring,
// timeframe compounding and the momentum window. The returned snapshot is
// self-contained; the caller may serialize it as-is.
func (e *Engine) Evaluate(ctx context.Context, in Input) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	now := in.Tick.TS
	if now.IsZero() {
		now = time.Now()
	}
	bid := in.Tick.Bid

	if e.metrics != nil {
		e.metrics.TicksTotal.Inc()
		e.metrics.EvaluationsTotal.Inc()
	}
	if e.health != nil {
		e.health.SetLastTickTime(now)
	}

	bars := e.assembleBars(in, now, bid)

	added, updated := e.cache.Merge(bars)
	if cached := e.cache.Bars(); len(cached) > len(bars) {
		// The cache remembers more history than this cycle produced.
		bars = cached
	}
	wasDirty := e.cache.Dirty()
	flushStart := time.Now()
	e.cache.FlushIfDue(flushInterval)
	if wasDirty && !e.cache.Dirty() && e.metrics != nil {
		e.metrics.CacheFlushDur.Observe(time.Since(flushStart).Seconds())
	}

	if e.metrics != nil {
		e.metrics.CacheMergeAdds.Add(float64(added))
		e.metrics.CacheMergeUpds.Add(float64(updated))
		e.metrics.CacheSize.Set(float64(e.cache.Len()))
	}
	if e.health != nil {
		e.health.SetCacheBars(e.cache.Len())
	}

	ev := e.scorer.Evaluate(bars, bid, now)
	e.recordEvaluation(ev, added, bars, now)

	hourly := in.HourlyBars
	if len(hourly) == 0 {
		hourly = compound.Hourly(bars)
	}
	daily := compound.Daily(bars)

	snap := &Snapshot{
		Symbol:    e.symbol,
		Timeframe: "M5",
		Updated:   now.Format("15:04:05"),
		Timestamp: now.Unix(),
		Bid:       bid,
		Ask:       in.Tick.Ask,
		Spread:    in.Tick.Spread(),
		Source:    in.Tick.Source,
		Bars:      bars,
		BarsH1:    hourly,
		BarsD1:    daily,
		Signal:    ev,
		Momentum:  momentum.Build(bid, bars, hourly),
	}

	e.publish(ctx, snap, ev)

	if e.metrics != nil {
		e.metrics.EvaluateDur.Observe(time.Since(start).Seconds())
		e.metrics.PendingSignals.Set(float64(e.validator.PendingCount()))
	}
	return snap
}

// assembleBars picks the bar source for this cycle: a fresh external set
// when provided, the tick aggregator otherwise.
func (e *Engine) assembleBars(in Input, now time.Time, bid float64) []model.Bar {
	if len(in.Bars) > 0 {
		if in.BarsAge <= maxExternalBarAge {
			return in.Bars
		}
		e.log.Warn("external bars stale, rebuilding from ticks",
			"age", in.BarsAge.Round(time.Second),
		)
	}

	bars := e.agg.BuildBars(now, bid)
	if e.metrics != nil {
		synthetic := 0
		for i := range bars {
			if bars[i].Synthetic {
				synthetic++
			}
		}
		e.metrics.SyntheticBars.Add(float64(synthetic))
	}
	return bars
}

// recordEvaluation pushes evaluation outcomes into metrics, the archive
// and the log. Archive faults are logged and swallowed; the signal path
// must not depend on durable storage.
func (e *Engine) recordEvaluation(ev *scorer.Evaluation, added int, bars []model.Bar, now time.Time) {
	if e.metrics != nil {
		for _, res := range ev.Validated {
			result := "loss"
			if res.Win {
				result = "win"
			}
			e.metrics.ValidationsTotal.WithLabelValues(string(res.Signal), result).Inc()
		}
		if ev.Changed {
			e.metrics.SignalChanges.WithLabelValues(string(ev.Signal)).Inc()
		}
	}
	if e.health != nil {
		e.health.SetLastSignal(string(ev.Signal))
	}
	if ev.Changed {
		e.log.Info("signal changed",
			"signal", ev.Signal,
			"confidence", ev.Confidence,
			"score", ev.Score,
		)
	}

	if e.archive == nil {
		return
	}
	if added > 0 {
		start := time.Now()
		if n, err := e.archive.UpsertBars(bars); err != nil {
			e.log.Error("bar archive write failed", "err", err)
		} else if e.metrics != nil && n > 0 {
			e.metrics.SQLiteCommitDur.Observe(time.Since(start).Seconds())
		}
	}
	for _, res := range ev.Validated {
		if err := e.archive.RecordValidation(res, now); err != nil {
			e.log.Error("validation archive write failed", "err", err)
		}
	}
}

// publish serializes the snapshot for downstream consumers. Skipped
// entirely when no publisher is configured.
func (e *Engine) publish(ctx context.Context, snap *Snapshot, ev *scorer.Evaluation) {
	if e.publisher == nil {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		e.log.Error("snapshot marshal failed", "err", err)
		return
	}

	start := time.Now()
	e.publisher.PublishSnapshot(ctx, payload)
	if e.metrics != nil {
		e.metrics.RedisPublishDur.Observe(time.Since(start).Seconds())
	}

	if ev.Changed {
		change, err := json.Marshal(struct {
			Symbol     string            `json:"symbol"`
			Signal     backtest.Decision `json:"signal"`
			Confidence int               `json:"confidence"`
			Price      float64           `json:"price"`
			Time       string            `json:"time"`
		}{e.symbol, ev.Signal, ev.Confidence, snap.Bid, snap.Updated})
		if err == nil {
			e.publisher.PublishSignalChange(ctx, change)
		}
	}
}

// CacheLen reports the current cache occupancy.
func (e *Engine) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Len()
}

// Close flushes dirty state to disk and releases held resources. Must run
// before process exit; the cache flush throttle means recent bars may
// exist only in memory.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache.Flush()

	var firstErr error
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			firstErr = err
		}
	}
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
