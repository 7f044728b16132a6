// Package engine runs sealed 1m candles through the full analytical
// path: OI categorization, the indicator battery, the cross-symbol
// board, regime classification and alert scoring.
//
// Candles are sharded by FNV-1a(symbol) onto worker goroutines, so each
// instrument's candles are processed strictly in arrival order while
// unrelated symbols proceed in parallel. The only cross-shard touch
// points are the board (its own mutex) and the store writers.
package engine

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"alert-systemv1/internal/indicator"
	"alert-systemv1/internal/market"
	"alert-systemv1/internal/metrics"
	"alert-systemv1/internal/model"
	"alert-systemv1/internal/oicat"
	"alert-systemv1/internal/regime"
)

// drainWriteTimeout bounds persistence calls made after the root
// context is cancelled, while shards finish their queued candles.
const drainWriteTimeout = 5 * time.Second

// Store is the slice of the state store the engine writes: analytics
// rows, graded alerts and periodic state checkpoints.
type Store interface {
	WriteSnapshot(ctx context.Context, snap *model.Snapshot) error
	WriteOICategory(ctx context.Context, symbol string, minute int64, cat model.OICategory) error
	WriteAlert(ctx context.Context, alert *model.Alert) error
	SaveCheckpointJSON(data []byte) error
}

// Hot is the Redis hot-cache sink. Best effort; the relational store
// stays the source of truth.
type Hot interface {
	WriteSnapshot(snap *model.Snapshot) error
	AppendAlert(a *model.Alert) error
	SaveCheckpoint(data []byte) error
}

// Scorer grades one assembled alert context.
type Scorer interface {
	Score(ctx model.AlertContext) (*model.Alert, bool)
}

// Submitter queues dispatchable alerts for delivery.
type Submitter interface {
	Submit(ctx context.Context, a *model.Alert) error
}

// Config controls sharding, checkpoint cadence and the thresholds
// applied on the per-candle path.
type Config struct {
	Shards          int
	ShardBuffer     int
	CheckpointEvery time.Duration

	// VIXSymbol's candles feed the board's VIX gauge instead of the
	// analytics path.
	VIXSymbol string

	Battery indicator.BatteryConfig
	Regime  regime.Thresholds
	Depth   market.DepthThresholds
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.ShardBuffer <= 0 {
		c.ShardBuffer = 1024
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = time.Minute
	}
	if c.Regime == (regime.Thresholds{}) {
		c.Regime = regime.DefaultThresholds()
	}
	if c.Depth == (market.DepthThresholds{}) {
		c.Depth = market.DefaultDepthThresholds()
	}
	return c
}

// Deps are the engine's collaborators. Any of them may be nil; the
// corresponding step is skipped, which keeps partial wiring (tests,
// replay tooling) cheap.
type Deps struct {
	Categorizer *oicat.Categorizer
	Board       *market.Board
	Scorer      Scorer
	Store       Store
	Hot         Hot
	Dispatcher  Submitter
	Metrics     *metrics.Metrics
}

// shard owns the batteries of every symbol that hashes to it. The
// mutex covers the battery map: the owning worker holds it per candle,
// the checkpointer while collecting state.
type shard struct {
	id        int
	in        chan model.Candle
	mu        sync.Mutex
	batteries map[string]*indicator.Battery // keyed by "exchange:symbol"
}

// Engine consumes sealed 1m candles and runs the analytical path. One
// router goroutine hashes symbols onto shard workers; each worker
// processes its symbols' candles in arrival order.
type Engine struct {
	cfg    Config
	cat    *oicat.Categorizer
	board  *market.Board
	scorer Scorer
	store  Store
	hot    Hot
	disp   Submitter
	met    *metrics.Metrics

	shards []*shard
}

// New creates an Engine with cfg.Shards workers.
func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		cat:    deps.Categorizer,
		board:  deps.Board,
		scorer: deps.Scorer,
		store:  deps.Store,
		hot:    deps.Hot,
		disp:   deps.Dispatcher,
		met:    deps.Metrics,
	}
	for i := 0; i < cfg.Shards; i++ {
		e.shards = append(e.shards, &shard{
			id:        i,
			in:        make(chan model.Candle, cfg.ShardBuffer),
			batteries: make(map[string]*indicator.Battery),
		})
	}
	return e
}

// Run starts the shard workers and routes candles until ctx is
// cancelled or candleCh closes. Whatever is queued on the shards is
// fully processed before Run returns, and a final checkpoint is
// written after the last battery update.
func (e *Engine) Run(ctx context.Context, candleCh <-chan model.Candle) {
	var wg sync.WaitGroup
	for _, s := range e.shards {
		wg.Add(1)
		go func(s *shard) {
			defer wg.Done()
			e.runShard(ctx, s)
		}(s)
	}
	log.Printf("[engine] %d shards running, checkpoint every %s", len(e.shards), e.cfg.CheckpointEvery)

	ticker := time.NewTicker(e.cfg.CheckpointEvery)
	defer ticker.Stop()

route:
	for {
		select {
		case <-ctx.Done():
			break route
		case <-ticker.C:
			e.saveCheckpoint()
		case c, ok := <-candleCh:
			if !ok {
				break route
			}
			s := e.shards[shardOf(c.Symbol, len(e.shards))]
			select {
			case s.in <- c:
			case <-ctx.Done():
				break route
			}
		}
	}

	for _, s := range e.shards {
		close(s.in)
	}
	wg.Wait()
	e.saveCheckpoint()
	log.Printf("[engine] drained")
}

// runShard processes the shard queue until it closes. Candles still
// queued after cancellation flow through on detached write contexts.
func (e *Engine) runShard(ctx context.Context, s *shard) {
	for c := range s.in {
		e.process(ctx, s, c)
	}
}

// process runs one sealed candle through categorization, the battery,
// the board, regime classification, persistence and scoring.
func (e *Engine) process(ctx context.Context, s *shard, c model.Candle) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), drainWriteTimeout)
		defer cancel()
	}

	// The VIX symbol only moves the board's volatility gauge. It gets
	// no battery, no snapshot and no alerts.
	if e.cfg.VIXSymbol != "" && c.Symbol == e.cfg.VIXSymbol {
		if e.board != nil {
			e.board.ObserveVIX(c)
		}
		return
	}

	oiCat := model.OINeutral
	if e.cat != nil {
		if cat, ok := e.cat.Categorize(c); ok {
			oiCat = cat
			if e.store != nil {
				if err := e.store.WriteOICategory(ctx, c.Symbol, c.Minute(), cat); err != nil {
					log.Printf("[engine] oi category write %s: %v", c.Symbol, err)
				}
			}
		}
	}

	start := time.Now()
	key := c.Key()
	s.mu.Lock()
	b := s.batteries[key]
	if b == nil {
		b = indicator.NewBattery(c.Symbol, c.Exchange, e.cfg.Battery)
		s.batteries[key] = b
	}
	snap := b.Update(c)
	s.mu.Unlock()

	snap.Regime, snap.RegimeConf = regime.Classify(snap, e.cfg.Regime)
	if e.met != nil {
		e.met.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		e.met.SnapshotsTotal.Inc()
	}

	// Post the vote before assembling the view so a symbol's own
	// minute is part of its sector and index tallies.
	if e.board != nil {
		e.board.Post(c.Symbol, c.TS, snap.NetVote())
	}

	if e.store != nil {
		if err := e.store.WriteSnapshot(ctx, snap); err != nil {
			log.Printf("[engine] snapshot write %s: %v", c.Symbol, err)
		}
	}
	if e.hot != nil {
		if err := e.hot.WriteSnapshot(snap); err != nil {
			log.Printf("[engine] snapshot cache %s: %v", c.Symbol, err)
		}
	}

	e.score(ctx, c, oiCat, snap)
}

// score assembles the alert context, grades it and routes the result:
// SKIP leaves no trace, B persists, A and A+ persist and dispatch.
func (e *Engine) score(ctx context.Context, c model.Candle, oiCat model.OICategory, snap *model.Snapshot) {
	if e.scorer == nil {
		return
	}

	var view market.View
	if e.board != nil {
		view = e.board.ViewFor(c.Symbol, c.TS)
	}
	actx := model.AlertContext{
		Symbol:     c.Symbol,
		Exchange:   c.Exchange,
		TS:         c.TS,
		Close:      c.Close,
		OICategory: oiCat,
		DepthBias:  market.DepthBiasOf(c, e.cfg.Depth),
		Sector:     view.Sector,
		SectorBias: view.SectorBias,
		IndexBias:  view.IndexBias,
		VIX:        view.VIX,
		Regime:     snap.Regime,
		Snapshot:   snap,
	}

	alert, ok := e.scorer.Score(actx)
	if !ok {
		return
	}
	if e.met != nil {
		e.met.AlertsTotal.WithLabelValues(string(alert.Grade)).Inc()
	}
	log.Printf("[engine] %s %s graded %s conf=%.1f action=%s",
		alert.Symbol, alert.TS.Format("15:04"), alert.Grade, alert.Confidence, alert.Action)

	if e.store != nil {
		if err := e.store.WriteAlert(ctx, alert); err != nil {
			log.Printf("[engine] alert write %s: %v", alert.Symbol, err)
		}
	}
	if e.hot != nil {
		if err := e.hot.AppendAlert(alert); err != nil {
			log.Printf("[engine] alert cache %s: %v", alert.Symbol, err)
		}
	}

	if e.disp != nil && alert.Dispatchable() {
		if err := e.disp.Submit(ctx, alert); err != nil {
			log.Printf("[engine] dispatch submit %s: %v", alert.Symbol, err)
		}
	}
}

// shardOf maps a symbol to its owning shard with FNV-1a.
func shardOf(symbol string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(n))
}

// ShardStat is one shard queue's occupancy sample.
type ShardStat struct {
	Len int
	Cap int
}

// ShardStats samples every shard queue, for saturation gauges.
func (e *Engine) ShardStats() []ShardStat {
	stats := make([]ShardStat, len(e.shards))
	for i, s := range e.shards {
		stats[i] = ShardStat{Len: len(s.in), Cap: cap(s.in)}
	}
	return stats
}

// TrackedSymbols returns how many symbols currently hold battery state.
func (e *Engine) TrackedSymbols() int {
	n := 0
	for _, s := range e.shards {
		s.mu.Lock()
		n += len(s.batteries)
		s.mu.Unlock()
	}
	return n
}
