// alertengine is the full pipeline binary: tick feed → ring buffer →
// 1m aggregation → fan-out → sharded analytics (OI categorization,
// indicator battery, regime, scoring) → dispatch, with SQLite/Postgres
// persistence, the Redis hot cache and the query API in one process.
//
// Shutdown is a staged drain. The signal stops the sources first; the
// ring pump then seals the tick channel, the aggregator flushes its
// open buckets, the fan-out closes its subscribers and the engine
// finishes whatever its shards had queued, ending with a final state
// checkpoint. Only then is the dispatcher cancelled so its queue gets
// one last single-attempt flush, and the stores close after that. A
// pipeline that cannot drain within the grace period is stopped hard.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"alert-systemv1/config"
	"alert-systemv1/internal/api"
	"alert-systemv1/internal/bus"
	"alert-systemv1/internal/candle"
	"alert-systemv1/internal/dispatch"
	"alert-systemv1/internal/engine"
	"alert-systemv1/internal/feed"
	"alert-systemv1/internal/indicator"
	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/market"
	"alert-systemv1/internal/markethours"
	"alert-systemv1/internal/metrics"
	"alert-systemv1/internal/model"
	"alert-systemv1/internal/notification"
	"alert-systemv1/internal/oicat"
	"alert-systemv1/internal/regime"
	"alert-systemv1/internal/resample"
	"alert-systemv1/internal/ringbuf"
	"alert-systemv1/internal/scorer"
	"alert-systemv1/internal/store"
	redisstore "alert-systemv1/internal/store/redis"
	"alert-systemv1/internal/supervisor"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	configPath := flag.String("config", "", "path to config.yaml (default: $CONFIG_PATH or config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[alertengine] config: %v", err)
	}

	zlog := logger.Init("alertengine", cfg.Log.Level, cfg.Log.Format)
	zlog.Info().
		Str("environment", cfg.Environment).
		Str("feed", cfg.Feed.Source).
		Str("store", cfg.Store.Backend).
		Int("instruments", len(cfg.Instruments)).
		Int("rules", len(cfg.Rules)).
		Msg("starting")

	// ---- Shutdown contexts ----
	// pipeCtx keeps the pipeline alive while it drains; feedCtx stops
	// the sources first so the drain has a bounded tail. The dispatcher
	// gets its own context because it must outlive the pipeline to
	// flush alerts the engine queued on its way out.
	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	defer pipeCancel()
	feedCtx, feedCancel := context.WithCancel(pipeCtx)
	defer feedCancel()
	dispCtx, dispCancel := context.WithCancel(context.Background())
	defer dispCancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startCancel()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.Metrics.Addr, health)
	metricsSrv.Start()

	// ---- Relational store ----
	if cfg.Store.Backend != "postgres" {
		os.MkdirAll(filepath.Dir(cfg.Store.SQLite.Path), 0o755)
	}
	st, err := store.Open(store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLite.Path,
		PostgresDSN: cfg.Store.Postgres.DSN,
		BatchSize:   cfg.Store.BatchSize,
		FlushDelay:  cfg.Store.FlushDelay.Std(),
		OnCommit: func(rows int, d time.Duration) {
			prom.DBCommitDur.Observe(d.Seconds())
		},
	})
	if err != nil {
		log.Fatalf("[alertengine] store init failed: %v", err)
	}
	health.SetStoreOK(true)
	log.Printf("[alertengine] %s store ready", cfg.Store.Backend)

	// ---- Redis hot cache (optional) ----
	var (
		hot *redisstore.Hot
		bw  *redisstore.BufferedWriter
	)
	if !cfg.Redis.Disabled {
		hot, err = redisstore.New(redisstore.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			StreamMaxLen: cfg.Redis.StreamMaxLen,
		})
		if err != nil {
			log.Printf("[alertengine] WARNING: redis init failed: %v (continuing without hot cache)", err)
			health.SetRedisConnected(false)
			hot = nil
		} else {
			health.SetRedisConnected(true)
			cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
			cb.OnStateChange = func(from, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
				log.Printf("[alertengine] redis circuit %s -> %s", from, to)
			}
			bw = redisstore.NewBufferedWriter(pipeCtx, hot, cb, 10000)
			bw.OnBuffer = func() { prom.RedisBufferedWrites.Inc() }
			bw.OnFlush = func(count int) { log.Printf("[alertengine] redis buffer replayed %d writes", count) }
			log.Println("[alertengine] redis hot cache ready")
		}
	}

	// ---- Periodic liveness checks ----
	if hot != nil {
		health.StartLivenessChecker(pipeCtx, hot.Client(), st.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(pipeCtx, nil, st.DB(), 10*time.Second)
	}

	// ---- Notification channels ----
	var channels []notification.Channel
	if cfg.Channels.Telegram.Enabled {
		channels = append(channels, notification.NewTelegramChannel(cfg.Channels.Telegram.BotToken, cfg.Channels.Telegram.ChatID))
		log.Println("[alertengine] telegram channel enabled")
	}
	if cfg.Channels.Webhook.Enabled {
		channels = append(channels, notification.NewWebhookChannel(cfg.Channels.Webhook.URL))
		log.Println("[alertengine] webhook channel enabled")
	}
	var (
		wsf     *notification.WSFeed
		feedSrv *http.Server
	)
	if cfg.Channels.WSFeed.Enabled {
		wsf = notification.NewWSFeed(cfg.Channels.WSFeed.Replay)
		if hot != nil {
			// Reseed the replay window so clients joining right after a
			// restart still get the recent history.
			if recent, err := hot.RecentAlerts(startCtx, int64(cfg.Channels.WSFeed.Replay)); err != nil {
				log.Printf("[alertengine] wsfeed reseed: %v", err)
			} else {
				for i := range recent {
					wsf.Send(startCtx, &recent[i])
				}
				if len(recent) > 0 {
					log.Printf("[alertengine] wsfeed replay reseeded with %d alerts", len(recent))
				}
			}
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", wsf.Handler())
		feedSrv = &http.Server{Addr: cfg.Channels.WSFeed.Addr, Handler: mux}
		channels = append(channels, wsf)
		log.Printf("[alertengine] wsfeed channel enabled on %s", cfg.Channels.WSFeed.Addr)
	}
	if len(channels) == 0 {
		log.Println("[alertengine] no notification channels enabled, alerts go to the log")
		channels = append(channels, notification.NewLogChannel())
	}

	// ---- Dispatcher ----
	os.MkdirAll(filepath.Dir(cfg.Dispatch.JournalPath), 0o755)
	journal, err := dispatch.OpenJournal(cfg.Dispatch.JournalPath)
	if err != nil {
		log.Fatalf("[alertengine] dispatch journal: %v", err)
	}
	defer journal.Close()

	disp := dispatch.New(dispatch.Config{
		Queue:         cfg.Dispatch.Queue,
		Cooldown:      cfg.Dispatch.Cooldown.Std(),
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		BackoffBase:   cfg.Dispatch.BackoffBase.Std(),
		BackoffFactor: cfg.Dispatch.BackoffFactor,
		BackoffMax:    cfg.Dispatch.BackoffMax.Std(),
	}, channels, st, journal, prom)

	var dispWG sync.WaitGroup
	dispWG.Add(1)
	go func() {
		defer dispWG.Done()
		disp.Run(dispCtx)
	}()
	health.SetDispatcherOK(true)

	// ---- Analytical path ----
	board := market.NewBoard(market.BoardConfig{
		SectorAgreePct: cfg.Market.SectorAgreePct,
		IndexAgreePct:  cfg.Market.IndexAgreePct,
		SectorOf:       cfg.SectorMap(),
		Groups:         boardGroups(cfg.Market.IndexGroups),
		VIX:            market.VIXThresholds{Low: cfg.VIX.Low, Normal: cfg.VIX.Normal, High: cfg.VIX.High},
	})

	battery := indicator.DefaultBatteryConfig()
	battery.CrossFast = cfg.Indicators.CrossFast
	battery.CrossSlow = cfg.Indicators.CrossSlow
	battery.SpikeRatio = cfg.Indicators.VolumeSpikeRatio
	battery.ADXTrend = cfg.Regime.ADXTrend
	battery.ATRRatio = cfg.Regime.ATRHighVol

	var engHot engine.Hot
	if bw != nil {
		engHot = &timedHot{inner: bw, dur: prom.RedisWriteDur}
	}

	eng := engine.New(engine.Config{
		Shards:          cfg.Pipeline.Shards,
		ShardBuffer:     cfg.Pipeline.ShardBuffer,
		CheckpointEvery: cfg.Pipeline.CheckpointEvery.Std(),
		VIXSymbol:       cfg.VIX.Symbol,
		Battery:         battery,
		Regime:          regime.Thresholds{ADXTrend: cfg.Regime.ADXTrend, ATRRatio: cfg.Regime.ATRHighVol},
		Depth: market.DepthThresholds{
			BuyerRatio:        cfg.Depth.BuyerRatio,
			SellerRatio:       cfg.Depth.SellerRatio,
			MinOrderImbalance: cfg.Depth.MinOrderImbalance,
		},
	}, engine.Deps{
		Categorizer: oicat.New(cfg.FuturesMap()),
		Board:       board,
		Scorer:      scorer.New(cfg.Scoring, cfg.Rules),
		Store:       st,
		Hot:         engHot,
		Dispatcher:  disp,
		Metrics:     prom,
	})

	// ---- Restore engine state (hot cache first, store fallback) ----
	var cpSources []engine.CheckpointSource
	if hot != nil {
		cpSources = append(cpSources, hot.LatestCheckpoint)
	}
	cpSources = append(cpSources, func(context.Context) ([]byte, error) {
		return st.ReadLatestCheckpointJSON()
	})
	if _, err := eng.RestoreFrom(startCtx, cpSources...); err != nil {
		log.Printf("[alertengine] checkpoint restore: %v (starting cold)", err)
	}

	// ---- Pipeline channels ----
	ring := ringbuf.New(cfg.Feed.RingSize)
	tickCh := make(chan model.Tick, 1024)
	candleCh := make(chan model.Candle, cfg.Pipeline.CandleBuffer)
	sealedCh := make(chan model.Candle, cfg.Pipeline.CandleBuffer)

	var stageWG sync.WaitGroup

	// ---- Aggregator (1m OHLC builder) ----
	agg := candle.New()
	agg.FlushGrace = cfg.Pipeline.FlushGrace.Std()
	agg.SweepEvery = cfg.Pipeline.FlushSweep.Std()
	agg.OnLateTick = func(string) { prom.LateTicks.Inc() }
	agg.OnMalformedTick = func(string) { prom.DroppedTicks.Inc() }
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		agg.Run(pipeCtx, tickCh, candleCh)
	}()

	// Count sealed candles on their way to the fan-out.
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		defer close(sealedCh)
		for {
			select {
			case <-pipeCtx.Done():
				return
			case c, ok := <-candleCh:
				if !ok {
					return
				}
				prom.CandlesTotal.Inc()
				select {
				case sealedCh <- c:
				case <-pipeCtx.Done():
					return
				}
			}
		}
	}()

	// ---- Fan-out: engine, resampler, store, hot cache ----
	fanout := bus.New(cfg.Pipeline.CandleBuffer)
	fanout.OnBlocked = func(idx int) {
		prom.ChannelSaturationPct.WithLabelValues("fanout_" + strconv.Itoa(idx)).Set(100)
	}
	engineIn := fanout.Subscribe()
	resampleIn := fanout.Subscribe()
	storeIn := fanout.Subscribe()
	var hotIn <-chan model.Candle
	if bw != nil {
		hotIn = fanout.Subscribe()
	}
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		fanout.Run(pipeCtx, sealedCh)
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-pipeCtx.Done():
				return
			case <-ticker.C:
				for i, s := range fanout.ChannelStats() {
					if s.Cap > 0 {
						pct := float64(s.Len) / float64(s.Cap) * 100
						prom.ChannelSaturationPct.WithLabelValues("fanout_" + strconv.Itoa(i)).Set(pct)
					}
				}
			}
		}
	}()

	// ---- Engine ----
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		defer health.SetEngineOK(false)
		health.SetEngineOK(true)
		eng.Run(pipeCtx, engineIn)
	}()

	// ---- Resampler + TF persistence ----
	rs := resample.New(cfg.Pipeline.ResampleTFs)
	rs.OnTFCandle = func(c model.TFCandle) {
		prom.ResampledTotal.WithLabelValues(strconv.Itoa(c.TF)).Inc()
	}
	tfCh := make(chan model.TFCandle, cfg.Pipeline.CandleBuffer)
	tfStoreCh := make(chan model.TFCandle, cfg.Pipeline.CandleBuffer)
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		rs.Run(pipeCtx, resampleIn, tfCh)
	}()
	if bw != nil {
		stageWG.Add(1)
		go func() {
			defer stageWG.Done()
			bw.RunTFCandles(pipeCtx, tfCh, tfStoreCh)
		}()
	} else {
		// No hot cache: strip forming snapshots here so the store only
		// sees finalized buckets.
		stageWG.Add(1)
		go func() {
			defer stageWG.Done()
			defer close(tfStoreCh)
			for {
				select {
				case <-pipeCtx.Done():
					return
				case c, ok := <-tfCh:
					if !ok {
						return
					}
					if c.Forming {
						continue
					}
					select {
					case tfStoreCh <- c:
					case <-pipeCtx.Done():
						return
					}
				}
			}
		}()
	}
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		st.RunTFCandles(pipeCtx, tfStoreCh)
	}()

	// ---- Candle persistence ----
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		st.Run(pipeCtx, storeIn)
	}()
	if bw != nil {
		stageWG.Add(1)
		go func() {
			defer stageWG.Done()
			bw.Run(pipeCtx, hotIn)
		}()
	}

	// ---- Feed source under the supervisor ----
	src, err := buildSource(cfg, prom, health)
	if err != nil {
		log.Fatalf("[alertengine] feed init failed: %v", err)
	}

	sup := supervisor.New(supervisor.Config{})
	sup.OnStageUp = func(name string, restarts int) {
		health.SetStage(name, true, restarts, "")
	}
	sup.OnStageDown = func(name string, restarts int, err error) {
		if err != nil {
			prom.StageRestarts.WithLabelValues(name).Inc()
			health.SetStage(name, false, restarts, err.Error())
			return
		}
		health.SetStage(name, false, restarts, "")
	}
	sup.Add("feed", func(ctx context.Context) error {
		health.SetFeedConnected(true)
		defer health.SetFeedConnected(false)
		return src.Run(ctx, ring)
	})
	if feedSrv != nil {
		srv := feedSrv
		sup.Add("alertfeed", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shCtx, shCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer shCancel()
				srv.Shutdown(shCtx)
			}()
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	sup.Start(feedCtx)
	feedDone := make(chan struct{})
	go func() {
		sup.Wait()
		close(feedDone)
	}()

	// ---- Ring pump: the single consumer of the tick ring ----
	// When the sources retire it drains the remainder and closes the
	// tick channel, which starts the aggregator's sealing flush.
	stageWG.Add(1)
	go func() {
		defer stageWG.Done()
		defer close(tickCh)
		for {
			t, ok := ring.Pop()
			if !ok {
				select {
				case <-pipeCtx.Done():
					return
				case <-feedDone:
					for {
						t, ok := ring.Pop()
						if !ok {
							return
						}
						select {
						case tickCh <- t:
						case <-pipeCtx.Done():
							return
						}
					}
				case <-time.After(time.Millisecond):
				}
				continue
			}
			select {
			case tickCh <- t:
			case <-pipeCtx.Done():
				return
			}
		}
	}()

	// ---- Session tracker ----
	go trackSession(pipeCtx, prom)

	// ---- Query API ----
	handler := api.NewHandler(st, health)
	handler.Instruments = cfg.InstrumentList()
	apiSrv := api.NewServer(cfg.API.Addr, handler)
	apiSrv.Start()

	log.Println("[alertengine] ╔════════════════════════════════════════════════════════════════╗")
	log.Println("[alertengine] ║  Alert Engine                                                  ║")
	log.Println("[alertengine] ║                                                                ║")
	log.Println("[alertengine] ║  [Feed] → [Ring] → [1m Agg] → [Shards: OI · Battery · Regime]  ║")
	log.Println("[alertengine] ║         → [Scorer] → [Dispatch]    [Resample] → [Store/Redis]  ║")
	log.Printf("[alertengine] ║  feed=%-7s store=%-9s instruments=%-4d shards=%-9d ║",
		cfg.Feed.Source, cfg.Store.Backend, len(cfg.Instruments), cfg.Pipeline.Shards)
	log.Printf("[alertengine] ║  api=%-10s metrics=%-10s tfs=%-21v ║",
		cfg.API.Addr, cfg.Metrics.Addr, cfg.Pipeline.ResampleTFs)
	log.Println("[alertengine] ╚════════════════════════════════════════════════════════════════╝")
	log.Printf("[alertengine] ✅ pipeline ready. %s", markethours.StatusString(time.Now()))

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[alertengine] shutdown signal received, draining...")

	feedCancel()
	if !waitTimeout(&stageWG, cfg.Pipeline.DrainGracePeriod.Std()) {
		log.Println("[alertengine] drain grace exceeded, forcing pipeline stop")
		pipeCancel()
		waitTimeout(&stageWG, 5*time.Second)
	}

	// Pipeline is drained; release the dispatcher for its final flush.
	dispCancel()
	if !waitTimeout(&dispWG, 15*time.Second) {
		log.Println("[alertengine] dispatcher flush timed out")
	}
	health.SetDispatcherOK(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	if wsf != nil {
		wsf.Close()
	}
	if err := st.Close(); err != nil {
		log.Printf("[alertengine] store close: %v", err)
	}
	if hot != nil {
		hot.Close()
	}
	log.Println("[alertengine] shutdown complete.")
}

// buildSource constructs the configured tick source with its metric
// hooks attached.
func buildSource(cfg *config.Config, prom *metrics.Metrics, health *metrics.HealthStatus) (feed.Source, error) {
	onTick := func(model.Tick) {
		prom.TicksTotal.Inc()
		health.SetLastTickTime(time.Now())
	}
	onDrop := func() {
		prom.DroppedTicks.Inc()
		prom.RingBufOverflow.Inc()
	}

	switch cfg.Feed.Source {
	case "kafka":
		src, err := feed.NewKafkaSource(feed.KafkaConfig{
			Brokers:    cfg.Feed.Kafka.Brokers,
			Topic:      cfg.Feed.Kafka.Topic,
			GroupID:    cfg.Feed.Kafka.GroupID,
			Workers:    cfg.Feed.Kafka.Workers,
			BufferSize: cfg.Feed.Kafka.BufferSize,
			RetryMax:   cfg.Feed.Kafka.RetryMax,
			BackoffMin: cfg.Feed.Kafka.BackoffMin.Std(),
			BackoffMax: cfg.Feed.Kafka.BackoffMax.Std(),
			MinBytes:   cfg.Feed.Kafka.MinBytes,
			MaxBytes:   cfg.Feed.Kafka.MaxBytes,
		})
		if err != nil {
			return nil, err
		}
		src.OnTick = onTick
		src.OnDrop = onDrop
		return src, nil
	default:
		src, err := feed.NewWSSource(feed.WSConfig{
			URL:               cfg.Feed.WS.URL,
			ReconnectDelay:    cfg.Feed.WS.ReconnectDelay.Std(),
			MaxReconnectDelay: cfg.Feed.WS.MaxReconnectDelay.Std(),
		})
		if err != nil {
			return nil, err
		}
		src.OnReconnect = func() {
			prom.SessionTransitions.WithLabelValues("feed_disconnect").Inc()
			health.SetFeedConnected(false)
		}
		src.OnTick = func(t model.Tick) {
			onTick(t)
			health.SetFeedConnected(true)
		}
		src.OnDrop = onDrop
		return src, nil
	}
}

// trackSession mirrors the IST trading session onto the market state
// gauge and logs transitions. The pipeline itself runs around the
// clock; this only annotates.
func trackSession(ctx context.Context, prom *metrics.Metrics) {
	open := markethours.IsMarketOpen(time.Now())
	setMarketState(prom, open)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cur := markethours.IsMarketOpen(now)
			if cur == open {
				continue
			}
			open = cur
			setMarketState(prom, open)
			if open {
				prom.SessionTransitions.WithLabelValues("open").Inc()
				log.Printf("[alertengine] ▶ session open. %s", markethours.StatusString(now))
			} else {
				prom.SessionTransitions.WithLabelValues("close").Inc()
				log.Printf("[alertengine] ⏸ session closed. %s", markethours.StatusString(now))
			}
		}
	}
}

func setMarketState(prom *metrics.Metrics, open bool) {
	if open {
		prom.MarketState.Set(1)
	} else {
		prom.MarketState.Set(0)
	}
}

func boardGroups(groups []config.IndexGroup) []market.IndexGroup {
	out := make([]market.IndexGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, market.IndexGroup{Name: g.Name, Symbols: g.Symbols, Weight: g.Weight})
	}
	return out
}

// waitTimeout waits for wg up to d. Reports whether the group finished.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// timedHot wraps the hot-cache sink the engine writes through and
// observes each write's latency.
type timedHot struct {
	inner engine.Hot
	dur   prometheus.Histogram
}

func (t *timedHot) WriteSnapshot(snap *model.Snapshot) error {
	start := time.Now()
	err := t.inner.WriteSnapshot(snap)
	t.dur.Observe(time.Since(start).Seconds())
	return err
}

func (t *timedHot) AppendAlert(a *model.Alert) error {
	start := time.Now()
	err := t.inner.AppendAlert(a)
	t.dur.Observe(time.Since(start).Seconds())
	return err
}

func (t *timedHot) SaveCheckpoint(data []byte) error {
	start := time.Now()
	err := t.inner.SaveCheckpoint(data)
	t.dur.Observe(time.Since(start).Seconds())
	return err
}
