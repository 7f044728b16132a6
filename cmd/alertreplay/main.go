// cmd/alertreplay rebuilds derived records by replaying stored 1m
// candles through the analytics stages: OI categorization, the
// indicator battery and regime classification. Run it after a config
// or schema change to re-derive snapshots for history already in the
// store. Store appends are idempotent per (symbol, minute, record)
// key, so re-running a window is safe.
//
// It is not a backtester: no scoring, no alerts, no dispatch. Engine
// state checkpoints are suppressed so a rebuild never overwrites the
// live engine's saved batteries with historical state.
//
// Usage:
//
//	go run ./cmd/alertreplay --config=config.yaml --symbols=RELIANCE,TCS --from=1767000000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"alert-systemv1/config"
	"alert-systemv1/internal/engine"
	"alert-systemv1/internal/indicator"
	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/model"
	"alert-systemv1/internal/oicat"
	"alert-systemv1/internal/regime"
	"alert-systemv1/internal/store"
)

const pageSize = 2000

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	configPath := flag.String("config", "", "path to config.yaml (default: $CONFIG_PATH or config.yaml)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: every configured instrument)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to replay from (0=start of history)")
	toTS := flag.Int64("to", 0, "Unix timestamp to replay to, inclusive (0=end of history)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[alertreplay] config: %v", err)
	}
	logger.Init("alertreplay", cfg.Log.Level, cfg.Log.Format)

	symbols := parseSymbols(*symbolsFlag, cfg)
	if len(symbols) == 0 {
		log.Fatal("[alertreplay] no symbols to replay")
	}

	st, err := store.Open(store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLite.Path,
		PostgresDSN: cfg.Store.Postgres.DSN,
		BatchSize:   cfg.Store.BatchSize,
		FlushDelay:  cfg.Store.FlushDelay.Std(),
	})
	if err != nil {
		log.Fatalf("[alertreplay] store open failed: %v", err)
	}
	defer st.Close()

	battery := indicator.DefaultBatteryConfig()
	battery.CrossFast = cfg.Indicators.CrossFast
	battery.CrossSlow = cfg.Indicators.CrossSlow
	battery.SpikeRatio = cfg.Indicators.VolumeSpikeRatio
	battery.ADXTrend = cfg.Regime.ADXTrend
	battery.ATRRatio = cfg.Regime.ATRHighVol

	eng := engine.New(engine.Config{
		Shards:          cfg.Pipeline.Shards,
		ShardBuffer:     cfg.Pipeline.ShardBuffer,
		CheckpointEvery: time.Hour,
		VIXSymbol:       cfg.VIX.Symbol,
		Battery:         battery,
		Regime:          regime.Thresholds{ADXTrend: cfg.Regime.ADXTrend, ATRRatio: cfg.Regime.ATRHighVol},
	}, engine.Deps{
		Categorizer: oicat.New(cfg.FuturesMap()),
		Store:       &analyticsSink{st: st},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[alertreplay] interrupted, stopping...")
		cancel()
	}()

	candleCh := make(chan model.Candle, 10000)
	done := make(chan struct{})
	go func() {
		eng.Run(ctx, candleCh)
		close(done)
	}()

	start := time.Now()
	total := 0
	replayed := 0

	for _, sym := range symbols {
		n, err := replaySymbol(ctx, st, sym, *fromTS, *toTS, candleCh)
		if err != nil {
			log.Printf("[alertreplay] %s: %v", sym, err)
		}
		total += n
		if n > 0 {
			replayed++
			log.Printf("[alertreplay] %s: %d candles", sym, n)
		}
		if ctx.Err() != nil {
			break
		}
	}

	close(candleCh)
	<-done

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        REBUILD COMPLETE              ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Symbols replayed:  %-16d ║\n", replayed)
	fmt.Printf("║  Candles replayed:  %-16d ║\n", total)
	fmt.Printf("║  Elapsed:           %-16s ║\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}

// replaySymbol pages the symbol's candles through the engine in store
// order. Returns the number of candles sent.
func replaySymbol(ctx context.Context, st store.Store, symbol string, from, to int64, candleCh chan<- model.Candle) (int, error) {
	after := from - 1
	sent := 0
	for {
		rows, err := st.ReadCandles(symbol, after, pageSize)
		if err != nil {
			return sent, err
		}
		if len(rows) == 0 {
			return sent, nil
		}
		for i := range rows {
			if to > 0 && rows[i].TS.Unix() > to {
				return sent, nil
			}
			select {
			case candleCh <- rows[i]:
				sent++
			case <-ctx.Done():
				return sent, nil
			}
		}
		after = rows[len(rows)-1].TS.Unix()
		if len(rows) < pageSize {
			return sent, nil
		}
	}
}

// parseSymbols resolves the replay set: the --symbols flag if given,
// otherwise every configured instrument except the VIX gauge (it has
// no derived records).
func parseSymbols(flagValue string, cfg *config.Config) []string {
	if flagValue != "" {
		var out []string
		for _, p := range strings.Split(flagValue, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	var out []string
	for _, inst := range cfg.Instruments {
		if inst.Symbol == cfg.VIX.Symbol {
			continue
		}
		out = append(out, inst.Symbol)
	}
	return out
}

// analyticsSink passes derived rows through to the store but swallows
// checkpoints, which belong to the live engine alone.
type analyticsSink struct {
	st store.Store
}

func (s *analyticsSink) WriteSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return s.st.WriteSnapshot(ctx, snap)
}

func (s *analyticsSink) WriteOICategory(ctx context.Context, symbol string, minute int64, cat model.OICategory) error {
	return s.st.WriteOICategory(ctx, symbol, minute, cat)
}

func (s *analyticsSink) WriteAlert(ctx context.Context, alert *model.Alert) error {
	return s.st.WriteAlert(ctx, alert)
}

func (s *analyticsSink) SaveCheckpointJSON([]byte) error { return nil }
