// cmd/queryapi serves the read-only HTTP query surface over the State
// Store: candles, resampled candles, snapshots, alerts, regime and
// session levels. Run it next to a live alertengine (both backends
// tolerate concurrent readers) or against an offline database copy.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alert-systemv1/config"
	"alert-systemv1/internal/api"
	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/metrics"
	"alert-systemv1/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	configPath := flag.String("config", "", "path to config.yaml (default: $CONFIG_PATH or config.yaml)")
	addr := flag.String("addr", "", "listen address (default: api.addr from config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[queryapi] config: %v", err)
	}
	logger.Init("queryapi", cfg.Log.Level, cfg.Log.Format)

	listenAddr := cfg.API.Addr
	if *addr != "" {
		listenAddr = *addr
	}

	st, err := store.Open(store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLite.Path,
		PostgresDSN: cfg.Store.Postgres.DSN,
		BatchSize:   cfg.Store.BatchSize,
		FlushDelay:  cfg.Store.FlushDelay.Std(),
	})
	if err != nil {
		log.Fatalf("[queryapi] store open failed: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the store matters for this binary's health; the pipeline
	// flags /healthz also checks have no meaning here and stay up.
	health := metrics.NewHealthStatus()
	health.SetFeedConnected(true)
	health.SetEngineOK(true)
	health.SetDispatcherOK(true)
	health.SetStoreOK(true)
	health.StartLivenessChecker(ctx, nil, st.DB(), 10*time.Second)

	handler := api.NewHandler(st, health)
	handler.Instruments = cfg.InstrumentList()
	apiSrv := api.NewServer(listenAddr, handler)
	apiSrv.Start()
	log.Printf("[queryapi] ✅ serving %s store on %s", cfg.Store.Backend, listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[queryapi] shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	log.Println("[queryapi] shutdown complete.")
}
