package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the alert engine.
type Metrics struct {
	TicksTotal   prometheus.Counter
	DroppedTicks prometheus.Counter
	LateTicks    prometheus.Counter
	CandlesTotal prometheus.Counter

	// Resampler metrics
	ResampledTotal *prometheus.CounterVec // labels: tf

	// Indicator pass metrics
	SnapshotsTotal      prometheus.Counter
	IndicatorComputeDur prometheus.Histogram

	// Alert metrics
	AlertsTotal     *prometheus.CounterVec // labels: grade
	SuppressedTotal *prometheus.CounterVec // labels: reason
	DispatchTotal   *prometheus.CounterVec // labels: channel, result
	DispatchDur     prometheus.Histogram

	// Ring buffer overflow
	RingBufOverflow prometheus.Counter

	// Backpressure metrics
	ChannelSaturationPct *prometheus.GaugeVec // labels: channel_name

	// Store metrics
	RedisWriteDur    prometheus.Histogram
	DBCommitDur      prometheus.Histogram
	CheckpointsTotal prometheus.Counter

	// Circuit breaker metrics
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter

	// Market session state
	MarketState        prometheus.Gauge       // 0=closed, 1=open
	SessionTransitions *prometheus.CounterVec // labels: type=open|close|feed_disconnect

	// Supervised stage restarts
	StageRestarts *prometheus.CounterVec // labels: stage
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_ticks_total",
			Help: "Total ticks received from the feed",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_dropped_ticks_total",
			Help: "Ticks dropped at the ingest ring buffer",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_late_ticks_total",
			Help: "Ticks rejected because their minute was already sealed",
		}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_candles_total",
			Help: "Total 1m candles sealed",
		}),

		ResampledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_resampled_candles_total",
			Help: "Resampled candles finalized (by timeframe)",
		}, []string{"tf"}),

		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_snapshots_total",
			Help: "Indicator snapshots produced",
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_indicator_compute_duration_seconds",
			Help:    "Indicator battery latency per candle",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_alerts_total",
			Help: "Alerts graded (by grade)",
		}, []string{"grade"}),
		SuppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_alerts_suppressed_total",
			Help: "Alerts suppressed before dispatch (dedup, cooldown)",
		}, []string{"reason"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_dispatch_total",
			Help: "Channel delivery outcomes (by channel and result)",
		}, []string{"channel", "result"}),
		DispatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_dispatch_duration_seconds",
			Help:    "Per-channel delivery latency including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped ticks)",
		}),

		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alertengine_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		DBCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_db_commit_duration_seconds",
			Help:    "State store batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		CheckpointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_checkpoints_total",
			Help: "Indicator state checkpoints written",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_redis_buffered_writes_total",
			Help: "Writes buffered locally during Redis circuit breaker open state",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_session_transitions_total",
			Help: "Market session transitions (open, close, feed_disconnect)",
		}, []string{"type"}),

		StageRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_stage_restarts_total",
			Help: "Supervised stage restarts (by stage)",
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.DroppedTicks,
		m.LateTicks,
		m.CandlesTotal,
		m.ResampledTotal,
		m.SnapshotsTotal,
		m.IndicatorComputeDur,
		m.AlertsTotal,
		m.SuppressedTotal,
		m.DispatchTotal,
		m.DispatchDur,
		m.RingBufOverflow,
		m.ChannelSaturationPct,
		m.RedisWriteDur,
		m.DBCommitDur,
		m.CheckpointsTotal,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
		m.MarketState,
		m.SessionTransitions,
		m.StageRestarts,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool      `json:"feed_connected"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	StoreOK        bool      `json:"store_ok"`
	EngineOK       bool      `json:"engine_ok"`
	DispatcherOK   bool      `json:"dispatcher_ok"`

	// Liveness probe results
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	StoreLatencyMs float64   `json:"store_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`

	// Per-stage supervisor state, keyed by stage name.
	Stages map[string]StageHealth `json:"stages,omitempty"`
}

// StageHealth is one supervised stage's state as shown on /healthz.
type StageHealth struct {
	Up        bool   `json:"up"`
	Restarts  int    `json:"restarts"`
	LastError string `json:"last_error,omitempty"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetStoreOK(v bool) {
	h.mu.Lock()
	h.StoreOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetEngineOK(v bool) {
	h.mu.Lock()
	h.EngineOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetDispatcherOK(v bool) {
	h.mu.Lock()
	h.DispatcherOK = v
	h.mu.Unlock()
}

// SetStage records a supervised stage's state for /healthz.
func (h *HealthStatus) SetStage(name string, up bool, restarts int, lastError string) {
	h.mu.Lock()
	if h.Stages == nil {
		h.Stages = make(map[string]StageHealth)
	}
	h.Stages[name] = StageHealth{Up: up, Restarts: restarts, LastError: lastError}
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckStore pings the relational store and records latency + health.
// Works for both SQLite and Postgres backends.
func (h *HealthStatus) CheckStore(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckStore(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.FeedConnected || !h.StoreOK || !h.EngineOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.StoreOK && !h.EngineOK {
		overallStatus = "unhealthy"
	}

	// Tick age
	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status         string                 `json:"status"`
		Uptime         string                 `json:"uptime"`
		FeedConnected  bool                   `json:"feed_connected"`
		LastTickTime   string                 `json:"last_tick_time"`
		TickAge        string                 `json:"tick_age"`
		RedisConnected bool                   `json:"redis_connected"`
		RedisLatencyMs float64                `json:"redis_latency_ms"`
		StoreOK        bool                   `json:"store_ok"`
		StoreLatencyMs float64                `json:"store_latency_ms"`
		EngineOK       bool                   `json:"engine_ok"`
		DispatcherOK   bool                   `json:"dispatcher_ok"`
		LastCheckAt    string                 `json:"last_check_at"`
		Stages         map[string]StageHealth `json:"stages,omitempty"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected:  h.FeedConnected,
		LastTickTime:   h.LastTickTime.Format(time.RFC3339),
		TickAge:        tickAge,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		StoreOK:        h.StoreOK,
		StoreLatencyMs: h.StoreLatencyMs,
		EngineOK:       h.EngineOK,
		DispatcherOK:   h.DispatcherOK,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
		Stages:         h.Stages,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
