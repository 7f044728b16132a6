package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alert-systemv1/internal/levels"
	"alert-systemv1/internal/markethours"
	"alert-systemv1/internal/metrics"
	"alert-systemv1/internal/model"
)

// Queries is the read surface the handlers need from the store.
type Queries interface {
	ReadCandles(symbol string, afterTS int64, limit int) ([]model.Candle, error)
	ReadTFCandles(symbol string, tf int, afterTS int64, limit int) ([]model.TFCandle, error)
	LatestCandle(symbol string) (*model.Candle, error)
	ReadAlertsSince(since int64, limit int) ([]model.Alert, error)
	LatestSnapshot(symbol string) (*model.Snapshot, error)
}

// sessionCandleCap bounds one session's 1m rows (375 trading minutes,
// rounded up). The levels endpoint reads two sessions' worth.
const sessionCandleCap = 400

// Handler serves the query routes.
type Handler struct {
	store  Queries
	health *metrics.HealthStatus
	now    func() time.Time

	// Instruments is the static instrument universe served by
	// /api/v1/instruments.
	Instruments []model.Instrument
}

// NewHandler builds a handler over the store's read surface. health may
// be nil; the /healthz route is skipped then.
func NewHandler(store Queries, health *metrics.HealthStatus) *Handler {
	return &Handler{store: store, health: health, now: time.Now}
}

// Register mounts all routes on e.
func (h *Handler) Register(e *echo.Echo) {
	if h.health != nil {
		e.GET("/healthz", echo.WrapHandler(h.health))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	v1.GET("/candles", h.Candles)
	v1.GET("/snapshot/latest", h.SnapshotLatest)
	v1.GET("/alerts", h.Alerts)
	v1.GET("/regime/latest", h.RegimeLatest)
	v1.GET("/levels", h.Levels)
	v1.GET("/instruments", h.InstrumentsList)
}

// queryInt parses a positive query param with a default and an upper cap.
func queryInt(c echo.Context, name string, def, max int) int {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= max {
		return v
	}
	return def
}

// queryInt64 parses a non-negative int64 query param with a default.
func queryInt64(c echo.Context, name string, def int64) int64 {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
		return v
	}
	return def
}

// Candles returns stored candles for a symbol, oldest first. tf=60 (the
// default) reads the 1m base series; higher tfs read the resampled series.
func (h *Handler) Candles(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol is required"})
	}

	tf := queryInt(c, "tf", 60, 86400)
	limit := queryInt(c, "limit", 200, 1000)
	after := queryInt64(c, "after", 0)

	if tf <= 60 {
		rows, err := h.store.ReadCandles(symbol, after, limit)
		if err != nil {
			log.Printf("[api] read candles %s: %v", symbol, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if rows == nil {
			rows = []model.Candle{}
		}
		return c.JSON(http.StatusOK, rows)
	}

	rows, err := h.store.ReadTFCandles(symbol, tf, after, limit)
	if err != nil {
		log.Printf("[api] read tf candles %s tf=%d: %v", symbol, tf, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if rows == nil {
		rows = []model.TFCandle{}
	}
	return c.JSON(http.StatusOK, rows)
}

// SnapshotLatest returns the most recent indicator snapshot for a symbol.
func (h *Handler) SnapshotLatest(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol is required"})
	}

	snap, err := h.store.LatestSnapshot(symbol)
	if err != nil {
		log.Printf("[api] read snapshot %s: %v", symbol, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if snap == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no snapshot for symbol"})
	}
	return c.JSON(http.StatusOK, snap)
}

// Alerts returns stored alerts newest first, optionally bounded below by
// ?since= (Unix seconds).
func (h *Handler) Alerts(c echo.Context) error {
	since := queryInt64(c, "since", 0)
	limit := queryInt(c, "limit", 100, 1000)

	rows, err := h.store.ReadAlertsSince(since, limit)
	if err != nil {
		log.Printf("[api] read alerts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if rows == nil {
		rows = []model.Alert{}
	}
	return c.JSON(http.StatusOK, rows)
}

// RegimeLatest returns the symbol's current regime label with its
// classifier confidence, taken from the latest snapshot.
func (h *Handler) RegimeLatest(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol is required"})
	}

	snap, err := h.store.LatestSnapshot(symbol)
	if err != nil {
		log.Printf("[api] read regime %s: %v", symbol, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if snap == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no regime for symbol"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"symbol":     snap.Symbol,
		"regime":     snap.Regime,
		"confidence": snap.RegimeConf,
		"ts":         snap.TS,
	})
}

// Levels computes pivot, support/resistance, volume profile and
// retracement analytics from the current and prior session's candles.
func (h *Handler) Levels(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol is required"})
	}

	method := levels.PivotMethod(c.QueryParam("method"))

	open := markethours.SessionOpen(h.now())
	prevOpen := previousSessionOpen(open)

	rows, err := h.store.ReadCandles(symbol, prevOpen.Unix()-1, 2*sessionCandleCap)
	if err != nil {
		log.Printf("[api] read levels %s: %v", symbol, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}

	var prior, session []model.Candle
	for _, cd := range rows {
		if cd.TS.Before(open) {
			prior = append(prior, cd)
		} else {
			session = append(session, cd)
		}
	}

	out := levels.Analyze(symbol, prior, session)
	if method != "" {
		if ohlc, ok := levels.SessionOHLC(prior); ok {
			out.Pivots = []levels.Pivots{levels.ComputePivots(ohlc.High, ohlc.Low, ohlc.Close, method)}
		}
	}
	return c.JSON(http.StatusOK, out)
}

// InstrumentsList returns the configured instrument universe,
// optionally filtered by ?type= (EQ, FUT, INDEX) or ?sector=.
func (h *Handler) InstrumentsList(c echo.Context) error {
	typ := c.QueryParam("type")
	sector := c.QueryParam("sector")

	out := make([]model.Instrument, 0, len(h.Instruments))
	for _, in := range h.Instruments {
		if typ != "" && in.InstrumentType != typ {
			continue
		}
		if sector != "" && in.Sector != sector {
			continue
		}
		out = append(out, in)
	}
	return c.JSON(http.StatusOK, out)
}

// previousSessionOpen walks back from open one day at a time until it
// lands on a trading day, bounded so a long exchange closure cannot spin.
func previousSessionOpen(open time.Time) time.Time {
	prev := open.AddDate(0, 0, -1)
	for i := 0; i < 10 && !markethours.IsTradingDay(prev); i++ {
		prev = prev.AddDate(0, 0, -1)
	}
	return markethours.SessionOpen(prev)
}
