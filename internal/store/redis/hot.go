// Package redis is the hot-path cache layered over the relational State
// Store: the latest candle and snapshot per symbol, a trimmed alert
// stream, and the engine checkpoint blob. Everything here is
// best-effort; the relational store stays the source of truth.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"alert-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	latestTTL     = 30 * time.Minute
	checkpointTTL = 24 * time.Hour

	alertStream   = "alerts:stream"
	checkpointKey = "engine:checkpoint"

	defaultStreamMaxLen = 12000
)

// Config configures the hot cache connection.
type Config struct {
	Addr         string // e.g. "localhost:6379"
	Password     string
	DB           int
	StreamMaxLen int64 // alert stream trim length
}

// Hot is the Redis hot cache client.
type Hot struct {
	client *goredis.Client
	maxLen int64
}

// Client returns the underlying Redis client for health checks.
func (h *Hot) Client() *goredis.Client { return h.client }

// New creates the hot cache client and pings the server.
func New(cfg Config) (*Hot, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxLen := cfg.StreamMaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Hot{client: client, maxLen: maxLen}, nil
}

func candleKey(exchange, symbol string) string {
	return "candle:1m:latest:" + exchange + ":" + symbol
}

func snapshotKey(exchange, symbol string) string {
	return "snapshot:latest:" + exchange + ":" + symbol
}

func tfCandleKey(tf int, exchange, symbol string) string {
	return fmt.Sprintf("candle:%ds:latest:%s:%s", tf, exchange, symbol)
}

// WriteCandle caches the latest sealed candle for its symbol.
func (h *Hot) WriteCandle(ctx context.Context, c *model.Candle) error {
	return h.client.Set(ctx, candleKey(c.Exchange, c.Symbol), string(c.JSON()), latestTTL).Err()
}

// WriteTFCandle caches the newest resampled bar for its (symbol, TF),
// forming snapshots included, so consumers see in-progress buckets.
func (h *Hot) WriteTFCandle(ctx context.Context, c *model.TFCandle) error {
	return h.client.Set(ctx, tfCandleKey(c.TF, c.Exchange, c.Symbol), string(c.JSON()), latestTTL).Err()
}

// WriteSnapshot caches the latest indicator snapshot for its symbol.
func (h *Hot) WriteSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return h.client.Set(ctx, snapshotKey(snap.Exchange, snap.Symbol), string(snap.JSON()), latestTTL).Err()
}

// AppendAlert appends a graded alert to the trimmed alert stream.
func (h *Hot) AppendAlert(ctx context.Context, a *model.Alert) error {
	return h.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: alertStream,
		MaxLen: h.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(a.JSON())},
	}).Err()
}

// SaveCheckpoint stores the JSON-encoded engine checkpoint. The TTL is
// generous because checkpoints also land in the relational store.
func (h *Hot) SaveCheckpoint(ctx context.Context, data []byte) error {
	return h.client.Set(ctx, checkpointKey, string(data), checkpointTTL).Err()
}

// LatestCandle reads the cached candle for a symbol, nil if absent.
func (h *Hot) LatestCandle(ctx context.Context, exchange, symbol string) (*model.Candle, error) {
	data, err := h.client.Get(ctx, candleKey(exchange, symbol)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get candle: %w", err)
	}

	var c model.Candle
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshal cached candle: %w", err)
	}
	return &c, nil
}

// LatestSnapshot reads the cached snapshot for a symbol, nil if absent.
func (h *Hot) LatestSnapshot(ctx context.Context, exchange, symbol string) (*model.Snapshot, error) {
	data, err := h.client.Get(ctx, snapshotKey(exchange, symbol)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// LatestCheckpoint loads the engine checkpoint blob, nil if absent.
func (h *Hot) LatestCheckpoint(ctx context.Context) ([]byte, error) {
	data, err := h.client.Get(ctx, checkpointKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get checkpoint: %w", err)
	}
	return []byte(data), nil
}

// RecentAlerts returns up to n alerts from the tail of the alert
// stream, oldest first. Used to reseed the live feed replay window
// after a restart.
func (h *Hot) RecentAlerts(ctx context.Context, n int64) ([]model.Alert, error) {
	msgs, err := h.client.XRevRangeN(ctx, alertStream, "+", "-", n).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis xrevrange alerts: %w", err)
	}

	// XREVRANGE yields newest first; flip so callers replay in order.
	out := make([]model.Alert, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		data, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var a model.Alert
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			log.Printf("[redis] skip malformed stream alert: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Close closes the Redis client.
func (h *Hot) Close() error {
	return h.client.Close()
}
