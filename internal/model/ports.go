package model

import (
	"context"
	"time"
)

// ---- Storage port interfaces ----
// These interfaces decouple pipeline stages from concrete storage
// implementations (SQLite, Postgres, Redis). Every append is idempotent
// on its (symbol, minute, record-type) key so replays are safe.

// CandleWriter persists sealed 1m candles and resampled TF candles.
type CandleWriter interface {
	// Run reads candles from candleCh and writes them in batches.
	// Blocks until ctx is cancelled or candleCh is closed.
	Run(ctx context.Context, candleCh <-chan Candle)

	// RunTFCandles reads finalized TF candles and writes them.
	RunTFCandles(ctx context.Context, tfCandleCh <-chan TFCandle)

	// Close flushes pending batches and releases resources.
	Close() error
}

// AnalyticsWriter persists indicator snapshots and OI categories.
type AnalyticsWriter interface {
	WriteSnapshot(ctx context.Context, snap *Snapshot) error
	WriteOICategory(ctx context.Context, symbol string, minute int64, cat OICategory) error
	Close() error
}

// AlertWriter persists alerts and owns the single-row delivery-status
// update (the dispatcher is the only caller of UpdateAlertStatus).
type AlertWriter interface {
	WriteAlert(ctx context.Context, alert *Alert) error
	UpdateAlertStatus(ctx context.Context, symbol string, ts time.Time, status AlertStatus, channels map[string]DeliveryState) error
	Close() error
}

// CandleReader reads stored candles for replay, resampled queries and
// levels analytics.
type CandleReader interface {
	// ReadCandles returns up to limit 1m candles for a symbol with
	// TS > afterTS (Unix seconds), oldest first.
	ReadCandles(symbol string, afterTS int64, limit int) ([]Candle, error)

	// ReadTFCandles returns resampled candles for a symbol and TF.
	ReadTFCandles(symbol string, tf int, afterTS int64, limit int) ([]TFCandle, error)

	// LatestCandle returns the most recent 1m candle for a symbol
	// (nil, nil when the store has none).
	LatestCandle(symbol string) (*Candle, error)

	Close() error
}

// AlertReader serves the query surface.
type AlertReader interface {
	// ReadAlertsSince returns alerts with TS >= since (Unix seconds),
	// newest first, up to limit.
	ReadAlertsSince(since int64, limit int) ([]Alert, error)

	// LatestSnapshot returns the most recent snapshot for a symbol
	// (nil, nil when none exists).
	LatestSnapshot(symbol string) (*Snapshot, error)

	Close() error
}

// CheckpointStore reads and writes engine state checkpoints as raw JSON.
// Using []byte avoids a model→indicator→model import cycle.
type CheckpointStore interface {
	// SaveCheckpointJSON persists a JSON-encoded engine checkpoint.
	SaveCheckpointJSON(data []byte) error

	// ReadLatestCheckpointJSON loads the most recent checkpoint.
	// Returns nil, nil if none exists.
	ReadLatestCheckpointJSON() ([]byte, error)
}
