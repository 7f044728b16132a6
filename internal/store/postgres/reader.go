package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"alert-systemv1/internal/model"
)

// ReadCandles returns up to limit 1m candles for a symbol with ts >
// afterTS, oldest first. A limit <= 0 falls back to the default cap.
func (s *Store) ReadCandles(symbol string, afterTS int64, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := s.db.Query(`
		SELECT symbol, exchange, ts, open, high, low, close, volume, ticks_count,
		       oi_open, oi_close, oi_change, bid_qty, ask_qty, bid_orders, ask_orders
		FROM candles_1m
		WHERE symbol = $1 AND ts > $2
		ORDER BY ts ASC
		LIMIT $3
	`, symbol, afterTS, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres query candles_1m: %w", err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestCandle returns the most recent 1m candle for a symbol, nil if none.
func (s *Store) LatestCandle(symbol string) (*model.Candle, error) {
	row := s.db.QueryRow(`
		SELECT symbol, exchange, ts, open, high, low, close, volume, ticks_count,
		       oi_open, oi_close, oi_change, bid_qty, ask_qty, bid_orders, ask_orders
		FROM candles_1m
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT 1
	`, symbol)

	c, err := scanCandle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandle(r rowScanner) (model.Candle, error) {
	var c model.Candle
	var tsUnix int64
	err := r.Scan(&c.Symbol, &c.Exchange, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close,
		&c.Volume, &c.TicksCount, &c.OIOpen, &c.OIClose, &c.OIChange,
		&c.BidQty, &c.AskQty, &c.BidOrders, &c.AskOrders)
	if err != nil {
		return c, err
	}
	c.TS = time.Unix(tsUnix, 0).UTC()
	return c, nil
}

// ReadTFCandles returns resampled candles for a symbol and timeframe
// with ts > afterTS, oldest first.
func (s *Store) ReadTFCandles(symbol string, tf int, afterTS int64, limit int) ([]model.TFCandle, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := s.db.Query(`
		SELECT symbol, exchange, tf, ts, open, high, low, close, volume, oi_close, oi_change, count
		FROM candles_tf
		WHERE symbol = $1 AND tf = $2 AND ts > $3
		ORDER BY ts ASC
		LIMIT $4
	`, symbol, tf, afterTS, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres query candles_tf: %w", err)
	}
	defer rows.Close()

	var out []model.TFCandle
	for rows.Next() {
		var c model.TFCandle
		var tsUnix int64
		if err := rows.Scan(&c.Symbol, &c.Exchange, &c.TF, &tsUnix, &c.Open, &c.High, &c.Low,
			&c.Close, &c.Volume, &c.OIClose, &c.OIChange, &c.Count); err != nil {
			return nil, fmt.Errorf("postgres scan candles_tf: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the most recent indicator snapshot for a
// symbol, nil if none has been written yet.
func (s *Store) LatestSnapshot(symbol string) (*model.Snapshot, error) {
	var data string
	err := s.db.QueryRow(`
		SELECT data FROM snapshots WHERE symbol = $1 ORDER BY ts DESC LIMIT 1
	`, symbol).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// ReadAlertsSince returns alerts with ts >= since, newest first.
func (s *Store) ReadAlertsSince(since int64, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := s.db.Query(`
		SELECT symbol, exchange, ts, confidence, grade, action, rationale,
		       oi_category, regime, close, channels, status, created_at
		FROM alerts
		WHERE ts >= $1
		ORDER BY ts DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres query alerts: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		var tsUnix, createdUnix int64
		var grade, action, oicat, regime, status string
		var rationale, channels sql.NullString
		if err := rows.Scan(&a.Symbol, &a.Exchange, &tsUnix, &a.Confidence, &grade, &action,
			&rationale, &oicat, &regime, &a.Close, &channels, &status, &createdUnix); err != nil {
			return nil, fmt.Errorf("postgres scan alert: %w", err)
		}
		a.TS = time.Unix(tsUnix, 0).UTC()
		a.CreatedAt = time.Unix(createdUnix, 0).UTC()
		a.Grade = model.Grade(grade)
		a.Action = model.Action(action)
		a.OICategory = model.OICategory(oicat)
		a.Regime = model.Regime(regime)
		a.Status = model.AlertStatus(status)
		if rationale.Valid && rationale.String != "" {
			if err := json.Unmarshal([]byte(rationale.String), &a.Rationale); err != nil {
				return nil, fmt.Errorf("unmarshal rationale: %w", err)
			}
		}
		if channels.Valid && channels.String != "" && channels.String != "null" {
			if err := json.Unmarshal([]byte(channels.String), &a.Channels); err != nil {
				return nil, fmt.Errorf("unmarshal channels: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
