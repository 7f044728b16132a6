package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"alert-systemv1/internal/model"
)

// Run reads sealed 1m candles from candleCh and inserts them in batched
// transactions. Flushes every batchSize candles OR every flushDelay,
// whichever comes first. Blocks until ctx is cancelled or candleCh closes.
func (s *Store) Run(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, s.batchSize)
	timer := time.NewTimer(s.flushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := s.insertBatch(batch); err != nil {
			log.Printf("[sqlite] candle batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d candles in %v", len(batch), time.Since(start))
			if s.OnCommit != nil {
				s.OnCommit(len(batch), time.Since(start))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case c, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, c)
			if len(batch) >= s.batchSize {
				flush()
				timer.Reset(s.flushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(s.flushDelay)
		}
	}
}

func (s *Store) insertBatch(candles []model.Candle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles_1m
			(symbol, exchange, ts, open, high, low, close, volume, ticks_count,
			 oi_open, oi_close, oi_change, bid_qty, ask_qty, bid_orders, ask_orders)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range candles {
		c := &candles[i]
		_, err := stmt.Exec(c.Symbol, c.Exchange, c.TS.Unix(), c.Open, c.High, c.Low, c.Close,
			c.Volume, c.TicksCount, c.OIOpen, c.OIClose, c.OIChange,
			c.BidQty, c.AskQty, c.BidOrders, c.AskOrders)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// RunTFCandles reads finalized resampled candles and inserts them in
// batched transactions, same flush rules as Run.
func (s *Store) RunTFCandles(ctx context.Context, tfCandleCh <-chan model.TFCandle) {
	batch := make([]model.TFCandle, 0, s.batchSize)
	timer := time.NewTimer(s.flushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := s.insertTFBatch(batch); err != nil {
			log.Printf("[sqlite] TF batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d TF candles in %v", len(batch), time.Since(start))
			if s.OnCommit != nil {
				s.OnCommit(len(batch), time.Since(start))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case tfc, ok := <-tfCandleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, tfc)
			if len(batch) >= s.batchSize {
				flush()
				timer.Reset(s.flushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(s.flushDelay)
		}
	}
}

func (s *Store) insertTFBatch(candles []model.TFCandle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles_tf
			(symbol, exchange, tf, ts, open, high, low, close, volume, oi_close, oi_change, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range candles {
		c := &candles[i]
		_, err := stmt.Exec(c.Symbol, c.Exchange, c.TF, c.TS.Unix(), c.Open, c.High, c.Low,
			c.Close, c.Volume, c.OIClose, c.OIChange, c.Count)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// WriteSnapshot persists one indicator snapshot. The full vector lives
// in the JSON column; regime is duplicated into its own column for the
// regime/latest query.
func (s *Store) WriteSnapshot(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (symbol, ts, regime, regime_conf, data)
		VALUES (?, ?, ?, ?, ?)
	`, snap.Symbol, snap.TS.Unix(), string(snap.Regime), snap.RegimeConf, string(snap.JSON()))
	if err != nil {
		return fmt.Errorf("sqlite insert snapshot: %w", err)
	}
	return nil
}

// WriteOICategory persists the OI classification for one (symbol, minute).
func (s *Store) WriteOICategory(ctx context.Context, symbol string, minute int64, cat model.OICategory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO oi_categories (symbol, ts, category) VALUES (?, ?, ?)
	`, symbol, minute, string(cat))
	if err != nil {
		return fmt.Errorf("sqlite insert oi category: %w", err)
	}
	return nil
}

// WriteAlert persists a graded alert, rationale and channel states as JSON.
func (s *Store) WriteAlert(ctx context.Context, a *model.Alert) error {
	rationale, err := json.Marshal(a.Rationale)
	if err != nil {
		return fmt.Errorf("marshal rationale: %w", err)
	}
	channels, err := json.Marshal(a.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts
			(symbol, exchange, ts, confidence, grade, action, rationale,
			 oi_category, regime, close, channels, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Symbol, a.Exchange, a.TS.Unix(), a.Confidence, string(a.Grade), string(a.Action),
		string(rationale), string(a.OICategory), string(a.Regime), a.Close,
		string(channels), string(a.Status), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert alert: %w", err)
	}
	return nil
}

// UpdateAlertStatus updates the delivery outcome of one stored alert.
// The dispatcher is the only caller.
func (s *Store) UpdateAlertStatus(ctx context.Context, symbol string, ts time.Time, status model.AlertStatus, channels map[string]model.DeliveryState) error {
	ch, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, channels = ? WHERE symbol = ? AND ts = ?
	`, string(status), string(ch), symbol, ts.Unix())
	if err != nil {
		return fmt.Errorf("sqlite update alert status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %s@%d not found", symbol, ts.Unix())
	}
	return nil
}

// SaveCheckpointJSON appends an engine checkpoint and prunes old ones.
func (s *Store) SaveCheckpointJSON(data []byte) error {
	_, err := s.db.Exec(`INSERT INTO checkpoints (data, created_at) VALUES (?, ?)`,
		string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert checkpoint: %w", err)
	}

	_, err = s.db.Exec(`
		DELETE FROM checkpoints WHERE id NOT IN
			(SELECT id FROM checkpoints ORDER BY id DESC LIMIT ?)
	`, keepCheckpoints)
	if err != nil {
		log.Printf("[sqlite] prune checkpoints warning: %v", err)
	}
	return nil
}

// ReadLatestCheckpointJSON loads the most recent checkpoint, nil if none.
func (s *Store) ReadLatestCheckpointJSON() ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM checkpoints ORDER BY id DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read checkpoint: %w", err)
	}
	return []byte(data), nil
}
