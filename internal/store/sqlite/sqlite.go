// Package sqlite is the embedded State Store backend: one writer
// connection in WAL mode, batched transactions, and INSERT OR REPLACE
// so replays land on the same (symbol, minute) rows.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
	defaultQueryLimit = 10000
	keepCheckpoints   = 10
)

// Config configures the SQLite store.
type Config struct {
	Path       string // database file, e.g. "data/alertengine.db"
	BatchSize  int
	FlushDelay time.Duration
}

// Store implements the relational State Store on a single SQLite file.
type Store struct {
	db         *sql.DB
	batchSize  int
	flushDelay time.Duration

	// OnCommit is called after every successful batch commit with the
	// row count and commit duration. Optional, used for metrics.
	OnCommit func(rows int, d time.Duration)
}

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, switches it to WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer connection. WAL readers don't block it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = defaultFlushDelay
	}

	log.Printf("[sqlite] opened database at %s", cfg.Path)
	return &Store{db: db, batchSize: cfg.BatchSize, flushDelay: cfg.FlushDelay}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_1m (
			symbol      TEXT    NOT NULL,
			exchange    TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			open        INTEGER NOT NULL,
			high        INTEGER NOT NULL,
			low         INTEGER NOT NULL,
			close       INTEGER NOT NULL,
			volume      INTEGER,
			ticks_count INTEGER,
			oi_open     INTEGER,
			oi_close    INTEGER,
			oi_change   INTEGER,
			bid_qty     INTEGER,
			ask_qty     INTEGER,
			bid_orders  INTEGER,
			ask_orders  INTEGER,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS candles_tf (
			symbol    TEXT    NOT NULL,
			exchange  TEXT    NOT NULL,
			tf        INTEGER NOT NULL,
			ts        INTEGER NOT NULL,
			open      INTEGER NOT NULL,
			high      INTEGER NOT NULL,
			low       INTEGER NOT NULL,
			close     INTEGER NOT NULL,
			volume    INTEGER,
			oi_close  INTEGER,
			oi_change INTEGER,
			count     INTEGER,
			PRIMARY KEY (symbol, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			symbol      TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			regime      TEXT,
			regime_conf REAL,
			data        TEXT    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS oi_categories (
			symbol   TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			category TEXT    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			symbol      TEXT    NOT NULL,
			exchange    TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			confidence  REAL    NOT NULL,
			grade       TEXT    NOT NULL,
			action      TEXT    NOT NULL,
			rationale   TEXT,
			oi_category TEXT,
			regime      TEXT,
			close       INTEGER,
			channels    TEXT,
			status      TEXT    NOT NULL,
			created_at  INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts);

		CREATE TABLE IF NOT EXISTS checkpoints (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
