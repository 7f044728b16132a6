// Package store selects and opens the relational State Store backend.
// SQLite and Postgres implement the same schema semantics: every append
// is idempotent on its (symbol, minute, record-type) key, so replaying
// a candle window or re-running the rebuild tool never duplicates rows.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"alert-systemv1/internal/model"
	"alert-systemv1/internal/store/postgres"
	"alert-systemv1/internal/store/sqlite"
)

// Store is the full relational surface: batched candle persistence,
// analytics appends, alert writes plus the dispatcher's status update,
// the query methods behind the HTTP API, and engine checkpoints.
type Store interface {
	model.CandleWriter
	model.AnalyticsWriter
	model.AlertWriter
	model.CandleReader
	model.AlertReader
	model.CheckpointStore

	// DB exposes the underlying handle for liveness checks.
	DB() *sql.DB
}

// Options carries the backend selection and tuning knobs. The mains map
// the loaded config onto this so the store packages stay config-free.
type Options struct {
	Backend     string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresDSN string
	BatchSize   int
	FlushDelay  time.Duration

	// OnCommit receives (rows, duration) after each successful batch
	// commit. Optional, used for metrics.
	OnCommit func(rows int, d time.Duration)
}

// Open creates the configured backend and initializes its schema.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		s, err := sqlite.New(sqlite.Config{
			Path:       opts.SQLitePath,
			BatchSize:  opts.BatchSize,
			FlushDelay: opts.FlushDelay,
		})
		if err != nil {
			return nil, err
		}
		s.OnCommit = opts.OnCommit
		return s, nil
	case "postgres":
		s, err := postgres.New(postgres.Config{
			DSN:        opts.PostgresDSN,
			BatchSize:  opts.BatchSize,
			FlushDelay: opts.FlushDelay,
		})
		if err != nil {
			return nil, err
		}
		s.OnCommit = opts.OnCommit
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
