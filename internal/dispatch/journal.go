package dispatch

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Attempt is one delivery try for one channel, recorded for audit.
type Attempt struct {
	Symbol  string
	AlertTS time.Time
	Channel string
	Attempt int
	OK      bool
	Err     string
	Latency time.Duration
	Trace   string
}

// Journal persists every delivery attempt to its own SQLite database,
// separate from the state store so audit writes never contend with the
// batch writer.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS delivery_attempts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			alert_ts   INTEGER NOT NULL,
			channel    TEXT    NOT NULL,
			attempt    INTEGER NOT NULL,
			ok         INTEGER NOT NULL,
			error      TEXT    NOT NULL DEFAULT '',
			latency_ms REAL    NOT NULL,
			trace      TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_alert ON delivery_attempts (symbol, alert_ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened delivery journal at %s", path)
	return &Journal{db: db}, nil
}

// Record appends one attempt. Journal failures are logged, never fatal:
// losing an audit row must not fail a delivery.
func (j *Journal) Record(at Attempt) {
	ok := 0
	if at.OK {
		ok = 1
	}
	_, err := j.db.Exec(
		`INSERT INTO delivery_attempts (symbol, alert_ts, channel, attempt, ok, error, latency_ms, trace, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.Symbol, at.AlertTS.Unix(), at.Channel, at.Attempt, ok, at.Err,
		float64(at.Latency.Microseconds())/1000.0, at.Trace, time.Now().Unix(),
	)
	if err != nil {
		log.Printf("[journal] record error: %v", err)
	}
}

// Attempts returns the recorded attempts for one alert, oldest first.
func (j *Journal) Attempts(symbol string, alertTS time.Time) ([]Attempt, error) {
	rows, err := j.db.Query(
		`SELECT channel, attempt, ok, error, latency_ms, trace FROM delivery_attempts
		 WHERE symbol = ? AND alert_ts = ? ORDER BY id`,
		symbol, alertTS.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var at Attempt
		var ok int
		var latencyMs float64
		if err := rows.Scan(&at.Channel, &at.Attempt, &ok, &at.Err, &latencyMs, &at.Trace); err != nil {
			return nil, err
		}
		at.Symbol = symbol
		at.AlertTS = alertTS
		at.OK = ok == 1
		at.Latency = time.Duration(latencyMs * float64(time.Millisecond))
		out = append(out, at)
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
