// Package sqlite provides the durable bar archive. The JSON cache is the
// hot path; the archive is the long-tail store that survives the cache's
// seven-day window and feeds offline replay.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite archive.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
	Symbol string // instrument symbol, e.g. "XAUEUR"
}

// Archive persists base bars and resolved backtest entries.
type Archive struct {
	db     *sql.DB
	symbol string
}

// DB returns the underlying sql.DB for health checks.
func (a *Archive) DB() *sql.DB { return a.db }

// New opens the archive, initializes WAL mode and the schema.
func New(cfg Config) (*Archive, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer access pattern
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened archive at %s", cfg.DBPath)
	return &Archive{db: db, symbol: cfg.Symbol}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars_m5 (
			symbol TEXT NOT NULL,
			ts     TEXT NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS validations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT NOT NULL,
			signal     TEXT NOT NULL,
			entry      REAL NOT NULL,
			exit_price REAL NOT NULL,
			pips       REAL NOT NULL,
			win        INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	return err
}

// UpsertBars writes real bars in a single transaction. Synthetic bars are
// skipped; they are a display aid, not data.
func (a *Archive) UpsertBars(bars []model.Bar) (int, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars_m5 (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, b := range bars {
		if b.Synthetic || b.Time == "" {
			continue
		}
		if _, err := stmt.Exec(a.symbol, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return 0, err
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// RecordValidation appends one resolved backtest entry.
func (a *Archive) RecordValidation(res backtest.Resolution, at time.Time) error {
	win := 0
	if res.Win {
		win = 1
	}
	_, err := a.db.Exec(`
		INSERT INTO validations (symbol, signal, entry, exit_price, pips, win, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.symbol, string(res.Signal), res.Entry, res.Exit, res.Pips, win, at.Format(model.TimeLayout))
	return err
}

// ReadBars returns up to limit bars in ascending time order. A limit of 0
// reads everything.
func (a *Archive) ReadBars(limit int) ([]model.Bar, error) {
	q := `SELECT ts, open, high, low, close, volume FROM bars_m5 WHERE symbol = ? ORDER BY ts ASC`
	args := []interface{}{a.symbol}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := a.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastTimestamp returns the newest archived bar time, or "" when empty.
func (a *Archive) LastTimestamp() (string, error) {
	var ts sql.NullString
	err := a.db.QueryRow(`SELECT MAX(ts) FROM bars_m5 WHERE symbol = ?`, a.symbol).Scan(&ts)
	if err != nil {
		return "", err
	}
	if !ts.Valid {
		return "", nil
	}
	return ts.String, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
