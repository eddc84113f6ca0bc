package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// SQLiteStore keeps one row per date key in insertion order.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening DB: %w", err)
	}
	if err := configureSQLiteConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: configure sqlite: %w", err)
	}

	s := NewSQLiteStore(db)
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS day_values (
			date_key TEXT PRIMARY KEY,
			value REAL NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

// FetchAll returns every row with a valid date key. Rows with blank or
// malformed keys are skipped.
func (s *SQLiteStore) FetchAll(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date_key, value FROM day_values ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: fetch all: %w", err)
	}
	defer rows.Close()

	today := core.TodayKey(s.now())
	var out []core.Record
	for rows.Next() {
		var (
			key   string
			value sql.NullFloat64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("store: scan day value: %w", err)
		}
		var v *float64
		if value.Valid {
			v = core.Float(value.Float64)
		}
		rec, err := core.RecordFromDateKey(key, v, today)
		if err != nil {
			log.Printf("store level=warn event=skip_row date_key=%q", key)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate day values: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, dateKey string, value *float64) (core.UpsertResult, error) {
	if err := validateKey(dateKey); err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: upsert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: begin upsert: %w", err)
	}
	defer tx.Rollback()

	var nv sql.NullFloat64
	if value != nil {
		nv = sql.NullFloat64{Float64: *value, Valid: true}
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)

	res, err := tx.ExecContext(ctx,
		`UPDATE day_values SET value = ?, updated_at = ? WHERE date_key = ?`,
		nv, updatedAt, dateKey)
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: update %s: %w", dateKey, err)
	}
	action := core.UpsertActionUpdated
	if n, _ := res.RowsAffected(); n == 0 {
		action = core.UpsertActionAppended
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO day_values (date_key, value, updated_at) VALUES (?, ?, ?)`,
			dateKey, nv, updatedAt); err != nil {
			return core.UpsertResult{}, fmt.Errorf("store: append %s: %w", dateKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: commit upsert: %w", err)
	}
	return success(action), nil
}

// Import bulk-loads records, used to seed a fresh database.
func (s *SQLiteStore) Import(ctx context.Context, records []core.Record) (int, error) {
	n := 0
	for _, r := range records {
		if _, err := s.Upsert(ctx, core.DateKey(r.Year, r.MonthIndex, r.Day), r.Value); err != nil {
			if errors.Is(err, core.ErrInvalidDateKey) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

func configureSQLiteConnection(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("set journal_mode WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return nil
}
