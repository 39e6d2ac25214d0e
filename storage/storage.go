// Package storage persists tracker.Store records in SQLite. Session
// cookies, listeners, and the last observed state are stored as JSON
// columns; everything else is relational.
//
// The caller must blank-import a driver before Open:
//
//	import _ "modernc.org/sqlite"
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/scriptnet/manuwatch/tracker"
)

// ErrNotFound is returned when no store exists under the requested id.
var ErrNotFound = errors.New("storage: store not found")

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id             TEXT PRIMARY KEY,
	enabled        INTEGER NOT NULL DEFAULT 1,
	portal         TEXT NOT NULL,
	tracker_url    TEXT NOT NULL,
	login_url      TEXT NOT NULL,
	submission_id  TEXT NOT NULL,
	username       TEXT NOT NULL,
	password       TEXT NOT NULL,
	cookies_json   TEXT NOT NULL DEFAULT '[]',
	listeners_json TEXT NOT NULL DEFAULT '[]',
	state_json     TEXT,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
`

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// DB wraps the stores database.
type DB struct {
	db *sql.DB
}

// Open opens (creating parent directories and schema as needed) the stores
// database at path with production-safe pragmas applied.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &DB{db: db}, nil
}

// Wrap adapts an already-open database, e.g. an in-memory one in tests.
func Wrap(db *sql.DB) (*DB, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// Put inserts or replaces a store record. An empty ID is assigned.
func (d *DB) Put(ctx context.Context, s *tracker.Store) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	cookies, err := json.Marshal(s.Cookies)
	if err != nil {
		return fmt.Errorf("storage: marshal cookies: %w", err)
	}
	listeners, err := json.Marshal(s.Listeners)
	if err != nil {
		return fmt.Errorf("storage: marshal listeners: %w", err)
	}
	var state any
	if s.State != nil {
		raw, err := json.Marshal(s.State)
		if err != nil {
			return fmt.Errorf("storage: marshal state: %w", err)
		}
		state = string(raw)
	}

	now := time.Now().Unix()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO stores (id, enabled, portal, tracker_url, login_url,
			submission_id, username, password, cookies_json, listeners_json,
			state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			portal = excluded.portal,
			tracker_url = excluded.tracker_url,
			login_url = excluded.login_url,
			submission_id = excluded.submission_id,
			username = excluded.username,
			password = excluded.password,
			cookies_json = excluded.cookies_json,
			listeners_json = excluded.listeners_json,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		s.ID, s.Enabled, s.Portal, s.Tracker, s.Login,
		s.SubmissionID, s.Credentials.Username, s.Credentials.Password,
		string(cookies), string(listeners), state, now, now,
	)
	if err != nil {
		return fmt.Errorf("storage: put store: %w", err)
	}
	return nil
}

const storeColumns = `id, enabled, portal, tracker_url, login_url,
	submission_id, username, password, cookies_json, listeners_json, state_json`

// Get loads one store by id.
func (d *DB) Get(ctx context.Context, id string) (*tracker.Store, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = ?`, id)
	s, err := scanStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, err
}

// List returns every store, oldest first.
func (d *DB) List(ctx context.Context) ([]*tracker.Store, error) {
	return d.list(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at`)
}

// ListEnabled returns every enabled store, oldest first. Disabled stores
// are never crawled.
func (d *DB) ListEnabled(ctx context.Context) ([]*tracker.Store, error) {
	return d.list(ctx, `SELECT `+storeColumns+` FROM stores WHERE enabled = 1 ORDER BY created_at`)
}

func (d *DB) list(ctx context.Context, query string) ([]*tracker.Store, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("storage: list stores: %w", err)
	}
	defer rows.Close()

	var result []*tracker.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SaveCookies overwrites the stored session cookie set.
func (d *DB) SaveCookies(ctx context.Context, id string, cookies []tracker.Cookie) error {
	raw, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("storage: marshal cookies: %w", err)
	}
	return d.update(ctx, id,
		`UPDATE stores SET cookies_json = ?, updated_at = ? WHERE id = ?`,
		string(raw), time.Now().Unix(), id)
}

// SaveState replaces the last observed state.
func (d *DB) SaveState(ctx context.Context, id string, state *tracker.State) error {
	var raw any
	if state != nil {
		b, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("storage: marshal state: %w", err)
		}
		raw = string(b)
	}
	return d.update(ctx, id,
		`UPDATE stores SET state_json = ?, updated_at = ? WHERE id = ?`,
		raw, time.Now().Unix(), id)
}

// Delete removes a store.
func (d *DB) Delete(ctx context.Context, id string) error {
	return d.update(ctx, id, `DELETE FROM stores WHERE id = ?`, id)
}

func (d *DB) update(ctx context.Context, id, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("storage: update store: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStore(row scanner) (*tracker.Store, error) {
	var (
		s         tracker.Store
		cookies   string
		listeners string
		state     sql.NullString
	)
	err := row.Scan(&s.ID, &s.Enabled, &s.Portal, &s.Tracker, &s.Login,
		&s.SubmissionID, &s.Credentials.Username, &s.Credentials.Password,
		&cookies, &listeners, &state)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cookies), &s.Cookies); err != nil {
		return nil, fmt.Errorf("storage: decode cookies: %w", err)
	}
	if err := json.Unmarshal([]byte(listeners), &s.Listeners); err != nil {
		return nil, fmt.Errorf("storage: decode listeners: %w", err)
	}
	if state.Valid && state.String != "" {
		s.State = &tracker.State{}
		if err := json.Unmarshal([]byte(state.String), s.State); err != nil {
			return nil, fmt.Errorf("storage: decode state: %w", err)
		}
	}
	return &s, nil
}
