// Package history keeps a local SQLite log of actions performed on devices.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"droidview/pkg/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultLimit is used by Recent when limit <= 0
const DefaultLimit = 100

const schemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    serial TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    success INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_time ON history(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_serial ON history(serial, created_at DESC);
`

// Entry is one action to record
type Entry struct {
	Action  string
	Serial  string
	Detail  string
	Success bool
}

type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open creates or opens history.db inside dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dir, "history.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path of the database file
func (s *Store) Path() string {
	return s.dbPath
}

// Record appends an entry and returns it with id and timestamp filled in
func (s *Store) Record(ctx context.Context, e Entry) (types.HistoryEntry, error) {
	if e.Action == "" {
		return types.HistoryEntry{}, fmt.Errorf("history entry needs an action")
	}
	h := types.HistoryEntry{
		ID:        uuid.NewString(),
		Action:    e.Action,
		Serial:    e.Serial,
		Detail:    e.Detail,
		Success:   e.Success,
		CreatedAt: s.now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, action, serial, detail, success, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.Action, h.Serial, h.Detail, boolToInt(h.Success), h.CreatedAt)
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("failed to record history: %w", err)
	}
	return h, nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, serial, detail, success, created_at FROM history
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []types.HistoryEntry{}
	for rows.Next() {
		var h types.HistoryEntry
		var success int
		if err := rows.Scan(&h.ID, &h.Action, &h.Serial, &h.Detail, &success, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.Success = success != 0
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// Clear deletes every entry and returns how many were removed
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
