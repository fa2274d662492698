// Package state keeps the merge history of the catalog in sqlite
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseName is the file name of the history database inside the data directory
const DatabaseName = "catalog.db"

// Merge statuses
const (
	StatusApplied  = "applied"
	StatusStale    = "stale"
	StatusRejected = "rejected"
	StatusDeferred = "deferred"
)

// Manager stores one row per merge attempt
type Manager struct {
	db *sql.DB
}

// MergeRecord describes one alias document that reached the catalog
type MergeRecord struct {
	ID          int64
	BatchID     string
	Owner       string
	Alias       string
	Source      string // index file path, or "api"
	Status      string
	OldRevision int64
	NewRevision int64
	Processed   int
	Modified    int
	Deleted     int
	Error       string
	AppliedAt   time.Time
}

// NewManager opens or creates the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection avoids "database is locked"
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS merges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		owner TEXT NOT NULL,
		alias TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		old_revision INTEGER NOT NULL,
		new_revision INTEGER NOT NULL,
		processed INTEGER DEFAULT 0,
		modified INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		error TEXT,
		applied_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_merges_namespace ON merges(owner, alias, applied_at DESC);
	CREATE INDEX IF NOT EXISTS idx_merges_batch ON merges(batch_id);
	`

	_, err := m.db.Exec(schema)
	return err
}

func validStatus(s string) bool {
	switch s {
	case StatusApplied, StatusStale, StatusRejected, StatusDeferred:
		return true
	}
	return false
}

// SaveMerge records one merge attempt. A zero AppliedAt is set to now.
func (m *Manager) SaveMerge(record MergeRecord) error {
	if !validStatus(record.Status) {
		return fmt.Errorf("invalid status: %s", record.Status)
	}
	if record.Owner == "" || record.Alias == "" {
		return fmt.Errorf("owner and alias are required")
	}
	if record.AppliedAt.IsZero() {
		record.AppliedAt = time.Now()
	}
	// stored as text, so one zone keeps ordering lexical
	record.AppliedAt = record.AppliedAt.UTC()

	query := `
		INSERT INTO merges (batch_id, owner, alias, source, status, old_revision, new_revision,
			processed, modified, deleted, error, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.BatchID,
		record.Owner,
		record.Alias,
		record.Source,
		record.Status,
		record.OldRevision,
		record.NewRevision,
		record.Processed,
		record.Modified,
		record.Deleted,
		record.Error,
		record.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save merge record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, batch_id, owner, alias, source, status, old_revision, new_revision,
	processed, modified, deleted, COALESCE(error, ''), applied_at FROM merges`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (MergeRecord, error) {
	var r MergeRecord
	err := s.Scan(
		&r.ID,
		&r.BatchID,
		&r.Owner,
		&r.Alias,
		&r.Source,
		&r.Status,
		&r.OldRevision,
		&r.NewRevision,
		&r.Processed,
		&r.Modified,
		&r.Deleted,
		&r.Error,
		&r.AppliedAt,
	)
	return r, err
}

func (m *Manager) query(query string, args ...any) ([]MergeRecord, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []MergeRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// GetHistory returns the newest merges of one namespace
func (m *Manager) GetHistory(owner, alias string, limit int) ([]MergeRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.query(selectColumns+` WHERE owner = ? AND alias = ? ORDER BY applied_at DESC, id DESC LIMIT ?`,
		owner, alias, limit)
}

// GetBatch returns every record written by one load, oldest first
func (m *Manager) GetBatch(batchID string) ([]MergeRecord, error) {
	return m.query(selectColumns+` WHERE batch_id = ? ORDER BY id`, batchID)
}

// GetLastApplied returns the newest applied merge of a namespace, or nil
func (m *Manager) GetLastApplied(owner, alias string) (*MergeRecord, error) {
	row := m.db.QueryRow(selectColumns+` WHERE owner = ? AND alias = ? AND status = ?
		ORDER BY applied_at DESC, id DESC LIMIT 1`, owner, alias, StatusApplied)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last applied merge: %w", err)
	}
	return &r, nil
}

// GetAllHistory returns the newest merges across all namespaces
func (m *Manager) GetAllHistory(limit int) ([]MergeRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.query(selectColumns+` ORDER BY applied_at DESC, id DESC LIMIT ?`, limit)
}

// Prune deletes records older than before and returns how many were removed
func (m *Manager) Prune(before time.Time) (int64, error) {
	res, err := m.db.Exec(`DELETE FROM merges WHERE applied_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
