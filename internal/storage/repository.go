package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cattlevalue/internal/core"
	"cattlevalue/internal/herd"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the herd blob and valuation snapshots.
type SQLiteRepository struct {
	db            *sql.DB
	key           string
	schemaVersion uint
}

var (
	_ herd.Repository     = (*SQLiteRepository)(nil)
	_ herd.SnapshotLister = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Clean(dbPath))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, key: herd.StorageKey, schemaVersion: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied at open time.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// Load implements herd.Repository
func (r *SQLiteRepository) Load(ctx context.Context) (core.Herd, error) {
	var blob string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_blobs WHERE key = ?`, r.key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Herd{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load herd blob: %w", err)
	}
	return herd.Decode([]byte(blob))
}

// Save implements herd.Repository
func (r *SQLiteRepository) Save(ctx context.Context, h core.Herd) error {
	blob, err := herd.Encode(h)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO kv_blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save herd blob: %w", err)
	}
	slog.DebugContext(ctx, "Herd saved to SQLite", "key", r.key, "herd_size", len(h), "bytes", len(blob))
	return nil
}

// Clear implements herd.Repository
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_blobs WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("clear herd blob: %w", err)
	}
	slog.DebugContext(ctx, "Herd blob removed from SQLite", "key", r.key)
	return nil
}

// RecordSnapshot stores a valuation snapshot and returns its id.
func (r *SQLiteRepository) RecordSnapshot(ctx context.Context, s core.ValuationSnapshot) (int64, error) {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO valuation_snapshots (recorded_at, reason, herd_size, total_weight_kg, latest_date, latest_value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.RecordedAt.UTC(), s.Reason, s.HerdSize, s.TotalWeight, s.LatestDate, s.LatestValue)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}
	slog.InfoContext(ctx, "Valuation snapshot recorded",
		"id", id,
		"reason", s.Reason,
		"herd_size", s.HerdSize,
		"latest_date", s.LatestDate,
		"latest_value", s.LatestValue)
	return id, nil
}

// ListSnapshots implements herd.SnapshotLister
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]core.ValuationSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recorded_at, reason, herd_size, total_weight_kg, latest_date, latest_value
		FROM valuation_snapshots
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.ValuationSnapshot
	for rows.Next() {
		var s core.ValuationSnapshot
		if err := rows.Scan(&s.ID, &s.RecordedAt, &s.Reason, &s.HerdSize, &s.TotalWeight, &s.LatestDate, &s.LatestValue); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
