package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// SQLiteStore keeps snapshots as JSON rows in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = "snapshots.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrPersistence, err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrPersistence, err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, name string, records []trade.Record) error {
	data, err := encode(records)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, name, err)
	}

	s.logger.Debug("Snapshot saved", zap.String("name", name), zap.Int("trades", len(records)))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) ([]trade.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrPersistence, name, err)
	}
	return decode([]byte(payload))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
