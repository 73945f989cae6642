// Package snapshot persists the open-trade set so it survives restarts.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// ErrPersistence wraps every storage failure.
var ErrPersistence = errors.New("snapshot persistence failed")

// Snapshot names used by the registries.
const (
	LiveTrades      = "bot_trades"
	SimulatedTrades = "simulated_trades"
)

// Store saves and loads named snapshots. Save replaces the whole snapshot;
// Load of an unknown name returns no records and no error.
type Store interface {
	Save(ctx context.Context, name string, records []trade.Record) error
	Load(ctx context.Context, name string) ([]trade.Record, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver string // file, sqlite or postgres
	Path   string // directory for file, database file for sqlite
	DSN    string // postgres connection string
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	logger = logger.Named("snapshot")

	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path, logger)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path, logger)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot driver %q", cfg.Driver)
	}
}

func encode(records []trade.Record) ([]byte, error) {
	if records == nil {
		records = []trade.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	return data, nil
}

func decode(data []byte) ([]trade.Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []trade.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPersistence, err)
	}
	return records, nil
}
