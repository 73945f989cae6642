package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

const postgresSchema = `
create table if not exists snapshots (
	name       text primary key,
	payload    jsonb not null,
	updated_at timestamptz not null default now()
)`

// PostgresStore keeps snapshots as jsonb rows.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", ErrPersistence)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", ErrPersistence, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrPersistence, err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrPersistence, err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, name string, records []trade.Record) error {
	data, err := encode(records)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		insert into snapshots (name, payload, updated_at) values ($1, $2, now())
		on conflict (name) do update set payload = excluded.payload, updated_at = now()`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, name, err)
	}

	s.logger.Debug("Snapshot saved", zap.String("name", name), zap.Int("trades", len(records)))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) ([]trade.Record, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `select payload from snapshots where name = $1`, name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrPersistence, name, err)
	}
	return decode(payload)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
