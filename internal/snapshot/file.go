package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// FileStore keeps each snapshot in <dir>/<name>.json. Writes go to a temp
// file first and are renamed into place so a crash never leaves a torn file.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrPersistence, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Save(_ context.Context, name string, records []trade.Record) error {
	data, err := encode(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}

	s.logger.Debug("Snapshot saved", zap.String("name", name), zap.Int("trades", len(records)))
	return nil
}

func (s *FileStore) Load(_ context.Context, name string) ([]trade.Record, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(name))
	s.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrPersistence, err)
	}
	return decode(data)
}

func (s *FileStore) Close() error { return nil }
