// internal/logger/writers.go
package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// openAppend creates the parent directory and opens path for appending.
func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// flusher runs flush every interval until stop is closed.
func flusher(interval time.Duration, stop <-chan struct{}, flush func() error, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := flush(); err != nil {
				onErr(err)
			}
		case <-stop:
			return
		}
	}
}

// SafeFileWriter is a buffered, mutex-guarded append-only file with periodic
// flushing. It satisfies io.Writer so it can back a zap core.
type SafeFileWriter struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	file   *os.File
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
	path   string
	lines  uint64
}

func NewSafeFileWriter(path string, flushInterval time.Duration, logger *zap.Logger) (*SafeFileWriter, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	w := &SafeFileWriter{
		buf:    bufio.NewWriter(f),
		file:   f,
		done:   make(chan struct{}),
		logger: logger,
		path:   path,
	}
	go flusher(flushInterval, w.done, w.Flush, func(err error) {
		logger.Error("Periodic flush failed", zap.String("file", path), zap.Error(err))
	})
	return w, nil
}

func (w *SafeFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.buf.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	w.lines++
	return n, nil
}

// Sync lets zap flush the writer on logger.Sync.
func (w *SafeFileWriter) Sync() error {
	return w.Flush()
}

func (w *SafeFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return w.file.Sync()
}

func (w *SafeFileWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)

		w.mu.Lock()
		defer w.mu.Unlock()
		if ferr := w.buf.Flush(); ferr != nil {
			err = fmt.Errorf("failed to flush on close: %w", ferr)
			return
		}
		err = w.file.Close()
		w.logger.Debug("File writer closed", zap.String("file", w.path), zap.Uint64("writes", w.lines))
	})
	return err
}

// SafeCSVWriter appends CSV records from many goroutines. The header is
// written once, when the file is created empty.
type SafeCSVWriter struct {
	mu      sync.Mutex
	csv     *csv.Writer
	file    *os.File
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
	path    string
	records uint64
}

func NewSafeCSVWriter(path string, header []string, flushInterval time.Duration, logger *zap.Logger) (*SafeCSVWriter, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	w := &SafeCSVWriter{
		csv:    csv.NewWriter(f),
		file:   f,
		done:   make(chan struct{}),
		logger: logger,
		path:   path,
	}

	if stat.Size() == 0 && len(header) > 0 {
		if err := w.csv.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		w.csv.Flush()
	}

	go flusher(flushInterval, w.done, w.Flush, func(err error) {
		logger.Error("Periodic CSV flush failed", zap.String("file", path), zap.Error(err))
	})
	return w, nil
}

func (w *SafeCSVWriter) WriteRecord(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.records++
	return nil
}

func (w *SafeCSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return w.file.Sync()
}

func (w *SafeCSVWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.csv.Flush()
		if cerr := w.csv.Error(); cerr != nil {
			err = fmt.Errorf("CSV writer error on close: %w", cerr)
			return
		}
		err = w.file.Close()
		w.logger.Debug("CSV writer closed", zap.String("file", w.path), zap.Uint64("records", w.records))
	})
	return err
}

// Records returns the number of records written since open.
func (w *SafeCSVWriter) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}
