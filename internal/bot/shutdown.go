// internal/bot/shutdown.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultShutdownTimeout = 30 * time.Second

// ShutdownHandler closes the process's services in reverse registration
// order, one at a time, within a shared deadline.
type ShutdownHandler struct {
	logger   *zap.Logger
	timeout  time.Duration
	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name  string
	close func(ctx context.Context) error
}

func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &ShutdownHandler{logger: logger.Named("shutdown"), timeout: timeout}
}

// Add registers an io.Closer.
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.AddFunc(name, func(context.Context) error { return closer.Close() })
}

// AddFunc registers a context-aware shutdown function.
func (sh *ShutdownHandler) AddFunc(name string, fn func(ctx context.Context) error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.services = append(sh.services, namedService{name: name, close: fn})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// Shutdown closes every registered service, last registered first. A
// service that overruns the deadline is abandoned; services after it are
// reported as timed out without being called.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.services = nil
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		if err := sh.closeOne(ctx, services[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		sh.logger.Error("Shutdown completed with errors", zap.Int("errorCount", len(errs)))
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}

func (sh *ShutdownHandler) closeOne(ctx context.Context, s namedService) error {
	if ctx.Err() != nil {
		sh.logger.Error("Shutdown deadline passed, skipping service", zap.String("service", s.name))
		return fmt.Errorf("%s: shutdown timeout", s.name)
	}

	done := make(chan error, 1)
	go func() {
		sh.logger.Debug("Shutting down service", zap.String("service", s.name))
		done <- s.close(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
		return nil
	case <-ctx.Done():
		sh.logger.Error("Shutdown timeout for service", zap.String("service", s.name))
		return fmt.Errorf("%s: shutdown timeout", s.name)
	}
}
