// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launch-trader/internal/api"
	"github.com/rovshanmuradov/launch-trader/internal/bot"
	"github.com/rovshanmuradov/launch-trader/internal/config"
	"github.com/rovshanmuradov/launch-trader/internal/discovery"
	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/executor"
	"github.com/rovshanmuradov/launch-trader/internal/journal"
	"github.com/rovshanmuradov/launch-trader/internal/logger"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/simulate"
	"github.com/rovshanmuradov/launch-trader/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "launch-trader:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, logCloser, err := logger.New(logger.Options{
		Debug:  cfg.DebugLogging,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := bot.NewShutdownHandler(log, bot.DefaultShutdownTimeout)

	store, err := snapshot.Open(ctx, snapshot.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	}, log)
	if err != nil {
		return err
	}
	shutdown.Add("snapshot store", store)

	history, err := journal.New(cfg.JournalPath, journal.DefaultCapacity, log)
	if err != nil {
		return err
	}
	shutdown.Add("journal", history)

	bus := events.NewBus(log, 1024)
	history.Attach(bus)
	shutdown.AddFunc("event bus", bus.Shutdown)

	oracle := price.NewJupiterOracle(price.JupiterOracleConfig{
		BaseURL:    cfg.PriceAPIURL,
		Timeout:    cfg.PriceTimeout(),
		RatePerSec: cfg.PriceRateLimit,
		Logger:     log,
	})

	exec, err := newExecutor(cfg, log)
	if err != nil {
		return err
	}

	feed := discovery.NewFeed(discovery.FeedConfig{
		URL:            cfg.FeedURL,
		ReconnectDelay: cfg.FeedReconnect(),
		Logger:         log,
	})

	registry := bot.NewRegistry(bot.Deps{
		Oracle:   oracle,
		Source:   feed.Window(cfg.DiscoveryWindow()),
		Executor: exec,
		Store:    store,
		Events:   bus,
		Logger:   log,
		Interval: cfg.CycleInterval(),
	})
	shutdown.AddFunc("registry", registry.Shutdown)
	registry.Restore(ctx)

	sim := simulate.New(simulate.Config{
		Interval: cfg.SimInterval(),
		SpawnMin: cfg.SimSpawnMin(),
		SpawnMax: cfg.SimSpawnMax(),
		Store:    store,
		Events:   bus,
		Logger:   log,
	})
	shutdown.AddFunc("simulator", sim.Shutdown)
	sim.Restore(ctx)

	if cfg.PresetsPath != "" {
		if err := startPresets(registry, cfg.PresetsPath, log); err != nil {
			return err
		}
	}

	server := api.NewServer(api.Config{
		Trading:    registry,
		Simulation: sim,
		History:    history,
		Oracle:     oracle,
		Logger:     log,
		RPCURL:     cfg.RPCURL,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Run(gctx)
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.ListenAddr)
	})

	err = g.Wait()
	log.Info("Shutting down", zap.NamedError("cause", err))

	if serr := shutdown.Shutdown(context.Background()); serr != nil {
		return serr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newExecutor(cfg *config.Config, log *zap.Logger) (executor.Executor, error) {
	switch cfg.Executor {
	case "jupiter":
		exec, err := executor.NewJupiterExecutor(cfg.JupiterAPIURL, bot.DefaultConfig().Buy.Slippage, log)
		if err != nil {
			return nil, err
		}
		return exec, nil
	default:
		return executor.NewPaper(log, nil), nil
	}
}

func startPresets(registry *bot.Registry, path string, log *zap.Logger) error {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return err
	}
	for _, p := range presets {
		if _, err := registry.Start(p.Wallet, p.Overrides()); err != nil {
			return fmt.Errorf("preset %s: %w", p.Wallet, err)
		}
	}
	log.Info("Preset bots started", zap.Int("count", len(presets)))
	return nil
}
