package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/config"
	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/logger"
	"github.com/rovshanmuradov/launch-trader/internal/simulate"
	"github.com/rovshanmuradov/launch-trader/internal/snapshot"
	"github.com/rovshanmuradov/launch-trader/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	logFile := flag.String("log", "logs/tui.log", "log file; the terminal belongs to the dashboard")
	flag.Parse()

	if err := run(*configPath, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "launch-trader tui:", err)
		os.Exit(1)
	}
}

func run(configPath, logFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	appLogger, closer, err := logger.New(logger.Options{Debug: cfg.DebugLogging, File: logFile, Quiet: true})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer func() { _ = appLogger.Sync() }()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := snapshot.Open(rootCtx, snapshot.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	}, appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := events.NewBus(appLogger, 256)
	forwarder := ui.NewForwarder(128, appLogger)
	forwarder.Attach(bus)

	sim := simulate.New(simulate.Config{
		Interval: cfg.SimInterval(),
		SpawnMin: cfg.SimSpawnMin(),
		SpawnMax: cfg.SimSpawnMax(),
		Store:    store,
		Events:   bus,
		Logger:   appLogger,
	})
	restored := sim.Restore(rootCtx)
	sim.Start()
	appLogger.Info("Simulation dashboard started", zap.Int("restored", restored))

	program := tea.NewProgram(
		ui.NewModel(sim, forwarder.Updates()),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)
	_, runErr := program.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sim.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Simulation shutdown incomplete", zap.Error(err))
	}
	_ = bus.Shutdown(shutdownCtx)

	sent, dropped := forwarder.Stats()
	appLogger.Info("Dashboard closed", zap.Uint64("updates", sent), zap.Uint64("dropped", dropped))

	if runErr != nil && rootCtx.Err() == nil {
		return runErr
	}
	return nil
}
