package simulate

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/bot"
	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/executor"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/snapshot"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// Wallet is the registry key of the simulated bot.
const Wallet = "simulator"

const (
	DefaultInterval = 2 * time.Second
	DefaultSpawnMin = 5 * time.Second
	DefaultSpawnMax = 15 * time.Second
)

// Config configures a Simulator. Store and Events are optional.
type Config struct {
	Interval time.Duration
	SpawnMin time.Duration
	SpawnMax time.Duration
	Seed     int64
	Store    snapshot.Store
	Events   events.Publisher
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Simulator drives a single bot through the regular registry with a
// random-walk oracle, a synthetic listing generator and a paper executor.
type Simulator struct {
	reg    *bot.Registry
	walk   *price.RandomWalk
	logger *zap.Logger
}

func New(cfg Config) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SpawnMin <= 0 {
		cfg.SpawnMin = DefaultSpawnMin
	}
	if cfg.SpawnMax <= 0 {
		cfg.SpawnMax = DefaultSpawnMax
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.Named("simulator")

	rng := rand.New(rand.NewSource(cfg.Seed))
	walk := price.NewRandomWalk(cfg.Seed + 1)
	// Trade size between 0.1 and 0.6 SOL, two decimals.
	size := func() float64 {
		return float64(10+rng.Intn(51)) / 100
	}

	reg := bot.NewRegistry(bot.Deps{
		Oracle:       walk,
		Source:       NewGenerator(rng, cfg.Clock, cfg.SpawnMin, cfg.SpawnMax),
		Executor:     executor.NewPaper(logger, size),
		Store:        cfg.Store,
		SnapshotName: snapshot.SimulatedTrades,
		Events:       forgetClosed{walk: walk, next: cfg.Events},
		Logger:       logger,
		Clock:        cfg.Clock,
		Interval:     cfg.Interval,
	})

	return &Simulator{reg: reg, walk: walk, logger: logger}
}

func simulationConfig() bot.Overrides {
	return bot.Overrides{
		Sell:    &bot.SellConfig{TakeProfit: 25, StopLoss: 15, Timeout: 60},
		Filters: &bot.FilterConfig{MaxTokens: len(symbols)},
	}
}

// Restore reloads the trades left open by a previous run. Each restored
// trade's walk resumes from its last recorded price.
func (s *Simulator) Restore(ctx context.Context) int {
	n := s.reg.Restore(ctx)
	for _, r := range s.reg.OpenTrades(Wallet) {
		s.walk.Seed(r.Mint, r.CurrentPrice)
	}
	return n
}

// forgetClosed drops a mint's walk once its trade closes, then forwards the
// event.
type forgetClosed struct {
	walk *price.RandomWalk
	next events.Publisher
}

func (f forgetClosed) Publish(e events.Event) error {
	if closed, ok := e.(events.TradeClosedEvent); ok {
		f.walk.Forget(closed.Trade.Mint)
	}
	if f.next == nil {
		return nil
	}
	return f.next.Publish(e)
}

// Start begins the simulation. It returns false if it is already running.
func (s *Simulator) Start() bool {
	ok, err := s.reg.Start(Wallet, simulationConfig())
	if err != nil {
		// The simulation config is static; a failure here is a programming error.
		s.logger.Error("Failed to start simulation", zap.Error(err))
		return false
	}
	return ok
}

// Stop pauses the simulation. It returns false if it is not running.
func (s *Simulator) Stop() bool {
	return s.reg.Stop(Wallet)
}

// Running reports whether the simulation is active.
func (s *Simulator) Running() bool {
	return s.reg.Status(Wallet).State == bot.StateRunning
}

// Trades lists the open simulated trades.
func (s *Simulator) Trades() []trade.Record {
	return s.reg.OpenTrades(Wallet)
}

// Shutdown stops the simulation for good.
func (s *Simulator) Shutdown(ctx context.Context) error {
	return s.reg.Shutdown(ctx)
}
