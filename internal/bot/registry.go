// internal/bot/registry.go
package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/discovery"
	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/executor"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/snapshot"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

const (
	DefaultCycleInterval    = 10 * time.Second
	defaultPriceConcurrency = 4
)

// Deps are the collaborators shared by every bot of a registry.
type Deps struct {
	Oracle   price.Oracle
	Source   discovery.Source
	Executor executor.Executor

	// Store and SnapshotName are optional; without a store nothing is persisted.
	Store        snapshot.Store
	SnapshotName string

	// Events is optional.
	Events events.Publisher

	Logger           *zap.Logger
	Clock            func() time.Time
	Interval         time.Duration
	PriceConcurrency int
}

// Registry owns one Bot per wallet and schedules their monitoring cycles.
type Registry struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	bots map[string]*Bot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// saveMu guards saving and stale. At most one snapshot write is in
	// flight; writes requested meanwhile collapse into one follow-up.
	saveMu sync.Mutex
	saving bool
	stale  bool
	saveWG sync.WaitGroup
}

// NewRegistry creates an empty registry. Cycles run until Shutdown.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultCycleInterval
	}
	if deps.PriceConcurrency <= 0 {
		deps.PriceConcurrency = defaultPriceConcurrency
	}
	if deps.SnapshotName == "" {
		deps.SnapshotName = snapshot.LiveTrades
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		deps:   deps,
		logger: deps.Logger.Named("registry"),
		now:    deps.Clock,
		bots:   make(map[string]*Bot),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *Registry) bot(wallet string) (*Bot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bots[wallet]
	return b, ok
}

// Start creates the wallet's bot on first use and arms its scheduler. It
// returns false without effect when the bot is already running. The supplied
// overrides only apply to a bot that has no configuration yet.
func (r *Registry) Start(wallet string, overrides Overrides) (bool, error) {
	if wallet == "" {
		return false, fmt.Errorf("%w: wallet is required", ErrInvalidConfig)
	}
	cfg := overrides.Apply(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	b, ok := r.bots[wallet]
	if !ok {
		b = newBot(wallet, cfg, true, r.logger)
		r.bots[wallet] = b
	}
	r.mu.Unlock()

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return false, nil
	}
	if !b.configured {
		b.config = cfg
		b.configured = true
	}
	stop := make(chan struct{})
	b.stop = stop
	b.running = true
	running := b.config
	b.mu.Unlock()

	r.wg.Add(1)
	go r.loop(b, stop)

	b.logger.Info("Bot started",
		zap.Float64("buy_amount", running.Buy.Amount),
		zap.Float64("take_profit", running.Sell.TakeProfit),
		zap.Float64("stop_loss", running.Sell.StopLoss),
		zap.Int("timeout_s", running.Sell.Timeout),
		zap.Int("max_tokens", running.Filters.MaxTokens))
	r.publish(events.NewBotStarted(wallet, r.now()))
	return true, nil
}

// Stop disarms the wallet's scheduler. A cycle already in flight finishes.
// It returns false when the bot is not running.
func (r *Registry) Stop(wallet string) bool {
	b, ok := r.bot(wallet)
	if !ok {
		return false
	}

	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return false
	}
	close(b.stop)
	b.running = false
	open := len(b.trades)
	b.mu.Unlock()

	b.logger.Info("Bot stopped", zap.Int("open_trades", open))
	r.publish(events.NewBotStopped(wallet, open, r.now()))
	return true
}

// Configure replaces a stopped bot's configuration, creating the bot if needed.
func (r *Registry) Configure(wallet string, overrides Overrides) error {
	if wallet == "" {
		return fmt.Errorf("%w: wallet is required", ErrInvalidConfig)
	}
	cfg := overrides.Apply(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	b, ok := r.bots[wallet]
	if !ok {
		r.bots[wallet] = newBot(wallet, cfg, true, r.logger)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyRunning
	}
	b.config = cfg
	b.configured = true
	return nil
}

// Status reports the wallet's bot state.
func (r *Registry) Status(wallet string) Status {
	b, ok := r.bot(wallet)
	if !ok {
		return Status{Wallet: wallet, State: StateNotStarted}
	}
	return b.status()
}

// OpenTrades returns copies of the wallet's open trades.
func (r *Registry) OpenTrades(wallet string) []trade.Record {
	b, ok := r.bot(wallet)
	if !ok {
		return nil
	}
	return b.records()
}

// Wallets lists every wallet that has a bot, sorted.
func (r *Registry) Wallets() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.bots))
	for w := range r.bots {
		out = append(out, w)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Discovered collects one discovery pass and, when the wallet has a bot,
// applies its filters.
func (r *Registry) Discovered(ctx context.Context, wallet string) []discovery.TokenListing {
	listings := r.deps.Source.Collect(ctx)
	b, ok := r.bot(wallet)
	if !ok {
		return listings
	}
	return b.Config().Filters.Filter(listings)
}

// Restore rebuilds stopped bots from the last snapshot and returns the number
// of trades restored. A missing or unreadable snapshot restores nothing.
func (r *Registry) Restore(ctx context.Context) int {
	if r.deps.Store == nil {
		return 0
	}
	records, err := r.deps.Store.Load(ctx, r.deps.SnapshotName)
	if err != nil {
		r.logger.Warn("Snapshot unreadable, starting empty",
			zap.String("name", r.deps.SnapshotName),
			zap.Error(err))
		return 0
	}

	restored := 0
	for _, rec := range records {
		t, err := trade.FromRecord(rec)
		if err != nil {
			r.logger.Warn("Skipping snapshot record", zap.String("token_mint", rec.Mint), zap.Error(err))
			continue
		}

		r.mu.Lock()
		b, ok := r.bots[rec.Wallet]
		if !ok {
			b = newBot(rec.Wallet, DefaultConfig(), false, r.logger)
			r.bots[rec.Wallet] = b
		}
		r.mu.Unlock()

		if b.addTrade(t, 0) {
			restored++
		}
	}

	r.logger.Info("Snapshot restored",
		zap.String("name", r.deps.SnapshotName),
		zap.Int("trades", restored))
	return restored
}

// Shutdown stops every scheduler, waits for in-flight cycles (bounded by
// ctx) and writes a final snapshot.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		r.saveWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		r.logger.Warn("Timed out waiting for bot cycles", zap.Error(err))
	}

	r.persist(context.Background())
	return err
}

func (r *Registry) loop(b *Bot, stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		// Stop is honoured at the cycle boundary only.
		select {
		case <-stop:
			return
		default:
		}
		r.runCycle(r.ctx, b)
	}
}

func (r *Registry) allRecords() []trade.Record {
	r.mu.RLock()
	bots := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		bots = append(bots, b)
	}
	r.mu.RUnlock()

	sort.Slice(bots, func(i, j int) bool { return bots[i].wallet < bots[j].wallet })

	var out []trade.Record
	for _, b := range bots {
		out = append(out, b.records()...)
	}
	return out
}

// persist saves the open trades of every bot. A caller that finds a save in
// flight marks the snapshot stale and returns at once; the follow-up write
// runs in the background so no cycle waits on another bot's save.
func (r *Registry) persist(ctx context.Context) {
	if r.deps.Store == nil {
		return
	}

	r.saveMu.Lock()
	if r.saving {
		r.stale = true
		r.saveMu.Unlock()
		return
	}
	r.saving = true
	r.saveMu.Unlock()

	r.save(ctx)
	r.saveDone()
}

// saveDone releases the save slot, or hands it to a background write when
// the snapshot went stale meanwhile.
func (r *Registry) saveDone() {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if !r.stale {
		r.saving = false
		return
	}
	r.stale = false
	r.saveWG.Add(1)
	go func() {
		defer r.saveWG.Done()
		r.save(context.Background())
		r.saveDone()
	}()
}

// save writes the current records. Failures are logged only; the in-memory
// state stays authoritative.
func (r *Registry) save(ctx context.Context) {
	records := r.allRecords()
	if err := r.deps.Store.Save(ctx, r.deps.SnapshotName, records); err != nil {
		r.logger.Error("Failed to save snapshot",
			zap.String("name", r.deps.SnapshotName),
			zap.Int("trades", len(records)),
			zap.Error(err))
	}
}

func (r *Registry) publish(e events.Event) {
	if r.deps.Events == nil {
		return
	}
	if err := r.deps.Events.Publish(e); err != nil {
		r.logger.Debug("Event not published", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}
