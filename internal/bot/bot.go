// internal/bot/bot.go
package bot

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// State is the lifecycle state reported for a wallet.
type State string

const (
	StateNotStarted State = "not_started"
	StateStopped    State = "stopped"
	StateRunning    State = "running"
)

// Status is a point-in-time view of one wallet's bot.
type Status struct {
	Wallet     string  `json:"wallet"`
	State      State   `json:"state"`
	OpenTrades int     `json:"openTrades"`
	Config     *Config `json:"config,omitempty"`
}

// Bot owns the open trades of one wallet. Its fields are guarded by mu;
// cycleMu keeps two cycles of the same bot from overlapping, even across a
// stop/start pair.
type Bot struct {
	wallet string
	logger *zap.Logger

	mu         sync.RWMutex
	config     Config
	configured bool // false for bots rebuilt from a snapshot until their first start
	trades     map[string]*trade.Trade
	running    bool
	stop       chan struct{}

	cycleMu sync.Mutex
}

func newBot(wallet string, cfg Config, configured bool, logger *zap.Logger) *Bot {
	return &Bot{
		wallet:     wallet,
		logger:     logger.With(zap.String("wallet", wallet)),
		config:     cfg,
		configured: configured,
		trades:     make(map[string]*trade.Trade),
	}
}

// Config returns the bot's current configuration.
func (b *Bot) Config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

func (b *Bot) status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Status{Wallet: b.wallet, State: StateStopped, OpenTrades: len(b.trades)}
	if b.running {
		cfg := b.config
		st.State = StateRunning
		st.Config = &cfg
	}
	return st
}

func (b *Bot) openCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trades)
}

func (b *Bot) hasTrade(mint string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.trades[mint]
	return ok
}

// addTrade stores t unless the mint is already held or the bot is at its
// limit. It reports whether t was added.
func (b *Bot) addTrade(t *trade.Trade, limit int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.trades[t.Mint()]; ok {
		return false
	}
	if limit > 0 && len(b.trades) >= limit {
		return false
	}
	b.trades[t.Mint()] = t
	return true
}

func (b *Bot) removeTrade(mint string) {
	b.mu.Lock()
	delete(b.trades, mint)
	b.mu.Unlock()
}

// openTrades returns the live trade handles sorted by entry order.
func (b *Bot) openTrades() []*trade.Trade {
	b.mu.RLock()
	out := make([]*trade.Trade, 0, len(b.trades))
	for _, t := range b.trades {
		out = append(out, t)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Snapshot(), out[j].Snapshot()
		if !ri.EntryTime.Equal(rj.EntryTime) {
			return ri.EntryTime.Before(rj.EntryTime)
		}
		return ri.Mint < rj.Mint
	})
	return out
}

func (b *Bot) records() []trade.Record {
	open := b.openTrades()
	out := make([]trade.Record, len(open))
	for i, t := range open {
		out[i] = t.Snapshot()
	}
	return out
}
