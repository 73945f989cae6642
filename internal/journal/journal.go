// internal/journal/journal.go
package journal

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/logger"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// DefaultCapacity is how many closed trades are kept in memory.
const DefaultCapacity = 500

// Header is the column layout of the CSV journal.
var Header = []string{
	"closed_at", "wallet", "token_mint", "symbol", "amount", "entry_price",
	"exit_price", "profit", "profit_percent", "close_reason", "hold_time",
}

// Journal records closed trades: a bounded in-memory history plus an
// optional append-only CSV file.
type Journal struct {
	mu       sync.RWMutex
	closed   []trade.Record
	capacity int
	csv      *logger.SafeCSVWriter
	logger   *zap.Logger

	wins, losses int
	totalProfit  float64
}

// New opens a journal. An empty path keeps history in memory only.
func New(path string, capacity int, log *zap.Logger) (*Journal, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	j := &Journal{
		closed:   make([]trade.Record, 0, capacity),
		capacity: capacity,
		logger:   log.Named("journal"),
	}
	if path != "" {
		w, err := logger.NewSafeCSVWriter(path, Header, 5*time.Second, j.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		j.csv = w
		j.logger.Info("Trade journal initialized", zap.String("csv_file", path), zap.Int("capacity", capacity))
	}
	return j, nil
}

// Attach subscribes the journal to closed-trade events on bus.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.TradeClosed, j)
}

// Handle implements events.Handler.
func (j *Journal) Handle(_ context.Context, ev events.Event) error {
	closed, ok := ev.(events.TradeClosedEvent)
	if !ok {
		return nil
	}
	return j.Record(closed.Trade)
}

// Record appends a closed trade.
func (j *Journal) Record(rec trade.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.closed) >= j.capacity {
		j.closed = j.closed[1:]
	}
	j.closed = append(j.closed, rec)

	if rec.Profit >= 0 {
		j.wins++
	} else {
		j.losses++
	}
	j.totalProfit += rec.Profit

	if j.csv == nil {
		return nil
	}
	if err := j.csv.WriteRecord(row(rec)); err != nil {
		j.logger.Error("Failed to write trade to journal",
			zap.String("wallet", rec.Wallet),
			zap.String("mint", rec.Mint),
			zap.Error(err))
		return fmt.Errorf("failed to journal trade: %w", err)
	}
	return nil
}

func row(rec trade.Record) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		rec.ClosedAt.UTC().Format(time.RFC3339),
		rec.Wallet,
		rec.Mint,
		rec.Symbol,
		f(rec.Amount),
		f(rec.EntryPrice),
		f(rec.CurrentPrice),
		f(rec.Profit),
		strconv.FormatFloat(rec.ProfitPercent, 'f', 2, 64),
		string(rec.CloseReason),
		rec.HoldTime(rec.ClosedAt),
	}
}

// History returns the closed trades of wallet, newest first. An empty wallet
// returns every wallet's trades.
func (j *Journal) History(wallet string) []trade.Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]trade.Record, 0)
	for i := len(j.closed) - 1; i >= 0; i-- {
		if wallet == "" || j.closed[i].Wallet == wallet {
			out = append(out, j.closed[i])
		}
	}
	return out
}

// Recent returns up to limit closed trades, newest first.
func (j *Journal) Recent(limit int) []trade.Record {
	all := j.History("")
	if limit > 0 && limit < len(all) {
		return all[:limit]
	}
	return all
}

// Statistics summarizes every trade recorded since the journal opened.
type Statistics struct {
	Closed      int     `json:"closed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	TotalProfit float64 `json:"total_profit"`
}

func (j *Journal) Statistics() Statistics {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Statistics{
		Closed:      j.wins + j.losses,
		Wins:        j.wins,
		Losses:      j.losses,
		TotalProfit: j.totalProfit,
	}
	if s.Closed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closed) * 100
	}
	return s
}

// Close flushes and closes the CSV file.
func (j *Journal) Close() error {
	stats := j.Statistics()
	j.logger.Info("Closing trade journal",
		zap.Int("closed", stats.Closed),
		zap.Float64("total_profit", stats.TotalProfit),
		zap.Float64("win_rate", stats.WinRate))

	if j.csv == nil {
		return nil
	}
	return j.csv.Close()
}
