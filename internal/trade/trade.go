// internal/trade/trade.go
package trade

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a trade.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Open reports whether the status is one of the open states.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusActive
}

// CloseReason records which exit condition closed a trade.
type CloseReason string

const (
	ReasonNone       CloseReason = ""
	ReasonTakeProfit CloseReason = "take_profit"
	ReasonStopLoss   CloseReason = "stop_loss"
	ReasonTimeout    CloseReason = "timeout"
)

var (
	// ErrTradeClosed is returned by mutations attempted on a completed trade.
	ErrTradeClosed = errors.New("trade is already completed")
	// ErrInvalidTrade is returned when a trade cannot be built from its inputs.
	ErrInvalidTrade = errors.New("invalid trade parameters")
)

// ExitPolicy holds the sell thresholds a trade freezes at creation.
type ExitPolicy struct {
	TakeProfitPercent float64
	StopLossPercent   float64
	Timeout           time.Duration
}

// Trade is one open position of a wallet on a token mint.
//
// Thresholds are computed once in New and never change. Profit figures are
// derived from the current price on every UpdatePrice.
type Trade struct {
	mu sync.RWMutex

	mint   string
	wallet string
	symbol string
	amount float64
	// tokens is the raw token amount the buy filled, 0 when unknown.
	tokens uint64

	entryPrice float64
	entryTime  time.Time

	takeProfitPct   float64
	stopLossPct     float64
	takeProfitPrice float64
	stopLossPrice   float64
	deadline        time.Time

	currentPrice  float64
	profit        float64
	profitPercent float64

	status      Status
	closeReason CloseReason
	pending     CloseReason
	closedAt    time.Time
}

// New creates a pending trade and freezes its exit thresholds.
func New(wallet, mint string, amount, entryPrice float64, policy ExitPolicy, now time.Time) (*Trade, error) {
	if mint == "" {
		return nil, fmt.Errorf("%w: empty mint", ErrInvalidTrade)
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive, got %v", ErrInvalidTrade, entryPrice)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidTrade, amount)
	}

	return &Trade{
		mint:            mint,
		wallet:          wallet,
		amount:          amount,
		entryPrice:      entryPrice,
		entryTime:       now,
		takeProfitPct:   policy.TakeProfitPercent,
		stopLossPct:     policy.StopLossPercent,
		takeProfitPrice: entryPrice * (1 + policy.TakeProfitPercent/100),
		stopLossPrice:   entryPrice * (1 - policy.StopLossPercent/100),
		deadline:        now.Add(policy.Timeout),
		currentPrice:    entryPrice,
		status:          StatusPending,
	}, nil
}

// SetSymbol attaches a display symbol to the trade.
func (t *Trade) SetSymbol(symbol string) {
	t.mu.Lock()
	t.symbol = symbol
	t.mu.Unlock()
}

// SetTokenAmount records the raw token amount bought for this trade. It is
// what a later sell disposes of.
func (t *Trade) SetTokenAmount(tokens uint64) {
	t.mu.Lock()
	t.tokens = tokens
	t.mu.Unlock()
}

// UpdatePrice sets the current price and recomputes profit and profit percent.
// The first update moves a pending trade to active.
func (t *Trade) UpdatePrice(price float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusCompleted {
		return ErrTradeClosed
	}

	t.currentPrice = price
	t.profit = (price - t.entryPrice) * t.amount
	t.profitPercent = (price - t.entryPrice) / t.entryPrice * 100
	if t.status == StatusPending {
		t.status = StatusActive
	}
	return nil
}

// EvaluateExit reports whether an exit condition holds at now and records the
// reason. Take-profit wins over stop-loss, stop-loss over timeout.
func (t *Trade) EvaluateExit(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusCompleted {
		return false
	}

	switch {
	case t.profitPercent >= t.takeProfitPct:
		t.pending = ReasonTakeProfit
	case t.profitPercent <= -t.stopLossPct:
		t.pending = ReasonStopLoss
	case !now.Before(t.deadline):
		t.pending = ReasonTimeout
	default:
		t.pending = ReasonNone
	}
	return t.pending != ReasonNone
}

// ExitReason returns the reason recorded by the last EvaluateExit call.
func (t *Trade) ExitReason() CloseReason {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending
}

// Close completes the trade. It is terminal.
func (t *Trade) Close(reason CloseReason, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusCompleted {
		return ErrTradeClosed
	}

	t.status = StatusCompleted
	t.closeReason = reason
	t.closedAt = now
	return nil
}

func (t *Trade) Mint() string {
	return t.mint
}

func (t *Trade) Wallet() string {
	return t.wallet
}

func (t *Trade) TokenAmount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens
}

func (t *Trade) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Trade) CloseReason() CloseReason {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closeReason
}

// Profit returns the absolute and percentage profit at the current price.
func (t *Trade) Profit() (profit, percent float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.profit, t.profitPercent
}

func (t *Trade) CurrentPrice() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentPrice
}

// Deadline returns the time at which the trade times out.
func (t *Trade) Deadline() time.Time {
	return t.deadline
}
