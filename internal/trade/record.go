package trade

import (
	"fmt"
	"time"
)

// Record is a point-in-time copy of a trade. It is the unit persisted by the
// snapshot store and returned to readers outside the owning bot.
type Record struct {
	Wallet          string      `json:"wallet"`
	Mint            string      `json:"token_mint"`
	Symbol          string      `json:"symbol,omitempty"`
	Amount          float64     `json:"amount"`
	TokenAmount     uint64      `json:"token_amount,omitempty"`
	EntryPrice      float64     `json:"entry_price"`
	EntryTime       time.Time   `json:"entry_time"`
	CurrentPrice    float64     `json:"current_price"`
	Profit          float64     `json:"profit"`
	ProfitPercent   float64     `json:"profit_percent"`
	TakeProfitPct   float64     `json:"take_profit_pct"`
	StopLossPct     float64     `json:"stop_loss_pct"`
	TakeProfitPrice float64     `json:"take_profit_price"`
	StopLossPrice   float64     `json:"stop_loss_price"`
	Deadline        time.Time   `json:"deadline"`
	Status          Status      `json:"status"`
	CloseReason     CloseReason `json:"close_reason,omitempty"`
	ClosedAt        time.Time   `json:"closed_at,omitempty"`
}

// Snapshot returns a consistent copy of the trade.
func (t *Trade) Snapshot() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Record{
		Wallet:          t.wallet,
		Mint:            t.mint,
		Symbol:          t.symbol,
		Amount:          t.amount,
		TokenAmount:     t.tokens,
		EntryPrice:      t.entryPrice,
		EntryTime:       t.entryTime,
		CurrentPrice:    t.currentPrice,
		Profit:          t.profit,
		ProfitPercent:   t.profitPercent,
		TakeProfitPct:   t.takeProfitPct,
		StopLossPct:     t.stopLossPct,
		TakeProfitPrice: t.takeProfitPrice,
		StopLossPrice:   t.stopLossPrice,
		Deadline:        t.deadline,
		Status:          t.status,
		CloseReason:     t.closeReason,
		ClosedAt:        t.closedAt,
	}
}

// FromRecord rebuilds an open trade from a snapshot record. Thresholds are
// taken from the record as-is so a restored trade exits exactly where the
// original would have.
func FromRecord(r Record) (*Trade, error) {
	if r.Mint == "" || r.EntryPrice <= 0 || r.Amount <= 0 {
		return nil, fmt.Errorf("%w: record for %q", ErrInvalidTrade, r.Mint)
	}
	if r.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: record for %q is completed", ErrTradeClosed, r.Mint)
	}

	status := r.Status
	if !status.Open() {
		status = StatusPending
	}
	current := r.CurrentPrice
	if current <= 0 {
		current = r.EntryPrice
	}

	return &Trade{
		mint:            r.Mint,
		wallet:          r.Wallet,
		symbol:          r.Symbol,
		amount:          r.Amount,
		tokens:          r.TokenAmount,
		entryPrice:      r.EntryPrice,
		entryTime:       r.EntryTime,
		takeProfitPct:   r.TakeProfitPct,
		stopLossPct:     r.StopLossPct,
		takeProfitPrice: r.TakeProfitPrice,
		stopLossPrice:   r.StopLossPrice,
		deadline:        r.Deadline,
		currentPrice:    current,
		profit:          (current - r.EntryPrice) * r.Amount,
		profitPercent:   (current - r.EntryPrice) / r.EntryPrice * 100,
		status:          status,
	}, nil
}

// HoldTime formats the time between entry and close (or now for open trades).
func (r Record) HoldTime(now time.Time) string {
	end := now
	if !r.ClosedAt.IsZero() {
		end = r.ClosedAt
	}
	d := end.Sub(r.EntryTime)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
