// internal/bot/cycle.go
package bot

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

type quoteResult struct {
	price float64
	err   error
}

// runCycle performs one monitoring pass for b: refresh and exit open trades,
// then open new ones from discovery. Failures are isolated per item.
func (r *Registry) runCycle(ctx context.Context, b *Bot) {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	changed := r.refreshTrades(ctx, b)
	if r.openFromDiscovery(ctx, b) {
		changed = true
	}
	if changed {
		r.persist(ctx)
	}
}

func (r *Registry) refreshTrades(ctx context.Context, b *Bot) bool {
	open := b.openTrades()
	if len(open) == 0 {
		return false
	}

	results := make([]quoteResult, len(open))
	var g errgroup.Group
	g.SetLimit(r.deps.PriceConcurrency)
	for i, t := range open {
		g.Go(func() error {
			p, err := r.deps.Oracle.GetPrice(ctx, t.Mint())
			results[i] = quoteResult{price: p, err: err}
			return nil
		})
	}
	_ = g.Wait()

	changed := false
	for i, t := range open {
		res := results[i]
		if res.err != nil {
			b.logger.Warn("Price refresh failed",
				zap.String("token_mint", t.Mint()),
				zap.Error(res.err))
		} else if err := t.UpdatePrice(res.price); err == nil {
			changed = true
		}

		// A stale price still lets the deadline fire.
		if t.EvaluateExit(r.now()) && r.closeTrade(ctx, b, t) {
			changed = true
		}
	}
	return changed
}

func (r *Registry) closeTrade(ctx context.Context, b *Bot, t *trade.Trade) bool {
	reason := t.ExitReason()
	fill, err := r.deps.Executor.Sell(ctx, t.Mint(), t.TokenAmount())
	if err != nil {
		b.logger.Error("Sell failed, trade stays open",
			zap.String("token_mint", t.Mint()),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return false
	}

	if err := t.Close(reason, r.now()); err != nil {
		return false
	}
	b.removeTrade(t.Mint())

	rec := t.Snapshot()
	b.logger.Info("Trade closed",
		zap.String("token_mint", rec.Mint),
		zap.String("reason", string(reason)),
		zap.Float64("entry_price", rec.EntryPrice),
		zap.Float64("exit_price", rec.CurrentPrice),
		zap.Float64("profit_percent", rec.ProfitPercent),
		zap.Float64("sol_received", fill.AmountSol))
	r.publish(events.NewTradeClosed(rec, r.now()))
	return true
}

func (r *Registry) openFromDiscovery(ctx context.Context, b *Bot) bool {
	cfg := b.Config()
	limit := cfg.Filters.MaxTokens
	if b.openCount() >= limit {
		return false
	}

	listings := cfg.Filters.Filter(r.deps.Source.Collect(ctx))
	seen := make(map[string]struct{}, len(listings))
	changed := false

	for _, l := range listings {
		if b.openCount() >= limit {
			break
		}
		if _, dup := seen[l.Mint]; dup || b.hasTrade(l.Mint) {
			continue
		}
		seen[l.Mint] = struct{}{}

		entry, err := r.deps.Oracle.GetPrice(ctx, l.Mint)
		if err != nil {
			b.logger.Warn("No entry price, skipping listing",
				zap.String("token_mint", l.Mint),
				zap.Error(err))
			continue
		}

		fill, err := r.deps.Executor.Buy(ctx, l.Mint, cfg.Buy.Amount)
		if err != nil {
			b.logger.Error("Buy failed",
				zap.String("token_mint", l.Mint),
				zap.Error(err))
			continue
		}
		amount := fill.AmountSol
		if amount <= 0 {
			amount = cfg.Buy.Amount
		}

		t, err := trade.New(b.wallet, l.Mint, amount, entry, cfg.ExitPolicy(), r.now())
		if err != nil {
			b.logger.Warn("Cannot open trade", zap.String("token_mint", l.Mint), zap.Error(err))
			continue
		}
		t.SetSymbol(l.Symbol)
		t.SetTokenAmount(fill.TokenAmount)
		if !b.addTrade(t, limit) {
			continue
		}

		changed = true
		rec := t.Snapshot()
		b.logger.Info("Trade opened",
			zap.String("token_mint", rec.Mint),
			zap.String("symbol", rec.Symbol),
			zap.Float64("amount", rec.Amount),
			zap.Float64("entry_price", rec.EntryPrice),
			zap.Float64("take_profit_price", rec.TakeProfitPrice),
			zap.Float64("stop_loss_price", rec.StopLossPrice))
		r.publish(events.NewTradeOpened(rec, r.now()))
	}
	return changed
}
