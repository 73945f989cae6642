package ui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// TradeOpenedMsg and TradeClosedMsg carry trade events into the program.
type TradeOpenedMsg struct{ Trade trade.Record }

type TradeClosedMsg struct{ Trade trade.Record }

// Forwarder turns bus events into tea messages without ever blocking the
// bus: when the UI falls behind, updates are dropped and counted.
type Forwarder struct {
	ch      chan tea.Msg
	sent    atomic.Uint64
	dropped atomic.Uint64
	logger  *zap.Logger
}

func NewForwarder(size int, logger *zap.Logger) *Forwarder {
	if size <= 0 {
		size = 64
	}
	return &Forwarder{ch: make(chan tea.Msg, size), logger: logger.Named("ui_forwarder")}
}

// Attach subscribes to trade events on bus.
func (f *Forwarder) Attach(bus *events.Bus) []events.Subscription {
	return []events.Subscription{
		bus.SubscribeFunc(events.TradeOpened, f.handle),
		bus.SubscribeFunc(events.TradeClosed, f.handle),
	}
}

func (f *Forwarder) handle(_ context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.TradeOpenedEvent:
		f.send(TradeOpenedMsg{Trade: e.Trade})
	case events.TradeClosedEvent:
		f.send(TradeClosedMsg{Trade: e.Trade})
	}
	return nil
}

func (f *Forwarder) send(msg tea.Msg) {
	select {
	case f.ch <- msg:
		f.sent.Add(1)
	default:
		if f.dropped.Add(1)%100 == 1 {
			f.logger.Warn("UI update dropped", zap.Uint64("dropped", f.dropped.Load()))
		}
	}
}

// Updates is the channel the dashboard listens on.
func (f *Forwarder) Updates() <-chan tea.Msg {
	return f.ch
}

// Stats returns how many updates were delivered and dropped.
func (f *Forwarder) Stats() (sent, dropped uint64) {
	return f.sent.Load(), f.dropped.Load()
}
