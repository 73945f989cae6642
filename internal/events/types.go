// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// EventType represents the type of event.
type EventType string

const (
	// Trade lifecycle events
	TradeOpened EventType = "trade.opened"
	TradeClosed EventType = "trade.closed"

	// Bot lifecycle events
	BotStarted EventType = "bot.started"
	BotStopped EventType = "bot.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TradeOpenedEvent is emitted when a bot opens a position.
type TradeOpenedEvent struct {
	BaseEvent
	Trade trade.Record
}

// TradeClosedEvent is emitted once a trade reaches a terminal state.
type TradeClosedEvent struct {
	BaseEvent
	Trade trade.Record
}

// BotStartedEvent is emitted when a bot's monitoring loop begins.
type BotStartedEvent struct {
	BaseEvent
	Wallet string
}

// BotStoppedEvent is emitted when a bot's monitoring loop exits.
type BotStoppedEvent struct {
	BaseEvent
	Wallet     string
	OpenTrades int
}

// NewTradeOpened builds a TradeOpenedEvent stamped at now.
func NewTradeOpened(rec trade.Record, now time.Time) TradeOpenedEvent {
	return TradeOpenedEvent{BaseEvent: BaseEvent{EventType: TradeOpened, EventTime: now}, Trade: rec}
}

// NewTradeClosed builds a TradeClosedEvent stamped at now.
func NewTradeClosed(rec trade.Record, now time.Time) TradeClosedEvent {
	return TradeClosedEvent{BaseEvent: BaseEvent{EventType: TradeClosed, EventTime: now}, Trade: rec}
}

func NewBotStarted(wallet string, now time.Time) BotStartedEvent {
	return BotStartedEvent{BaseEvent: BaseEvent{EventType: BotStarted, EventTime: now}, Wallet: wallet}
}

func NewBotStopped(wallet string, open int, now time.Time) BotStoppedEvent {
	return BotStoppedEvent{BaseEvent: BaseEvent{EventType: BotStopped, EventTime: now}, Wallet: wallet, OpenTrades: open}
}
