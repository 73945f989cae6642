// Package executor fills the buy and sell decisions made by a bot.
package executor

import (
	"context"
	"errors"
	"time"
)

// ErrExecution wraps any failure to fill an order.
var ErrExecution = errors.New("order execution failed")

// Fill describes a completed order.
type Fill struct {
	Mint string
	// AmountSol is the SOL spent on a buy or received on a sell.
	AmountSol float64
	// TokenAmount is the raw token amount bought or sold, when known.
	TokenAmount uint64
	At          time.Time
}

// Executor buys and sells tokens on behalf of a bot. An executor keeps no
// positions; Sell is told how many tokens the trade holds.
type Executor interface {
	Buy(ctx context.Context, mint string, amountSol float64) (Fill, error)
	Sell(ctx context.Context, mint string, tokenAmount uint64) (Fill, error)
}
