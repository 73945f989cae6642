// Package price provides token price lookups for the trade monitor.
package price

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPriceUnavailable means the upstream has no quote for the token.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrUpstream covers transport, timeout and decoding failures.
	ErrUpstream = errors.New("price upstream error")
)

// Oracle returns the current price of a token. Implementations do not cache;
// callers own the polling cadence.
type Oracle interface {
	GetPrice(ctx context.Context, mint string) (float64, error)
}

// Quote is a timestamped price, as served to API clients.
type Quote struct {
	Mint  string    `json:"tokenMint"`
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}

// GetQuote wraps an oracle lookup into a Quote.
func GetQuote(ctx context.Context, o Oracle, mint string) (Quote, error) {
	p, err := o.GetPrice(ctx, mint)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Mint: mint, Price: p, Time: time.Now().UTC()}, nil
}
