// Package discovery consumes the launch feed of newly listed tokens.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedListing is returned for payloads that cannot be decoded.
	ErrMalformedListing = errors.New("malformed listing payload")
	// errNoMint marks control messages (acks, errors) that carry no token.
	errNoMint = errors.New("listing has no mint")
)

// TokenListing describes one newly discovered token. Values are immutable
// once produced by the feed.
type TokenListing struct {
	Mint            string            `json:"mint"`
	Symbol          string            `json:"symbol"`
	Name            string            `json:"name"`
	Liquidity       float64           `json:"vSolInBondingCurve"`
	InitialBuy      float64           `json:"initialBuy"`
	MarketCapSol    float64           `json:"marketCapSol"`
	KnownMarkets    []json.RawMessage `json:"known_markets,omitempty"`
	TraderPublicKey string            `json:"traderPublicKey,omitempty"`
	BondingCurveKey string            `json:"bondingCurveKey,omitempty"`
	URI             string            `json:"uri,omitempty"`
	Signature       string            `json:"signature,omitempty"`
	DiscoveredAt    time.Time         `json:"discoveredAt"`
}

// KnownMarketCount returns the number of markets the token is already listed on.
func (l TokenListing) KnownMarketCount() int {
	return len(l.KnownMarkets)
}

// ParseListing decodes a feed message and stamps it with the discovery time.
func ParseListing(data []byte, now time.Time) (TokenListing, error) {
	var l TokenListing
	if err := json.Unmarshal(data, &l); err != nil {
		return TokenListing{}, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}
	if l.Mint == "" {
		return TokenListing{}, errNoMint
	}
	l.DiscoveredAt = now
	return l, nil
}

// Source yields the listings observed during one discovery pass.
type Source interface {
	Collect(ctx context.Context) []TokenListing
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) []TokenListing

func (f SourceFunc) Collect(ctx context.Context) []TokenListing {
	return f(ctx)
}
