// internal/bot/filter.go
package bot

import (
	"strings"

	"github.com/rovshanmuradov/launch-trader/internal/discovery"
)

// Accepts reports whether a listing passes every configured filter. The
// bonding-curve value stands in for both liquidity and price.
func (f FilterConfig) Accepts(l discovery.TokenListing) bool {
	if f.MinLiquidity > 0 && l.Liquidity < f.MinLiquidity {
		return false
	}
	if f.MinPrice > 0 && l.Liquidity < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.Liquidity > f.MaxPrice {
		return false
	}
	if f.MinInitialBuy > 0 && l.InitialBuy < f.MinInitialBuy {
		return false
	}
	if f.MinMarketCap > 0 && l.MarketCapSol < f.MinMarketCap {
		return false
	}
	if f.SymbolPattern != "" && !containsFold(l.Symbol, f.SymbolPattern) {
		return false
	}
	if f.NamePattern != "" && !containsFold(l.Name, f.NamePattern) {
		return false
	}
	if f.MinKnownMarkets > 0 && l.KnownMarketCount() < f.MinKnownMarkets {
		return false
	}
	return true
}

// Filter returns the accepted listings in their original order.
func (f FilterConfig) Filter(listings []discovery.TokenListing) []discovery.TokenListing {
	out := make([]discovery.TokenListing, 0, len(listings))
	for _, l := range listings {
		if f.Accepts(l) {
			out = append(out, l)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
