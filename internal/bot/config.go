// internal/bot/config.go
package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

var (
	ErrInvalidConfig  = errors.New("invalid bot configuration")
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
)

// BuyConfig sizes new positions.
type BuyConfig struct {
	Amount      float64 `json:"amount" yaml:"amount"`
	PriorityFee float64 `json:"priorityFee" yaml:"priority_fee"`
	Slippage    float64 `json:"slippage" yaml:"slippage"`
}

// SellConfig is the exit policy applied to every trade the bot opens.
type SellConfig struct {
	TakeProfit  float64 `json:"takeProfit" yaml:"take_profit"`
	StopLoss    float64 `json:"stopLoss" yaml:"stop_loss"`
	Slippage    float64 `json:"slippage" yaml:"slippage"`
	Timeout     int     `json:"timeout" yaml:"timeout"` // seconds
	PriorityFee float64 `json:"priorityFee" yaml:"priority_fee"`
}

// FilterConfig selects which listings a bot trades. Zero values are unset
// and always pass.
type FilterConfig struct {
	MinLiquidity    float64 `json:"minLiquidity,omitempty" yaml:"min_liquidity"`
	MinPrice        float64 `json:"minPrice,omitempty" yaml:"min_price"`
	MaxPrice        float64 `json:"maxPrice,omitempty" yaml:"max_price"`
	MinInitialBuy   float64 `json:"minInitialBuy,omitempty" yaml:"min_initial_buy"`
	MinMarketCap    float64 `json:"minMarketCap,omitempty" yaml:"min_market_cap"`
	SymbolPattern   string  `json:"symbolPattern,omitempty" yaml:"symbol_pattern"`
	NamePattern     string  `json:"namePattern,omitempty" yaml:"name_pattern"`
	MinKnownMarkets int     `json:"minKnownMarkets,omitempty" yaml:"min_known_markets"`
	MaxTokens       int     `json:"maxTokens" yaml:"max_tokens"`
}

// Config is the full per-wallet configuration.
type Config struct {
	Buy     BuyConfig    `json:"buy" yaml:"buy"`
	Sell    SellConfig   `json:"sell" yaml:"sell"`
	Filters FilterConfig `json:"filters" yaml:"filters"`
}

// Overrides replaces whole sections of the default configuration. Nil
// sections keep the default.
type Overrides struct {
	Buy     *BuyConfig    `json:"buy,omitempty" yaml:"buy"`
	Sell    *SellConfig   `json:"sell,omitempty" yaml:"sell"`
	Filters *FilterConfig `json:"filters,omitempty" yaml:"filters"`
}

// DefaultConfig returns the configuration used when a wallet supplies none.
func DefaultConfig() Config {
	return Config{
		Buy: BuyConfig{Amount: 0.01, PriorityFee: 0.001, Slippage: 30},
		Sell: SellConfig{
			TakeProfit:  25,
			StopLoss:    15,
			Slippage:    30,
			Timeout:     60,
			PriorityFee: 0.001,
		},
		Filters: FilterConfig{MinLiquidity: 1000, MaxTokens: 5},
	}
}

// Apply returns base with the non-nil sections of o substituted.
func (o Overrides) Apply(base Config) Config {
	if o.Buy != nil {
		base.Buy = *o.Buy
	}
	if o.Sell != nil {
		base.Sell = *o.Sell
	}
	if o.Filters != nil {
		base.Filters = *o.Filters
	}
	return base
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Buy.Amount <= 0:
		return fmt.Errorf("%w: buy.amount must be positive", ErrInvalidConfig)
	case c.Buy.Slippage < 0 || c.Buy.Slippage > 100:
		return fmt.Errorf("%w: buy.slippage must be within 0..100", ErrInvalidConfig)
	case c.Sell.TakeProfit <= 0:
		return fmt.Errorf("%w: sell.takeProfit must be positive", ErrInvalidConfig)
	case c.Sell.StopLoss <= 0 || c.Sell.StopLoss >= 100:
		return fmt.Errorf("%w: sell.stopLoss must be within (0, 100)", ErrInvalidConfig)
	case c.Sell.Timeout <= 0:
		return fmt.Errorf("%w: sell.timeout must be positive", ErrInvalidConfig)
	case c.Sell.Slippage < 0 || c.Sell.Slippage > 100:
		return fmt.Errorf("%w: sell.slippage must be within 0..100", ErrInvalidConfig)
	case c.Filters.MaxTokens <= 0:
		return fmt.Errorf("%w: filters.maxTokens must be positive", ErrInvalidConfig)
	case c.Filters.MaxPrice > 0 && c.Filters.MinPrice > c.Filters.MaxPrice:
		return fmt.Errorf("%w: filters.minPrice exceeds filters.maxPrice", ErrInvalidConfig)
	case c.Filters.MinLiquidity < 0 || c.Filters.MinInitialBuy < 0 || c.Filters.MinMarketCap < 0 || c.Filters.MinKnownMarkets < 0:
		return fmt.Errorf("%w: filter minimums must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ExitPolicy converts the sell section into the thresholds a trade freezes.
func (c Config) ExitPolicy() trade.ExitPolicy {
	return trade.ExitPolicy{
		TakeProfitPercent: c.Sell.TakeProfit,
		StopLossPercent:   c.Sell.StopLoss,
		Timeout:           time.Duration(c.Sell.Timeout) * time.Second,
	}
}
