package executor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Paper fills every order immediately without touching the chain.
type Paper struct {
	logger *zap.Logger
	// size, when set, overrides the requested buy amount.
	size func() float64
}

// NewPaper creates a paper executor. size may be nil.
func NewPaper(logger *zap.Logger, size func() float64) *Paper {
	return &Paper{logger: logger.Named("paper"), size: size}
}

func (p *Paper) Buy(ctx context.Context, mint string, amountSol float64) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if p.size != nil {
		amountSol = p.size()
	}
	p.logger.Info("Paper buy", zap.String("token_mint", mint), zap.Float64("amount_sol", amountSol))
	return Fill{Mint: mint, AmountSol: amountSol, At: time.Now()}, nil
}

func (p *Paper) Sell(ctx context.Context, mint string, tokenAmount uint64) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	p.logger.Info("Paper sell", zap.String("token_mint", mint), zap.Uint64("tokens_in", tokenAmount))
	return Fill{Mint: mint, TokenAmount: tokenAmount, At: time.Now()}, nil
}
