package executor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ilkamo/jupiter-go/jupiter"
	"go.uber.org/zap"
)

const (
	solMint         = "So11111111111111111111111111111111111111112"
	lamportsPerSol  = 1e9
	defaultSlippage = 3000 // bps
)

// quoter is the subset of the Jupiter client used here.
type quoter interface {
	GetQuoteWithResponse(ctx context.Context, params *jupiter.GetQuoteParams, reqEditors ...jupiter.RequestEditorFn) (*jupiter.GetQuoteResponse, error)
}

// JupiterExecutor prices orders with Jupiter swap quotes. It never signs or
// sends transactions; a fill is the amount the quote says the swap would yield.
type JupiterExecutor struct {
	client      quoter
	slippageBps int
	logger      *zap.Logger
}

// NewJupiterExecutor creates a quote-based executor against apiURL.
func NewJupiterExecutor(apiURL string, slippagePercent float64, logger *zap.Logger) (*JupiterExecutor, error) {
	if apiURL == "" {
		apiURL = jupiter.DefaultAPIURL
	}
	client, err := jupiter.NewClientWithResponses(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jupiter client: %w", err)
	}
	return newJupiterExecutor(client, slippagePercent, logger), nil
}

func newJupiterExecutor(client quoter, slippagePercent float64, logger *zap.Logger) *JupiterExecutor {
	bps := int(slippagePercent * 100)
	if bps <= 0 {
		bps = defaultSlippage
	}
	return &JupiterExecutor{
		client:      client,
		slippageBps: bps,
		logger:      logger.Named("jupiter_executor"),
	}
}

// Buy quotes a SOL -> mint swap. The fill carries the quoted token amount.
func (e *JupiterExecutor) Buy(ctx context.Context, mint string, amountSol float64) (Fill, error) {
	lamports := int64(amountSol * lamportsPerSol)
	if lamports <= 0 {
		return Fill{}, fmt.Errorf("%w: buy amount %v SOL", ErrExecution, amountSol)
	}

	out, err := e.quote(ctx, solMint, mint, lamports)
	if err != nil {
		return Fill{}, err
	}

	e.logger.Info("Buy quoted",
		zap.String("token_mint", mint),
		zap.Float64("amount_sol", amountSol),
		zap.Uint64("tokens_out", out))

	return Fill{Mint: mint, AmountSol: amountSol, TokenAmount: out, At: time.Now()}, nil
}

// Sell quotes a mint -> SOL swap for tokenAmount. A trade with no recorded
// token amount has nothing to quote and fills for zero SOL.
func (e *JupiterExecutor) Sell(ctx context.Context, mint string, tokenAmount uint64) (Fill, error) {
	if tokenAmount == 0 {
		e.logger.Warn("No token amount recorded, closing without a quote", zap.String("token_mint", mint))
		return Fill{Mint: mint, At: time.Now()}, nil
	}
	if tokenAmount > math.MaxInt64 {
		return Fill{}, fmt.Errorf("%w: token amount %d out of range", ErrExecution, tokenAmount)
	}

	lamports, err := e.quote(ctx, mint, solMint, int64(tokenAmount))
	if err != nil {
		return Fill{}, err
	}

	sol := float64(lamports) / lamportsPerSol
	e.logger.Info("Sell quoted",
		zap.String("token_mint", mint),
		zap.Uint64("tokens_in", tokenAmount),
		zap.Float64("amount_sol", sol))

	return Fill{Mint: mint, AmountSol: sol, TokenAmount: tokenAmount, At: time.Now()}, nil
}

func (e *JupiterExecutor) quote(ctx context.Context, in, out string, amount int64) (uint64, error) {
	slippage := e.slippageBps
	resp, err := e.client.GetQuoteWithResponse(ctx, &jupiter.GetQuoteParams{
		InputMint:   in,
		OutputMint:  out,
		Amount:      amount,
		SlippageBps: &slippage,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: quote %s -> %s: %v", ErrExecution, in, out, err)
	}
	if resp.JSON200 == nil {
		return 0, fmt.Errorf("%w: no valid quote response received (status %d)", ErrExecution, resp.StatusCode())
	}

	n, err := strconv.ParseUint(resp.JSON200.OutAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad out amount %q", ErrExecution, resp.JSON200.OutAmount)
	}
	return n, nil
}
