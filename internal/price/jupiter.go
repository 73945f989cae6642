package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const (
	DefaultJupiterURL = "https://lite-api.jup.ag"
	defaultTimeout    = 10 * time.Second
)

// JupiterOracleConfig configures a JupiterOracle.
type JupiterOracleConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int // outbound requests per second; 0 disables pacing
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// JupiterOracle looks up prices through the Jupiter price v2 endpoint.
type JupiterOracle struct {
	baseURL string
	client  *http.Client
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

type priceResponse struct {
	Data map[string]*struct {
		ID    string      `json:"id"`
		Type  string      `json:"type"`
		Price json.Number `json:"price"`
	} `json:"data"`
}

// NewJupiterOracle creates a price client for the given configuration.
func NewJupiterOracle(cfg JupiterOracleConfig) *JupiterOracle {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultJupiterURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSec > 0 {
		limiter = ratelimit.New(cfg.RatePerSec)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JupiterOracle{
		baseURL: base,
		client:  client,
		limiter: limiter,
		logger:  logger.Named("price"),
	}
}

// GetPrice performs one request for the token's current price.
func (o *JupiterOracle) GetPrice(ctx context.Context, mint string) (float64, error) {
	if mint == "" {
		return 0, fmt.Errorf("%w: empty mint", ErrPriceUnavailable)
	}

	o.limiter.Take()

	endpoint := o.baseURL + "/price/v2?ids=" + url.QueryEscape(mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	entry := payload.Data[mint]
	if entry == nil || entry.Price == "" {
		return 0, fmt.Errorf("%w: no quote for %s", ErrPriceUnavailable, mint)
	}
	p, err := entry.Price.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: malformed price %q", ErrUpstream, entry.Price)
	}
	if p <= 0 {
		return 0, fmt.Errorf("%w: non-positive price for %s", ErrPriceUnavailable, mint)
	}

	o.logger.Debug("Price fetched", zap.String("token_mint", mint), zap.Float64("price", p))
	return p, nil
}
