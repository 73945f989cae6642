package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launch-trader/internal/auth"
	"github.com/rovshanmuradov/launch-trader/internal/bot"
	"github.com/rovshanmuradov/launch-trader/internal/discovery"
	"github.com/rovshanmuradov/launch-trader/internal/executor"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

type stubOracle map[string]error

func (o stubOracle) GetPrice(_ context.Context, mint string) (float64, error) {
	if err, ok := o[mint]; ok {
		return 0, err
	}
	return 0.25, nil
}

type stubSimulation struct {
	running bool
	trades  []trade.Record
}

func (s *stubSimulation) Start() bool {
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *stubSimulation) Stop() bool {
	if !s.running {
		return false
	}
	s.running = false
	return true
}

func (s *stubSimulation) Running() bool          { return s.running }
func (s *stubSimulation) Trades() []trade.Record { return s.trades }

type stubHistory []trade.Record

func (h stubHistory) History(wallet string) []trade.Record {
	var out []trade.Record
	for _, r := range h {
		if r.Wallet == wallet {
			out = append(out, r)
		}
	}
	return out
}

type harness struct {
	srv    *httptest.Server
	reg    *bot.Registry
	sim    *stubSimulation
	wallet auth.Wallet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)

	listings := []discovery.TokenListing{
		{Mint: "mint-big", Symbol: "BIG", Liquidity: 5000},
		{Mint: "mint-small", Symbol: "SMALL", Liquidity: 10},
	}
	reg := bot.NewRegistry(bot.Deps{
		Oracle:   price.NewRandomWalk(1),
		Source:   discovery.SourceFunc(func(context.Context) []discovery.TokenListing { return listings }),
		Executor: executor.NewPaper(log, nil),
		Logger:   log,
		Interval: time.Hour,
	})

	wallet, err := auth.GenerateWallet()
	require.NoError(t, err)

	sim := &stubSimulation{}
	s := NewServer(Config{
		Trading:    reg,
		Simulation: sim,
		History:    stubHistory{{Wallet: wallet.PublicKey, Mint: "closed-mint", Status: trade.StatusCompleted}},
		Oracle: stubOracle{
			"unknown": price.ErrPriceUnavailable,
			"broken":  fmt.Errorf("%w: status 500", price.ErrUpstream),
		},
		Logger: log,
		Airdrop: func(_ context.Context, w string) (string, error) {
			if w == "fail" {
				return "", errors.New("rpc down")
			}
			return "sig-" + w, nil
		},
	})

	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		_ = reg.Shutdown(context.Background())
	})
	return &harness{srv: ts, reg: reg, sim: sim, wallet: wallet}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == nil {
		reader = strings.NewReader("")
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out = map[string]any{"list": raw}
	}
	return resp.StatusCode, out
}

func TestStartTrading(t *testing.T) {
	h := newHarness(t)
	other, err := auth.GenerateWallet()
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    any
		status  int
		changed bool
	}{
		{"missing key", map[string]any{"wallet": h.wallet.PublicKey}, http.StatusBadRequest, false},
		{"malformed body", "not an object", http.StatusBadRequest, false},
		{"wrong key", map[string]any{"wallet": h.wallet.PublicKey, "privateKey": other.SecretKey}, http.StatusForbidden, false},
		{"invalid config", map[string]any{
			"wallet": h.wallet.PublicKey, "privateKey": h.wallet.SecretKey,
			"config": map[string]any{"sell": map[string]any{"takeProfit": 10, "stopLoss": 150, "timeout": 60}},
		}, http.StatusBadRequest, false},
		{"unknown field", map[string]any{"wallet": h.wallet.PublicKey, "privateKey": h.wallet.SecretKey, "mode": "live"}, http.StatusBadRequest, false},
		{"started with token mint", map[string]any{
			"wallet": h.wallet.PublicKey, "privateKey": h.wallet.SecretKey,
			"tokenMint": "So11111111111111111111111111111111111111112",
		}, http.StatusOK, true},
		{"already running", map[string]any{"wallet": h.wallet.PublicKey, "privateKey": h.wallet.SecretKey}, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.do(t, http.MethodPost, "/start-trading", tt.body)
			assert.Equal(t, tt.status, status)
			if status == http.StatusOK {
				assert.Equal(t, tt.changed, body["changed"])
			}
		})
	}

	_, body := h.do(t, http.MethodGet, "/status/"+h.wallet.PublicKey, nil)
	assert.Equal(t, string(bot.StateRunning), body["state"])
}

func TestStopTradingAndStatus(t *testing.T) {
	h := newHarness(t)

	_, body := h.do(t, http.MethodGet, "/status/"+h.wallet.PublicKey, nil)
	assert.Equal(t, string(bot.StateNotStarted), body["state"])

	status, body := h.do(t, http.MethodPost, "/stop-trading", map[string]string{"wallet": h.wallet.PublicKey})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["changed"])

	status, _ = h.do(t, http.MethodPost, "/stop-trading", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	started, err := h.reg.Start(h.wallet.PublicKey, bot.Overrides{})
	require.NoError(t, err)
	require.True(t, started)

	_, body = h.do(t, http.MethodPost, "/stop-trading", map[string]string{"wallet": h.wallet.PublicKey})
	assert.Equal(t, true, body["changed"])

	_, body = h.do(t, http.MethodGet, "/status/"+h.wallet.PublicKey, nil)
	assert.Equal(t, string(bot.StateStopped), body["state"])
}

func TestTradesAndHistory(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodGet, "/trades/nobody", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body["list"].(json.RawMessage)))

	status, body = h.do(t, http.MethodGet, "/history/"+h.wallet.PublicKey, nil)
	assert.Equal(t, http.StatusOK, status)
	var closed []trade.Record
	require.NoError(t, json.Unmarshal(body["list"].(json.RawMessage), &closed))
	require.Len(t, closed, 1)
	assert.Equal(t, "closed-mint", closed[0].Mint)
}

func TestDiscoveredTokens(t *testing.T) {
	h := newHarness(t)

	_, body := h.do(t, http.MethodGet, "/discovered-tokens", nil)
	assert.EqualValues(t, 2, body["count"], "no bot: unfiltered")

	require.NoError(t, h.reg.Configure(h.wallet.PublicKey, bot.Overrides{}))
	_, body = h.do(t, http.MethodGet, "/discovered-tokens?wallet="+h.wallet.PublicKey, nil)
	assert.EqualValues(t, 1, body["count"], "default filters drop low liquidity")
}

func TestMonitorPrice(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		query  string
		status int
	}{
		{"", http.StatusBadRequest},
		{"?tokenMint=good", http.StatusOK},
		{"?tokenMint=unknown", http.StatusNotFound},
		{"?tokenMint=broken", http.StatusBadGateway},
	}
	for _, tt := range tests {
		status, body := h.do(t, http.MethodGet, "/monitor-price"+tt.query, nil)
		assert.Equal(t, tt.status, status, tt.query)
		if status == http.StatusOK {
			assert.Equal(t, "good", body["tokenMint"])
			assert.Equal(t, 0.25, body["price"])
		}
	}
}

func TestSimulationEndpoints(t *testing.T) {
	h := newHarness(t)

	_, body := h.do(t, http.MethodPost, "/simulation/start", nil)
	assert.Equal(t, true, body["changed"])
	_, body = h.do(t, http.MethodPost, "/simulation/start", nil)
	assert.Equal(t, false, body["changed"])

	_, body = h.do(t, http.MethodGet, "/simulation/trades", nil)
	assert.Equal(t, true, body["running"])
	assert.Empty(t, body["trades"])

	_, body = h.do(t, http.MethodPost, "/simulation/stop", nil)
	assert.Equal(t, true, body["changed"])
	assert.False(t, h.sim.running)
}

func TestWalletEndpoints(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodGet, "/create-wallet", nil)
	assert.Equal(t, http.StatusOK, status)
	pub, _ := body["publicKey"].(string)
	secret, _ := body["secretKey"].(string)
	assert.NoError(t, auth.Verify(pub, secret))

	status, body = h.do(t, http.MethodPost, "/airdrop", map[string]string{"publicKey": "abc"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sig-abc", body["signature"])

	status, _ = h.do(t, http.MethodPost, "/airdrop", map[string]string{"publicKey": "fail"})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = h.do(t, http.MethodPost, "/airdrop", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/start-trading")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
