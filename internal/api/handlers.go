// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/auth"
	"github.com/rovshanmuradov/launch-trader/internal/bot"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

type startRequest struct {
	Wallet     string        `json:"wallet"`
	PrivateKey string        `json:"privateKey"`
	Config     bot.Overrides `json:"config"`
	// TokenMint is accepted from older clients and ignored; bots pick their
	// own mints from discovery.
	TokenMint  string        `json:"tokenMint,omitempty"`
}

type walletRequest struct {
	Wallet    string `json:"wallet"`
	PublicKey string `json:"publicKey"`
}

type lifecycleResponse struct {
	Message string `json:"message"`
	Changed bool   `json:"changed"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleStartTrading handles POST /start-trading
func (s *Server) handleStartTrading(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Wallet = strings.TrimSpace(req.Wallet)
	if req.Wallet == "" || req.PrivateKey == "" {
		writeError(w, http.StatusBadRequest, "wallet and privateKey are required", nil)
		return
	}
	if err := s.cfg.Verify(req.Wallet, req.PrivateKey); err != nil {
		s.logger.Warn("Credential rejected", zap.String("wallet", req.Wallet))
		writeError(w, http.StatusForbidden, "private key does not match wallet", nil)
		return
	}

	started, err := s.cfg.Trading.Start(req.Wallet, req.Config)
	if err != nil {
		if errors.Is(err, bot.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, "invalid configuration", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start bot", err)
		return
	}
	if !started {
		writeJSON(w, http.StatusOK, lifecycleResponse{Message: "bot for wallet " + req.Wallet + " is already running"})
		return
	}
	writeJSON(w, http.StatusOK, lifecycleResponse{Message: "bot for wallet " + req.Wallet + " started", Changed: true})
}

// handleStopTrading handles POST /stop-trading
func (s *Server) handleStopTrading(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Wallet) == "" {
		writeError(w, http.StatusBadRequest, "wallet is required", err)
		return
	}
	if !s.cfg.Trading.Stop(req.Wallet) {
		writeJSON(w, http.StatusOK, lifecycleResponse{Message: "bot for wallet " + req.Wallet + " was not running"})
		return
	}
	writeJSON(w, http.StatusOK, lifecycleResponse{Message: "bot for wallet " + req.Wallet + " stopped", Changed: true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Trading.Status(r.PathValue("wallet")))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.cfg.Trading.OpenTrades(r.PathValue("wallet"))))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusOK, []trade.Record{})
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.cfg.History.History(r.PathValue("wallet"))))
}

// handleDiscovered handles GET /discovered-tokens?wallet=
func (s *Server) handleDiscovered(w http.ResponseWriter, r *http.Request) {
	listings := s.cfg.Trading.Discovered(r.Context(), r.URL.Query().Get("wallet"))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(listings),
		"tokens": listings,
	})
}

// handleMonitorPrice handles GET /monitor-price?tokenMint=
func (s *Server) handleMonitorPrice(w http.ResponseWriter, r *http.Request) {
	mint := strings.TrimSpace(r.URL.Query().Get("tokenMint"))
	if mint == "" {
		writeError(w, http.StatusBadRequest, "tokenMint is required", nil)
		return
	}

	q, err := price.GetQuote(r.Context(), s.cfg.Oracle, mint)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, q)
	case errors.Is(err, price.ErrPriceUnavailable):
		writeError(w, http.StatusNotFound, "no price available for token", err)
	default:
		s.logger.Warn("Price lookup failed", zap.String("token_mint", mint), zap.Error(err))
		writeError(w, http.StatusBadGateway, "price lookup failed", err)
	}
}

func (s *Server) handleSimulationStart(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Simulation == nil {
		writeError(w, http.StatusNotFound, "simulation disabled", nil)
		return
	}
	if !s.cfg.Simulation.Start() {
		writeJSON(w, http.StatusOK, lifecycleResponse{Message: "simulation already running"})
		return
	}
	writeJSON(w, http.StatusOK, lifecycleResponse{Message: "simulation started", Changed: true})
}

func (s *Server) handleSimulationStop(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Simulation == nil {
		writeError(w, http.StatusNotFound, "simulation disabled", nil)
		return
	}
	if !s.cfg.Simulation.Stop() {
		writeJSON(w, http.StatusOK, lifecycleResponse{Message: "simulation was not running"})
		return
	}
	writeJSON(w, http.StatusOK, lifecycleResponse{Message: "simulation stopped", Changed: true})
}

func (s *Server) handleSimulationTrades(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Simulation == nil {
		writeError(w, http.StatusNotFound, "simulation disabled", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.cfg.Simulation.Running(),
		"trades":  nonNil(s.cfg.Simulation.Trades()),
	})
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, _ *http.Request) {
	wallet, err := auth.GenerateWallet()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// handleAirdrop handles POST /airdrop {publicKey}
func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.PublicKey) == "" {
		writeError(w, http.StatusBadRequest, "publicKey is required", err)
		return
	}
	sig, err := s.cfg.Airdrop(r.Context(), req.PublicKey)
	if err != nil {
		s.logger.Error("Airdrop failed", zap.String("wallet", req.PublicKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "airdrop failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": req.PublicKey, "signature": sig})
}

func nonNil(records []trade.Record) []trade.Record {
	if records == nil {
		return []trade.Record{}
	}
	return records
}
