// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launch-trader/internal/auth"
	"github.com/rovshanmuradov/launch-trader/internal/bot"
	"github.com/rovshanmuradov/launch-trader/internal/discovery"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

// Trading is the registry surface the API drives.
type Trading interface {
	Start(wallet string, overrides bot.Overrides) (bool, error)
	Stop(wallet string) bool
	Status(wallet string) bot.Status
	OpenTrades(wallet string) []trade.Record
	Discovered(ctx context.Context, wallet string) []discovery.TokenListing
}

// Simulation is the simulator surface.
type Simulation interface {
	Start() bool
	Stop() bool
	Running() bool
	Trades() []trade.Record
}

// History lists closed trades.
type History interface {
	History(wallet string) []trade.Record
}

type Config struct {
	Trading    Trading
	Simulation Simulation // optional
	History    History    // optional
	Oracle     price.Oracle
	Logger     *zap.Logger

	// Verify checks a credential against a wallet; defaults to auth.Verify.
	Verify func(wallet, credential string) error
	// Airdrop requests devnet funds; defaults to auth.RequestAirdrop against RPCURL.
	Airdrop func(ctx context.Context, wallet string) (string, error)
	RPCURL  string
}

// Server is the HTTP front of the trading engine. It holds no state of its
// own: every request is delegated to the injected collaborators.
type Server struct {
	cfg    Config
	logger *zap.Logger
	mux    *http.ServeMux
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Verify == nil {
		cfg.Verify = auth.Verify
	}
	if cfg.Airdrop == nil {
		rpcURL := cfg.RPCURL
		cfg.Airdrop = func(ctx context.Context, wallet string) (string, error) {
			return auth.RequestAirdrop(ctx, rpcURL, wallet)
		}
	}

	s := &Server{cfg: cfg, logger: cfg.Logger.Named("api"), mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /start-trading", s.handleStartTrading)
	s.mux.HandleFunc("POST /stop-trading", s.handleStopTrading)
	s.mux.HandleFunc("GET /status/{wallet}", s.handleStatus)
	s.mux.HandleFunc("GET /trades/{wallet}", s.handleTrades)
	s.mux.HandleFunc("GET /history/{wallet}", s.handleHistory)
	s.mux.HandleFunc("GET /discovered-tokens", s.handleDiscovered)
	s.mux.HandleFunc("GET /monitor-price", s.handleMonitorPrice)

	s.mux.HandleFunc("POST /simulation/start", s.handleSimulationStart)
	s.mux.HandleFunc("POST /simulation/stop", s.handleSimulationStop)
	s.mux.HandleFunc("GET /simulation/trades", s.handleSimulationTrades)

	s.mux.HandleFunc("GET /create-wallet", s.handleCreateWallet)
	s.mux.HandleFunc("POST /airdrop", s.handleAirdrop)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("Request served",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}
