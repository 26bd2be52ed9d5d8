// Package api is the REST surface over the wallet orchestrator: route
// registration, session authentication, per-credential rate limiting and
// request logging. Handlers are thin; every decision lives in the services
// behind them.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"algo-custody/go-backend/internal/platform/ratelimiter"
	"algo-custody/go-backend/pkg/models"
)

// WalletService is the orchestrator surface the REST layer exposes.
type WalletService interface {
	GetUserInfo(ctx context.Context, token, userID string) (models.UserInfo, error)
	GetManagerInfo(ctx context.Context, token string) (models.ManagerDetail, error)
	CreateUser(ctx context.Context, token, userID string) (models.UserInfo, error)
	ListUsers(ctx context.Context, token string) ([]models.UserInfo, error)
	CreateAsset(ctx context.Context, token string, params models.CreateAssetParams) (string, error)
	TransferAsset(ctx context.Context, token string, req models.TransferRequest) (string, error)
	ClawbackAsset(ctx context.Context, token string, req models.ClawbackRequest) (string, error)
	WaitForConfirmation(ctx context.Context, txID string) (models.ConfirmationResult, error)
}

// AuthService issues and verifies session tokens.
type AuthService interface {
	SignIn(ctx context.Context, vaultToken string) (string, error)
	SignInWithRole(ctx context.Context, roleID, secretID string) (string, error)
	VerifyAccessToken(accessToken string) (string, error)
}

type Server struct {
	httpServer *http.Server
	wallet     WalletService
	auth       AuthService
	limiter    *ratelimiter.MapLimiter
	log        *slog.Logger
}

func NewServer(listen string, wallet WalletService, auth AuthService, limiter *ratelimiter.MapLimiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		wallet:  wallet,
		auth:    auth,
		limiter: limiter,
		log:     logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.requestID, s.observe)
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/role-login", s.handleRoleLogin).Methods(http.MethodPost)

	w := v1.PathPrefix("/wallet").Subrouter()
	w.Use(s.authenticate, s.rateLimit)
	w.HandleFunc("/users/{user_id}", s.handleUserDetail).Methods(http.MethodGet)
	w.HandleFunc("/users", s.handleUserList).Methods(http.MethodGet)
	w.HandleFunc("/user", s.handleUserCreate).Methods(http.MethodPost)
	w.HandleFunc("/manager", s.handleManagerDetail).Methods(http.MethodGet)
	w.HandleFunc("/transactions/create-asset", s.handleCreateAsset).Methods(http.MethodPost)
	w.HandleFunc("/transactions/transfer-asset", s.handleTransferAsset).Methods(http.MethodPost)
	w.HandleFunc("/transactions/clawback-asset", s.handleClawbackAsset).Methods(http.MethodPost)
	w.HandleFunc("/transactions/{tx_id}/wait", s.handleWaitConfirmation).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
