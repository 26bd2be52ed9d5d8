// Command custodyd serves the custodial wallet REST API. It wires the signer
// and ledger gateways into the orchestrator and runs until interrupted.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-custody/go-backend/internal/algod"
	"algo-custody/go-backend/internal/api"
	"algo-custody/go-backend/internal/auth"
	"algo-custody/go-backend/internal/config"
	"algo-custody/go-backend/internal/platform/privacylog"
	"algo-custody/go-backend/internal/platform/ratelimiter"
	"algo-custody/go-backend/internal/txn"
	"algo-custody/go-backend/internal/vault"
	"algo-custody/go-backend/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	listen := flag.String("listen", "", "listen address override")
	flag.Parse()

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	cfg := config.LoadFromPath(*configPath)
	if *listen != "" {
		cfg.Listen = *listen
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Error("CUSTODY_JWT_SECRET (or auth.jwtSecret) is required")
		os.Exit(1)
	}

	env, err := buildEnv(cfg)
	if err != nil {
		logger.Error("invalid chain configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer := vault.NewClient(cfg.Vault.BaseURL, nil)
	ledger := algod.NewClient(cfg.Algod.BaseURL, cfg.Algod.Token, nil)
	walletSvc := wallet.NewService(signer, ledger, env, wallet.Keys{
		UsersPath:    cfg.Vault.UsersPath,
		ManagersPath: cfg.Vault.ManagersPath,
		ManagerKey:   cfg.Vault.ManagerKey,
	}, cfg.Algod.WaitRounds, logger)
	authSvc := auth.NewService(signer, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	limiter := ratelimiter.New(cfg.Limits.RPS, cfg.Limits.Burst, 10*time.Minute)

	server := api.NewServer(cfg.Listen, walletSvc, authSvc, limiter, logger)

	logger.Info("custodyd starting",
		"listen", cfg.Listen,
		"genesis_id", cfg.Algod.GenesisID,
	)
	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("custodyd stopped")
}

func buildEnv(cfg config.Config) (txn.Env, error) {
	if cfg.Algod.GenesisHash == "" {
		return txn.Env{}, fmt.Errorf("genesis hash is required")
	}
	raw, err := base64.StdEncoding.DecodeString(cfg.Algod.GenesisHash)
	if err != nil {
		return txn.Env{}, fmt.Errorf("genesis hash is not base64: %w", err)
	}
	var digest types.Digest
	if len(raw) != len(digest) {
		return txn.Env{}, fmt.Errorf("genesis hash must be %d bytes, got %d", len(digest), len(raw))
	}
	copy(digest[:], raw)
	return txn.Env{GenesisID: cfg.Algod.GenesisID, GenesisHash: digest}, nil
}
