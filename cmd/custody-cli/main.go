// Command custody-cli is the operator tool for the custodial wallet: key
// provisioning, address lookups, asset operations and manager-key recovery.
// It talks to the same gateways as the daemon; the signer credential is
// always explicit (--token or CUSTODY_VAULT_TOKEN), never stored.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-custody/go-backend/internal/algod"
	"algo-custody/go-backend/internal/config"
	"algo-custody/go-backend/internal/recovery"
	"algo-custody/go-backend/internal/txn"
	"algo-custody/go-backend/internal/vault"
	"algo-custody/go-backend/internal/wallet"
	"algo-custody/go-backend/pkg/models"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitBackend      = 20
	exitRejected     = 30
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	switch os.Args[1] {
	case "login":
		runLogin(os.Args[2:])
	case "address":
		runAddress(os.Args[2:])
	case "users":
		runUsers(os.Args[2:])
	case "create-user":
		runCreateUser(os.Args[2:])
	case "create-asset":
		runCreateAsset(os.Args[2:])
	case "transfer":
		runTransfer(os.Args[2:])
	case "clawback":
		runClawback(os.Args[2:])
	case "wait":
		runWait(os.Args[2:])
	case "keygen":
		runKeygen(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func runLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	roleID := fs.String("role-id", "", "approle role id")
	secretID := fs.String("secret-id", "", "approle secret id")
	parseFlags(fs, args)

	if *roleID == "" || *secretID == "" {
		writeStderrln("role-id and secret-id are required", exitInvalidInput)
	}
	signer := vault.NewClient(config.LoadFromPath("").Vault.BaseURL, nil)
	token, err := signer.LoginWithAppRole(context.Background(), *roleID, *secretID)
	if err != nil {
		writeStderrln(err.Error(), exitCodeFor(err))
	}
	mustPrintJSON(map[string]any{"vault_token": token})
	os.Exit(exitOK)
}

func runAddress(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	token := tokenFlag(fs)
	userID := fs.String("user", "", "user id (omit for the manager address)")
	parseFlags(fs, args)

	svc := buildService()
	ctx := context.Background()
	if *userID == "" {
		detail, err := svc.GetManagerInfo(ctx, requireToken(*token))
		exitOnError(err)
		mustPrintJSON(detail)
	} else {
		info, err := svc.GetUserInfo(ctx, requireToken(*token), *userID)
		exitOnError(err)
		mustPrintJSON(info)
	}
	os.Exit(exitOK)
}

func runUsers(args []string) {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	token := tokenFlag(fs)
	parseFlags(fs, args)

	users, err := buildService().ListUsers(context.Background(), requireToken(*token))
	exitOnError(err)
	mustPrintJSON(users)
	os.Exit(exitOK)
}

func runCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	token := tokenFlag(fs)
	userID := fs.String("user", "", "user id")
	parseFlags(fs, args)

	if *userID == "" {
		writeStderrln("user is required", exitInvalidInput)
	}
	info, err := buildService().CreateUser(context.Background(), requireToken(*token), *userID)
	exitOnError(err)
	mustPrintJSON(info)
	os.Exit(exitOK)
}

func runCreateAsset(args []string) {
	fs := flag.NewFlagSet("create-asset", flag.ExitOnError)
	token := tokenFlag(fs)
	total := fs.Uint64("total", 0, "total supply in base units")
	decimals := fs.Uint("decimals", 0, "display decimals")
	unitName := fs.String("unit", "", "unit name")
	assetName := fs.String("name", "", "asset name")
	url := fs.String("url", "", "asset url")
	frozen := fs.Bool("frozen", false, "holdings start frozen")
	manager := fs.String("manager", "", "manager role address")
	reserve := fs.String("reserve", "", "reserve role address")
	freeze := fs.String("freeze", "", "freeze role address")
	clawback := fs.String("clawback", "", "clawback role address")
	parseFlags(fs, args)

	if *total == 0 || *assetName == "" {
		writeStderrln("total and name are required", exitInvalidInput)
	}
	txID, err := buildService().CreateAsset(context.Background(), requireToken(*token), models.CreateAssetParams{
		Total:           *total,
		Decimals:        uint32(*decimals),
		DefaultFrozen:   *frozen,
		UnitName:        *unitName,
		AssetName:       *assetName,
		URL:             *url,
		ManagerAddress:  *manager,
		ReserveAddress:  *reserve,
		FreezeAddress:   *freeze,
		ClawbackAddress: *clawback,
	})
	exitOnError(err)
	mustPrintJSON(map[string]any{"transaction_id": txID})
	os.Exit(exitOK)
}

func runTransfer(args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	token := tokenFlag(fs)
	userID := fs.String("user", "", "receiving user id")
	assetID := fs.Uint64("asset", 0, "asset id")
	amount := fs.Uint64("amount", 0, "amount in base units")
	lease := fs.String("lease", "", "base64 32-byte replay lease")
	note := fs.String("note", "", "note attached to the transfer")
	parseFlags(fs, args)

	if *userID == "" || *assetID == 0 {
		writeStderrln("user and asset are required", exitInvalidInput)
	}
	leaseBytes, err := decodeBase64Flag(*lease)
	if err != nil {
		writeStderrln("lease must be base64", exitInvalidInput)
	}
	txID, err := buildService().TransferAsset(context.Background(), requireToken(*token), models.TransferRequest{
		AssetID: *assetID,
		UserID:  *userID,
		Amount:  *amount,
		Lease:   leaseBytes,
		Note:    []byte(*note),
	})
	exitOnError(err)
	mustPrintJSON(map[string]any{"transaction_id": txID})
	os.Exit(exitOK)
}

func runClawback(args []string) {
	fs := flag.NewFlagSet("clawback", flag.ExitOnError)
	token := tokenFlag(fs)
	userID := fs.String("user", "", "user id the asset is clawed back from")
	assetID := fs.Uint64("asset", 0, "asset id")
	amount := fs.Uint64("amount", 0, "amount in base units")
	lease := fs.String("lease", "", "base64 32-byte replay lease")
	parseFlags(fs, args)

	if *userID == "" || *assetID == 0 {
		writeStderrln("user and asset are required", exitInvalidInput)
	}
	leaseBytes, err := decodeBase64Flag(*lease)
	if err != nil {
		writeStderrln("lease must be base64", exitInvalidInput)
	}
	txID, err := buildService().ClawbackAsset(context.Background(), requireToken(*token), models.ClawbackRequest{
		AssetID: *assetID,
		UserID:  *userID,
		Amount:  *amount,
		Lease:   leaseBytes,
	})
	exitOnError(err)
	mustPrintJSON(map[string]any{"transaction_id": txID})
	os.Exit(exitOK)
}

func runWait(args []string) {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	txID := fs.String("txid", "", "transaction id")
	parseFlags(fs, args)

	if *txID == "" {
		writeStderrln("txid is required", exitInvalidInput)
	}
	result, err := buildService().WaitForConfirmation(context.Background(), *txID)
	exitOnError(err)
	mustPrintJSON(result)
	os.Exit(exitOK)
}

func runKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	passphrase := fs.String("passphrase", "", "optional mnemonic passphrase")
	backupPath := fs.String("backup", "", "write an encrypted seed backup to this path")
	backupPass := fs.String("backup-passphrase", "", "passphrase protecting the backup file")
	parseFlags(fs, args)

	mnemonic, err := recovery.NewMnemonic()
	if err != nil {
		writeStderrln(err.Error(), exitBackend)
	}
	priv, err := recovery.DeriveKey(mnemonic, *passphrase)
	if err != nil {
		writeStderrln(err.Error(), exitBackend)
	}
	addr, err := recovery.PublicAddress(priv)
	if err != nil {
		writeStderrln(err.Error(), exitBackend)
	}
	if *backupPath != "" {
		if *backupPass == "" {
			writeStderrln("backup-passphrase is required with backup", exitInvalidInput)
		}
		if err := recovery.WriteBackup(*backupPath, *backupPass, priv.Seed()); err != nil {
			writeStderrln(err.Error(), exitBackend)
		}
	}
	mustPrintJSON(map[string]any{
		"mnemonic":       mnemonic,
		"public_address": addr,
	})
	os.Exit(exitOK)
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "24-word recovery mnemonic")
	passphrase := fs.String("passphrase", "", "optional mnemonic passphrase")
	parseFlags(fs, args)

	if !recovery.ValidateMnemonic(*mnemonic) {
		writeStderrln("invalid mnemonic", exitInvalidInput)
	}
	priv, err := recovery.DeriveKey(*mnemonic, *passphrase)
	if err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}
	addr, err := recovery.PublicAddress(priv)
	if err != nil {
		writeStderrln(err.Error(), exitBackend)
	}
	mustPrintJSON(map[string]any{"public_address": addr})
	os.Exit(exitOK)
}

// buildService assembles the wallet orchestrator from the daemon config so
// the CLI and the daemon always agree on paths and chain identity.
func buildService() *wallet.Service {
	cfg := config.LoadFromPath("")

	raw, err := base64.StdEncoding.DecodeString(cfg.Algod.GenesisHash)
	if err != nil {
		writeStderrln("genesis hash is not base64", exitInvalidInput)
	}
	var digest types.Digest
	if len(raw) != len(digest) {
		writeStderrln(fmt.Sprintf("genesis hash must be %d bytes", len(digest)), exitInvalidInput)
	}
	copy(digest[:], raw)

	signer := vault.NewClient(cfg.Vault.BaseURL, nil)
	ledger := algod.NewClient(cfg.Algod.BaseURL, cfg.Algod.Token, nil)
	return wallet.NewService(signer, ledger, txn.Env{GenesisID: cfg.Algod.GenesisID, GenesisHash: digest}, wallet.Keys{
		UsersPath:    cfg.Vault.UsersPath,
		ManagersPath: cfg.Vault.ManagersPath,
		ManagerKey:   cfg.Vault.ManagerKey,
	}, cfg.Algod.WaitRounds, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

func tokenFlag(fs *flag.FlagSet) *string {
	return fs.String("token", os.Getenv("CUSTODY_VAULT_TOKEN"), "signer engine token")
}

func requireToken(token string) string {
	if strings.TrimSpace(token) == "" {
		writeStderrln("token is required (--token or CUSTODY_VAULT_TOKEN)", exitInvalidInput)
	}
	return token
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}
}

func decodeBase64Flag(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(raw)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	writeStderrln(err.Error(), exitCodeFor(err))
}

func exitCodeFor(err error) int {
	var rejected *algod.RejectedError
	var pool *algod.PoolRejectedError
	var backend *vault.BackendError
	if errors.As(err, &rejected) || errors.As(err, &pool) || errors.As(err, &backend) {
		return exitRejected
	}
	return exitBackend
}

func mustPrintJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		os.Exit(exitBackend)
	}
}

func printUsage() {
	lines := []string{
		"custody-cli <command> [flags]",
		"commands:",
		"  login        --role-id id --secret-id id",
		"  address      --token t [--user id]",
		"  users        --token t",
		"  create-user  --token t --user id",
		"  create-asset --token t --total n --name s [--unit s] [--decimals n] [--url s] [--frozen] [role addresses]",
		"  transfer     --token t --user id --asset n --amount n [--lease b64] [--note s]",
		"  clawback     --token t --user id --asset n --amount n [--lease b64]",
		"  wait         --txid id",
		"  keygen       [--passphrase s] [--backup path --backup-passphrase s]",
		"  restore      --mnemonic words [--passphrase s]",
	}
	for _, line := range lines {
		fmt.Fprintln(os.Stdout, line)
	}
}

func writeStderrln(line string, exitCode int) {
	fmt.Fprintln(os.Stderr, line)
	os.Exit(exitCode)
}
