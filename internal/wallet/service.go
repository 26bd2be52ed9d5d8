// Package wallet is the custodial transfer orchestrator. It composes the
// signer gateway, the ledger gateway and the transaction builder to execute
// asset creation, asset transfer (with conditional opt-in and balance top-up)
// and asset clawback on behalf of custody users. The orchestrator holds no
// state between calls; every invocation reflects the network state it
// queries.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-custody/go-backend/internal/txn"
	"algo-custody/go-backend/pkg/models"
)

// optInReserve is the protocol's minimum-balance increment for holding one
// more asset, in microalgos. Fixed protocol constant, not fetched live.
const optInReserve = 100_000

const defaultWaitRounds = 10

// ErrInvalidSender marks a built transaction whose sender is neither the
// manager nor the user of the call. It is a programming-logic fault: the
// whole call aborts before anything reaches the network.
var ErrInvalidSender = errors.New("invalid sender")

// SignerGateway is the remote key-custody service. The bearer token travels
// on every call; nothing is cached.
type SignerGateway interface {
	Sign(ctx context.Context, token, keyPath, keyName string, payload []byte) ([]byte, error)
	PublicKey(ctx context.Context, token, keyPath, keyName string) ([]byte, error)
	CreateKey(ctx context.Context, token, keyPath, keyName string) ([]byte, error)
	ListKeys(ctx context.Context, token, keyPath string) ([]string, error)
}

// LedgerGateway is the ledger node boundary used by the orchestrator.
type LedgerGateway interface {
	SuggestedParams(ctx context.Context) (models.NetworkParameters, error)
	AccountInformation(ctx context.Context, address string) (models.AccountState, error)
	AccountAssetInformation(ctx context.Context, address string, assetID uint64) (*models.AssetHolding, error)
	SubmitRawTransaction(ctx context.Context, stx []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txID string, maxRounds uint64) (models.ConfirmationResult, error)
}

// Keys locates the custody keys inside the signer backend.
type Keys struct {
	UsersPath    string
	ManagersPath string
	ManagerKey   string
}

// Role tags a built transaction with the custody identity that must sign it.
// The tag is attached at construction time; the orchestrator cross-checks it
// against the transaction's encoded sender before signing.
type Role int

const (
	RoleManager Role = iota
	RoleUser
)

// Signer is the identity of record for one transaction: the manager key, or
// a specific user's key.
type Signer struct {
	Role   Role
	UserID string
}

type pendingTxn struct {
	txn    types.Transaction
	signer Signer
}

type Service struct {
	signer     SignerGateway
	ledger     LedgerGateway
	env        txn.Env
	keys       Keys
	waitRounds uint64
	log        *slog.Logger
}

func NewService(signer SignerGateway, ledger LedgerGateway, env txn.Env, keys Keys, waitRounds uint64, logger *slog.Logger) *Service {
	if waitRounds == 0 {
		waitRounds = defaultWaitRounds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		signer:     signer,
		ledger:     ledger,
		env:        env,
		keys:       keys,
		waitRounds: waitRounds,
		log:        logger,
	}
}

// TransferAsset moves req.Amount of req.AssetID from the manager to the user,
// prepending a balance top-up and an opt-in transaction when the user's
// account needs them, and submits the whole set as one atomic group. It
// returns the node-reported transaction id on submission success; it does not
// wait for confirmation.
func (s *Service) TransferAsset(ctx context.Context, token string, req models.TransferRequest) (string, error) {
	userAddr, managerAddr, err := s.resolveAddresses(ctx, token, req.UserID)
	if err != nil {
		return "", err
	}

	// One snapshot for every transaction in this call.
	params, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		return "", err
	}

	holding, err := s.ledger.AccountAssetInformation(ctx, userAddr.String(), req.AssetID)
	if err != nil {
		return "", err
	}
	needsOptIn := holding == nil

	var extraNeeded int64
	if needsOptIn {
		extraNeeded += optInReserve
		extraNeeded += int64(params.MinFee)
	}
	account, err := s.ledger.AccountInformation(ctx, userAddr.String())
	if err != nil {
		return "", err
	}
	available := account.Available()
	needsTopUp := available < extraNeeded
	if needsTopUp {
		// Cover exactly the shortfall: a negative available balance grows
		// the top-up, a positive one shrinks it.
		extraNeeded -= available
	}

	var pending []pendingTxn
	if needsTopUp {
		pending = append(pending, pendingTxn{
			txn:    txn.Payment(s.env, managerAddr, userAddr, uint64(extraNeeded), params),
			signer: Signer{Role: RoleManager},
		})
	}
	if needsOptIn {
		optIn, err := txn.AssetTransfer(s.env, userAddr, userAddr, req.AssetID, 0, nil, nil, params)
		if err != nil {
			return "", err
		}
		pending = append(pending, pendingTxn{
			txn:    optIn,
			signer: Signer{Role: RoleUser, UserID: req.UserID},
		})
	}
	transfer, err := txn.AssetTransfer(s.env, managerAddr, userAddr, req.AssetID, req.Amount, req.Lease, req.Note, params)
	if err != nil {
		return "", err
	}
	pending = append(pending, pendingTxn{
		txn:    transfer,
		signer: Signer{Role: RoleManager},
	})

	txID, err := s.signAndSubmitGroup(ctx, token, pending, req.UserID, userAddr, managerAddr)
	if err != nil {
		return "", err
	}
	s.log.Info("asset transfer submitted",
		"user_id", req.UserID,
		"asset_id", req.AssetID,
		"txn_count", len(pending),
		"opt_in", needsOptIn,
		"top_up", needsTopUp,
	)
	return txID, nil
}

// WaitForConfirmation blocks until the transaction confirms or the service's
// round budget runs out. Exposed separately from TransferAsset for callers
// that need finality before responding.
func (s *Service) WaitForConfirmation(ctx context.Context, txID string) (models.ConfirmationResult, error) {
	return s.ledger.WaitForConfirmation(ctx, txID, s.waitRounds)
}

// signAndSubmitGroup binds pending into one atomic group, signs each
// transaction with the key owning its encoded sender and submits the group as
// a unit. Any sender that is neither party aborts the call before submission.
func (s *Service) signAndSubmitGroup(ctx context.Context, token string, pending []pendingTxn, userID string, userAddr, managerAddr types.Address) (string, error) {
	txns := make([]types.Transaction, len(pending))
	for i := range pending {
		txns[i] = pending[i].txn
	}
	bound, err := txn.BindGroup(txns)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(bound)*256)
	for i := range bound {
		signer, err := routeSigner(bound[i].Sender, userAddr, managerAddr, userID)
		if err != nil {
			return "", err
		}
		if signer != pending[i].signer {
			return "", fmt.Errorf("%w: signer tag %v does not own sender %s", ErrInvalidSender, pending[i].signer, bound[i].Sender)
		}
		stx, err := s.signOne(ctx, token, bound[i], signer)
		if err != nil {
			return "", err
		}
		raw = append(raw, stx...)
	}
	return s.ledger.SubmitRawTransaction(ctx, raw)
}

func (s *Service) signOne(ctx context.Context, token string, t types.Transaction, signer Signer) ([]byte, error) {
	keyPath, keyName := s.keyFor(signer)
	sig, err := s.signer.Sign(ctx, token, keyPath, keyName, txn.BytesToSign(t))
	if err != nil {
		return nil, err
	}
	return txn.AttachSignature(t, sig)
}

func (s *Service) keyFor(signer Signer) (keyPath, keyName string) {
	if signer.Role == RoleUser {
		return s.keys.UsersPath, signer.UserID
	}
	return s.keys.ManagersPath, s.keys.ManagerKey
}

// routeSigner maps a transaction's encoded sender to the identity that owns
// it. Signing is always routed by sender, never by caller-supplied identity.
func routeSigner(sender, userAddr, managerAddr types.Address, userID string) (Signer, error) {
	switch sender {
	case userAddr:
		return Signer{Role: RoleUser, UserID: userID}, nil
	case managerAddr:
		return Signer{Role: RoleManager}, nil
	}
	return Signer{}, fmt.Errorf("%w: %s belongs to neither manager nor user", ErrInvalidSender, sender.String())
}

// resolveAddresses fetches the user and manager addresses. The two lookups
// are independent of each other and run concurrently; everything after them
// is strictly sequential.
func (s *Service) resolveAddresses(ctx context.Context, token, userID string) (userAddr, managerAddr types.Address, err error) {
	type result struct {
		addr types.Address
		err  error
	}
	userCh := make(chan result, 1)
	go func() {
		addr, err := s.userAddress(ctx, token, userID)
		userCh <- result{addr: addr, err: err}
	}()

	managerAddr, err = s.managerAddress(ctx, token)
	userRes := <-userCh
	if err != nil {
		return types.Address{}, types.Address{}, err
	}
	if userRes.err != nil {
		return types.Address{}, types.Address{}, userRes.err
	}
	return userRes.addr, managerAddr, nil
}

func (s *Service) userAddress(ctx context.Context, token, userID string) (types.Address, error) {
	pub, err := s.signer.PublicKey(ctx, token, s.keys.UsersPath, userID)
	if err != nil {
		return types.Address{}, err
	}
	return addressFromPublicKey(pub)
}

func (s *Service) managerAddress(ctx context.Context, token string) (types.Address, error) {
	pub, err := s.signer.PublicKey(ctx, token, s.keys.ManagersPath, s.keys.ManagerKey)
	if err != nil {
		return types.Address{}, err
	}
	return addressFromPublicKey(pub)
}

func addressFromPublicKey(pub []byte) (types.Address, error) {
	var addr types.Address
	if len(pub) != len(addr) {
		return types.Address{}, fmt.Errorf("public key must be %d bytes, got %d", len(addr), len(pub))
	}
	copy(addr[:], pub)
	return addr, nil
}
