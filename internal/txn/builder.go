// Package txn builds unsigned ledger transactions from semantic intent and an
// explicit network-parameter snapshot. It performs no I/O; byte-level
// encoding, group-id computation and address handling are delegated to the
// ledger SDK.
package txn

import (
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-custody/go-backend/pkg/models"
)

// validityWindow is the number of rounds a built transaction stays valid for.
const validityWindow = 1000

const signPrefix = "TX"

var (
	ErrBadLease     = errors.New("lease must be exactly 32 bytes")
	ErrBadSignature = errors.New("signature must be exactly 64 bytes")
	ErrEmptyGroup   = errors.New("cannot bind an empty transaction group")
)

// Env carries the chain identity every transaction must embed. It is fixed at
// construction of the orchestrator, not per call.
type Env struct {
	GenesisID   string
	GenesisHash types.Digest
}

func header(env Env, sender types.Address, params models.NetworkParameters) types.Header {
	return types.Header{
		Sender:      sender,
		Fee:         types.MicroAlgos(params.MinFee),
		FirstValid:  types.Round(params.LastRound),
		LastValid:   types.Round(params.LastRound + validityWindow),
		GenesisID:   env.GenesisID,
		GenesisHash: env.GenesisHash,
	}
}

// Payment moves microalgos between two addresses.
func Payment(env Env, from, to types.Address, amount uint64, params models.NetworkParameters) types.Transaction {
	return types.Transaction{
		Type:   types.PaymentTx,
		Header: header(env, from, params),
		PaymentTxnFields: types.PaymentTxnFields{
			Receiver: to,
			Amount:   types.MicroAlgos(amount),
		},
	}
}

// AssetTransfer moves an asset. A zero amount leaves the amount field out of
// the encoded payload entirely; a self-directed zero-amount transfer is the
// network's opt-in idiom and must not encode an explicit zero.
func AssetTransfer(env Env, from, to types.Address, assetID, amount uint64, lease, note []byte, params models.NetworkParameters) (types.Transaction, error) {
	h := header(env, from, params)
	if err := applyLease(&h, lease); err != nil {
		return types.Transaction{}, err
	}
	h.Note = note
	return types.Transaction{
		Type:   types.AssetTransferTx,
		Header: h,
		AssetTransferTxnFields: types.AssetTransferTxnFields{
			XferAsset:     types.AssetIndex(assetID),
			AssetAmount:   amount,
			AssetReceiver: to,
		},
	}, nil
}

// AssetCreate configures a new asset with the creator as sender. Role
// addresses are optional; empty strings leave the role unset.
func AssetCreate(env Env, creator types.Address, p models.CreateAssetParams, params models.NetworkParameters) (types.Transaction, error) {
	manager, err := optionalAddress(p.ManagerAddress)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("manager address: %w", err)
	}
	reserve, err := optionalAddress(p.ReserveAddress)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("reserve address: %w", err)
	}
	freeze, err := optionalAddress(p.FreezeAddress)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("freeze address: %w", err)
	}
	clawback, err := optionalAddress(p.ClawbackAddress)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("clawback address: %w", err)
	}

	return types.Transaction{
		Type:   types.AssetConfigTx,
		Header: header(env, creator, params),
		AssetConfigTxnFields: types.AssetConfigTxnFields{
			AssetParams: types.AssetParams{
				Total:         p.Total,
				Decimals:      p.Decimals,
				DefaultFrozen: p.DefaultFrozen,
				UnitName:      p.UnitName,
				AssetName:     p.AssetName,
				URL:           p.URL,
				Manager:       manager,
				Reserve:       reserve,
				Freeze:        freeze,
				Clawback:      clawback,
			},
		},
	}, nil
}

// AssetClawback force-moves an asset out of a holder's account. The clawback
// authority is the transaction sender and sole signer of record; the holder
// the funds leave goes in the asset-sender field and does not sign.
func AssetClawback(env Env, clawback, from, to types.Address, assetID, amount uint64, lease []byte, params models.NetworkParameters) (types.Transaction, error) {
	h := header(env, clawback, params)
	if err := applyLease(&h, lease); err != nil {
		return types.Transaction{}, err
	}
	return types.Transaction{
		Type:   types.AssetTransferTx,
		Header: h,
		AssetTransferTxnFields: types.AssetTransferTxnFields{
			XferAsset:     types.AssetIndex(assetID),
			AssetAmount:   amount,
			AssetSender:   from,
			AssetReceiver: to,
		},
	}, nil
}

// BindGroup stamps every transaction with one group id computed over the
// ordered set. Order is significant: it is part of the hash and must survive
// signing and submission unchanged. Single-element groups are bound too so
// all submissions take the same path.
func BindGroup(txns []types.Transaction) ([]types.Transaction, error) {
	if len(txns) == 0 {
		return nil, ErrEmptyGroup
	}
	gid, err := crypto.ComputeGroupID(txns)
	if err != nil {
		return nil, err
	}
	bound := make([]types.Transaction, len(txns))
	for i, t := range txns {
		t.Group = gid
		bound[i] = t
	}
	return bound, nil
}

// BytesToSign returns the canonical tagged encoding the remote signer must
// sign for this transaction.
func BytesToSign(t types.Transaction) []byte {
	encoded := msgpack.Encode(&t)
	buf := make([]byte, 0, len(signPrefix)+len(encoded))
	buf = append(buf, signPrefix...)
	return append(buf, encoded...)
}

// AttachSignature wraps a transaction and its raw ed25519 signature into
// canonical signed bytes ready for submission.
func AttachSignature(t types.Transaction, sig []byte) ([]byte, error) {
	var s types.Signature
	if len(sig) != len(s) {
		return nil, fmt.Errorf("%w (got %d)", ErrBadSignature, len(sig))
	}
	copy(s[:], sig)
	stx := types.SignedTxn{
		Sig: s,
		Txn: t,
	}
	return msgpack.Encode(&stx), nil
}

// ID computes the transaction id of an unsigned transaction.
func ID(t types.Transaction) string {
	return crypto.GetTxID(t)
}

func applyLease(h *types.Header, lease []byte) error {
	if len(lease) == 0 {
		return nil
	}
	if len(lease) != len(h.Lease) {
		return fmt.Errorf("%w (got %d)", ErrBadLease, len(lease))
	}
	copy(h.Lease[:], lease)
	return nil
}

func optionalAddress(s string) (types.Address, error) {
	if s == "" {
		return types.Address{}, nil
	}
	return types.DecodeAddress(s)
}
