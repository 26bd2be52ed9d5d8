// Package recovery provides offline tooling for provisioning and recovering
// the manager custody key: a BIP-39 mnemonic deterministically derives the
// ed25519 seed that gets imported into the secrets engine, and encrypted
// backup envelopes protect the seed at rest. Nothing here runs inside the
// request path; the daemon never touches private key material.
package recovery

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoManagerKey = "custody/manager-key/v1"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic generates a fresh 24-word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

// DeriveKey expands the mnemonic (plus optional passphrase) into the manager
// signing key. The derivation is deterministic: the same mnemonic always
// recovers the same key and therefore the same ledger address.
func DeriveKey(mnemonic, passphrase string) (ed25519.PrivateKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seedBytes := bip39.NewSeed(mnemonic, passphrase)
	keySeed, err := hkdfExpand(seedBytes, hkdfInfoManagerKey, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(keySeed), nil
}

// PublicAddress returns the ledger address owned by the derived key.
func PublicAddress(priv ed25519.PrivateKey) (string, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.New("not an ed25519 key")
	}
	return types.EncodeAddress(pub)
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
