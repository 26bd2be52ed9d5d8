package recovery

import (
	"bytes"
	"errors"
	"testing"
)

const testMnemonic = "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title"

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a, err := DeriveKey(testMnemonic, "")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey("  "+testMnemonic+"  ", "")
	if err != nil {
		t.Fatalf("DeriveKey (padded): %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same mnemonic must derive the same key")
	}

	addrA, err := PublicAddress(a)
	if err != nil {
		t.Fatalf("PublicAddress: %v", err)
	}
	addrB, err := PublicAddress(b)
	if err != nil {
		t.Fatalf("PublicAddress: %v", err)
	}
	if addrA != addrB || addrA == "" {
		t.Fatalf("addresses differ: %q vs %q", addrA, addrB)
	}
}

func TestDeriveKeyPassphraseChangesKey(t *testing.T) {
	plain, err := DeriveKey(testMnemonic, "")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	protected, err := DeriveKey(testMnemonic, "extra")
	if err != nil {
		t.Fatalf("DeriveKey (passphrase): %v", err)
	}
	if bytes.Equal(plain, protected) {
		t.Fatal("passphrase must change the derived key")
	}
}

func TestDeriveKeyRejectsInvalidMnemonic(t *testing.T) {
	if _, err := DeriveKey("this is not a real mnemonic phrase at all", ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("err = %v, want ErrInvalidMnemonic", err)
	}
}

func TestNewMnemonicRoundTrips(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Fatal("generated mnemonic fails validation")
	}
	if _, err := DeriveKey(mnemonic, ""); err != nil {
		t.Fatalf("DeriveKey on fresh mnemonic: %v", err)
	}
}
