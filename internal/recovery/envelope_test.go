package recovery

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x33}, 32)
	data, err := Encrypt("correct horse", seed)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	plain, err := Decrypt("correct horse", data)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plain, seed) {
		t.Fatal("decrypted seed does not match")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	data, err := Encrypt("right", []byte("seed"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt("wrong", data); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("plain text"), []byte("CUSTENC1\nnot json")} {
		if _, err := Decrypt("pass", data); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Decrypt(%q) err = %v, want ErrInvalid", data, err)
		}
	}
}

func TestBackupFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.seed")
	seed := bytes.Repeat([]byte{0x44}, 32)

	if err := WriteBackup(path, "pass", seed); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}
	plain, err := ReadBackup(path, "pass")
	if err != nil {
		t.Fatalf("ReadBackup: %v", err)
	}
	if !bytes.Equal(plain, seed) {
		t.Fatal("backup round trip lost the seed")
	}
}
