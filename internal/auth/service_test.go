package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBackend struct {
	checkErr   error
	loginToken string
	loginErr   error
}

func (f *fakeBackend) CheckToken(context.Context, string) error {
	return f.checkErr
}

func (f *fakeBackend) LoginWithAppRole(context.Context, string, string) (string, error) {
	return f.loginToken, f.loginErr
}

func TestSignInRoundTrip(t *testing.T) {
	svc := NewService(&fakeBackend{}, []byte("secret"), time.Hour)

	access, err := svc.SignIn(context.Background(), "s.vaulttoken")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	vaultToken, err := svc.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if vaultToken != "s.vaulttoken" {
		t.Fatalf("vault token = %q", vaultToken)
	}
}

func TestSignInRejectsBadBackendToken(t *testing.T) {
	backendErr := errors.New("permission denied")
	svc := NewService(&fakeBackend{checkErr: backendErr}, []byte("secret"), time.Hour)

	if _, err := svc.SignIn(context.Background(), "bad"); !errors.Is(err, backendErr) {
		t.Fatalf("err = %v, want the backend error", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService(&fakeBackend{}, []byte("secret"), time.Minute)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	access, err := svc.SignIn(context.Background(), "s.vaulttoken")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := svc.VerifyAccessToken(access); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("err = %v, want ErrInvalidAccessToken", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewService(&fakeBackend{}, []byte("secret-a"), time.Hour)
	verifier := NewService(&fakeBackend{}, []byte("secret-b"), time.Hour)

	access, err := issuer.SignIn(context.Background(), "s.vaulttoken")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := verifier.VerifyAccessToken(access); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("err = %v, want ErrInvalidAccessToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService(&fakeBackend{}, []byte("secret"), time.Hour)
	if _, err := svc.VerifyAccessToken("not-a-jwt"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("err = %v, want ErrInvalidAccessToken", err)
	}
}

func TestSignInWithRole(t *testing.T) {
	svc := NewService(&fakeBackend{loginToken: "s.approle"}, []byte("secret"), time.Hour)
	token, err := svc.SignInWithRole(context.Background(), "rid", "sid")
	if err != nil {
		t.Fatalf("SignInWithRole: %v", err)
	}
	if token != "s.approle" {
		t.Fatalf("token = %q", token)
	}
}
