// Package vault is the signer gateway: an HTTP client for a transit-style
// secrets engine that holds every custody keypair. No private key material
// ever crosses this boundary; the engine signs payloads and returns raw
// ed25519 public keys. The bearer credential is passed per call so every
// access stays individually auditable on the engine side.
package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnavailable  = errors.New("secrets engine unreachable")
	ErrUnauthorized = errors.New("secrets engine denied access")
	ErrKeyNotFound  = errors.New("key is not provisioned")
)

// BackendError is a non-2xx response from the secrets engine that is neither
// a permission denial nor a missing key.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("secrets engine returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("secrets engine returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type keyReadResponse struct {
	Data struct {
		Keys map[string]struct {
			PublicKey string `json:"public_key"`
		} `json:"keys"`
	} `json:"data"`
}

type keyListResponse struct {
	Data struct {
		Keys []string `json:"keys"`
	} `json:"data"`
}

type signResponse struct {
	Data struct {
		Signature string `json:"signature"`
	} `json:"data"`
}

type appRoleLoginResponse struct {
	Auth struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

// Sign asks the engine to sign payload with the named key and returns the raw
// signature bytes. The engine formats signatures as "vault:v<N>:<base64>";
// only the final segment is the signature.
func (c *Client) Sign(ctx context.Context, token, keyPath, keyName string, payload []byte) ([]byte, error) {
	body := map[string]any{
		"input": base64.StdEncoding.EncodeToString(payload),
	}
	var parsed signResponse
	if err := c.do(ctx, http.MethodPost, "/v1/"+keyPath+"/sign/"+keyName, token, body, &parsed); err != nil {
		return nil, err
	}
	return decodeSignature(parsed.Data.Signature)
}

func decodeSignature(formatted string) ([]byte, error) {
	parts := strings.Split(formatted, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed signature %q", formatted)
	}
	sig, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return sig, nil
}

// PublicKey reads the named key and returns its raw public key bytes.
func (c *Client) PublicKey(ctx context.Context, token, keyPath, keyName string) ([]byte, error) {
	var parsed keyReadResponse
	if err := c.do(ctx, http.MethodGet, "/v1/"+keyPath+"/keys/"+keyName, token, nil, &parsed); err != nil {
		return nil, err
	}
	return firstKeyVersion(parsed)
}

// CreateKey provisions a non-deletable ed25519 key under keyPath and returns
// its public key bytes. Creating an already existing key is not an error on
// the engine side; the existing key is returned.
func (c *Client) CreateKey(ctx context.Context, token, keyPath, keyName string) ([]byte, error) {
	body := map[string]any{
		"type":           "ed25519",
		"derived":        false,
		"allow_deletion": false,
	}
	var parsed keyReadResponse
	if err := c.do(ctx, http.MethodPost, "/v1/"+keyPath+"/keys/"+keyName, token, body, &parsed); err != nil {
		return nil, err
	}
	return firstKeyVersion(parsed)
}

func firstKeyVersion(parsed keyReadResponse) ([]byte, error) {
	version, ok := parsed.Data.Keys["1"]
	if !ok {
		return nil, errors.New("key response has no version 1")
	}
	pub, err := base64.StdEncoding.DecodeString(version.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return pub, nil
}

// ListKeys enumerates key names under keyPath. The engine requires the
// non-standard LIST method.
func (c *Client) ListKeys(ctx context.Context, token, keyPath string) ([]string, error) {
	var parsed keyListResponse
	if err := c.do(ctx, "LIST", "/v1/"+keyPath+"/keys", token, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data.Keys, nil
}

// CheckToken verifies the credential is currently valid for the engine.
func (c *Client) CheckToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodGet, "/v1/auth/token/lookup-self", token, nil, nil)
}

// LoginWithAppRole exchanges approle credentials for an engine token.
func (c *Client) LoginWithAppRole(ctx context.Context, roleID, secretID string) (string, error) {
	body := map[string]any{
		"role_id":   roleID,
		"secret_id": secretID,
	}
	var parsed appRoleLoginResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/approle/login", "", body, &parsed); err != nil {
		return "", err
	}
	if parsed.Auth.ClientToken == "" {
		return "", errors.New("login response has no client token")
	}
	return parsed.Auth.ClientToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("X-Vault-Token", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s %s", ErrUnauthorized, method, path)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s %s", ErrKeyNotFound, method, path)
		default:
			return &BackendError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
