package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"algo-custody/go-backend/internal/algod"
	"algo-custody/go-backend/internal/vault"
	"algo-custody/go-backend/internal/wallet"
	"algo-custody/go-backend/pkg/models"
)

type loginRequest struct {
	VaultToken string `json:"vault_token"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type roleLoginRequest struct {
	RoleID   string `json:"role_id"`
	SecretID string `json:"secret_id"`
}

type roleLoginResponse struct {
	VaultToken string `json:"vault_token"`
}

type createUserRequest struct {
	UserID string `json:"user_id"`
}

type transferAssetRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Lease   string `json:"lease,omitempty"`
	Note    string `json:"note,omitempty"`
}

type clawbackAssetRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Lease   string `json:"lease,omitempty"`
}

type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VaultToken == "" {
		writeError(w, http.StatusBadRequest, "vault_token is required")
		return
	}
	accessToken, err := s.auth.SignIn(r.Context(), req.VaultToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: accessToken})
}

func (s *Server) handleRoleLogin(w http.ResponseWriter, r *http.Request) {
	var req roleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoleID == "" || req.SecretID == "" {
		writeError(w, http.StatusBadRequest, "role_id and secret_id are required")
		return
	}
	vaultToken, err := s.auth.SignInWithRole(r.Context(), req.RoleID, req.SecretID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roleLoginResponse{VaultToken: vaultToken})
}

func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	info, err := s.wallet.GetUserInfo(r.Context(), vaultTokenFrom(r.Context()), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.wallet.ListUsers(r.Context(), vaultTokenFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	info, err := s.wallet.CreateUser(r.Context(), vaultTokenFrom(r.Context()), req.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleManagerDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.wallet.GetManagerInfo(r.Context(), vaultTokenFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var params models.CreateAssetParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	txID, err := s.wallet.CreateAsset(r.Context(), vaultTokenFrom(r.Context()), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	countSubmission("create_asset")
	writeJSON(w, http.StatusCreated, transactionResponse{TransactionID: txID})
}

func (s *Server) handleTransferAsset(w http.ResponseWriter, r *http.Request) {
	var req transferAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "asset_id, user_id and amount are required")
		return
	}
	lease, err := decodeLease(req.Lease)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lease must be base64")
		return
	}
	txID, err := s.wallet.TransferAsset(r.Context(), vaultTokenFrom(r.Context()), models.TransferRequest{
		AssetID: req.AssetID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Lease:   lease,
		Note:    []byte(req.Note),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	countSubmission("transfer_asset")
	writeJSON(w, http.StatusCreated, transactionResponse{TransactionID: txID})
}

func (s *Server) handleClawbackAsset(w http.ResponseWriter, r *http.Request) {
	var req clawbackAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "asset_id, user_id and amount are required")
		return
	}
	lease, err := decodeLease(req.Lease)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lease must be base64")
		return
	}
	txID, err := s.wallet.ClawbackAsset(r.Context(), vaultTokenFrom(r.Context()), models.ClawbackRequest{
		AssetID: req.AssetID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Lease:   lease,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	countSubmission("clawback_asset")
	writeJSON(w, http.StatusCreated, transactionResponse{TransactionID: txID})
}

func (s *Server) handleWaitConfirmation(w http.ResponseWriter, r *http.Request) {
	txID := mux.Vars(r)["tx_id"]
	start := time.Now()
	result, err := s.wallet.WaitForConfirmation(r.Context(), txID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	observeConfirmationWait(time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func decodeLease(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(raw)
}

// writeServiceError maps service error kinds onto HTTP statuses 1:1 and
// keeps the original text so callers can reconstruct the failure.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := r.Context().Value(requestIDKey).(string)
		s.log.Error("request failed", "error", err.Error(), "request_id", requestID)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var vaultBackend *vault.BackendError
	var ledgerRejected *algod.RejectedError
	var poolRejected *algod.PoolRejectedError

	switch {
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrUnavailable), errors.Is(err, algod.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, algod.ErrConfirmationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, wallet.ErrInvalidSender):
		return http.StatusInternalServerError
	case errors.As(err, &vaultBackend):
		return vaultBackend.StatusCode
	case errors.As(err, &ledgerRejected):
		return ledgerRejected.StatusCode
	case errors.As(err, &poolRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
