package wallet

import (
	"context"

	"algo-custody/go-backend/internal/txn"
	"algo-custody/go-backend/pkg/models"
)

// CreateAsset configures a new asset with the manager as creator. A single
// transaction needs no group binding.
func (s *Service) CreateAsset(ctx context.Context, token string, params models.CreateAssetParams) (string, error) {
	managerAddr, err := s.managerAddress(ctx, token)
	if err != nil {
		return "", err
	}
	suggested, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		return "", err
	}
	create, err := txn.AssetCreate(s.env, managerAddr, params, suggested)
	if err != nil {
		return "", err
	}
	stx, err := s.signOne(ctx, token, create, Signer{Role: RoleManager})
	if err != nil {
		return "", err
	}
	txID, err := s.ledger.SubmitRawTransaction(ctx, stx)
	if err != nil {
		return "", err
	}
	s.log.Info("asset create submitted", "asset_name", params.AssetName, "unit_name", params.UnitName)
	return txID, nil
}

// ClawbackAsset force-moves the asset from the user back to the manager. The
// manager is the transaction's sender and only signer; the user does not
// sign a clawback. A mismatch with the asset's configured clawback authority
// surfaces as the ledger's own rejection, not a retry.
func (s *Service) ClawbackAsset(ctx context.Context, token string, req models.ClawbackRequest) (string, error) {
	userAddr, managerAddr, err := s.resolveAddresses(ctx, token, req.UserID)
	if err != nil {
		return "", err
	}
	suggested, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		return "", err
	}
	clawback, err := txn.AssetClawback(s.env, managerAddr, userAddr, managerAddr, req.AssetID, req.Amount, req.Lease, suggested)
	if err != nil {
		return "", err
	}
	stx, err := s.signOne(ctx, token, clawback, Signer{Role: RoleManager})
	if err != nil {
		return "", err
	}
	txID, err := s.ledger.SubmitRawTransaction(ctx, stx)
	if err != nil {
		return "", err
	}
	s.log.Info("asset clawback submitted", "user_id", req.UserID, "asset_id", req.AssetID)
	return txID, nil
}

// GetUserInfo resolves a user's public ledger address.
func (s *Service) GetUserInfo(ctx context.Context, token, userID string) (models.UserInfo, error) {
	addr, err := s.userAddress(ctx, token, userID)
	if err != nil {
		return models.UserInfo{}, err
	}
	return models.UserInfo{UserID: userID, PublicAddress: addr.String()}, nil
}

// GetManagerInfo resolves the manager's public ledger address.
func (s *Service) GetManagerInfo(ctx context.Context, token string) (models.ManagerDetail, error) {
	addr, err := s.managerAddress(ctx, token)
	if err != nil {
		return models.ManagerDetail{}, err
	}
	return models.ManagerDetail{PublicAddress: addr.String()}, nil
}

// CreateUser provisions a fresh custody key for the user inside the signer
// backend and returns the derived address.
func (s *Service) CreateUser(ctx context.Context, token, userID string) (models.UserInfo, error) {
	pub, err := s.signer.CreateKey(ctx, token, s.keys.UsersPath, userID)
	if err != nil {
		return models.UserInfo{}, err
	}
	addr, err := addressFromPublicKey(pub)
	if err != nil {
		return models.UserInfo{}, err
	}
	s.log.Info("user key provisioned", "user_id", userID)
	return models.UserInfo{UserID: userID, PublicAddress: addr.String()}, nil
}

// ListUsers enumerates every provisioned user key with its address.
func (s *Service) ListUsers(ctx context.Context, token string) ([]models.UserInfo, error) {
	names, err := s.signer.ListKeys(ctx, token, s.keys.UsersPath)
	if err != nil {
		return nil, err
	}
	users := make([]models.UserInfo, 0, len(names))
	for _, name := range names {
		addr, err := s.userAddress(ctx, token, name)
		if err != nil {
			return nil, err
		}
		users = append(users, models.UserInfo{UserID: name, PublicAddress: addr.String()})
	}
	return users, nil
}
