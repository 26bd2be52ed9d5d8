package models

// UserInfo pairs a custody user id with its derived ledger address.
type UserInfo struct {
	UserID        string `json:"user_id"`
	PublicAddress string `json:"public_address"`
}

type ManagerDetail struct {
	PublicAddress string `json:"public_address"`
}

// NetworkParameters is one snapshot of the node's suggested parameters.
// A snapshot is fetched fresh per orchestration call and shared by every
// transaction built within that call.
type NetworkParameters struct {
	LastRound uint64 `json:"last_round"`
	MinFee    uint64 `json:"min_fee"`
}

// AccountState holds the microalgo balance of an address. An address the
// ledger has never seen is represented as the zero value, not an error.
type AccountState struct {
	Balance    uint64 `json:"balance"`
	MinBalance uint64 `json:"min_balance"`
}

// Available is the spendable balance above the protocol minimum. It is
// negative for accounts that have never been funded up to their minimum.
func (a AccountState) Available() int64 {
	return int64(a.Balance) - int64(a.MinBalance)
}

// AssetHolding reports an address's position in one asset. Callers receive
// *AssetHolding where nil means "not opted in"; a non-nil holding with a
// zero Amount is an opted-in account with no balance. The two cases drive
// different orchestration decisions and must stay distinct.
type AssetHolding struct {
	AssetID  uint64 `json:"asset_id"`
	Amount   uint64 `json:"amount"`
	IsFrozen bool   `json:"is_frozen"`
}

// ConfirmationResult is the terminal (or pending) state of a submitted
// transaction as reported by the node's pending-transaction endpoint.
type ConfirmationResult struct {
	TxID           string `json:"tx_id"`
	ConfirmedRound uint64 `json:"confirmed_round"`
	PoolError      string `json:"pool_error"`
	AssetIndex     uint64 `json:"asset_index,omitempty"`
}

// CreateAssetParams describes a new asset. The role addresses are optional;
// an empty string leaves the role unset on chain.
type CreateAssetParams struct {
	Total           uint64 `json:"total"`
	Decimals        uint32 `json:"decimals"`
	DefaultFrozen   bool   `json:"default_frozen"`
	UnitName        string `json:"unit_name"`
	AssetName       string `json:"asset_name"`
	URL             string `json:"url"`
	ManagerAddress  string `json:"manager_address,omitempty"`
	ReserveAddress  string `json:"reserve_address,omitempty"`
	FreezeAddress   string `json:"freeze_address,omitempty"`
	ClawbackAddress string `json:"clawback_address,omitempty"`
}

// TransferRequest carries the semantic intent of one custodial transfer.
// Lease and Note ride only on the final asset-transfer transaction, never on
// auxiliary top-up or opt-in transactions. Lease, when set, must be exactly
// 32 bytes.
type TransferRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Lease   []byte `json:"lease,omitempty"`
	Note    []byte `json:"note,omitempty"`
}

// ClawbackRequest force-moves an asset out of a user's account using the
// asset's configured clawback authority.
type ClawbackRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Lease   []byte `json:"lease,omitempty"`
}
