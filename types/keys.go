package types

import (
	"cosmossdk.io/collections"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "epochvault"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// ModuleAddress is the module account. It custodies the vault's assets,
// escrows shares of pending withdrawals and holds shares minted for deposits
// that have not been redeemed yet.
var ModuleAddress = authtypes.NewModuleAddress(ModuleName)

var (
	// VaultParamsKeyPrefix is the prefix of the vault params singleton.
	VaultParamsKeyPrefix = collections.NewPrefix(0)
	// VaultParamsName is a human-readable name for the vault params collection.
	VaultParamsName = "vault_params"
	// FeeParamsKeyPrefix is the prefix of the fee params singleton.
	FeeParamsKeyPrefix = collections.NewPrefix(1)
	// FeeParamsName is a human-readable name for the fee params collection.
	FeeParamsName = "fee_params"
	// RolesKeyPrefix is the prefix of the roles singleton.
	RolesKeyPrefix = collections.NewPrefix(2)
	// RolesName is a human-readable name for the roles collection.
	RolesName = "roles"
	// VaultStateKeyPrefix is the prefix of the vault state singleton.
	VaultStateKeyPrefix = collections.NewPrefix(3)
	// VaultStateName is a human-readable name for the vault state collection.
	VaultStateName = "vault_state"
	// AllocationStateKeyPrefix is the prefix of the allocation state singleton.
	AllocationStateKeyPrefix = collections.NewPrefix(4)
	// AllocationStateName is a human-readable name for the allocation state collection.
	AllocationStateName = "allocation_state"
	// DepositReceiptsKeyPrefix is the prefix of deposit receipts keyed by account.
	DepositReceiptsKeyPrefix = collections.NewPrefix(5)
	// DepositReceiptsName is a human-readable name for the deposit receipts collection.
	DepositReceiptsName = "deposit_receipts"
	// WithdrawalsKeyPrefix is the prefix of withdrawals keyed by account.
	WithdrawalsKeyPrefix = collections.NewPrefix(6)
	// WithdrawalsName is a human-readable name for the withdrawals collection.
	WithdrawalsName = "withdrawals"
	// RoundPricePerShareKeyPrefix is the prefix of the per-round price history.
	RoundPricePerShareKeyPrefix = collections.NewPrefix(7)
	// RoundPricePerShareName is a human-readable name for the price history collection.
	RoundPricePerShareName = "round_price_per_share"
	// PendingBorrowerKeyPrefix is the prefix of the staged borrower change.
	PendingBorrowerKeyPrefix = collections.NewPrefix(8)
	// PendingBorrowerName is a human-readable name for the staged borrower collection.
	PendingBorrowerName = "pending_borrower"
	// PendingOptionSellerKeyPrefix is the prefix of the staged option seller change.
	PendingOptionSellerKeyPrefix = collections.NewPrefix(9)
	// PendingOptionSellerName is a human-readable name for the staged option seller collection.
	PendingOptionSellerName = "pending_option_seller"
	// WithdrawalQueuePrefix is the prefix of the (round, account) withdrawal index.
	WithdrawalQueuePrefix = collections.NewPrefix(10)
	// WithdrawalQueueName is a human-readable name for the withdrawal index.
	WithdrawalQueueName = "withdrawal_queue"
	// SchemaVersionKeyPrefix is the prefix of the persisted state schema version.
	SchemaVersionKeyPrefix = collections.NewPrefix(11)
	// SchemaVersionName is a human-readable name for the schema version item.
	SchemaVersionName = "schema_version"
)

// IsModuleAddress reports whether addr is the vault custody account.
func IsModuleAddress(addr sdk.AccAddress) bool {
	return ModuleAddress.Equals(addr)
}
