package types

import (
	"context"

	"cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/types/query"
)

// MsgServer is the transaction surface of the vault.
type MsgServer interface {
	InitializeVault(context.Context, *MsgInitializeVault) (*MsgResponse, error)
	Deposit(context.Context, *MsgDeposit) (*MsgResponse, error)
	WithdrawInstantly(context.Context, *MsgWithdrawInstantly) (*MsgResponse, error)
	Redeem(context.Context, *MsgRedeem) (*MsgRedeemResponse, error)
	InitiateWithdraw(context.Context, *MsgInitiateWithdraw) (*MsgResponse, error)
	CompleteWithdraw(context.Context, *MsgCompleteWithdraw) (*MsgCompleteWithdrawResponse, error)
	RollToNextRound(context.Context, *MsgRollToNextRound) (*MsgRollToNextRoundResponse, error)
	BuyOption(context.Context, *MsgBuyOption) (*MsgResponse, error)
	PayOptionYield(context.Context, *MsgPayOptionYield) (*MsgResponse, error)
	ReturnLentFunds(context.Context, *MsgReturnLentFunds) (*MsgResponse, error)
	UpdateParam(context.Context, *MsgUpdateParam) (*MsgResponse, error)
}

// QueryServer is the read surface of the vault.
type QueryServer interface {
	Vault(context.Context, *QueryVaultRequest) (*QueryVaultResponse, error)
	Account(context.Context, *QueryAccountRequest) (*QueryAccountResponse, error)
	RoundPricePerShare(context.Context, *QueryRoundPricePerShareRequest) (*QueryRoundPricePerShareResponse, error)
	QueuedWithdrawals(context.Context, *QueryQueuedWithdrawalsRequest) (*QueryQueuedWithdrawalsResponse, error)
	DepositReceipts(context.Context, *QueryDepositReceiptsRequest) (*QueryDepositReceiptsResponse, error)
}

// QueryVaultRequest requests the vault's configuration and ledger.
type QueryVaultRequest struct{}

// QueryVaultResponse is the vault's configuration and ledger together with
// derived balances.
type QueryVaultResponse struct {
	Params        VaultParams     `json:"params"`
	Fees          FeeParams       `json:"fees"`
	Roles         Roles           `json:"roles"`
	State         VaultState      `json:"state"`
	Allocation    AllocationState `json:"allocation"`
	AssetBalance  math.Int        `json:"asset_balance"`
	TotalBalance  math.Int        `json:"total_balance"`
	ShareSupply   math.Int        `json:"share_supply"`
	PricePerShare math.Int        `json:"price_per_share"`

	PendingBorrower     *PendingCounterparty `json:"pending_borrower,omitempty"`
	PendingOptionSeller *PendingCounterparty `json:"pending_option_seller,omitempty"`
}

// QueryAccountRequest requests an account's position.
type QueryAccountRequest struct {
	Address string `json:"address"`
}

// QueryAccountResponse is an account's position in the vault.
type QueryAccountResponse struct {
	Receipt          DepositReceipt `json:"receipt"`
	Withdrawal       Withdrawal     `json:"withdrawal"`
	HeldShares       math.Int       `json:"held_shares"`
	UnredeemedShares math.Int       `json:"unredeemed_shares"`
	// AssetValue values held plus unredeemed shares at the current implied
	// price, plus any deposit still pending in the open round.
	AssetValue math.Int `json:"asset_value"`
}

// QueryRoundPricePerShareRequest requests the price a round closed at.
type QueryRoundPricePerShareRequest struct {
	Round uint16 `json:"round"`
}

// QueryRoundPricePerShareResponse is the price a round closed at.
type QueryRoundPricePerShareResponse struct {
	Round         uint16   `json:"round"`
	PricePerShare math.Int `json:"price_per_share"`
}

// QueryQueuedWithdrawalsRequest requests the withdrawals queued in a round.
type QueryQueuedWithdrawalsRequest struct {
	Round uint16 `json:"round"`
}

// QueryQueuedWithdrawalsResponse lists the withdrawals queued in a round.
type QueryQueuedWithdrawalsResponse struct {
	Withdrawals []AccountWithdrawal `json:"withdrawals"`
}

// QueryDepositReceiptsRequest requests a page of deposit receipts.
type QueryDepositReceiptsRequest struct {
	Pagination *query.PageRequest `json:"pagination,omitempty"`
}

// QueryDepositReceiptsResponse is a page of deposit receipts.
type QueryDepositReceiptsResponse struct {
	Receipts   []AccountReceipt    `json:"receipts"`
	Pagination *query.PageResponse `json:"pagination,omitempty"`
}
