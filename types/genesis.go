package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/utils"
)

// GenesisState is the full persisted state of the vault.
type GenesisState struct {
	// Initialized is false for a chain that has not opened the vault yet;
	// every other field is then ignored.
	Initialized         bool                 `json:"initialized"`
	Params              VaultParams          `json:"params"`
	Fees                FeeParams            `json:"fees"`
	Roles               Roles                `json:"roles"`
	State               VaultState           `json:"state"`
	Allocation          AllocationState      `json:"allocation"`
	DepositReceipts     []AccountReceipt     `json:"deposit_receipts,omitempty"`
	Withdrawals         []AccountWithdrawal  `json:"withdrawals,omitempty"`
	RoundPricePerShare  []RoundPrice         `json:"round_price_per_share,omitempty"`
	PendingBorrower     *PendingCounterparty `json:"pending_borrower,omitempty"`
	PendingOptionSeller *PendingCounterparty `json:"pending_option_seller,omitempty"`
}

// AccountReceipt is a deposit receipt keyed by its bech32 account.
type AccountReceipt struct {
	Address string         `json:"address"`
	Receipt DepositReceipt `json:"receipt"`
}

// AccountWithdrawal is a withdrawal keyed by its bech32 account.
type AccountWithdrawal struct {
	Address    string     `json:"address"`
	Withdrawal Withdrawal `json:"withdrawal"`
}

// RoundPrice is the price per share a round closed at.
type RoundPrice struct {
	Round         uint16      `json:"round"`
	PricePerShare sdkmath.Int `json:"price_per_share"`
}

// DefaultGenesisState returns the default genesis state
func DefaultGenesisState() *GenesisState {
	return &GenesisState{}
}

// Validate performs basic genesis state validation returning an error upon any
// failure.
func (gs GenesisState) Validate() error {
	if !gs.Initialized {
		if len(gs.DepositReceipts) > 0 || len(gs.Withdrawals) > 0 || len(gs.RoundPricePerShare) > 0 {
			return fmt.Errorf("uninitialized vault cannot carry receipts, withdrawals or prices")
		}
		return nil
	}

	if err := gs.Params.Validate(); err != nil {
		return err
	}
	if err := gs.Fees.Validate(); err != nil {
		return err
	}
	if err := gs.Roles.Validate(); err != nil {
		return err
	}
	if err := gs.State.Validate(); err != nil {
		return fmt.Errorf("vault state: %w", err)
	}
	if err := gs.Allocation.Validate(); err != nil {
		return fmt.Errorf("allocation state: %w", err)
	}

	seen := make(map[string]bool, len(gs.DepositReceipts))
	for _, r := range gs.DepositReceipts {
		if err := validateGenesisAccount(r.Address, seen); err != nil {
			return fmt.Errorf("deposit receipt: %w", err)
		}
		if r.Receipt.Round > gs.State.Round {
			return fmt.Errorf("deposit receipt of %s in future round %d", r.Address, r.Receipt.Round)
		}
		if err := r.Receipt.Validate(); err != nil {
			return fmt.Errorf("deposit receipt of %s: %w", r.Address, err)
		}
	}

	seen = make(map[string]bool, len(gs.Withdrawals))
	for _, w := range gs.Withdrawals {
		if err := validateGenesisAccount(w.Address, seen); err != nil {
			return fmt.Errorf("withdrawal: %w", err)
		}
		if w.Withdrawal.Round > gs.State.Round {
			return fmt.Errorf("withdrawal of %s in future round %d", w.Address, w.Withdrawal.Round)
		}
		if err := w.Withdrawal.Validate(); err != nil {
			return fmt.Errorf("withdrawal of %s: %w", w.Address, err)
		}
	}

	rounds := make(map[uint16]bool, len(gs.RoundPricePerShare))
	for _, p := range gs.RoundPricePerShare {
		if p.Round == 0 || p.Round >= gs.State.Round {
			return fmt.Errorf("price per share for round %d which is not closed", p.Round)
		}
		if rounds[p.Round] {
			return fmt.Errorf("duplicate price per share for round %d", p.Round)
		}
		rounds[p.Round] = true
		if p.PricePerShare.IsNil() || !p.PricePerShare.IsPositive() {
			return fmt.Errorf("price per share for round %d must be positive", p.Round)
		}
		if err := utils.AssertUint128(p.PricePerShare); err != nil {
			return fmt.Errorf("price per share for round %d: %w", p.Round, err)
		}
	}

	for _, pending := range []*PendingCounterparty{gs.PendingBorrower, gs.PendingOptionSeller} {
		if pending == nil {
			continue
		}
		if err := ValidateRoleAddress("pending counterparty", pending.Address); err != nil {
			return err
		}
	}
	return nil
}

func validateGenesisAccount(addr string, seen map[string]bool) error {
	if _, err := sdk.AccAddressFromBech32(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if seen[addr] {
		return fmt.Errorf("duplicate entry for %s", addr)
	}
	seen[addr] = true
	return nil
}
