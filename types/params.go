package types

import (
	"fmt"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/utils"
)

const (
	// CounterpartyTimelock is the delay between staging and committing a new
	// borrower or option seller.
	CounterpartyTimelock = 72 * time.Hour
	// SchemaVersion is the version of the persisted state layout.
	SchemaVersion uint64 = 2
)

// VaultParams describes the vault's asset and share denominations and the
// bounds on its total balance.
type VaultParams struct {
	Asset         string   `json:"asset"`
	ShareDenom    string   `json:"share_denom"`
	Decimals      uint32   `json:"decimals"`
	MinimumSupply math.Int `json:"minimum_supply"`
	Cap           math.Int `json:"cap"`
}

// Normalize replaces unset amounts with zero.
func (p *VaultParams) Normalize() {
	normalizeInt(&p.MinimumSupply)
	normalizeInt(&p.Cap)
}

// Validate performs stateless validation of the vault params.
func (p VaultParams) Validate() error {
	if err := sdk.ValidateDenom(p.Asset); err != nil {
		return errors.Wrapf(ErrInvalidParams, "invalid asset denom: %s", err)
	}
	if err := sdk.ValidateDenom(p.ShareDenom); err != nil {
		return errors.Wrapf(ErrInvalidParams, "invalid share denom: %s", err)
	}
	if p.Asset == p.ShareDenom {
		return errors.Wrapf(ErrInvalidParams, "share denom cannot equal asset denom %q", p.Asset)
	}
	if err := ValidateDecimals(p.Decimals); err != nil {
		return err
	}
	if p.Cap.IsNil() || !p.Cap.IsPositive() {
		return errors.Wrap(ErrInvalidParams, "cap must be positive")
	}
	if err := utils.AssertUint104(p.Cap); err != nil {
		return errors.Wrapf(ErrInvalidParams, "cap: %s", err)
	}
	if p.MinimumSupply.IsNil() || p.MinimumSupply.IsNegative() {
		return errors.Wrap(ErrInvalidParams, "minimum supply cannot be negative")
	}
	if p.MinimumSupply.GT(p.Cap) {
		return errors.Wrapf(ErrInvalidParams, "minimum supply %s exceeds cap %s", p.MinimumSupply, p.Cap)
	}
	return nil
}

// ValidateDecimals bounds the share precision.
func ValidateDecimals(decimals uint32) error {
	if decimals == 0 || decimals > utils.MaxDecimals {
		return errors.Wrapf(ErrInvalidParams, "decimals must be in [1, %d], got %d", utils.MaxDecimals, decimals)
	}
	return nil
}

// FeeParams holds the vault fees, scaled by interest.FeeMultiplier.
type FeeParams struct {
	PerformanceFee uint64 `json:"performance_fee"`
	ManagementFee  uint64 `json:"management_fee"`
}

// Validate ensures both fees are below 100%.
func (f FeeParams) Validate() error {
	if err := ValidateFee(f.PerformanceFee); err != nil {
		return fmt.Errorf("performance fee: %w", err)
	}
	if err := ValidateFee(f.ManagementFee); err != nil {
		return fmt.Errorf("management fee: %w", err)
	}
	return nil
}

// ValidateFee ensures a fee is below 100%.
func ValidateFee(fee uint64) error {
	if fee >= interest.MaxFee {
		return errors.Wrapf(ErrInvalidParams, "fee %d must be below %d", fee, interest.MaxFee)
	}
	return nil
}
