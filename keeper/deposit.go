package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// Deposit deposits amount of the vault asset from caller, credited to caller.
func (k *Keeper) Deposit(ctx sdk.Context, caller sdk.AccAddress, amount math.Int) error {
	return k.DepositFor(ctx, caller, caller, amount)
}

// DepositFor deposits amount of the vault asset from caller, credited to
// creditor, for the current round.
//
// The deposit:
//  1. Requires amount > 0 and keeps the vault's total balance within
//     [MinimumSupply, Cap].
//  2. Converts any deposit the creditor made in a closed round into
//     unredeemed shares at that round's price.
//  3. Adds amount to the creditor's receipt for the current round and to
//     TotalPending.
//  4. Transfers the asset from caller into vault custody.
//
// No shares are minted; they are minted for all pending deposits at the next
// rollover.
func (k *Keeper) DepositFor(ctx sdk.Context, caller, creditor sdk.AccAddress, amount math.Int) error {
	return k.atomic(ctx, "deposit", func(ctx sdk.Context) error {
		return k.depositFor(ctx, caller, creditor, amount)
	})
}

func (k *Keeper) depositFor(ctx sdk.Context, caller, creditor sdk.AccAddress, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errors.Wrap(types.ErrInvalidAmount, "deposit amount must be positive")
	}
	if creditor.Empty() {
		return errors.Wrap(types.ErrInvalidRequest, "creditor cannot be empty")
	}
	if types.IsModuleAddress(creditor) {
		return errors.Wrap(types.ErrInvalidRequest, "creditor cannot be the vault account")
	}

	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return err
	}
	total, err := k.TotalBalance(ctx)
	if err != nil {
		return err
	}

	totalWithDeposit := total.Add(amount)
	if totalWithDeposit.GT(params.Cap) {
		return errors.Wrapf(types.ErrCapExceeded, "total balance %s would exceed cap %s", totalWithDeposit, params.Cap)
	}
	if totalWithDeposit.LT(params.MinimumSupply) {
		return errors.Wrapf(types.ErrInsufficientSupply, "total balance %s below minimum supply %s", totalWithDeposit, params.MinimumSupply)
	}

	receipt, err := k.GetDepositReceipt(ctx, creditor)
	if err != nil {
		return err
	}
	pps, err := k.receiptPricePerShare(ctx, receipt, state.Round)
	if err != nil {
		return err
	}
	unredeemed, err := receipt.SharesFromReceipt(state.Round, pps, params.Decimals)
	if err != nil {
		return errors.Wrap(types.ErrInvalidPricePerShare, err.Error())
	}

	depositAmount := amount
	// A second deposit in the same round adds to the existing one.
	if receipt.Round == state.Round {
		depositAmount = receipt.Amount.Add(amount)
	}
	if err := utils.AssertUint104(depositAmount); err != nil {
		return errors.Wrapf(types.ErrOverflow, "receipt amount: %s", err)
	}
	if err := utils.AssertUint128(unredeemed); err != nil {
		return errors.Wrapf(types.ErrOverflow, "unredeemed shares: %s", err)
	}

	newPending := state.TotalPending.Add(amount)
	if err := utils.AssertUint128(newPending); err != nil {
		return errors.Wrapf(types.ErrOverflow, "total pending: %s", err)
	}

	receipt = types.DepositReceipt{
		Round:            state.Round,
		Amount:           depositAmount,
		UnredeemedShares: unredeemed,
	}
	if err := k.DepositReceipts.Set(ctx, creditor, receipt); err != nil {
		return err
	}
	state.TotalPending = newPending
	if err := k.VaultState.Set(ctx, state); err != nil {
		return err
	}

	if err := k.pullAsset(ctx, caller, params.Asset, amount); err != nil {
		return errors.Wrapf(err, "failed to transfer %s%s from %s", amount, params.Asset, caller)
	}

	emitEvents(ctx, types.NewEventDeposit(creditor.String(), amount, state.Round))
	telemetry.IncrCounter(1, types.ModuleName, "deposit")
	telemetry.SetGauge(gaugeValue(state.TotalPending), types.ModuleName, "total_pending")
	return nil
}
