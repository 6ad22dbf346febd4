package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// Redeem moves numShares of the caller's unredeemed shares from the vault
// into the caller's account.
func (k *Keeper) Redeem(ctx sdk.Context, caller sdk.AccAddress, numShares math.Int) error {
	if numShares.IsNil() || !numShares.IsPositive() {
		return errors.Wrap(types.ErrInvalidAmount, "shares to redeem must be positive")
	}
	return k.atomic(ctx, "redeem", func(ctx sdk.Context) error {
		_, err := k.redeem(ctx, caller, numShares, false)
		return err
	})
}

// MaxRedeem moves all of the caller's unredeemed shares into the caller's
// account and returns how many were moved. Calling it again redeems nothing.
func (k *Keeper) MaxRedeem(ctx sdk.Context, caller sdk.AccAddress) (math.Int, error) {
	var redeemed math.Int
	err := k.atomic(ctx, "max_redeem", func(ctx sdk.Context) error {
		var err error
		redeemed, err = k.redeem(ctx, caller, math.ZeroInt(), true)
		return err
	})
	return redeemed, err
}

// redeem converts the account's receipt forward and debits its unredeemed
// shares.
//
//  1. The receipt's closed-round deposit converts into shares at that round's
//     price; the receipt amount is then cleared.
//  2. With isMax every unredeemed share is taken, otherwise numShares must not
//     exceed them.
//  3. Shares are sent from vault custody to the account.
func (k *Keeper) redeem(ctx sdk.Context, account sdk.AccAddress, numShares math.Int, isMax bool) (math.Int, error) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return math.Int{}, err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return math.Int{}, err
	}
	receipt, err := k.GetDepositReceipt(ctx, account)
	if err != nil {
		return math.Int{}, err
	}
	pps, err := k.receiptPricePerShare(ctx, receipt, state.Round)
	if err != nil {
		return math.Int{}, err
	}
	unredeemed, err := receipt.SharesFromReceipt(state.Round, pps, params.Decimals)
	if err != nil {
		return math.Int{}, errors.Wrap(types.ErrInvalidPricePerShare, err.Error())
	}

	if isMax {
		numShares = unredeemed
	}
	if numShares.IsZero() {
		return numShares, nil
	}
	if numShares.GT(unredeemed) {
		return math.Int{}, errors.Wrapf(types.ErrInvalidAmount, "redeem %s exceeds available %s", numShares, unredeemed)
	}
	if err := utils.AssertUint128(numShares); err != nil {
		return math.Int{}, errors.Wrapf(types.ErrOverflow, "shares: %s", err)
	}

	// The deposit has been converted into shares once its round closed.
	if receipt.Round < state.Round {
		receipt.Amount = math.ZeroInt()
	}
	receipt.UnredeemedShares = unredeemed.Sub(numShares)
	if err := k.DepositReceipts.Set(ctx, account, receipt); err != nil {
		return math.Int{}, err
	}

	if err := k.pushAsset(ctx, account, params.ShareDenom, numShares); err != nil {
		return math.Int{}, errors.Wrapf(err, "failed to transfer %s%s to %s", numShares, params.ShareDenom, account)
	}

	emitEvents(ctx, types.NewEventRedeem(account.String(), numShares, receipt.Round))
	return numShares, nil
}
