package keeper

import (
	"context"
	"errors"

	"cosmossdk.io/collections"
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// IsInitialized reports whether the vault has been opened.
func (k Keeper) IsInitialized(ctx context.Context) (bool, error) {
	return k.VaultState.Has(ctx)
}

// GetVaultState returns the round ledger.
func (k Keeper) GetVaultState(ctx context.Context) (types.VaultState, error) {
	return getSingleton(ctx, k.VaultState)
}

// GetAllocationState returns the allocation state.
func (k Keeper) GetAllocationState(ctx context.Context) (types.AllocationState, error) {
	return getSingleton(ctx, k.AllocationState)
}

// GetVaultParams returns the vault params.
func (k Keeper) GetVaultParams(ctx context.Context) (types.VaultParams, error) {
	return getSingleton(ctx, k.VaultParams)
}

// GetFeeParams returns the fee params.
func (k Keeper) GetFeeParams(ctx context.Context) (types.FeeParams, error) {
	return getSingleton(ctx, k.FeeParams)
}

// GetRoles returns the role bindings.
func (k Keeper) GetRoles(ctx context.Context) (types.Roles, error) {
	return getSingleton(ctx, k.Roles)
}

func getSingleton[T any](ctx context.Context, item collections.Item[T]) (T, error) {
	v, err := item.Get(ctx)
	if errors.Is(err, collections.ErrNotFound) {
		return v, types.ErrNotInitialized
	}
	return v, err
}

// GetDepositReceipt returns the account's receipt, or an empty receipt when
// the account never deposited.
func (k Keeper) GetDepositReceipt(ctx context.Context, account sdk.AccAddress) (types.DepositReceipt, error) {
	r, err := k.DepositReceipts.Get(ctx, account)
	if errors.Is(err, collections.ErrNotFound) {
		return types.NewDepositReceipt(), nil
	}
	return r, err
}

// GetWithdrawal returns the account's withdrawal, or an empty withdrawal when
// none was ever initiated.
func (k Keeper) GetWithdrawal(ctx context.Context, account sdk.AccAddress) (types.Withdrawal, error) {
	w, err := k.Withdrawals.Get(ctx, account)
	if errors.Is(err, collections.ErrNotFound) {
		return types.NewWithdrawal(), nil
	}
	return w, err
}

// GetRoundPricePerShare returns the price a closed round settled at.
func (k Keeper) GetRoundPricePerShare(ctx context.Context, round uint16) (math.Int, bool, error) {
	pps, err := k.RoundPricePerShare.Get(ctx, uint64(round))
	if errors.Is(err, collections.ErrNotFound) {
		return math.Int{}, false, nil
	}
	if err != nil {
		return math.Int{}, false, err
	}
	return pps, true, nil
}

// setRoundPricePerShare records the price of a closed round. Each round's
// price is written exactly once.
func (k Keeper) setRoundPricePerShare(ctx context.Context, round uint16, pps math.Int) error {
	has, err := k.RoundPricePerShare.Has(ctx, uint64(round))
	if err != nil {
		return err
	}
	if has {
		return errorsmod.Wrapf(types.ErrInvariant, "price per share for round %d already recorded", round)
	}
	if err := utils.AssertUint128(pps); err != nil {
		return errorsmod.Wrapf(types.ErrOverflow, "price per share: %s", err)
	}
	return k.RoundPricePerShare.Set(ctx, uint64(round), pps)
}

// receiptPricePerShare returns the price needed to convert receipt at
// currentRound. It is zero when no conversion is due.
func (k Keeper) receiptPricePerShare(ctx context.Context, receipt types.DepositReceipt, currentRound uint16) (math.Int, error) {
	if !receipt.NeedsConversion(currentRound) {
		return math.ZeroInt(), nil
	}
	pps, found, err := k.GetRoundPricePerShare(ctx, receipt.Round)
	if err != nil {
		return math.Int{}, err
	}
	if !found {
		return math.Int{}, errorsmod.Wrapf(types.ErrInvariant, "missing price per share for closed round %d", receipt.Round)
	}
	return pps, nil
}

// UnredeemedShares returns the shares the account can redeem now, including
// any deposit from a closed round that has not been converted yet.
func (k Keeper) UnredeemedShares(ctx context.Context, account sdk.AccAddress) (math.Int, error) {
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
	return receipt.SharesFromReceipt(state.Round, pps, params.Decimals)
}

// AssetBalance returns the asset held in vault custody.
func (k Keeper) AssetBalance(ctx context.Context) (math.Int, error) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return math.Int{}, err
	}
	return k.BankKeeper.GetBalance(ctx, types.ModuleAddress, params.Asset).Amount, nil
}

// TotalBalance returns the asset in custody plus the capital still out with
// counterparties in the open round.
func (k Keeper) TotalBalance(ctx context.Context) (math.Int, error) {
	balance, err := k.AssetBalance(ctx)
	if err != nil {
		return math.Int{}, err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return math.Int{}, err
	}
	alloc, err := k.GetAllocationState(ctx)
	if err != nil {
		return math.Int{}, err
	}
	return balance.Add(state.Outstanding(alloc)), nil
}

// ShareSupply returns the total supply of the share denom.
func (k Keeper) ShareSupply(ctx context.Context) (math.Int, error) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return math.Int{}, err
	}
	return k.BankKeeper.GetSupply(ctx, params.ShareDenom).Amount, nil
}

// PricePerShare returns the price a rollover would settle at right now,
// before fees.
func (k Keeper) PricePerShare(ctx context.Context) (math.Int, error) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return math.Int{}, err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return math.Int{}, err
	}
	balance, err := k.AssetBalance(ctx)
	if err != nil {
		return math.Int{}, err
	}
	supply, err := k.ShareSupply(ctx)
	if err != nil {
		return math.Int{}, err
	}
	supplySansQueued, err := utils.SafeSub(supply, state.QueuedWithdrawShares)
	if err != nil {
		return math.Int{}, err
	}
	balanceSansQueued, err := utils.SafeSub(balance, state.LastQueuedWithdrawAmount)
	if err != nil {
		return math.Int{}, err
	}
	return utils.PricePerShare(supplySansQueued, balanceSansQueued, state.TotalPending, params.Decimals)
}

// AccountShares returns the shares held in the account's wallet and the
// shares still held by the vault on its behalf.
func (k Keeper) AccountShares(ctx context.Context, account sdk.AccAddress) (held, unredeemed math.Int, err error) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	unredeemed, err = k.UnredeemedShares(ctx, account)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	held = k.BankKeeper.GetBalance(ctx, account, params.ShareDenom).Amount
	return held, unredeemed, nil
}

func (k Keeper) pullAsset(ctx context.Context, from sdk.AccAddress, denom string, amount math.Int) error {
	return k.BankKeeper.SendCoinsFromAccountToModule(ctx, from, types.ModuleName, sdk.NewCoins(sdk.NewCoin(denom, amount)))
}

func (k Keeper) pushAsset(ctx context.Context, to sdk.AccAddress, denom string, amount math.Int) error {
	return k.BankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, to, sdk.NewCoins(sdk.NewCoin(denom, amount)))
}
