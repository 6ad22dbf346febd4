package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// WithdrawInstantly returns part of a deposit made in the current round
// before it is invested.
func (k *Keeper) WithdrawInstantly(ctx sdk.Context, caller sdk.AccAddress, amount math.Int) error {
	return k.atomic(ctx, "withdraw_instantly", func(ctx sdk.Context) error {
		if amount.IsNil() || !amount.IsPositive() {
			return errors.Wrap(types.ErrInvalidAmount, "withdraw amount must be positive")
		}

		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		receipt, err := k.GetDepositReceipt(ctx, caller)
		if err != nil {
			return err
		}

		if receipt.Round != state.Round {
			return errors.Wrapf(types.ErrInvalidRequest, "no deposit in current round %d", state.Round)
		}
		if amount.GT(receipt.Amount) {
			return errors.Wrapf(types.ErrInvalidAmount, "withdraw %s exceeds deposit %s", amount, receipt.Amount)
		}

		receipt.Amount = receipt.Amount.Sub(amount)
		if err := k.DepositReceipts.Set(ctx, caller, receipt); err != nil {
			return err
		}
		state.TotalPending, err = utils.SafeSub(state.TotalPending, amount)
		if err != nil {
			return errors.Wrapf(types.ErrInvariant, "total pending: %s", err)
		}
		if err := k.VaultState.Set(ctx, state); err != nil {
			return err
		}

		if err := k.pushAsset(ctx, caller, params.Asset, amount); err != nil {
			return errors.Wrapf(err, "failed to transfer %s%s to %s", amount, params.Asset, caller)
		}

		emitEvents(ctx, types.NewEventInstantWithdraw(caller.String(), amount, state.Round))
		telemetry.IncrCounter(1, types.ModuleName, "instant_withdraw")
		return nil
	})
}

// InitiateWithdraw queues numShares of the caller for withdrawal at the price
// the current round closes at.
//
//  1. Any unredeemed shares are first redeemed to the caller so that the
//     escrow below can draw on them.
//  2. A withdrawal already queued in the current round is topped up; one
//     queued in an earlier round must be completed first.
//  3. The shares are escrowed into vault custody and counted in
//     CurrentQueuedWithdrawShares.
func (k *Keeper) InitiateWithdraw(ctx sdk.Context, caller sdk.AccAddress, numShares math.Int) error {
	return k.atomic(ctx, "initiate_withdraw", func(ctx sdk.Context) error {
		if numShares.IsNil() || !numShares.IsPositive() {
			return errors.Wrap(types.ErrInvalidAmount, "shares to withdraw must be positive")
		}

		receipt, err := k.GetDepositReceipt(ctx, caller)
		if err != nil {
			return err
		}
		if !receipt.IsEmpty() {
			if _, err := k.redeem(ctx, caller, math.ZeroInt(), true); err != nil {
				return err
			}
		}

		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		withdrawal, err := k.GetWithdrawal(ctx, caller)
		if err != nil {
			return err
		}

		total := numShares
		if withdrawal.Round == state.Round {
			total = withdrawal.Shares.Add(numShares)
		} else {
			if withdrawal.IsActive() {
				return errors.Wrapf(types.ErrWithdrawalExists, "withdrawal of %s shares from round %d not completed", withdrawal.Shares, withdrawal.Round)
			}
			withdrawal.Round = state.Round
		}
		if err := utils.AssertUint128(total); err != nil {
			return errors.Wrapf(types.ErrOverflow, "withdrawal shares: %s", err)
		}
		withdrawal.Shares = total
		if err := k.Withdrawals.Set(ctx, caller, withdrawal); err != nil {
			return err
		}

		queued := state.CurrentQueuedWithdrawShares.Add(numShares)
		if err := utils.AssertUint128(queued); err != nil {
			return errors.Wrapf(types.ErrOverflow, "current queued withdraw shares: %s", err)
		}
		state.CurrentQueuedWithdrawShares = queued
		if err := k.VaultState.Set(ctx, state); err != nil {
			return err
		}
		if err := k.WithdrawalQueue.Enqueue(ctx, state.Round, caller); err != nil {
			return err
		}

		if err := k.pullAsset(ctx, caller, params.ShareDenom, numShares); err != nil {
			return errors.Wrapf(err, "failed to escrow %s%s from %s", numShares, params.ShareDenom, caller)
		}

		emitEvents(ctx, types.NewEventInitiateWithdraw(caller.String(), numShares, state.Round))
		telemetry.IncrCounter(1, types.ModuleName, "initiate_withdraw")
		return nil
	})
}

// CompleteWithdraw pays out the caller's withdrawal once its round has
// closed and returns the asset amount paid.
//
//  1. The escrowed shares are valued at the price of the round they were
//     queued in.
//  2. QueuedWithdrawShares and the reserved LastQueuedWithdrawAmount are
//     released.
//  3. The escrowed shares are burned and the asset is sent to the caller.
func (k *Keeper) CompleteWithdraw(ctx sdk.Context, caller sdk.AccAddress) (math.Int, error) {
	var paid math.Int
	err := k.atomic(ctx, "complete_withdraw", func(ctx sdk.Context) error {
		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		withdrawal, err := k.GetWithdrawal(ctx, caller)
		if err != nil {
			return err
		}

		if !withdrawal.IsActive() {
			return errors.Wrapf(types.ErrNoWithdrawal, "%s", caller)
		}
		if withdrawal.Round >= state.Round {
			return errors.Wrapf(types.ErrRoundNotClosed, "withdrawal round %d is still open", withdrawal.Round)
		}

		pps, found, err := k.GetRoundPricePerShare(ctx, withdrawal.Round)
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrapf(types.ErrInvariant, "missing price per share for closed round %d", withdrawal.Round)
		}
		amount, err := utils.SharesToAsset(withdrawal.Shares, pps, params.Decimals)
		if err != nil {
			return errors.Wrap(types.ErrInvariant, err.Error())
		}
		if !amount.IsPositive() {
			return errors.Wrapf(types.ErrInvalidAmount, "%s shares are worth nothing at round %d", withdrawal.Shares, withdrawal.Round)
		}

		shares := withdrawal.Shares
		withdrawal.Shares = math.ZeroInt()
		if err := k.Withdrawals.Set(ctx, caller, withdrawal); err != nil {
			return err
		}

		if state.QueuedWithdrawShares, err = utils.SafeSub(state.QueuedWithdrawShares, shares); err != nil {
			return errors.Wrapf(types.ErrInvariant, "queued withdraw shares: %s", err)
		}
		if state.LastQueuedWithdrawAmount, err = utils.SafeSub(state.LastQueuedWithdrawAmount, amount); err != nil {
			return errors.Wrapf(types.ErrInvariant, "last queued withdraw amount: %s", err)
		}
		if err := k.VaultState.Set(ctx, state); err != nil {
			return err
		}
		if err := k.WithdrawalQueue.Dequeue(ctx, withdrawal.Round, caller); err != nil {
			return err
		}

		if err := k.BankKeeper.BurnCoins(ctx, types.ModuleName, sdk.NewCoins(sdk.NewCoin(params.ShareDenom, shares))); err != nil {
			return errors.Wrapf(err, "failed to burn %s%s", shares, params.ShareDenom)
		}
		if err := k.pushAsset(ctx, caller, params.Asset, amount); err != nil {
			return errors.Wrapf(err, "failed to transfer %s%s to %s", amount, params.Asset, caller)
		}

		emitEvents(ctx, types.NewEventWithdraw(caller.String(), amount, shares))
		telemetry.IncrCounter(1, types.ModuleName, "withdraw")
		paid = amount
		return nil
	})
	return paid, err
}
