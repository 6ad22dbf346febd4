package keeper

import (
	"math"

	"cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// RolloverParams are the inputs of closing a round besides the vault state.
type RolloverParams struct {
	Decimals       uint32
	AssetBalance   sdkmath.Int
	ShareSupply    sdkmath.Int
	PerformanceFee uint64
	ManagementFee  uint64
	TermSeconds    uint64
}

// RolloverResult is the accounting of a closed round.
type RolloverResult struct {
	PricePerShare        sdkmath.Int
	MintShares           sdkmath.Int
	QueuedWithdrawAmount sdkmath.Int
	LockedBalance        sdkmath.Int
	Fees                 interest.Fees
}

// CloseRound computes the accounting of closing the open round. It reads
// state and never modifies it.
//
//  1. Fees are assessed on the balance net of reserved withdrawals, against
//     the amount locked when the round opened.
//  2. The price per share excludes shares and assets reserved for earlier
//     withdrawals and the round's pending deposits.
//  3. Shares queued this round are valued at that price and reserved.
//  4. Pending deposits are converted into shares to mint.
//  5. The remainder is locked for the next round.
func CloseRound(state types.VaultState, p RolloverParams) (RolloverResult, error) {
	balanceForFees, err := utils.SafeSub(p.AssetBalance, state.LastQueuedWithdrawAmount)
	if err != nil {
		return RolloverResult{}, errors.Wrapf(types.ErrInvariant, "balance below reserved withdrawals: %s", err)
	}
	fees, err := interest.VaultFees(balanceForFees, state.LockedAmount, state.TotalPending, p.PerformanceFee, p.ManagementFee, p.TermSeconds)
	if err != nil {
		return RolloverResult{}, errors.Wrap(types.ErrInvalidParams, err.Error())
	}

	balance, err := utils.SafeSub(p.AssetBalance, fees.Total())
	if err != nil {
		return RolloverResult{}, errors.Wrapf(types.ErrInvariant, "fees exceed balance: %s", err)
	}
	supplyForPrice, err := utils.SafeSub(p.ShareSupply, state.QueuedWithdrawShares)
	if err != nil {
		return RolloverResult{}, errors.Wrapf(types.ErrInvariant, "queued shares exceed supply: %s", err)
	}
	balanceForPrice, err := utils.SafeSub(balance, state.LastQueuedWithdrawAmount)
	if err != nil {
		return RolloverResult{}, errors.Wrapf(types.ErrInvariant, "reserved withdrawals exceed balance after fees: %s", err)
	}
	pps, err := utils.PricePerShare(supplyForPrice, balanceForPrice, state.TotalPending, p.Decimals)
	if err != nil {
		return RolloverResult{}, errors.Wrap(types.ErrInvariant, err.Error())
	}

	currentQueuedAmount, err := utils.SharesToAsset(state.CurrentQueuedWithdrawShares, pps, p.Decimals)
	if err != nil {
		return RolloverResult{}, errors.Wrap(types.ErrInvariant, err.Error())
	}
	queuedWithdrawAmount := state.LastQueuedWithdrawAmount.Add(currentQueuedAmount)

	mintShares, err := utils.AssetToShares(state.TotalPending, pps, p.Decimals)
	if err != nil {
		return RolloverResult{}, errors.Wrap(types.ErrInvalidPricePerShare, err.Error())
	}

	locked, err := utils.SafeSub(balance, queuedWithdrawAmount)
	if err != nil {
		return RolloverResult{}, errors.Wrapf(types.ErrInvariant, "queued withdrawals exceed balance: %s", err)
	}

	return RolloverResult{
		PricePerShare:        pps,
		MintShares:           mintShares,
		QueuedWithdrawAmount: queuedWithdrawAmount,
		LockedBalance:        locked,
		Fees:                 fees,
	}, nil
}

// RollToNextRound closes the current round and opens the next one. Only the
// keeper role may call it, and only once the loan term has elapsed.
//
// The rollover:
//  1. Closes the round's accounting (see CloseRound) and records its price
//     per share.
//  2. Advances the round, releases pending deposits and moves this round's
//     queued shares into the reserved set.
//  3. Mints the shares owed to the round's depositors into vault custody.
//  4. Pays fees to the fee recipient.
//  5. Re-splits the locked balance between loan and options and lends the
//     loan allocation to the borrower.
func (k *Keeper) RollToNextRound(ctx sdk.Context, caller sdk.AccAddress) (RolloverResult, types.VaultState, error) {
	defer telemetry.ModuleMeasureSince(types.ModuleName, telemetry.Now(), "rollover")

	var (
		result RolloverResult
		state  types.VaultState
	)
	err := k.atomic(ctx, "rollover", func(ctx sdk.Context) error {
		var err error
		result, state, err = k.rollToNextRound(ctx, caller)
		return err
	})
	return result, state, err
}

func (k *Keeper) rollToNextRound(ctx sdk.Context, caller sdk.AccAddress) (RolloverResult, types.VaultState, error) {
	roles, err := k.GetRoles(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	if err := roles.Authorize(types.RoleKeeper, caller); err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	fees, err := k.GetFeeParams(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	alloc, err := k.GetAllocationState(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	now := ctx.BlockTime().Unix()
	if readyAt := state.LastEpochTime + int64(alloc.CurrentLoanTermLength); now < readyAt {
		return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrEpochNotReady, "round %d can close at %d, now %d", state.Round, readyAt, now)
	}
	if uint32(state.Round) >= math.MaxUint16 {
		return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrOverflow, "round %d is the last round", state.Round)
	}

	balance, err := k.AssetBalance(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	supply, err := k.ShareSupply(ctx)
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	result, err := CloseRound(state, RolloverParams{
		Decimals:       params.Decimals,
		AssetBalance:   balance,
		ShareSupply:    supply,
		PerformanceFee: fees.PerformanceFee,
		ManagementFee:  fees.ManagementFee,
		TermSeconds:    alloc.CurrentLoanTermLength,
	})
	if err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	closedRound := state.Round
	if err := k.setRoundPricePerShare(ctx, closedRound, result.PricePerShare); err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	queuedShares := state.QueuedWithdrawShares.Add(state.CurrentQueuedWithdrawShares)
	if err := utils.AssertUint128(queuedShares); err != nil {
		return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrOverflow, "queued withdraw shares: %s", err)
	}
	if err := utils.AssertUint128(result.QueuedWithdrawAmount); err != nil {
		return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrOverflow, "queued withdraw amount: %s", err)
	}
	if err := utils.AssertUint104(result.LockedBalance); err != nil {
		return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrOverflow, "locked amount: %s", err)
	}

	state.Round++
	state.TotalPending = sdkmath.ZeroInt()
	state.LastEpochTime = interest.EpochStart(now)
	state.LastLockedAmount = state.LockedAmount
	state.LockedAmount = result.LockedBalance
	state.QueuedWithdrawShares = queuedShares
	state.CurrentQueuedWithdrawShares = sdkmath.ZeroInt()
	state.LastQueuedWithdrawAmount = result.QueuedWithdrawAmount
	state.LastOptionPurchaseTime = 0
	state.OptionsBoughtInRound = sdkmath.ZeroInt()
	state.AmtFundsReturned = sdkmath.ZeroInt()

	if result.MintShares.IsPositive() {
		if err := k.BankKeeper.MintCoins(ctx, types.ModuleName, sdk.NewCoins(sdk.NewCoin(params.ShareDenom, result.MintShares))); err != nil {
			return RolloverResult{}, types.VaultState{}, errors.Wrapf(err, "failed to mint %s%s", result.MintShares, params.ShareDenom)
		}
	}

	if totalFee := result.Fees.Total(); totalFee.IsPositive() {
		recipient, err := sdk.AccAddressFromBech32(roles.FeeRecipient)
		if err != nil {
			return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrInvalidParams, "fee recipient: %s", err)
		}
		if err := k.pushAsset(ctx, recipient, params.Asset, totalFee); err != nil {
			return RolloverResult{}, types.VaultState{}, errors.Wrapf(err, "failed to pay fees to %s", recipient)
		}
		emitEvents(ctx, types.NewEventCollectVaultFees(roles.FeeRecipient, result.Fees.Performance, result.Fees.Management, closedRound))
		k.getLogger(ctx).Info("collected vault fees", "round", closedRound, "performance", result.Fees.Performance, "management", result.Fees.Management)
	}

	if err := alloc.Recompute(result.LockedBalance); err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	if err := k.AllocationState.Set(ctx, alloc); err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}
	if err := k.VaultState.Set(ctx, state); err != nil {
		return RolloverResult{}, types.VaultState{}, err
	}

	if alloc.LoanAllocation.IsPositive() {
		borrower, err := sdk.AccAddressFromBech32(roles.Borrower)
		if err != nil {
			return RolloverResult{}, types.VaultState{}, errors.Wrapf(types.ErrInvalidParams, "borrower: %s", err)
		}
		if err := k.pushAsset(ctx, borrower, params.Asset, alloc.LoanAllocation); err != nil {
			return RolloverResult{}, types.VaultState{}, errors.Wrapf(err, "failed to lend %s to %s", alloc.LoanAllocation, borrower)
		}
		emitEvents(ctx, types.NewEventOpenLoan(roles.Borrower, alloc.LoanAllocation))
	}

	emitEvents(ctx, types.NewEventRollover(closedRound, result.PricePerShare, result.MintShares, result.LockedBalance, result.QueuedWithdrawAmount))
	k.getLogger(ctx).Info("rolled to next round",
		"closed_round", closedRound,
		"price_per_share", result.PricePerShare,
		"minted_shares", result.MintShares,
		"locked", result.LockedBalance,
		"loan_allocation", alloc.LoanAllocation,
		"option_allocation", alloc.OptionAllocation,
	)
	telemetry.SetGauge(float32(state.Round), types.ModuleName, "round")
	telemetry.SetGauge(gaugeValue(state.LockedAmount), types.ModuleName, "locked_amount")
	telemetry.SetGauge(gaugeValue(result.PricePerShare), types.ModuleName, "price_per_share")
	return result, state, nil
}
