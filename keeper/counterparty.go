package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// BuyOption sends one option allocation to the option seller. Only the
// keeper role may call it, at most once per option purchase period.
func (k *Keeper) BuyOption(ctx sdk.Context, caller sdk.AccAddress) error {
	return k.atomic(ctx, "buy_option", func(ctx sdk.Context) error {
		roles, err := k.GetRoles(ctx)
		if err != nil {
			return err
		}
		if err := roles.Authorize(types.RoleKeeper, caller); err != nil {
			return err
		}

		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		alloc, err := k.GetAllocationState(ctx)
		if err != nil {
			return err
		}

		now := ctx.BlockTime().Unix()
		if next := state.LastOptionPurchaseTime + int64(alloc.CurrentOptionPurchaseFreq); now < next {
			return errors.Wrapf(types.ErrPurchaseTooEarly, "next purchase at %d, now %d", next, now)
		}
		if !alloc.OptionAllocation.IsPositive() {
			return errors.Wrap(types.ErrInvalidAmount, "option allocation is zero")
		}

		bought := state.OptionsBoughtInRound.Add(alloc.OptionAllocation)
		if err := utils.AssertUint128(bought); err != nil {
			return errors.Wrapf(types.ErrOverflow, "options bought in round: %s", err)
		}
		state.OptionsBoughtInRound = bought
		state.LastOptionPurchaseTime = interest.EpochStart(now)
		if err := k.VaultState.Set(ctx, state); err != nil {
			return err
		}

		seller, err := sdk.AccAddressFromBech32(roles.OptionSeller)
		if err != nil {
			return errors.Wrapf(types.ErrInvalidParams, "option seller: %s", err)
		}
		if err := k.pushAsset(ctx, seller, params.Asset, alloc.OptionAllocation); err != nil {
			return errors.Wrapf(err, "failed to pay option premium to %s", seller)
		}

		emitEvents(ctx, types.NewEventPurchaseOption(roles.OptionSeller, alloc.OptionAllocation))
		return nil
	})
}

// PayOptionYield returns option proceeds to the vault. Only the option
// seller may call it. The full amount is credited; the yield over the option
// allocation is reported in the event.
func (k *Keeper) PayOptionYield(ctx sdk.Context, caller sdk.AccAddress, amount math.Int) error {
	return k.atomic(ctx, "pay_option_yield", func(ctx sdk.Context) error {
		yield, err := k.receiveCounterpartyFunds(ctx, types.RoleOptionSeller, caller, amount, interest.OptionYield)
		if err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventPayOptionYield(caller.String(), amount, yield.Amount, yield.Percent))
		return nil
	})
}

// ReturnLentFunds repays the loan to the vault. Only the borrower may call
// it. Under-repayment is accepted and shows up as a loss at the next
// rollover.
func (k *Keeper) ReturnLentFunds(ctx sdk.Context, caller sdk.AccAddress, amount math.Int) error {
	return k.atomic(ctx, "return_lent_funds", func(ctx sdk.Context) error {
		yield, err := k.receiveCounterpartyFunds(ctx, types.RoleBorrower, caller, amount, interest.LoanYield)
		if err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		alloc, err := k.GetAllocationState(ctx)
		if err != nil {
			return err
		}
		rate := interest.AnnualizedRate(yield.Amount, alloc.LoanAllocation, ctx.BlockTime().Unix()-state.LastEpochTime)
		emitEvents(ctx, types.NewEventCloseLoan(caller.String(), amount, yield.Amount, yield.Percent, rate))
		k.getLogger(ctx).Info("loan repaid", "amount", amount, "yield", yield.Amount, "yield_pct", yield.Percent, "annualized_rate", rate)
		return nil
	})
}

// receiveCounterpartyFunds pulls amount from a counterparty, records it in
// AmtFundsReturned and returns the yield over that counterparty's allocation.
func (k *Keeper) receiveCounterpartyFunds(
	ctx sdk.Context,
	role types.Role,
	caller sdk.AccAddress,
	amount math.Int,
	yieldFn func(amount, allocation math.Int) interest.Yield,
) (interest.Yield, error) {
	roles, err := k.GetRoles(ctx)
	if err != nil {
		return interest.Yield{}, err
	}
	if err := roles.Authorize(role, caller); err != nil {
		return interest.Yield{}, err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return interest.Yield{}, errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
	}

	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return interest.Yield{}, err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return interest.Yield{}, err
	}
	alloc, err := k.GetAllocationState(ctx)
	if err != nil {
		return interest.Yield{}, err
	}

	allocation := alloc.LoanAllocation
	if role == types.RoleOptionSeller {
		allocation = alloc.OptionAllocation
	}
	yield := yieldFn(amount, allocation)

	returned := state.AmtFundsReturned.Add(amount)
	if err := utils.AssertUint128(returned); err != nil {
		return interest.Yield{}, errors.Wrapf(types.ErrOverflow, "funds returned: %s", err)
	}
	state.AmtFundsReturned = returned
	if err := k.VaultState.Set(ctx, state); err != nil {
		return interest.Yield{}, err
	}

	if err := k.pullAsset(ctx, caller, params.Asset, amount); err != nil {
		return interest.Yield{}, errors.Wrapf(err, "failed to transfer %s%s from %s", amount, params.Asset, caller)
	}
	return yield, nil
}
