package keeper

import (
	"fmt"

	"cosmossdk.io/errors"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

// SetAllocationPCT sets the loan and option shares of locked capital, out of
// TotalPCT. They take effect at the next rollover.
func (k *Keeper) SetAllocationPCT(ctx sdk.Context, caller sdk.AccAddress, loanPCT, optionPCT uint32) error {
	return k.ownerOp(ctx, "set_allocation_pct", caller, func(ctx sdk.Context, _ types.Roles) error {
		if err := types.ValidateAllocationPCT(loanPCT, optionPCT); err != nil {
			return err
		}
		alloc, err := k.GetAllocationState(ctx)
		if err != nil {
			return err
		}
		old := fmt.Sprintf("%d,%d", alloc.LoanAllocationPCT, alloc.OptionAllocationPCT)
		alloc.LoanAllocationPCT = loanPCT
		alloc.OptionAllocationPCT = optionPCT
		if err := k.AllocationState.Set(ctx, alloc); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamAllocationPCT), old, fmt.Sprintf("%d,%d", loanPCT, optionPCT)))
		return nil
	})
}

// SetLoanTermLength stages a new loan term length in seconds, applied at the
// next rollover. It must leave room for at least one option purchase.
func (k *Keeper) SetLoanTermLength(ctx sdk.Context, caller sdk.AccAddress, term uint64) error {
	return k.ownerOp(ctx, "set_loan_term_length", caller, func(ctx sdk.Context, _ types.Roles) error {
		alloc, err := k.GetAllocationState(ctx)
		if err != nil {
			return err
		}
		_, freq := effectiveTermAndFrequency(alloc)
		if err := types.ValidateTermAndFrequency(term, freq); err != nil {
			return err
		}
		old := alloc.NextLoanTermLength
		alloc.NextLoanTermLength = term
		if err := k.AllocationState.Set(ctx, alloc); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamLoanTermLength), formatUint(old), formatUint(term)))
		return nil
	})
}

// SetOptionPurchaseFrequency stages a new option purchase frequency in
// seconds, applied at the next rollover.
func (k *Keeper) SetOptionPurchaseFrequency(ctx sdk.Context, caller sdk.AccAddress, freq uint64) error {
	return k.ownerOp(ctx, "set_option_purchase_frequency", caller, func(ctx sdk.Context, _ types.Roles) error {
		alloc, err := k.GetAllocationState(ctx)
		if err != nil {
			return err
		}
		term, _ := effectiveTermAndFrequency(alloc)
		if err := types.ValidateTermAndFrequency(term, freq); err != nil {
			return errors.Wrapf(err, "staged frequency")
		}
		old := alloc.NextOptionPurchaseFreq
		alloc.NextOptionPurchaseFreq = freq
		if err := k.AllocationState.Set(ctx, alloc); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamOptionPurchaseFreq), formatUint(old), formatUint(freq)))
		return nil
	})
}

// effectiveTermAndFrequency returns the term and frequency the next rollover
// will use.
func effectiveTermAndFrequency(alloc types.AllocationState) (term, freq uint64) {
	term, freq = alloc.CurrentLoanTermLength, alloc.CurrentOptionPurchaseFreq
	if alloc.NextLoanTermLength != 0 {
		term = alloc.NextLoanTermLength
	}
	if alloc.NextOptionPurchaseFreq != 0 {
		freq = alloc.NextOptionPurchaseFreq
	}
	return term, freq
}
