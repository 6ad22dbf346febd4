package keeper

import (
	"fmt"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

// RegisterInvariants registers the vault invariants.
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "pending-deposits", PendingDepositsInvariant(k))
	ir.RegisterRoute(types.ModuleName, "queued-withdrawals", QueuedWithdrawalsInvariant(k))
	ir.RegisterRoute(types.ModuleName, "share-custody", ShareCustodyInvariant(k))
}

// AllInvariants runs every vault invariant and reports the first broken one.
func AllInvariants(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		for _, inv := range []sdk.Invariant{
			PendingDepositsInvariant(k),
			QueuedWithdrawalsInvariant(k),
			ShareCustodyInvariant(k),
		} {
			if msg, broken := inv(ctx); broken {
				return msg, true
			}
		}
		return "", false
	}
}

// PendingDepositsInvariant checks that TotalPending equals the sum of the
// receipts made in the open round.
func PendingDepositsInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		state, ok := stateForInvariant(ctx, k)
		if !ok {
			return "", false
		}

		sum := math.ZeroInt()
		err := k.DepositReceipts.Walk(ctx, nil, func(_ sdk.AccAddress, r types.DepositReceipt) (bool, error) {
			if r.Round == state.Round {
				sum = sum.Add(r.Amount)
			}
			return false, nil
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "pending-deposits", err.Error()), true
		}

		broken := !sum.Equal(state.TotalPending)
		return sdk.FormatInvariant(types.ModuleName, "pending-deposits",
			fmt.Sprintf("total pending %s, receipts of round %d sum to %s", state.TotalPending, state.Round, sum)), broken
	}
}

// QueuedWithdrawalsInvariant checks that the queued share counters equal the
// active withdrawals of the open and closed rounds.
func QueuedWithdrawalsInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		state, ok := stateForInvariant(ctx, k)
		if !ok {
			return "", false
		}

		current, closed := math.ZeroInt(), math.ZeroInt()
		err := k.Withdrawals.Walk(ctx, nil, func(_ sdk.AccAddress, w types.Withdrawal) (bool, error) {
			switch {
			case !w.IsActive():
			case w.Round == state.Round:
				current = current.Add(w.Shares)
			default:
				closed = closed.Add(w.Shares)
			}
			return false, nil
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "queued-withdrawals", err.Error()), true
		}

		broken := !current.Equal(state.CurrentQueuedWithdrawShares) || !closed.Equal(state.QueuedWithdrawShares)
		return sdk.FormatInvariant(types.ModuleName, "queued-withdrawals",
			fmt.Sprintf("current queued %s vs %s, queued %s vs %s",
				state.CurrentQueuedWithdrawShares, current, state.QueuedWithdrawShares, closed)), broken
	}
}

// ShareCustodyInvariant checks that the shares held by the vault cover every
// unredeemed share and every escrowed withdrawal.
func ShareCustodyInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		state, ok := stateForInvariant(ctx, k)
		if !ok {
			return "", false
		}
		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "share-custody", err.Error()), true
		}

		owed := state.QueuedWithdrawShares.Add(state.CurrentQueuedWithdrawShares)
		err = k.DepositReceipts.Walk(ctx, nil, func(_ sdk.AccAddress, r types.DepositReceipt) (bool, error) {
			pps, err := k.receiptPricePerShare(ctx, r, state.Round)
			if err != nil {
				return true, err
			}
			shares, err := r.SharesFromReceipt(state.Round, pps, params.Decimals)
			if err != nil {
				return true, err
			}
			owed = owed.Add(shares)
			return false, nil
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "share-custody", err.Error()), true
		}

		held := k.BankKeeper.GetBalance(ctx, types.ModuleAddress, params.ShareDenom).Amount
		broken := held.LT(owed)
		return sdk.FormatInvariant(types.ModuleName, "share-custody",
			fmt.Sprintf("vault holds %s shares, owes %s", held, owed)), broken
	}
}

func stateForInvariant(ctx sdk.Context, k *Keeper) (types.VaultState, bool) {
	initialized, err := k.IsInitialized(ctx)
	if err != nil || !initialized {
		return types.VaultState{}, false
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return types.VaultState{}, false
	}
	return state, true
}
