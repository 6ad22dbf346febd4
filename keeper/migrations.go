package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

// Migrator runs in-place store migrations of the vault module.
type Migrator struct {
	keeper *Keeper
}

// NewMigrator returns a Migrator for keeper.
func NewMigrator(keeper *Keeper) Migrator {
	return Migrator{keeper: keeper}
}

// Migrate1to2 upgrades state written by schema version 1.
//
// Version 1 stored records whose amounts could be omitted, and had no
// (round, account) index of queued withdrawals. This migration re-writes the
// singletons, every deposit receipt and every withdrawal with all amounts
// set, indexes each withdrawal that still holds shares, and records the
// schema version.
//
// It is idempotent; running it again leaves migrated state unchanged.
func (m Migrator) Migrate1to2(ctx sdk.Context) error {
	k := m.keeper

	initialized, err := k.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		if err := rewriteSingletons(ctx, k); err != nil {
			return err
		}
	}

	var receipts []sdk.AccAddress
	err = k.DepositReceipts.Walk(ctx, nil, func(addr sdk.AccAddress, _ types.DepositReceipt) (bool, error) {
		receipts = append(receipts, addr)
		return false, nil
	})
	if err != nil {
		return err
	}
	for _, addr := range receipts {
		// Decoding fills unset amounts with zero.
		r, err := k.DepositReceipts.Get(ctx, addr)
		if err != nil {
			return err
		}
		if err := k.DepositReceipts.Set(ctx, addr, r); err != nil {
			return err
		}
	}

	var withdrawals []sdk.AccAddress
	err = k.Withdrawals.Walk(ctx, nil, func(addr sdk.AccAddress, _ types.Withdrawal) (bool, error) {
		withdrawals = append(withdrawals, addr)
		return false, nil
	})
	if err != nil {
		return err
	}
	for _, addr := range withdrawals {
		w, err := k.Withdrawals.Get(ctx, addr)
		if err != nil {
			return err
		}
		if err := k.Withdrawals.Set(ctx, addr, w); err != nil {
			return err
		}
		if w.IsActive() {
			if err := k.WithdrawalQueue.Enqueue(ctx, w.Round, addr); err != nil {
				return err
			}
		}
	}

	k.getLogger(ctx).Info("migrated vault state", "from", 1, "to", types.SchemaVersion,
		"receipts", len(receipts), "withdrawals", len(withdrawals))
	return k.SchemaVersion.Set(ctx, types.SchemaVersion)
}

func rewriteSingletons(ctx sdk.Context, k *Keeper) error {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return err
	}
	if err := k.VaultParams.Set(ctx, params); err != nil {
		return err
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return err
	}
	if err := k.VaultState.Set(ctx, state); err != nil {
		return err
	}
	alloc, err := k.GetAllocationState(ctx)
	if err != nil {
		return err
	}
	return k.AllocationState.Set(ctx, alloc)
}
