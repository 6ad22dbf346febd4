package keeper

import (
	"fmt"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

// InitGenesis initializes the vault module state from genesis.
func (k Keeper) InitGenesis(ctx sdk.Context, genState *types.GenesisState) {
	if genState == nil || !genState.Initialized {
		return
	}

	if err := genState.Validate(); err != nil {
		panic(fmt.Errorf("invalid vault genesis state: %w", err))
	}

	if err := k.VaultParams.Set(ctx, genState.Params); err != nil {
		panic(err)
	}
	if err := k.FeeParams.Set(ctx, genState.Fees); err != nil {
		panic(err)
	}
	if err := k.Roles.Set(ctx, genState.Roles); err != nil {
		panic(err)
	}
	if err := k.VaultState.Set(ctx, genState.State); err != nil {
		panic(err)
	}
	if err := k.AllocationState.Set(ctx, genState.Allocation); err != nil {
		panic(err)
	}

	for _, r := range genState.DepositReceipts {
		addr := sdk.MustAccAddressFromBech32(r.Address)
		if err := k.DepositReceipts.Set(ctx, addr, r.Receipt); err != nil {
			panic(fmt.Errorf("failed to store deposit receipt of %s: %w", r.Address, err))
		}
	}

	for _, w := range genState.Withdrawals {
		addr := sdk.MustAccAddressFromBech32(w.Address)
		if err := k.Withdrawals.Set(ctx, addr, w.Withdrawal); err != nil {
			panic(fmt.Errorf("failed to store withdrawal of %s: %w", w.Address, err))
		}
		if w.Withdrawal.IsActive() {
			if err := k.WithdrawalQueue.Enqueue(ctx, w.Withdrawal.Round, addr); err != nil {
				panic(fmt.Errorf("failed to index withdrawal of %s: %w", w.Address, err))
			}
		}
	}

	for _, p := range genState.RoundPricePerShare {
		if err := k.setRoundPricePerShare(ctx, p.Round, p.PricePerShare); err != nil {
			panic(fmt.Errorf("failed to store price per share of round %d: %w", p.Round, err))
		}
	}

	if genState.PendingBorrower != nil {
		if err := k.PendingBorrower.Set(ctx, *genState.PendingBorrower); err != nil {
			panic(err)
		}
	}
	if genState.PendingOptionSeller != nil {
		if err := k.PendingOptionSeller.Set(ctx, *genState.PendingOptionSeller); err != nil {
			panic(err)
		}
	}

	if err := k.SchemaVersion.Set(ctx, types.SchemaVersion); err != nil {
		panic(err)
	}
}

// ExportGenesis exports the current state of the vault module.
func (k Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	initialized, err := k.IsInitialized(ctx)
	if err != nil {
		panic(fmt.Errorf("failed to read vault state: %w", err))
	}
	if !initialized {
		return types.DefaultGenesisState()
	}

	gs := &types.GenesisState{Initialized: true}
	if gs.Params, err = k.GetVaultParams(ctx); err != nil {
		panic(fmt.Errorf("failed to get vault params: %w", err))
	}
	if gs.Fees, err = k.GetFeeParams(ctx); err != nil {
		panic(fmt.Errorf("failed to get fee params: %w", err))
	}
	if gs.Roles, err = k.GetRoles(ctx); err != nil {
		panic(fmt.Errorf("failed to get roles: %w", err))
	}
	if gs.State, err = k.GetVaultState(ctx); err != nil {
		panic(fmt.Errorf("failed to get vault state: %w", err))
	}
	if gs.Allocation, err = k.GetAllocationState(ctx); err != nil {
		panic(fmt.Errorf("failed to get allocation state: %w", err))
	}

	err = k.DepositReceipts.Walk(ctx, nil, func(addr sdk.AccAddress, r types.DepositReceipt) (bool, error) {
		gs.DepositReceipts = append(gs.DepositReceipts, types.AccountReceipt{Address: addr.String(), Receipt: r})
		return false, nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to export deposit receipts: %w", err))
	}

	err = k.Withdrawals.Walk(ctx, nil, func(addr sdk.AccAddress, w types.Withdrawal) (bool, error) {
		gs.Withdrawals = append(gs.Withdrawals, types.AccountWithdrawal{Address: addr.String(), Withdrawal: w})
		return false, nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to export withdrawals: %w", err))
	}

	err = k.RoundPricePerShare.Walk(ctx, nil, func(round uint64, pps math.Int) (bool, error) {
		gs.RoundPricePerShare = append(gs.RoundPricePerShare, types.RoundPrice{Round: uint16(round), PricePerShare: pps})
		return false, nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to export price history: %w", err))
	}

	if p, err := k.PendingBorrower.Get(ctx); err == nil {
		gs.PendingBorrower = &p
	}
	if p, err := k.PendingOptionSeller.Get(ctx); err == nil {
		gs.PendingOptionSeller = &p
	}
	return gs
}
