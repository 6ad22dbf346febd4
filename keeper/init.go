package keeper

import (
	"cosmossdk.io/errors"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

// InitializeVault opens the vault at round 1 with the given params.
//
// The first epoch is back-dated by one loan term so the keeper can roll
// into round 2 immediately and start investing the round 1 deposits.
func (k *Keeper) InitializeVault(ctx sdk.Context, init types.InitParams) error {
	return k.atomic(ctx, "initialize", func(ctx sdk.Context) error {
		return k.initializeVault(ctx, init)
	})
}

func (k *Keeper) initializeVault(ctx sdk.Context, init types.InitParams) error {
	initialized, err := k.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		return types.ErrAlreadyInitialized
	}
	if err := init.Validate(); err != nil {
		return errors.Wrap(types.ErrInvalidParams, err.Error())
	}

	now := ctx.BlockTime().Unix()
	state := types.NewVaultState(now - int64(init.LoanTermLength))

	if err := k.VaultParams.Set(ctx, init.Params); err != nil {
		return err
	}
	if err := k.FeeParams.Set(ctx, init.Fees); err != nil {
		return err
	}
	if err := k.Roles.Set(ctx, init.Roles); err != nil {
		return err
	}
	if err := k.AllocationState.Set(ctx, init.Allocation()); err != nil {
		return err
	}
	if err := k.VaultState.Set(ctx, state); err != nil {
		return err
	}
	if err := k.SchemaVersion.Set(ctx, types.SchemaVersion); err != nil {
		return err
	}

	emitEvents(ctx, types.NewEventVaultInitialized(init.Params, init.Roles.Owner))
	k.getLogger(ctx).Info("vault initialized", "asset", init.Params.Asset, "share_denom", init.Params.ShareDenom, "owner", init.Roles.Owner)
	return nil
}
