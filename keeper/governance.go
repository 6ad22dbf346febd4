package keeper

import (
	"errors"
	"strconv"

	"cosmossdk.io/collections"
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

// ownerOp runs fn atomically after checking that caller is the owner.
func (k *Keeper) ownerOp(ctx sdk.Context, op string, caller sdk.AccAddress, fn func(ctx sdk.Context, roles types.Roles) error) error {
	return k.atomic(ctx, op, func(ctx sdk.Context) error {
		roles, err := k.GetRoles(ctx)
		if err != nil {
			return err
		}
		if err := roles.Authorize(types.RoleOwner, caller); err != nil {
			return err
		}
		return fn(ctx, roles)
	})
}

// SetCap sets the maximum total balance of the vault.
func (k *Keeper) SetCap(ctx sdk.Context, caller sdk.AccAddress, newCap math.Int) error {
	return k.ownerOp(ctx, "set_cap", caller, func(ctx sdk.Context, _ types.Roles) error {
		if newCap.IsNil() || !newCap.IsPositive() {
			return errorsmod.Wrap(types.ErrInvalidParams, "cap must be positive")
		}
		if err := utils.AssertUint104(newCap); err != nil {
			return errorsmod.Wrapf(types.ErrOverflow, "cap: %s", err)
		}
		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		old := params.Cap
		params.Cap = newCap
		if err := k.VaultParams.Set(ctx, params); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamCap), old.String(), newCap.String()))
		return nil
	})
}

// SetDecimals sets the share price precision. Recorded round prices are
// scaled by the current precision, so it can only change before the first
// rollover.
func (k *Keeper) SetDecimals(ctx sdk.Context, caller sdk.AccAddress, decimals uint32) error {
	return k.ownerOp(ctx, "set_decimals", caller, func(ctx sdk.Context, _ types.Roles) error {
		if err := types.ValidateDecimals(decimals); err != nil {
			return err
		}
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return err
		}
		if state.Round > 1 {
			return errorsmod.Wrapf(types.ErrInvalidParams, "decimals are fixed once round 1 is priced, vault is in round %d", state.Round)
		}
		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return err
		}
		old := params.Decimals
		params.Decimals = decimals
		if err := k.VaultParams.Set(ctx, params); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamDecimals), formatUint(uint64(old)), formatUint(uint64(decimals))))
		return nil
	})
}

// SetManagementFee sets the annual management fee, scaled by FeeMultiplier.
func (k *Keeper) SetManagementFee(ctx sdk.Context, caller sdk.AccAddress, fee uint64) error {
	return k.ownerOp(ctx, "set_management_fee", caller, func(ctx sdk.Context, _ types.Roles) error {
		if err := types.ValidateFee(fee); err != nil {
			return err
		}
		fees, err := k.GetFeeParams(ctx)
		if err != nil {
			return err
		}
		old := fees.ManagementFee
		fees.ManagementFee = fee
		if err := k.FeeParams.Set(ctx, fees); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamManagementFee), formatUint(old), formatUint(fee)))
		return nil
	})
}

// SetPerformanceFee sets the performance fee, scaled by FeeMultiplier.
func (k *Keeper) SetPerformanceFee(ctx sdk.Context, caller sdk.AccAddress, fee uint64) error {
	return k.ownerOp(ctx, "set_performance_fee", caller, func(ctx sdk.Context, _ types.Roles) error {
		if err := types.ValidateFee(fee); err != nil {
			return err
		}
		fees, err := k.GetFeeParams(ctx)
		if err != nil {
			return err
		}
		old := fees.PerformanceFee
		fees.PerformanceFee = fee
		if err := k.FeeParams.Set(ctx, fees); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamPerformanceFee), formatUint(old), formatUint(fee)))
		return nil
	})
}

// SetFeeRecipient sets the account fees are paid to.
func (k *Keeper) SetFeeRecipient(ctx sdk.Context, caller sdk.AccAddress, recipient string) error {
	return k.ownerOp(ctx, "set_fee_recipient", caller, func(ctx sdk.Context, roles types.Roles) error {
		if err := types.ValidateRoleAddress("fee recipient", recipient); err != nil {
			return err
		}
		if recipient == roles.FeeRecipient {
			return errorsmod.Wrap(types.ErrInvalidParams, "must be a new fee recipient")
		}
		old := roles.FeeRecipient
		roles.FeeRecipient = recipient
		if err := k.Roles.Set(ctx, roles); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamFeeRecipient), old, recipient))
		return nil
	})
}

// SetNewKeeper sets the account allowed to roll rounds and buy options.
func (k *Keeper) SetNewKeeper(ctx sdk.Context, caller sdk.AccAddress, keeper string) error {
	return k.ownerOp(ctx, "set_keeper", caller, func(ctx sdk.Context, roles types.Roles) error {
		if err := types.ValidateRoleAddress(string(types.RoleKeeper), keeper); err != nil {
			return err
		}
		old := roles.Keeper
		roles.Keeper = keeper
		if err := k.Roles.Set(ctx, roles); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventParamSet(string(types.ParamKeeper), old, keeper))
		k.getLogger(ctx).Info("keeper changed", "old", old, "new", keeper)
		return nil
	})
}

// SetBorrower stages a new borrower, committable after CounterpartyTimelock.
func (k *Keeper) SetBorrower(ctx sdk.Context, caller sdk.AccAddress, borrower string) error {
	return k.stageCounterparty(ctx, caller, types.RoleBorrower, borrower, k.PendingBorrower)
}

// CommitBorrower applies the staged borrower once its timelock has elapsed.
func (k *Keeper) CommitBorrower(ctx sdk.Context, caller sdk.AccAddress) error {
	return k.commitCounterparty(ctx, caller, types.RoleBorrower, k.PendingBorrower, func(r *types.Roles) *string { return &r.Borrower })
}

// SetOptionSeller stages a new option seller, committable after
// CounterpartyTimelock.
func (k *Keeper) SetOptionSeller(ctx sdk.Context, caller sdk.AccAddress, seller string) error {
	return k.stageCounterparty(ctx, caller, types.RoleOptionSeller, seller, k.PendingOptionSeller)
}

// CommitOptionSeller applies the staged option seller once its timelock has
// elapsed.
func (k *Keeper) CommitOptionSeller(ctx sdk.Context, caller sdk.AccAddress) error {
	return k.commitCounterparty(ctx, caller, types.RoleOptionSeller, k.PendingOptionSeller, func(r *types.Roles) *string { return &r.OptionSeller })
}

func (k *Keeper) stageCounterparty(ctx sdk.Context, caller sdk.AccAddress, role types.Role, addr string, pending collections.Item[types.PendingCounterparty]) error {
	return k.ownerOp(ctx, "set_"+string(role), caller, func(ctx sdk.Context, roles types.Roles) error {
		if err := types.ValidateRoleAddress(string(role), addr); err != nil {
			return err
		}
		if addr == roles.Address(role) {
			return errorsmod.Wrapf(types.ErrInvalidParams, "must be a new %s", role)
		}
		staged := types.PendingCounterparty{Address: addr, StagedAt: ctx.BlockTime().Unix()}
		if err := pending.Set(ctx, staged); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventCounterpartyStaged(role, staged))
		k.getLogger(ctx).Info("counterparty change staged", "role", role, "address", addr, "committable_at", staged.CommittableAt())
		return nil
	})
}

func (k *Keeper) commitCounterparty(
	ctx sdk.Context,
	caller sdk.AccAddress,
	role types.Role,
	pending collections.Item[types.PendingCounterparty],
	field func(*types.Roles) *string,
) error {
	return k.ownerOp(ctx, "commit_"+string(role), caller, func(ctx sdk.Context, roles types.Roles) error {
		staged, err := pending.Get(ctx)
		if errors.Is(err, collections.ErrNotFound) {
			return errorsmod.Wrapf(types.ErrNoPendingChange, "no %s staged", role)
		}
		if err != nil {
			return err
		}

		now := ctx.BlockTime().Unix()
		if now < staged.CommittableAt() {
			return errorsmod.Wrapf(types.ErrTimelock, "%s committable at %d, now %d", role, staged.CommittableAt(), now)
		}

		target := field(&roles)
		old := *target
		*target = staged.Address
		if err := k.Roles.Set(ctx, roles); err != nil {
			return err
		}
		if err := pending.Remove(ctx); err != nil {
			return err
		}
		emitEvents(ctx, types.NewEventCounterpartyCommitted(role, old, staged.Address))
		k.getLogger(ctx).Info("counterparty changed", "role", role, "old", old, "new", staged.Address)
		return nil
	})
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
