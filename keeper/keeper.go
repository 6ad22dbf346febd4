package keeper

import (
	"fmt"
	"math/big"
	"sync"

	"cosmossdk.io/collections"
	"cosmossdk.io/core/address"
	"cosmossdk.io/core/store"
	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/container"
	"github.com/provlabs/epochvault/types"
)

type Keeper struct {
	schema       collections.Schema
	addressCodec address.Codec
	authority    []byte
	BankKeeper   types.BankKeeper

	// guard is held for the duration of every mutating operation.
	guard *sync.Mutex

	VaultParams         collections.Item[types.VaultParams]
	FeeParams           collections.Item[types.FeeParams]
	Roles               collections.Item[types.Roles]
	VaultState          collections.Item[types.VaultState]
	AllocationState     collections.Item[types.AllocationState]
	DepositReceipts     collections.Map[sdk.AccAddress, types.DepositReceipt]
	Withdrawals         collections.Map[sdk.AccAddress, types.Withdrawal]
	RoundPricePerShare  collections.Map[uint64, math.Int]
	PendingBorrower     collections.Item[types.PendingCounterparty]
	PendingOptionSeller collections.Item[types.PendingCounterparty]
	WithdrawalQueue     *container.RoundQueue
	SchemaVersion       collections.Item[uint64]
}

func NewKeeper(
	storeService store.KVStoreService,
	bankKeeper types.BankKeeper,
	addressCodec address.Codec,
	authority []byte,
) *Keeper {
	if _, err := addressCodec.BytesToString(authority); err != nil {
		panic(fmt.Sprintf("invalid authority address %s: %s", authority, err))
	}

	builder := collections.NewSchemaBuilder(storeService)

	keeper := &Keeper{
		addressCodec: addressCodec,
		authority:    authority,
		BankKeeper:   bankKeeper,
		guard:        &sync.Mutex{},

		VaultParams:         collections.NewItem(builder, types.VaultParamsKeyPrefix, types.VaultParamsName, types.JSONValue[types.VaultParams](types.VaultParamsName)),
		FeeParams:           collections.NewItem(builder, types.FeeParamsKeyPrefix, types.FeeParamsName, types.JSONValue[types.FeeParams](types.FeeParamsName)),
		Roles:               collections.NewItem(builder, types.RolesKeyPrefix, types.RolesName, types.JSONValue[types.Roles](types.RolesName)),
		VaultState:          collections.NewItem(builder, types.VaultStateKeyPrefix, types.VaultStateName, types.JSONValue[types.VaultState](types.VaultStateName)),
		AllocationState:     collections.NewItem(builder, types.AllocationStateKeyPrefix, types.AllocationStateName, types.JSONValue[types.AllocationState](types.AllocationStateName)),
		DepositReceipts:     collections.NewMap(builder, types.DepositReceiptsKeyPrefix, types.DepositReceiptsName, sdk.AccAddressKey, types.JSONValue[types.DepositReceipt](types.DepositReceiptsName)),
		Withdrawals:         collections.NewMap(builder, types.WithdrawalsKeyPrefix, types.WithdrawalsName, sdk.AccAddressKey, types.JSONValue[types.Withdrawal](types.WithdrawalsName)),
		RoundPricePerShare:  collections.NewMap(builder, types.RoundPricePerShareKeyPrefix, types.RoundPricePerShareName, collections.Uint64Key, sdk.IntValue),
		PendingBorrower:     collections.NewItem(builder, types.PendingBorrowerKeyPrefix, types.PendingBorrowerName, types.JSONValue[types.PendingCounterparty](types.PendingBorrowerName)),
		PendingOptionSeller: collections.NewItem(builder, types.PendingOptionSellerKeyPrefix, types.PendingOptionSellerName, types.JSONValue[types.PendingCounterparty](types.PendingOptionSellerName)),
		WithdrawalQueue:     container.NewRoundQueue(builder, types.WithdrawalQueuePrefix, types.WithdrawalQueueName),
		SchemaVersion:       collections.NewItem(builder, types.SchemaVersionKeyPrefix, types.SchemaVersionName, collections.Uint64Value),
	}

	schema, err := builder.Build()
	if err != nil {
		panic(err)
	}

	keeper.schema = schema
	return keeper
}

// GetAuthority returns the module's authority.
func (k Keeper) GetAuthority() []byte {
	return k.authority
}

// getLogger returns a logger with vault module context.
func (k Keeper) getLogger(ctx sdk.Context) log.Logger {
	return ctx.Logger().With("module", "x/"+types.ModuleName)
}

// atomic runs fn as a single all-or-nothing operation.
//
//  1. A second mutating call made while fn runs (for example from a bank
//     hook) fails with ErrReentrantCall.
//  2. fn runs against a cache context; its writes and events reach ctx only
//     when fn returns nil.
//  3. A panic inside fn (such as a math.Int overflow) is returned as
//     ErrInvariant and discards the cache. Running out of gas still panics,
//     as baseapp expects.
func (k *Keeper) atomic(ctx sdk.Context, op string, fn func(ctx sdk.Context) error) (err error) {
	if !k.guard.TryLock() {
		return errors.Wrapf(types.ErrReentrantCall, "%s", op)
	}
	defer k.guard.Unlock()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(storetypes.ErrorOutOfGas); ok {
				panic(r)
			}
			err = errors.Wrapf(types.ErrInvariant, "%s: %v", op, r)
		}
		if err != nil {
			k.getLogger(ctx).Debug("operation reverted", "op", op, "error", err)
		}
	}()

	cacheCtx, write := ctx.CacheContext()
	if err = fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

// emitEvents emits events on the context's event manager.
func emitEvents(ctx sdk.Context, events ...sdk.Event) {
	ctx.EventManager().EmitEvents(events)
}

// gaugeValue converts an amount for telemetry.
func gaugeValue(x math.Int) float32 {
	f, _ := new(big.Float).SetInt(x.BigInt()).Float32()
	return f
}
