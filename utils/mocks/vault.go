package mocks

import (
	"fmt"
	"testing"
	"time"

	storetypes "cosmossdk.io/store/types"

	addresscodec "github.com/cosmos/cosmos-sdk/codec/address"
	"github.com/cosmos/cosmos-sdk/runtime"
	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/simulation"
	"github.com/provlabs/epochvault/types"
)

// NewVaultKeeper returns a Keeper on fresh in-memory stores together with the
// ledger bank it custodies funds through. The block time starts at
// simulation.DefaultStart.
func NewVaultKeeper(
	t testing.TB,
) (sdk.Context, *keeper.Keeper, *simulation.LedgerBank) {
	t.Helper()

	key := storetypes.NewKVStoreKey(types.StoreKey)
	bankKey := storetypes.NewKVStoreKey(simulation.BankStoreKey)
	tkey := storetypes.NewTransientStoreKey(fmt.Sprintf("transient_%s", types.ModuleName))

	ctx := testutil.DefaultContextWithKeys(
		map[string]*storetypes.KVStoreKey{types.StoreKey: key, simulation.BankStoreKey: bankKey},
		map[string]*storetypes.TransientStoreKey{tkey.Name(): tkey},
		nil,
	)

	bank := simulation.NewLedgerBank(runtime.NewKVStoreService(bankKey))
	k := keeper.NewKeeper(
		runtime.NewKVStoreService(key),
		bank,
		addresscodec.NewBech32Codec(sdk.GetConfig().GetBech32AccountAddrPrefix()),
		authtypes.NewModuleAddress(govtypes.ModuleName),
	)

	ctx = ctx.WithBlockHeight(1).WithBlockTime(simulation.DefaultStart)
	return ctx, k, bank
}

// Authority returns the governance authority NewVaultKeeper configures.
func Authority() sdk.AccAddress {
	return authtypes.NewModuleAddress(govtypes.ModuleName)
}

// Advance returns ctx moved forward by d into the next block.
func Advance(ctx sdk.Context, d time.Duration) sdk.Context {
	return ctx.WithBlockHeight(ctx.BlockHeight() + 1).WithBlockTime(ctx.BlockTime().Add(d))
}
