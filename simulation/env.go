package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"

	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"

	addresscodec "github.com/cosmos/cosmos-sdk/codec/address"
	"github.com/cosmos/cosmos-sdk/runtime"
	sdk "github.com/cosmos/cosmos-sdk/types"
	simtypes "github.com/cosmos/cosmos-sdk/types/simulation"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

const (
	DefaultAsset      = "uusdc"
	DefaultShareDenom = "epochshare"
	DefaultDecimals   = 6
	NumDepositors     = 5
)

// DefaultStart is a Monday at the 08:00 UTC epoch boundary.
var DefaultStart = time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)

// Env is a single-vault chain backed by an in-memory multistore.
type Env struct {
	Ctx         sdk.Context
	VaultKeeper *keeper.Keeper
	Bank        *LedgerBank

	Owner        simtypes.Account
	Keeper       simtypes.Account
	Borrower     simtypes.Account
	OptionSeller simtypes.Account
	FeeRecipient simtypes.Account
	Depositors   []simtypes.Account

	cms storetypes.CommitMultiStore
}

// NewEnv mounts the vault and bank stores on a fresh memory database and
// returns an environment whose block time is start.
func NewEnv(r *rand.Rand, start time.Time, logger log.Logger) (*Env, error) {
	vaultKey := storetypes.NewKVStoreKey(types.StoreKey)
	bankKey := storetypes.NewKVStoreKey(BankStoreKey)

	cms := store.NewCommitMultiStore(dbm.NewMemDB(), logger, metrics.NewNoOpMetrics())
	cms.MountStoreWithDB(vaultKey, storetypes.StoreTypeIAVL, nil)
	cms.MountStoreWithDB(bankKey, storetypes.StoreTypeIAVL, nil)
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load multistore: %w", err)
	}

	bank := NewLedgerBank(runtime.NewKVStoreService(bankKey))
	k := keeper.NewKeeper(
		runtime.NewKVStoreService(vaultKey),
		bank,
		addresscodec.NewBech32Codec(sdk.GetConfig().GetBech32AccountAddrPrefix()),
		authtypes.NewModuleAddress(govtypes.ModuleName),
	)

	accs := simtypes.RandomAccounts(r, 5+NumDepositors)
	env := &Env{
		Ctx:          sdk.NewContext(cms, cmtproto.Header{Height: 1, Time: start.UTC()}, false, logger),
		VaultKeeper:  k,
		Bank:         bank,
		Owner:        accs[0],
		Keeper:       accs[1],
		Borrower:     accs[2],
		OptionSeller: accs[3],
		FeeRecipient: accs[4],
		Depositors:   accs[5:],
		cms:          cms,
	}
	return env, nil
}

// Accounts returns every account of the environment.
func (e *Env) Accounts() []simtypes.Account {
	return append([]simtypes.Account{e.Owner, e.Keeper, e.Borrower, e.OptionSeller, e.FeeRecipient}, e.Depositors...)
}

// Authority returns the module authority.
func (e *Env) Authority() sdk.AccAddress {
	return sdk.AccAddress(e.VaultKeeper.GetAuthority())
}

// DefaultInitParams returns the parameters the environment opens its vault
// with: weekly rounds, daily option purchases and a 90/10 split.
func (e *Env) DefaultInitParams() types.InitParams {
	return types.InitParams{
		Params: types.VaultParams{
			Asset:         DefaultAsset,
			ShareDenom:    DefaultShareDenom,
			Decimals:      DefaultDecimals,
			MinimumSupply: sdkmath.NewInt(1_000_000),
			Cap:           sdkmath.NewInt(1_000_000_000_000_000),
		},
		Fees: types.FeeParams{
			PerformanceFee: 10 * interest.FeeMultiplier,
			ManagementFee:  2 * interest.FeeMultiplier,
		},
		Roles: types.Roles{
			Owner:        e.Owner.Address.String(),
			Keeper:       e.Keeper.Address.String(),
			Borrower:     e.Borrower.Address.String(),
			OptionSeller: e.OptionSeller.Address.String(),
			FeeRecipient: e.FeeRecipient.Address.String(),
		},
		LoanTermLength:      7 * interest.SecondsPerDay,
		OptionPurchaseFreq:  interest.SecondsPerDay,
		LoanAllocationPCT:   9000,
		OptionAllocationPCT: 1000,
	}
}

// Fund mints the vault asset to addr.
func (e *Env) Fund(addr sdk.AccAddress, amount sdkmath.Int) error {
	return e.Bank.Fund(e.Ctx, addr, sdk.NewCoins(sdk.NewCoin(DefaultAsset, amount)))
}

// Advance moves the block time forward by d and opens the next block.
func (e *Env) Advance(d time.Duration) {
	e.Ctx = e.Ctx.
		WithBlockHeight(e.Ctx.BlockHeight() + 1).
		WithBlockTime(e.Ctx.BlockTime().Add(d))
}

// Commit persists the working state of every store.
func (e *Env) Commit() storetypes.CommitID {
	return e.cms.Commit()
}

// Ledger is the vault's asset position at one point in time.
type Ledger struct {
	Round        uint16
	VaultAssets  sdkmath.Int
	FeeRecipient sdkmath.Int
}

// Ledger records the vault's current asset position.
func (e *Env) Ledger() (Ledger, error) {
	state, err := e.VaultKeeper.GetVaultState(e.Ctx)
	if err != nil {
		return Ledger{}, err
	}
	roles, err := e.VaultKeeper.GetRoles(e.Ctx)
	if err != nil {
		return Ledger{}, err
	}
	recipient, err := sdk.AccAddressFromBech32(roles.FeeRecipient)
	if err != nil {
		return Ledger{}, err
	}
	return Ledger{
		Round:        state.Round,
		VaultAssets:  e.Bank.GetBalance(e.Ctx, types.ModuleAddress, DefaultAsset).Amount,
		FeeRecipient: e.Bank.GetBalance(e.Ctx, recipient, DefaultAsset).Amount,
	}, nil
}

// CheckConservation verifies that a rollover since before neither created
// nor lost assets: the new locked amount, the amount reserved for queued
// withdrawals and the fees paid must add up to the vault's assets before the
// rollover, within one unit. Without a rollover there is nothing to check.
func (e *Env) CheckConservation(before Ledger) error {
	after, err := e.Ledger()
	if err != nil {
		return err
	}
	if after.Round == before.Round {
		return nil
	}
	state, err := e.VaultKeeper.GetVaultState(e.Ctx)
	if err != nil {
		return err
	}
	fees := after.FeeRecipient.Sub(before.FeeRecipient)
	accounted := state.LockedAmount.Add(state.LastQueuedWithdrawAmount).Add(fees)
	if diff := accounted.Sub(before.VaultAssets).Abs(); diff.GT(sdkmath.OneInt()) {
		return fmt.Errorf("round %d: locked %s + queued %s + fees %s = %s, vault held %s",
			before.Round, state.LockedAmount, state.LastQueuedWithdrawAmount, fees, accounted, before.VaultAssets)
	}
	return nil
}
