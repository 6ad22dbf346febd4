package simulation

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/collections"
	"cosmossdk.io/core/store"
	sdkerrors "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrortypes "github.com/cosmos/cosmos-sdk/types/errors"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/provlabs/epochvault/types"
)

// BankStoreKey is the store key of the ledger bank.
const BankStoreKey = "simbank"

var _ types.BankKeeper = &LedgerBank{}

// LedgerBank is a minimal bank backed by collections. It tracks balances and
// supply per denom and treats module names as module accounts.
type LedgerBank struct {
	Balances collections.Map[collections.Pair[sdk.AccAddress, string], sdkmath.Int]
	Supply   collections.Map[string, sdkmath.Int]

	// SendHook, when set, runs before every transfer. Tests use it to call
	// back into the vault mid-operation.
	SendHook func(ctx context.Context, from, to sdk.AccAddress, amt sdk.Coins) error
}

// NewLedgerBank builds a LedgerBank on storeService.
func NewLedgerBank(storeService store.KVStoreService) *LedgerBank {
	builder := collections.NewSchemaBuilder(storeService)
	bank := &LedgerBank{
		Balances: collections.NewMap(builder, collections.NewPrefix(0), "balances",
			collections.PairKeyCodec(sdk.AccAddressKey, collections.StringKey), sdk.IntValue),
		Supply: collections.NewMap(builder, collections.NewPrefix(1), "supply", collections.StringKey, sdk.IntValue),
	}
	if _, err := builder.Build(); err != nil {
		panic(err)
	}
	return bank
}

// GetBalance returns the balance of denom held by addr, zero when none.
func (b *LedgerBank) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	amt, err := b.Balances.Get(ctx, collections.Join(addr, denom))
	if err != nil {
		if !errors.Is(err, collections.ErrNotFound) {
			panic(err)
		}
		amt = sdkmath.ZeroInt()
	}
	return sdk.NewCoin(denom, amt)
}

// GetSupply returns the total supply of denom.
func (b *LedgerBank) GetSupply(ctx context.Context, denom string) sdk.Coin {
	amt, err := b.Supply.Get(ctx, denom)
	if err != nil {
		if !errors.Is(err, collections.ErrNotFound) {
			panic(err)
		}
		amt = sdkmath.ZeroInt()
	}
	return sdk.NewCoin(denom, amt)
}

// SendCoins moves amt from fromAddr to toAddr.
func (b *LedgerBank) SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return sdkerrors.Wrap(sdkerrortypes.ErrInvalidCoins, amt.String())
	}
	if b.SendHook != nil {
		if err := b.SendHook(ctx, fromAddr, toAddr, amt); err != nil {
			return err
		}
	}
	for _, coin := range amt {
		if err := b.sub(ctx, fromAddr, coin); err != nil {
			return err
		}
		if err := b.add(ctx, toAddr, coin); err != nil {
			return err
		}
	}
	return nil
}

// SendCoinsFromAccountToModule moves amt from senderAddr to a module account.
func (b *LedgerBank) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	return b.SendCoins(ctx, senderAddr, authtypes.NewModuleAddress(recipientModule), amt)
}

// SendCoinsFromModuleToAccount moves amt from a module account to recipientAddr.
func (b *LedgerBank) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	return b.SendCoins(ctx, authtypes.NewModuleAddress(senderModule), recipientAddr, amt)
}

// MintCoins creates amt in a module account.
func (b *LedgerBank) MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if !amt.IsValid() {
		return sdkerrors.Wrap(sdkerrortypes.ErrInvalidCoins, amt.String())
	}
	addr := authtypes.NewModuleAddress(moduleName)
	for _, coin := range amt {
		if err := b.add(ctx, addr, coin); err != nil {
			return err
		}
		supply := b.GetSupply(ctx, coin.Denom)
		if err := b.Supply.Set(ctx, coin.Denom, supply.Amount.Add(coin.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// BurnCoins destroys amt held by a module account.
func (b *LedgerBank) BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if !amt.IsValid() {
		return sdkerrors.Wrap(sdkerrortypes.ErrInvalidCoins, amt.String())
	}
	addr := authtypes.NewModuleAddress(moduleName)
	for _, coin := range amt {
		if err := b.sub(ctx, addr, coin); err != nil {
			return err
		}
		supply := b.GetSupply(ctx, coin.Denom)
		if err := b.Supply.Set(ctx, coin.Denom, supply.Amount.Sub(coin.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// Fund mints amt directly into addr.
func (b *LedgerBank) Fund(ctx context.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	for _, coin := range amt {
		if err := b.add(ctx, addr, coin); err != nil {
			return err
		}
		supply := b.GetSupply(ctx, coin.Denom)
		if err := b.Supply.Set(ctx, coin.Denom, supply.Amount.Add(coin.Amount)); err != nil {
			return err
		}
	}
	return nil
}

func (b *LedgerBank) add(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) error {
	balance := b.GetBalance(ctx, addr, coin.Denom)
	return b.Balances.Set(ctx, collections.Join(addr, coin.Denom), balance.Amount.Add(coin.Amount))
}

func (b *LedgerBank) sub(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) error {
	balance := b.GetBalance(ctx, addr, coin.Denom)
	if balance.Amount.LT(coin.Amount) {
		return sdkerrors.Wrap(sdkerrortypes.ErrInsufficientFunds, fmt.Sprintf("%s is smaller than %s", balance, coin))
	}
	return b.Balances.Set(ctx, collections.Join(addr, coin.Denom), balance.Amount.Sub(coin.Amount))
}
