package keeper_test

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestReentrantCallIsRejected() {
	s.initVault()

	var inner error
	s.bank.SendHook = func(ctx context.Context, _, _ sdk.AccAddress, _ sdk.Coins) error {
		inner = s.k.Deposit(sdk.UnwrapSDKContext(ctx), s.bob, sdkmath.NewInt(5_000_000))
		return inner
	}

	err := s.k.Deposit(s.ctx, s.alice, sdkmath.NewInt(10_000_000))
	s.bank.SendHook = nil

	s.Assert().ErrorIs(inner, types.ErrReentrantCall, "nested deposit")
	s.Assert().ErrorIs(err, types.ErrReentrantCall, "outer deposit")
	s.Assert().True(s.state().TotalPending.IsZero(), "no pending deposit recorded")
	s.assertBalance(s.alice, asset, 1_000_000_000_000)
	s.assertBalance(s.bob, asset, 1_000_000_000_000)

	s.deposit(s.alice, 10_000_000)
	s.Assert().Equal("10000000", s.state().TotalPending.String(), "guard released after the failed call")
}

func (s *TestSuite) TestFailedTransferRevertsRollover() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)

	s.bank.SendHook = func(_ context.Context, _, to sdk.AccAddress, _ sdk.Coins) error {
		if to.Equals(s.borrower) {
			return errors.New("borrower account frozen")
		}
		return nil
	}
	_, _, err := s.k.RollToNextRound(s.ctx, s.keeperAddr)
	s.bank.SendHook = nil
	s.Require().Error(err, "RollToNextRound with a failing loan transfer")
	s.Assert().ErrorContains(err, "borrower account frozen", "rollover error")

	state := s.state()
	s.Assert().Equal(uint16(1), state.Round, "round")
	s.Assert().Equal("1000000000", state.TotalPending.String(), "pending deposits kept")
	_, found, err := s.k.GetRoundPricePerShare(s.ctx, 1)
	s.Require().NoError(err, "GetRoundPricePerShare")
	s.Assert().False(found, "no price recorded for round 1")
	s.Assert().True(s.balance(types.ModuleAddress, shareDenom).IsZero(), "no shares minted")
	s.assertBalance(types.ModuleAddress, asset, 1_000_000_000)
	s.assertInvariants()

	s.roll()
	s.Assert().Equal(uint16(2), s.state().Round, "rollover succeeds once the transfer does")
}

func (s *TestSuite) TestPanicIsReturnedAsInvariantError() {
	s.initVault()

	s.bank.SendHook = func(context.Context, sdk.AccAddress, sdk.AccAddress, sdk.Coins) error {
		panic("unexpected bank state")
	}
	err := s.k.Deposit(s.ctx, s.alice, sdkmath.NewInt(10_000_000))
	s.bank.SendHook = nil

	s.Assert().ErrorIs(err, types.ErrInvariant, "deposit with a panicking bank")
	s.Assert().ErrorContains(err, "unexpected bank state", "panic value reported")
	s.Assert().True(s.state().TotalPending.IsZero(), "no pending deposit recorded")
	s.deposit(s.alice, 10_000_000)
}

func (s *TestSuite) TestOutOfGasStillPanics() {
	s.initVault()

	s.bank.SendHook = func(context.Context, sdk.AccAddress, sdk.AccAddress, sdk.Coins) error {
		panic(storetypes.ErrorOutOfGas{Descriptor: "SendCoins"})
	}
	s.Assert().PanicsWithValue(storetypes.ErrorOutOfGas{Descriptor: "SendCoins"}, func() {
		_ = s.k.Deposit(s.ctx, s.alice, sdkmath.NewInt(10_000_000))
	}, "out of gas reaches the caller")
	s.bank.SendHook = nil

	s.Assert().True(s.state().TotalPending.IsZero(), "no pending deposit recorded")
	s.deposit(s.alice, 10_000_000)
}
