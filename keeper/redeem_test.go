package keeper_test

import (
	sdkmath "cosmossdk.io/math"

	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestMaxRedeemIsIdempotent() {
	s.firstRound()

	redeemed, err := s.k.MaxRedeem(s.ctx, s.alice)
	s.Require().NoError(err, "MaxRedeem")
	s.Assert().Equal("1000000000", redeemed.String(), "first max redeem")
	s.assertBalance(s.alice, shareDenom, 1_000_000_000)

	redeemed, err = s.k.MaxRedeem(s.ctx, s.alice)
	s.Require().NoError(err, "second MaxRedeem")
	s.Assert().True(redeemed.IsZero(), "second max redeem moves nothing")
	s.assertBalance(s.alice, shareDenom, 1_000_000_000)

	receipt, err := s.k.GetDepositReceipt(s.ctx, s.alice)
	s.Require().NoError(err, "GetDepositReceipt")
	s.Assert().True(receipt.IsEmpty(), "receipt drained")
	s.assertInvariants()
}

func (s *TestSuite) TestRedeem() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)

	err := s.k.Redeem(s.ctx, s.alice, sdkmath.OneInt())
	s.Assert().ErrorIs(err, types.ErrInvalidAmount, "no shares while the deposit is pending")

	s.roll()

	s.Require().NoError(s.k.Redeem(s.ctx, s.alice, sdkmath.NewInt(250_000_000)), "Redeem")
	unredeemed, err := s.k.UnredeemedShares(s.ctx, s.alice)
	s.Require().NoError(err, "UnredeemedShares")
	s.Assert().Equal("750000000", unredeemed.String(), "remaining unredeemed shares")
	s.assertBalance(s.alice, shareDenom, 250_000_000)

	err = s.k.Redeem(s.ctx, s.alice, sdkmath.NewInt(750_000_001))
	s.Assert().ErrorIs(err, types.ErrInvalidAmount, "more than unredeemed")
	err = s.k.Redeem(s.ctx, s.alice, sdkmath.ZeroInt())
	s.Assert().ErrorIs(err, types.ErrInvalidAmount, "zero shares")
	s.assertInvariants()
}

func (s *TestSuite) TestDepositRollRedeem() {
	s.initVault()
	s.deposit(s.alice, 100_000_000000)
	s.roll()

	redeemed, err := s.k.MaxRedeem(s.ctx, s.alice)
	s.Require().NoError(err, "MaxRedeem")
	s.Assert().Equal("100000000000", redeemed.String(), "shares redeemed at 1.0 per share")
	s.assertBalance(s.alice, shareDenom, 100_000_000000)
	s.assertBalance(types.ModuleAddress, shareDenom, 0)
	s.assertInvariants()
}
