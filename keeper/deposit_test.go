package keeper_test

import (
	sdkmath "cosmossdk.io/math"

	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestDeposit() {
	s.initVault()

	s.deposit(s.alice, 1_000_000_000)
	s.deposit(s.alice, 500_000_000)

	receipt, err := s.k.GetDepositReceipt(s.ctx, s.alice)
	s.Require().NoError(err, "GetDepositReceipt")
	s.Assert().Equal(uint16(1), receipt.Round, "receipt round")
	s.Assert().Equal("1500000000", receipt.Amount.String(), "receipt amount")
	s.Assert().True(receipt.UnredeemedShares.IsZero(), "no shares before rollover")
	s.Assert().Equal("1500000000", s.state().TotalPending.String(), "total pending")
	s.assertBalance(types.ModuleAddress, asset, 1_500_000_000)
	s.assertBalance(types.ModuleAddress, shareDenom, 0)
	s.assertInvariants()
}

func (s *TestSuite) TestDepositFor() {
	s.initVault()

	s.Require().NoError(s.k.DepositFor(s.ctx, s.alice, s.bob, sdkmath.NewInt(2_000_000)), "DepositFor")

	receipt, err := s.k.GetDepositReceipt(s.ctx, s.bob)
	s.Require().NoError(err, "GetDepositReceipt(bob)")
	s.Assert().Equal("2000000", receipt.Amount.String(), "creditor receipt")
	aliceReceipt, err := s.k.GetDepositReceipt(s.ctx, s.alice)
	s.Require().NoError(err, "GetDepositReceipt(alice)")
	s.Assert().True(aliceReceipt.IsEmpty(), "payer gets no receipt")
	s.assertBalance(s.alice, asset, 1_000_000_000_000-2_000_000)

	err = s.k.DepositFor(s.ctx, s.alice, types.ModuleAddress, sdkmath.NewInt(2_000_000))
	s.Assert().ErrorIs(err, types.ErrInvalidRequest, "vault account as creditor")
}

func (s *TestSuite) TestDepositRejections() {
	err := s.k.Deposit(s.ctx, s.alice, sdkmath.NewInt(1_000_000))
	s.Assert().ErrorIs(err, types.ErrNotInitialized, "deposit before initialization")

	s.initVault()

	tests := []struct {
		name   string
		amount sdkmath.Int
		err    error
	}{
		{name: "zero amount", amount: sdkmath.ZeroInt(), err: types.ErrInvalidAmount},
		{name: "below minimum supply", amount: sdkmath.NewInt(999_999), err: types.ErrInsufficientSupply},
		{name: "above cap", amount: sdkmath.NewInt(1_000_000_000_000_001), err: types.ErrCapExceeded},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			err := s.k.Deposit(s.ctx, s.alice, tc.amount)
			s.Assert().ErrorIs(err, tc.err, "Deposit(%s)", tc.amount)
			s.Assert().True(s.state().TotalPending.IsZero(), "rejected deposit leaves no pending")
		})
	}
}

func (s *TestSuite) TestDepositCapBoundary() {
	s.initVault()
	s.Require().NoError(s.k.SetCap(s.ctx, s.owner, sdkmath.NewInt(5_000_000)), "SetCap")

	s.deposit(s.alice, 5_000_000)
	err := s.k.Deposit(s.ctx, s.bob, sdkmath.OneInt())
	s.Assert().ErrorIs(err, types.ErrCapExceeded, "one over the cap")
	s.Assert().Equal("5000000", s.state().TotalPending.String(), "total pending at cap")
}

func (s *TestSuite) TestDepositConvertsClosedRoundReceipt() {
	s.firstRound()

	s.deposit(s.alice, 2_000_000)

	receipt, err := s.k.GetDepositReceipt(s.ctx, s.alice)
	s.Require().NoError(err, "GetDepositReceipt")
	s.Assert().Equal(uint16(2), receipt.Round, "receipt moved to the open round")
	s.Assert().Equal("2000000", receipt.Amount.String(), "only the new deposit is pending")
	s.Assert().Equal("1000000000", receipt.UnredeemedShares.String(), "round 1 deposit converted at 1.0")
	s.assertInvariants()
}
