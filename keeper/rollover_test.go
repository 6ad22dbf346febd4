package keeper_test

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestFirstRollover() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)

	result, state, err := s.k.RollToNextRound(s.ctx, s.keeperAddr)
	s.Require().NoError(err, "RollToNextRound")

	s.Assert().Equal("1000000", result.PricePerShare.String(), "first round prices at 1.0")
	s.Assert().Equal("1000000000", result.MintShares.String(), "shares minted for pending deposits")
	s.Assert().True(result.Fees.Total().IsZero(), "no fees on the first round")
	s.Assert().Equal(uint16(2), state.Round, "round advanced")
	s.Assert().True(state.TotalPending.IsZero(), "pending released")
	s.Assert().Equal("1000000000", state.LockedAmount.String(), "locked amount")
	s.Assert().Equal(interest.EpochStart(s.ctx.BlockTime().Unix()), state.LastEpochTime, "epoch start")

	alloc := s.alloc()
	s.Assert().Equal("900000000", alloc.LoanAllocation.String(), "loan allocation")
	s.Assert().Equal("14285714", alloc.OptionAllocation.String(), "option allocation per purchase")
	s.assertBalance(s.borrower, asset, 1_000_000_000_000+900_000_000)
	s.assertBalance(types.ModuleAddress, asset, 100_000_000)
	s.assertBalance(types.ModuleAddress, shareDenom, 1_000_000_000)

	pps, found, err := s.k.GetRoundPricePerShare(s.ctx, 1)
	s.Require().NoError(err, "GetRoundPricePerShare")
	s.Require().True(found, "round 1 price recorded")
	s.Assert().Equal("1000000", pps.String(), "round 1 price")

	total, err := s.k.TotalBalance(s.ctx)
	s.Require().NoError(err, "TotalBalance")
	s.Assert().Equal("1000000000", total.String(), "total balance counts the outstanding loan")
	s.assertInvariants()
}

func (s *TestSuite) TestRolloverAuthorization() {
	s.initVault()
	_, _, err := s.k.RollToNextRound(s.ctx, s.alice)
	s.Assert().ErrorIs(err, types.ErrUnauthorized, "roll by a depositor")
	s.Assert().Equal(uint16(1), s.state().Round, "round unchanged")
}

func (s *TestSuite) TestRolloverWaitsForTheLoanTerm() {
	s.firstRound()

	_, _, err := s.k.RollToNextRound(s.ctx, s.keeperAddr)
	s.Assert().ErrorIs(err, types.ErrEpochNotReady, "immediate second roll")

	s.advance(week - time.Second)
	_, _, err = s.k.RollToNextRound(s.ctx, s.keeperAddr)
	s.Assert().ErrorIs(err, types.ErrEpochNotReady, "one second early")

	s.advance(time.Second)
	s.roll()
	s.Assert().Equal(uint16(3), s.state().Round, "rolled once the term elapsed")
}

func (s *TestSuite) TestRoundsIncreaseAndPricesAreWrittenOnce() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)

	for round := uint16(1); round <= 4; round++ {
		s.Require().Equal(round, s.state().Round, "round before roll")
		s.roll()
		s.Require().Equal(round+1, s.state().Round, "round after roll")

		_, found, err := s.k.GetRoundPricePerShare(s.ctx, round)
		s.Require().NoError(err, "GetRoundPricePerShare(%d)", round)
		s.Assert().True(found, "price of round %d recorded", round)
		_, found, err = s.k.GetRoundPricePerShare(s.ctx, round+1)
		s.Require().NoError(err, "GetRoundPricePerShare(%d)", round+1)
		s.Assert().False(found, "open round %d has no price", round+1)

		s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, s.alloc().LoanAllocation), "ReturnLentFunds")
		s.advance(week)
	}

	err := s.k.SetRoundPricePerShare(s.ctx, 1, sdkmath.NewInt(2_000_000))
	s.Assert().ErrorIs(err, types.ErrInvariant, "overwriting a closed round's price")
	pps, _, err := s.k.GetRoundPricePerShare(s.ctx, 1)
	s.Require().NoError(err, "GetRoundPricePerShare(1)")
	s.Assert().Equal("1000000", pps.String(), "round 1 price unchanged")
}

func (s *TestSuite) TestLossIsSharedByAllShares() {
	s.initVault()
	s.deposit(s.alice, 600_000_000)
	s.deposit(s.bob, 400_000_000)
	s.roll()

	s.advance(week)
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(450_000_000)), "partial repayment")
	result := s.roll()

	s.Assert().Equal("550000", result.PricePerShare.String(), "price after losing half the loan")
	s.Assert().True(result.Fees.Total().IsZero(), "no fees on a losing round")
	s.Assert().Equal("550000000", s.state().LockedAmount.String(), "locked after loss")

	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(600_000_000)), "alice InitiateWithdraw")
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.bob, sdkmath.NewInt(400_000_000)), "bob InitiateWithdraw")
	s.advance(week)
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, s.alloc().LoanAllocation), "ReturnLentFunds")
	result = s.roll()
	s.Assert().Equal("550000", result.PricePerShare.String(), "break-even round keeps the price")

	alicePaid, err := s.k.CompleteWithdraw(s.ctx, s.alice)
	s.Require().NoError(err, "alice CompleteWithdraw")
	bobPaid, err := s.k.CompleteWithdraw(s.ctx, s.bob)
	s.Require().NoError(err, "bob CompleteWithdraw")
	s.Assert().Equal("330000000", alicePaid.String(), "alice bears 60% of the loss")
	s.Assert().Equal("220000000", bobPaid.String(), "bob bears 40% of the loss")
	s.assertInvariants()
}

func (s *TestSuite) TestDepositorAfterALossBuysAtTheLowerPrice() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)
	s.roll()

	s.advance(week)
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(450_000_000)), "partial repayment")
	s.deposit(s.bob, 1_000_000_000)
	result := s.roll()
	s.Assert().Equal("550000", result.PricePerShare.String(), "round 2 price after the loss")
	s.Assert().Equal("1818181818", result.MintShares.String(), "shares minted for bob's deposit")

	aliceShares, err := s.k.MaxRedeem(s.ctx, s.alice)
	s.Require().NoError(err, "alice MaxRedeem")
	bobShares, err := s.k.MaxRedeem(s.ctx, s.bob)
	s.Require().NoError(err, "bob MaxRedeem")
	s.Assert().Equal("1000000000", aliceShares.String(), "alice bought before the loss")
	s.Assert().Equal("1818181818", bobShares.String(), "bob bought after the loss")
	s.assertBalance(s.alice, shareDenom, 1_000_000_000)
	s.assertBalance(s.bob, shareDenom, 1_818_181_818)
	s.assertInvariants()
}

func (s *TestSuite) TestRolloverConservesAssets() {
	s.firstRound()
	previousLocked := s.state().LockedAmount
	lent := s.alloc().LoanAllocation

	s.Require().NoError(s.k.BuyOption(s.ctx, s.keeperAddr), "BuyOption")
	bought := s.state().OptionsBoughtInRound
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(200_000_000)), "InitiateWithdraw")
	s.deposit(s.bob, 300_000_000)
	pending := s.state().TotalPending

	s.advance(week)
	optionProceeds := sdkmath.NewInt(20_000_000)
	repaid := sdkmath.NewInt(945_000_000)
	s.Require().NoError(s.k.PayOptionYield(s.ctx, s.optionSeller, optionProceeds), "PayOptionYield")
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, repaid), "ReturnLentFunds")
	s.assertBalance(types.ModuleAddress, asset, 1_350_714_286)

	feesBefore := s.balance(s.feeRecipient, asset)
	result := s.roll()
	state := s.state()

	s.Assert().Equal("5474441", result.Fees.Total().String(), "fees")
	s.Assert().Equal(result.Fees.Total().String(), s.balance(s.feeRecipient, asset).Sub(feesBefore).String(), "fees paid")
	s.Assert().Equal("1045239", result.PricePerShare.String(), "price per share")
	s.Assert().Equal("209047800", state.LastQueuedWithdrawAmount.String(), "reserved for alice's withdrawal")
	s.Assert().Equal("1136192045", state.LockedAmount.String(), "locked")

	inflows := previousLocked.Add(pending).Add(repaid).Sub(lent).Add(optionProceeds).Sub(bought)
	outcome := state.LockedAmount.Add(state.LastQueuedWithdrawAmount).Add(result.Fees.Total())
	s.Assert().True(outcome.Sub(inflows).Abs().LTE(sdkmath.OneInt()),
		"locked + queued + fees = %s, previous locked + pending + counterparty flows = %s", outcome, inflows)
	s.assertInvariants()
}

func (s *TestSuite) TestCloseRound() {
	base := types.NewVaultState(0)
	base.LockedAmount = sdkmath.NewInt(1_000_000_000)
	params := keeper.RolloverParams{
		Decimals:       6,
		AssetBalance:   sdkmath.NewInt(1_100_000_000),
		ShareSupply:    sdkmath.NewInt(1_000_000_000),
		PerformanceFee: 10 * interest.FeeMultiplier,
		ManagementFee:  2 * interest.FeeMultiplier,
		TermSeconds:    uint64((7 * 24 * time.Hour).Seconds()),
	}

	tests := []struct {
		name     string
		state    func() types.VaultState
		params   func() keeper.RolloverParams
		pps      string
		mint     string
		queued   string
		locked   string
		perfFee  string
		mgmtFee  string
		errorsIs error
	}{
		{
			name:    "profitable round pays fees",
			state:   func() types.VaultState { return base },
			params:  func() keeper.RolloverParams { return params },
			pps:     "1089578",
			mint:    "0",
			queued:  "0",
			locked:  "1089578083",
			perfFee: "10000000",
			mgmtFee: "421917",
		},
		{
			name: "queued shares are valued after fees",
			state: func() types.VaultState {
				st := base
				st.CurrentQueuedWithdrawShares = sdkmath.NewInt(200_000_000)
				return st
			},
			params:  func() keeper.RolloverParams { return params },
			pps:     "1089578",
			mint:    "0",
			queued:  "217915600",
			locked:  "871662483",
			perfFee: "10000000",
			mgmtFee: "421917",
		},
		{
			name: "pending deposits neither earn fees nor move the price",
			state: func() types.VaultState {
				st := base
				st.TotalPending = sdkmath.NewInt(500_000_000)
				return st
			},
			params: func() keeper.RolloverParams {
				p := params
				p.AssetBalance = sdkmath.NewInt(1_500_000_000)
				return p
			},
			pps:     "1000000",
			mint:    "500000000",
			queued:  "0",
			locked:  "1500000000",
			perfFee: "0",
			mgmtFee: "0",
		},
		{
			name:    "losing round pays no fees",
			state:   func() types.VaultState { return base },
			params:  func() keeper.RolloverParams { p := params; p.AssetBalance = sdkmath.NewInt(800_000_000); return p },
			pps:     "800000",
			mint:    "0",
			queued:  "0",
			locked:  "800000000",
			perfFee: "0",
			mgmtFee: "0",
		},
		{
			name: "reserved withdrawals above balance",
			state: func() types.VaultState {
				st := base
				st.LastQueuedWithdrawAmount = sdkmath.NewInt(2_000_000_000)
				return st
			},
			params:   func() keeper.RolloverParams { return params },
			errorsIs: types.ErrInvariant,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			result, err := keeper.CloseRound(tc.state(), tc.params())
			if tc.errorsIs != nil {
				s.Assert().ErrorIs(err, tc.errorsIs, "CloseRound error")
				return
			}
			s.Require().NoError(err, "CloseRound")
			s.Assert().Equal(tc.pps, result.PricePerShare.String(), "price per share")
			s.Assert().Equal(tc.mint, result.MintShares.String(), "mint shares")
			s.Assert().Equal(tc.queued, result.QueuedWithdrawAmount.String(), "queued withdraw amount")
			s.Assert().Equal(tc.locked, result.LockedBalance.String(), "locked balance")
			s.Assert().Equal(tc.perfFee, result.Fees.Performance.String(), "performance fee")
			s.Assert().Equal(tc.mgmtFee, result.Fees.Management.String(), "management fee")
		})
	}
}
