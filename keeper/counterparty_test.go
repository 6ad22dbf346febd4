package keeper_test

import (
	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestBuyOption() {
	s.initVault()

	err := s.k.BuyOption(s.ctx, s.keeperAddr)
	s.Assert().ErrorIs(err, types.ErrInvalidAmount, "nothing allocated before the first rollover")

	s.deposit(s.alice, 1_000_000_000)
	s.roll()

	err = s.k.BuyOption(s.ctx, s.alice)
	s.Assert().ErrorIs(err, types.ErrUnauthorized, "buy by a depositor")

	s.Require().NoError(s.k.BuyOption(s.ctx, s.keeperAddr), "BuyOption")
	s.assertBalance(s.optionSeller, asset, 1_000_000_000_000+14_285_714)
	s.Assert().Equal("14285714", s.state().OptionsBoughtInRound.String(), "options bought")

	err = s.k.BuyOption(s.ctx, s.keeperAddr)
	s.Assert().ErrorIs(err, types.ErrPurchaseTooEarly, "second purchase in the same period")

	s.advance(day)
	s.Require().NoError(s.k.BuyOption(s.ctx, s.keeperAddr), "BuyOption next day")
	s.Assert().Equal("28571428", s.state().OptionsBoughtInRound.String(), "options bought after two purchases")

	total, err := s.k.TotalBalance(s.ctx)
	s.Require().NoError(err, "TotalBalance")
	s.Assert().Equal("1000000000", total.String(), "purchases move capital out but not off the books")
	s.assertInvariants()
}

func (s *TestSuite) TestCounterpartyPayments() {
	s.firstRound()

	tests := []struct {
		name   string
		pay    func() error
		errors error
	}{
		{
			name:   "option seller pays the borrower's way",
			pay:    func() error { return s.k.ReturnLentFunds(s.ctx, s.optionSeller, sdkmath.NewInt(1)) },
			errors: types.ErrUnauthorized,
		},
		{
			name:   "borrower pays the option seller's way",
			pay:    func() error { return s.k.PayOptionYield(s.ctx, s.borrower, sdkmath.NewInt(1)) },
			errors: types.ErrUnauthorized,
		},
		{
			name:   "zero repayment",
			pay:    func() error { return s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.ZeroInt()) },
			errors: types.ErrInvalidAmount,
		},
		{
			name: "repayment",
			pay:  func() error { return s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(945_000_000)) },
		},
		{
			name: "option yield",
			pay:  func() error { return s.k.PayOptionYield(s.ctx, s.optionSeller, sdkmath.NewInt(5_000_000)) },
		},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			err := tc.pay()
			if tc.errors != nil {
				s.Assert().ErrorIs(err, tc.errors, "payment error")
				return
			}
			s.Assert().NoError(err, "payment")
		})
	}

	s.Assert().Equal("950000000", s.state().AmtFundsReturned.String(), "funds returned")
	s.assertBalance(types.ModuleAddress, asset, 100_000_000+950_000_000)

	total, err := s.k.TotalBalance(s.ctx)
	s.Require().NoError(err, "TotalBalance")
	s.Assert().Equal("1050000000", total.String(), "outstanding floors at zero once repaid")
	s.assertInvariants()
}

func (s *TestSuite) TestRepaymentWithYieldChargesFees() {
	s.firstRound()
	s.advance(week)
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(1_000_000_000)), "ReturnLentFunds")

	result := s.roll()
	s.Assert().Equal("10000000", result.Fees.Performance.String(), "performance fee on 1e8 profit")
	s.Assert().Equal("421917", result.Fees.Management.String(), "management fee on 1.1e9 for a week")
	s.assertBalance(s.feeRecipient, asset, 10_421_917)
	s.Assert().Equal("1089578", result.PricePerShare.String(), "price after fees")
}

func (s *TestSuite) TestRepaymentReportsAnnualizedRate() {
	s.firstRound()
	s.advance(week)
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(1_000_000_000)), "ReturnLentFunds")

	var closeLoan *sdk.Event
	for _, event := range s.ctx.EventManager().Events() {
		if event.Type == types.EventTypeCloseLoan {
			closeLoan = &event
		}
	}
	s.Require().NotNil(closeLoan, "close_loan event")

	attrs := map[string]string{}
	for _, attr := range closeLoan.Attributes {
		attrs[attr.Key] = attr.Value
	}
	s.Assert().Equal("100000000", attrs[types.AttributeKeyYield], "yield over the loan")
	rate, err := sdkmath.LegacyNewDecFromStr(attrs[types.AttributeKeyAnnualizedRate])
	s.Require().NoError(err, "annualized rate attribute")
	// 1e8 on 9e8 over one week is about 579% a year.
	s.Assert().True(rate.GT(sdkmath.LegacyMustNewDecFromStr("5.79")), "rate %s above 5.79", rate)
	s.Assert().True(rate.LT(sdkmath.LegacyMustNewDecFromStr("5.80")), "rate %s below 5.80", rate)
}
