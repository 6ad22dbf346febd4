package keeper_test

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

func (s *TestSuite) TestCounterpartyTimelock() {
	s.initVault()
	newBorrower := utils.TestAddress()
	newSeller := utils.TestAddress()

	s.Require().NoError(s.k.SetBorrower(s.ctx, s.owner, newBorrower.Bech32), "SetBorrower")
	s.Require().NoError(s.k.SetOptionSeller(s.ctx, s.owner, newSeller.Bech32), "SetOptionSeller")

	staged := s.ctx
	s.ctx = staged.WithBlockTime(staged.BlockTime().Add(types.CounterpartyTimelock - time.Second))
	err := s.k.CommitBorrower(s.ctx, s.owner)
	s.Assert().ErrorIs(err, types.ErrTimelock, "commit borrower one second early")
	err = s.k.CommitOptionSeller(s.ctx, s.owner)
	s.Assert().ErrorIs(err, types.ErrTimelock, "commit option seller one second early")

	s.ctx = staged.WithBlockTime(staged.BlockTime().Add(types.CounterpartyTimelock + time.Second))
	err = s.k.CommitBorrower(s.ctx, s.alice)
	s.Assert().ErrorIs(err, types.ErrUnauthorized, "commit by a non-owner")
	s.Require().NoError(s.k.CommitBorrower(s.ctx, s.owner), "CommitBorrower")
	s.Require().NoError(s.k.CommitOptionSeller(s.ctx, s.owner), "CommitOptionSeller")

	roles, err := s.k.GetRoles(s.ctx)
	s.Require().NoError(err, "GetRoles")
	s.Assert().Equal(newBorrower.Bech32, roles.Borrower, "borrower")
	s.Assert().Equal(newSeller.Bech32, roles.OptionSeller, "option seller")

	err = s.k.CommitBorrower(s.ctx, s.owner)
	s.Assert().ErrorIs(err, types.ErrNoPendingChange, "commit without a staged change")
}

func (s *TestSuite) TestStagingReplacesThePendingChange() {
	s.initVault()
	first := utils.TestAddress()
	second := utils.TestAddress()

	s.Require().NoError(s.k.SetBorrower(s.ctx, s.owner, first.Bech32), "SetBorrower first")
	s.advance(48 * time.Hour)
	s.Require().NoError(s.k.SetBorrower(s.ctx, s.owner, second.Bech32), "SetBorrower second")

	s.advance(48 * time.Hour)
	err := s.k.CommitBorrower(s.ctx, s.owner)
	s.Assert().ErrorIs(err, types.ErrTimelock, "restaging restarts the timelock")

	s.advance(24 * time.Hour)
	s.Require().NoError(s.k.CommitBorrower(s.ctx, s.owner), "CommitBorrower")
	roles, err := s.k.GetRoles(s.ctx)
	s.Require().NoError(err, "GetRoles")
	s.Assert().Equal(second.Bech32, roles.Borrower, "latest staged borrower wins")
}

func (s *TestSuite) TestOwnerSetters() {
	s.initVault()
	other := utils.TestAddress()

	tests := []struct {
		name   string
		set    func() error
		errors error
	}{
		{name: "cap by non-owner", set: func() error { return s.k.SetCap(s.ctx, s.alice, sdkmath.NewInt(1)) }, errors: types.ErrUnauthorized},
		{name: "zero cap", set: func() error { return s.k.SetCap(s.ctx, s.owner, sdkmath.ZeroInt()) }, errors: types.ErrInvalidParams},
		{name: "cap", set: func() error { return s.k.SetCap(s.ctx, s.owner, sdkmath.NewInt(2_000_000_000_000)) }},
		{name: "decimals out of range", set: func() error { return s.k.SetDecimals(s.ctx, s.owner, 0) }, errors: types.ErrInvalidParams},
		{name: "decimals", set: func() error { return s.k.SetDecimals(s.ctx, s.owner, 8) }},
		{name: "management fee of 100%", set: func() error { return s.k.SetManagementFee(s.ctx, s.owner, interest.MaxFee) }, errors: types.ErrInvalidParams},
		{name: "management fee", set: func() error { return s.k.SetManagementFee(s.ctx, s.owner, interest.FeeMultiplier) }},
		{name: "performance fee of 100%", set: func() error { return s.k.SetPerformanceFee(s.ctx, s.owner, interest.MaxFee) }, errors: types.ErrInvalidParams},
		{name: "performance fee", set: func() error { return s.k.SetPerformanceFee(s.ctx, s.owner, 20*interest.FeeMultiplier) }},
		{name: "same fee recipient", set: func() error { return s.k.SetFeeRecipient(s.ctx, s.owner, s.feeRecipient.String()) }, errors: types.ErrInvalidParams},
		{name: "fee recipient", set: func() error { return s.k.SetFeeRecipient(s.ctx, s.owner, other.Bech32) }},
		{name: "vault account as keeper", set: func() error { return s.k.SetNewKeeper(s.ctx, s.owner, types.ModuleAddress.String()) }, errors: types.ErrInvalidParams},
		{name: "keeper", set: func() error { return s.k.SetNewKeeper(s.ctx, s.owner, s.bob.String()) }},
		{name: "same borrower", set: func() error { return s.k.SetBorrower(s.ctx, s.owner, s.borrower.String()) }, errors: types.ErrInvalidParams},
		{name: "allocation above 100%", set: func() error { return s.k.SetAllocationPCT(s.ctx, s.owner, 6000, 5000) }, errors: types.ErrInvalidParams},
		{name: "allocation", set: func() error { return s.k.SetAllocationPCT(s.ctx, s.owner, 8000, 2000) }},
		{name: "frequency longer than the term", set: func() error { return s.k.SetOptionPurchaseFrequency(s.ctx, s.owner, 8*24*3600) }, errors: types.ErrInvalidParams},
		{name: "zero loan term", set: func() error { return s.k.SetLoanTermLength(s.ctx, s.owner, 0) }, errors: types.ErrInvalidParams},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			err := tc.set()
			if tc.errors != nil {
				s.Assert().ErrorIs(err, tc.errors, "setter error")
				return
			}
			s.Assert().NoError(err, "setter")
		})
	}

	params, err := s.k.GetVaultParams(s.ctx)
	s.Require().NoError(err, "GetVaultParams")
	s.Assert().Equal("2000000000000", params.Cap.String(), "cap")
	s.Assert().Equal(uint32(8), params.Decimals, "decimals")

	fees, err := s.k.GetFeeParams(s.ctx)
	s.Require().NoError(err, "GetFeeParams")
	s.Assert().Equal(types.FeeParams{PerformanceFee: 20 * interest.FeeMultiplier, ManagementFee: interest.FeeMultiplier}, fees, "fees")

	roles, err := s.k.GetRoles(s.ctx)
	s.Require().NoError(err, "GetRoles")
	s.Assert().Equal(other.Bech32, roles.FeeRecipient, "fee recipient")
	s.Assert().Equal(s.bob.String(), roles.Keeper, "keeper")

	alloc := s.alloc()
	s.Assert().Equal(uint32(8000), alloc.LoanAllocationPCT, "loan pct")
	s.Assert().Equal(uint32(2000), alloc.OptionAllocationPCT, "option pct")
}

func (s *TestSuite) TestDecimalsAreFixedOnceARoundIsPriced() {
	s.initVault()
	s.deposit(s.alice, 1_000_000_000)
	s.Require().NoError(s.k.SetDecimals(s.ctx, s.owner, 8), "SetDecimals in round 1")
	s.roll()

	pps, _, err := s.k.GetRoundPricePerShare(s.ctx, 1)
	s.Require().NoError(err, "GetRoundPricePerShare")
	s.Assert().Equal("100000000", pps.String(), "round 1 priced with 8 decimals")

	err = s.k.SetDecimals(s.ctx, s.owner, 6)
	s.Assert().ErrorIs(err, types.ErrInvalidParams, "SetDecimals after the first rollover")
	params, err := s.k.GetVaultParams(s.ctx)
	s.Require().NoError(err, "GetVaultParams")
	s.Assert().Equal(uint32(8), params.Decimals, "decimals unchanged")

	unredeemed, err := s.k.UnredeemedShares(s.ctx, s.alice)
	s.Require().NoError(err, "UnredeemedShares")
	s.Assert().Equal("1000000000", unredeemed.String(), "unredeemed shares")
	redeemed, err := s.k.MaxRedeem(s.ctx, s.alice)
	s.Require().NoError(err, "MaxRedeem")
	s.Assert().Equal("1000000000", redeemed.String(), "redeemed shares")
	s.assertInvariants()
}

func (s *TestSuite) TestTermChangesApplyAtRollover() {
	s.initVault()
	s.deposit(s.alice, 1_400_000_000)

	s.Require().NoError(s.k.SetLoanTermLength(s.ctx, s.owner, uint64((14 * day).Seconds())), "SetLoanTermLength")
	s.Require().NoError(s.k.SetOptionPurchaseFrequency(s.ctx, s.owner, uint64((2 * day).Seconds())), "SetOptionPurchaseFrequency")

	alloc := s.alloc()
	s.Assert().Equal(uint64(week.Seconds()), alloc.CurrentLoanTermLength, "current term unchanged until rollover")

	s.roll()
	alloc = s.alloc()
	s.Assert().Equal(uint64((14 * day).Seconds()), alloc.CurrentLoanTermLength, "term applied")
	s.Assert().Equal(uint64((2 * day).Seconds()), alloc.CurrentOptionPurchaseFreq, "frequency applied")
	s.Assert().Zero(alloc.NextLoanTermLength, "staged term cleared")
	s.Assert().Zero(alloc.NextOptionPurchaseFreq, "staged frequency cleared")
	s.Assert().Equal("1260000000", alloc.LoanAllocation.String(), "loan allocation")
	s.Assert().Equal("20000000", alloc.OptionAllocation.String(), "option allocation over 7 purchases")

	s.advance(week)
	_, _, err := s.k.RollToNextRound(s.ctx, s.keeperAddr)
	s.Assert().ErrorIs(err, types.ErrEpochNotReady, "rollover waits for the longer term")
}
