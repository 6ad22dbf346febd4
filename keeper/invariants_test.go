package keeper_test

import (
	"cosmossdk.io/collections"
	sdkmath "cosmossdk.io/math"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestInvariantsHoldThroughALifecycle() {
	s.assertInvariants()
	s.firstRound()
	s.deposit(s.bob, 300_000_000)
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(200_000_000)), "InitiateWithdraw")
	s.assertInvariants()

	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(950_000_000)), "ReturnLentFunds")
	s.advance(week)
	s.roll()
	s.assertInvariants()

	_, err := s.k.CompleteWithdraw(s.ctx, s.alice)
	s.Require().NoError(err, "CompleteWithdraw")
	s.assertInvariants()
}

func (s *TestSuite) TestPendingDepositsInvariant() {
	s.initVault()
	s.deposit(s.alice, 10_000_000)

	state := s.state()
	state.TotalPending = sdkmath.NewInt(9_000_000)
	s.Require().NoError(s.k.VaultState.Set(s.ctx, state), "set vault state")

	msg, broken := keeper.PendingDepositsInvariant(s.k)(s.ctx)
	s.Assert().True(broken, "pending deposits invariant broken")
	s.Assert().Contains(msg, "total pending 9000000", "invariant message")

	_, broken = keeper.AllInvariants(s.k)(s.ctx)
	s.Assert().True(broken, "all invariants")
}

func (s *TestSuite) TestQueuedWithdrawalsInvariant() {
	s.firstRound()
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(100_000_000)), "InitiateWithdraw")

	_, broken := keeper.QueuedWithdrawalsInvariant(s.k)(s.ctx)
	s.Require().False(broken, "queued withdrawals invariant before tampering")

	state := s.state()
	state.CurrentQueuedWithdrawShares = sdkmath.ZeroInt()
	s.Require().NoError(s.k.VaultState.Set(s.ctx, state), "set vault state")

	_, broken = keeper.QueuedWithdrawalsInvariant(s.k)(s.ctx)
	s.Assert().True(broken, "queued withdrawals invariant broken")
}

func (s *TestSuite) TestShareCustodyInvariant() {
	s.firstRound()

	_, broken := keeper.ShareCustodyInvariant(s.k)(s.ctx)
	s.Require().False(broken, "share custody invariant before tampering")

	key := collections.Join(types.ModuleAddress, shareDenom)
	s.Require().NoError(s.bank.Balances.Set(s.ctx, key, sdkmath.NewInt(999_999_999)), "set vault share balance")

	msg, broken := keeper.ShareCustodyInvariant(s.k)(s.ctx)
	s.Assert().True(broken, "share custody invariant broken")
	s.Assert().Contains(msg, "owes 1000000000", "invariant message")
}

func (s *TestSuite) TestInvariantsSkipUninitializedVault() {
	_, broken := keeper.AllInvariants(s.k)(s.ctx)
	s.Assert().False(broken, "uninitialized vault")
}
