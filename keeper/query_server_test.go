package keeper_test

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/types/query"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) TestQueryVault() {
	srv := keeper.NewQueryServer(s.k)

	_, err := srv.Vault(s.ctx, nil)
	s.Assert().Equal(codes.InvalidArgument, status.Code(err), "nil request")

	_, err = srv.Vault(s.ctx, &types.QueryVaultRequest{})
	s.Assert().Equal(codes.FailedPrecondition, status.Code(err), "vault not initialized")

	s.firstRound()
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(900_000_000)), "ReturnLentFunds")

	resp, err := srv.Vault(s.ctx, &types.QueryVaultRequest{})
	s.Require().NoError(err, "Vault")
	s.Assert().Equal(uint16(2), resp.State.Round, "round")
	s.Assert().Equal(asset, resp.Params.Asset, "asset")
	s.Assert().Equal("1000000000", resp.AssetBalance.String(), "asset balance")
	s.Assert().Equal("1000000000", resp.TotalBalance.String(), "total balance")
	s.Assert().Equal("1000000000", resp.ShareSupply.String(), "share supply")
	s.Assert().Equal("1000000", resp.PricePerShare.String(), "price per share")
	s.Assert().Nil(resp.PendingBorrower, "pending borrower")
}

func (s *TestSuite) TestQueryAccount() {
	srv := keeper.NewQueryServer(s.k)
	s.firstRound()
	s.Require().NoError(s.k.ReturnLentFunds(s.ctx, s.borrower, sdkmath.NewInt(900_000_000)), "ReturnLentFunds")
	s.deposit(s.bob, 500_000_000)

	_, err := srv.Account(s.ctx, &types.QueryAccountRequest{})
	s.Assert().Equal(codes.InvalidArgument, status.Code(err), "empty address")
	_, err = srv.Account(s.ctx, &types.QueryAccountRequest{Address: "not-an-address"})
	s.Assert().Equal(codes.InvalidArgument, status.Code(err), "malformed address")

	alice, err := srv.Account(s.ctx, &types.QueryAccountRequest{Address: s.alice.String()})
	s.Require().NoError(err, "Account(alice)")
	s.Assert().True(alice.HeldShares.IsZero(), "alice holds no shares")
	s.Assert().Equal("1000000000", alice.UnredeemedShares.String(), "alice unredeemed shares")
	s.Assert().Equal("1000000000", alice.AssetValue.String(), "alice value")

	bob, err := srv.Account(s.ctx, &types.QueryAccountRequest{Address: s.bob.String()})
	s.Require().NoError(err, "Account(bob)")
	s.Assert().Equal(uint16(2), bob.Receipt.Round, "bob receipt round")
	s.Assert().True(bob.UnredeemedShares.IsZero(), "bob has no shares yet")
	s.Assert().Equal("500000000", bob.AssetValue.String(), "bob value is his pending deposit")
}

func (s *TestSuite) TestQueryRoundPricePerShare() {
	srv := keeper.NewQueryServer(s.k)
	s.firstRound()

	_, err := srv.RoundPricePerShare(s.ctx, &types.QueryRoundPricePerShareRequest{})
	s.Assert().Equal(codes.InvalidArgument, status.Code(err), "round zero")

	_, err = srv.RoundPricePerShare(s.ctx, &types.QueryRoundPricePerShareRequest{Round: 2})
	s.Assert().Equal(codes.NotFound, status.Code(err), "open round")

	resp, err := srv.RoundPricePerShare(s.ctx, &types.QueryRoundPricePerShareRequest{Round: 1})
	s.Require().NoError(err, "RoundPricePerShare(1)")
	s.Assert().Equal("1000000", resp.PricePerShare.String(), "round 1 price")
}

func (s *TestSuite) TestQueryQueuedWithdrawals() {
	srv := keeper.NewQueryServer(s.k)
	s.firstRound()
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(250_000_000)), "InitiateWithdraw")

	resp, err := srv.QueuedWithdrawals(s.ctx, &types.QueryQueuedWithdrawalsRequest{Round: 2})
	s.Require().NoError(err, "QueuedWithdrawals(2)")
	s.Require().Len(resp.Withdrawals, 1, "withdrawals in round 2")
	s.Assert().Equal(s.alice.String(), resp.Withdrawals[0].Address, "address")
	s.Assert().Equal("250000000", resp.Withdrawals[0].Withdrawal.Shares.String(), "shares")

	resp, err = srv.QueuedWithdrawals(s.ctx, &types.QueryQueuedWithdrawalsRequest{Round: 1})
	s.Require().NoError(err, "QueuedWithdrawals(1)")
	s.Assert().Empty(resp.Withdrawals, "withdrawals in round 1")
}

func (s *TestSuite) TestQueryDepositReceipts() {
	srv := keeper.NewQueryServer(s.k)
	s.initVault()
	s.deposit(s.alice, 10_000_000)
	s.deposit(s.bob, 20_000_000)

	resp, err := srv.DepositReceipts(s.ctx, &types.QueryDepositReceiptsRequest{Pagination: &query.PageRequest{Limit: 1}})
	s.Require().NoError(err, "DepositReceipts page 1")
	s.Require().Len(resp.Receipts, 1, "receipts on page 1")
	s.Require().NotNil(resp.Pagination, "pagination")
	s.Require().NotEmpty(resp.Pagination.NextKey, "next key")

	next, err := srv.DepositReceipts(s.ctx, &types.QueryDepositReceiptsRequest{Pagination: &query.PageRequest{Key: resp.Pagination.NextKey}})
	s.Require().NoError(err, "DepositReceipts page 2")
	s.Require().Len(next.Receipts, 1, "receipts on page 2")
	s.Assert().NotEqual(resp.Receipts[0].Address, next.Receipts[0].Address, "pages hold different accounts")
}
