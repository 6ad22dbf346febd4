package keeper_test

import (
	"encoding/json"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
	"github.com/provlabs/epochvault/utils/mocks"
)

func (s *TestSuite) TestExportGenesisUninitialized() {
	gs := s.k.ExportGenesis(s.ctx)
	s.Assert().Equal(types.DefaultGenesisState(), gs, "exported genesis")

	s.k.InitGenesis(s.ctx, gs)
	initialized, err := s.k.IsInitialized(s.ctx)
	s.Require().NoError(err, "IsInitialized")
	s.Assert().False(initialized, "default genesis leaves the vault closed")
}

func (s *TestSuite) TestGenesisRoundTrip() {
	s.firstRound()
	s.deposit(s.bob, 250_000_000)
	s.Require().NoError(s.k.InitiateWithdraw(s.ctx, s.alice, sdkmath.NewInt(100_000_000)), "InitiateWithdraw")
	s.Require().NoError(s.k.SetBorrower(s.ctx, s.owner, utils.TestAddress().Bech32), "SetBorrower")
	s.advance(time.Hour)

	exported := s.k.ExportGenesis(s.ctx)
	s.Require().True(exported.Initialized, "exported genesis is initialized")
	s.Require().NoError(exported.Validate(), "exported genesis Validate")
	s.Assert().Len(exported.DepositReceipts, 2, "deposit receipts")
	s.Assert().Len(exported.Withdrawals, 1, "withdrawals")
	s.Assert().Len(exported.RoundPricePerShare, 1, "price history")
	s.Assert().NotNil(exported.PendingBorrower, "pending borrower")
	s.Assert().Nil(exported.PendingOptionSeller, "pending option seller")

	ctx, k, _ := mocks.NewVaultKeeper(s.T())
	k.InitGenesis(ctx, exported)
	want, err := json.Marshal(exported)
	s.Require().NoError(err, "marshal exported genesis")
	got, err := json.Marshal(k.ExportGenesis(ctx))
	s.Require().NoError(err, "marshal re-exported genesis")
	s.Assert().JSONEq(string(want), string(got), "re-exported genesis")

	var queued int
	err = k.WithdrawalQueue.WalkRound(ctx, 2, func(sdk.AccAddress) (bool, error) {
		queued++
		return false, nil
	})
	s.Require().NoError(err, "WalkRound")
	s.Assert().Equal(1, queued, "withdrawal indexed on import")

	version, err := k.SchemaVersion.Get(ctx)
	s.Require().NoError(err, "SchemaVersion")
	s.Assert().Equal(types.SchemaVersion, version, "schema version")
}

func (s *TestSuite) TestInitGenesisRejectsInvalidState() {
	s.firstRound()
	exported := s.k.ExportGenesis(s.ctx)
	exported.Allocation.LoanAllocationPCT = 9500

	ctx, k, _ := mocks.NewVaultKeeper(s.T())
	s.Assert().Panics(func() { k.InitGenesis(ctx, exported) }, "InitGenesis with loan and option over 100%")
}
