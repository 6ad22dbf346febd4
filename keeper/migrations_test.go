package keeper_test

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

func (s *TestSuite) queuedInRound(round uint16) []sdk.AccAddress {
	var accounts []sdk.AccAddress
	err := s.k.WithdrawalQueue.WalkRound(s.ctx, round, func(account sdk.AccAddress) (bool, error) {
		accounts = append(accounts, account)
		return false, nil
	})
	s.Require().NoError(err, "WalkRound(%d)", round)
	return accounts
}

func (s *TestSuite) TestMigrate1to2IndexesWithdrawals() {
	s.initVault()
	s.Require().NoError(s.k.SchemaVersion.Remove(s.ctx), "remove schema version")

	active := types.Withdrawal{Round: 1, Shares: sdkmath.NewInt(5_000_000)}
	completed := types.Withdrawal{Round: 1, Shares: sdkmath.ZeroInt()}
	s.Require().NoError(s.k.Withdrawals.Set(s.ctx, s.alice, active), "set active withdrawal")
	s.Require().NoError(s.k.Withdrawals.Set(s.ctx, s.bob, completed), "set completed withdrawal")
	s.Require().Empty(s.queuedInRound(1), "no index before migrating")

	migrator := keeper.NewMigrator(s.k)
	s.Require().NoError(migrator.Migrate1to2(s.ctx), "Migrate1to2")

	s.Assert().Equal([]sdk.AccAddress{s.alice}, s.queuedInRound(1), "only the active withdrawal is indexed")
	version, err := s.k.SchemaVersion.Get(s.ctx)
	s.Require().NoError(err, "SchemaVersion")
	s.Assert().Equal(types.SchemaVersion, version, "schema version")

	s.Require().NoError(migrator.Migrate1to2(s.ctx), "Migrate1to2 again")
	s.Assert().Equal([]sdk.AccAddress{s.alice}, s.queuedInRound(1), "second run changes nothing")
}

func (s *TestSuite) TestMigrate1to2Uninitialized() {
	s.Require().NoError(keeper.NewMigrator(s.k).Migrate1to2(s.ctx), "Migrate1to2")
	version, err := s.k.SchemaVersion.Get(s.ctx)
	s.Require().NoError(err, "SchemaVersion")
	s.Assert().Equal(types.SchemaVersion, version, "schema version")
}
