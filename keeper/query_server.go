package keeper

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/query"

	"github.com/provlabs/epochvault/types"
	"github.com/provlabs/epochvault/utils"
)

var _ types.QueryServer = &queryServer{}

type queryServer struct {
	*Keeper
}

// NewQueryServer creates a new QueryServer for the module.
func NewQueryServer(keeper *Keeper) types.QueryServer {
	return &queryServer{Keeper: keeper}
}

// Vault returns the configuration, ledger and balances of the vault.
func (k queryServer) Vault(goCtx context.Context, req *types.QueryVaultRequest) (*types.QueryVaultResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}

	ctx := sdk.UnwrapSDKContext(goCtx)

	var (
		resp types.QueryVaultResponse
		err  error
	)
	if resp.Params, err = k.GetVaultParams(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.Fees, err = k.GetFeeParams(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.Roles, err = k.GetRoles(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.State, err = k.GetVaultState(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.Allocation, err = k.GetAllocationState(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.AssetBalance, err = k.AssetBalance(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.TotalBalance, err = k.TotalBalance(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.ShareSupply, err = k.ShareSupply(ctx); err != nil {
		return nil, toStatus(err)
	}
	if resp.PricePerShare, err = k.Keeper.PricePerShare(ctx); err != nil {
		return nil, toStatus(err)
	}
	if p, err := k.PendingBorrower.Get(ctx); err == nil {
		resp.PendingBorrower = &p
	}
	if p, err := k.PendingOptionSeller.Get(ctx); err == nil {
		resp.PendingOptionSeller = &p
	}
	return &resp, nil
}

// Account returns an account's receipt, withdrawal and share position.
func (k queryServer) Account(goCtx context.Context, req *types.QueryAccountRequest) (*types.QueryAccountResponse, error) {
	if req == nil || req.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "address must be provided")
	}

	ctx := sdk.UnwrapSDKContext(goCtx)

	addr, err := sdk.AccAddressFromBech32(req.Address)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid address: %v", err)
	}

	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	state, err := k.GetVaultState(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	receipt, err := k.GetDepositReceipt(ctx, addr)
	if err != nil {
		return nil, toStatus(err)
	}
	withdrawal, err := k.GetWithdrawal(ctx, addr)
	if err != nil {
		return nil, toStatus(err)
	}
	held, unredeemed, err := k.AccountShares(ctx, addr)
	if err != nil {
		return nil, toStatus(err)
	}
	pps, err := k.Keeper.PricePerShare(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	value, err := utils.SharesToAsset(held.Add(unredeemed), pps, params.Decimals)
	if err != nil {
		return nil, toStatus(err)
	}
	if receipt.Round == state.Round {
		value = value.Add(receipt.Amount)
	}

	return &types.QueryAccountResponse{
		Receipt:          receipt,
		Withdrawal:       withdrawal,
		HeldShares:       held,
		UnredeemedShares: unredeemed,
		AssetValue:       value,
	}, nil
}

// RoundPricePerShare returns the price per share a closed round settled at.
func (k queryServer) RoundPricePerShare(goCtx context.Context, req *types.QueryRoundPricePerShareRequest) (*types.QueryRoundPricePerShareResponse, error) {
	if req == nil || req.Round == 0 {
		return nil, status.Error(codes.InvalidArgument, "round must be provided")
	}

	ctx := sdk.UnwrapSDKContext(goCtx)

	pps, found, err := k.GetRoundPricePerShare(ctx, req.Round)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "round %d has not closed", req.Round)
	}
	return &types.QueryRoundPricePerShareResponse{Round: req.Round, PricePerShare: pps}, nil
}

// QueuedWithdrawals lists the withdrawals queued in a round that are still
// awaiting completion.
func (k queryServer) QueuedWithdrawals(goCtx context.Context, req *types.QueryQueuedWithdrawalsRequest) (*types.QueryQueuedWithdrawalsResponse, error) {
	if req == nil || req.Round == 0 {
		return nil, status.Error(codes.InvalidArgument, "round must be provided")
	}

	ctx := sdk.UnwrapSDKContext(goCtx)

	resp := &types.QueryQueuedWithdrawalsResponse{Withdrawals: []types.AccountWithdrawal{}}
	err := k.WithdrawalQueue.WalkRound(ctx, req.Round, func(account sdk.AccAddress) (bool, error) {
		w, err := k.GetWithdrawal(ctx, account)
		if err != nil {
			return true, err
		}
		resp.Withdrawals = append(resp.Withdrawals, types.AccountWithdrawal{Address: account.String(), Withdrawal: w})
		return false, nil
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// DepositReceipts returns a paginated list of deposit receipts.
func (k queryServer) DepositReceipts(goCtx context.Context, req *types.QueryDepositReceiptsRequest) (*types.QueryDepositReceiptsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}

	ctx := sdk.UnwrapSDKContext(goCtx)

	receipts, pageRes, err := query.CollectionPaginate(
		ctx,
		k.Keeper.DepositReceipts,
		req.Pagination,
		func(addr sdk.AccAddress, r types.DepositReceipt) (types.AccountReceipt, error) {
			return types.AccountReceipt{Address: addr.String(), Receipt: r}, nil
		},
	)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &types.QueryDepositReceiptsResponse{
		Receipts:   receipts,
		Pagination: pageRes,
	}, nil
}

func toStatus(err error) error {
	if errors.Is(err, types.ErrNotInitialized) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
