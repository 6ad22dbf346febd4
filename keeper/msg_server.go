package keeper

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/types"
)

var _ types.MsgServer = &msgServer{}

type msgServer struct {
	*Keeper
}

func NewMsgServer(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

// InitializeVault opens the vault. Only the module authority may call it.
func (k msgServer) InitializeVault(goCtx context.Context, msg *types.MsgInitializeVault) (*types.MsgResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, errors.Wrap(types.ErrInvalidRequest, err.Error())
	}

	authority, err := k.addressCodec.StringToBytes(msg.Authority)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInvalidRequest, "invalid authority: %s", err)
	}
	if !bytes.Equal(authority, k.authority) {
		return nil, errors.Wrapf(types.ErrUnauthorized, "expected authority %s, got %s", sdk.AccAddress(k.authority), msg.Authority)
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.InitializeVault(ctx, msg.Init); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// Deposit deposits the asset into the open round.
func (k msgServer) Deposit(goCtx context.Context, msg *types.MsgDeposit) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}
	creditor := sender
	if msg.Creditor != "" {
		creditor = sdk.MustAccAddressFromBech32(msg.Creditor)
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.DepositFor(ctx, sender, creditor, msg.Amount); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// WithdrawInstantly returns part of a deposit made in the open round.
func (k msgServer) WithdrawInstantly(goCtx context.Context, msg *types.MsgWithdrawInstantly) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.WithdrawInstantly(ctx, sender, msg.Amount); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// Redeem moves unredeemed shares from vault custody to the sender.
func (k msgServer) Redeem(goCtx context.Context, msg *types.MsgRedeem) (*types.MsgRedeemResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if msg.Max {
		shares, err := k.Keeper.MaxRedeem(ctx, sender)
		if err != nil {
			return nil, err
		}
		return &types.MsgRedeemResponse{Shares: shares}, nil
	}
	if err := k.Keeper.Redeem(ctx, sender, msg.Shares); err != nil {
		return nil, err
	}
	return &types.MsgRedeemResponse{Shares: msg.Shares}, nil
}

// InitiateWithdraw queues shares for withdrawal at the next rollover.
func (k msgServer) InitiateWithdraw(goCtx context.Context, msg *types.MsgInitiateWithdraw) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.InitiateWithdraw(ctx, sender, msg.Shares); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// CompleteWithdraw pays out a withdrawal queued in a closed round.
func (k msgServer) CompleteWithdraw(goCtx context.Context, msg *types.MsgCompleteWithdraw) (*types.MsgCompleteWithdrawResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	amount, err := k.Keeper.CompleteWithdraw(ctx, sender)
	if err != nil {
		return nil, err
	}
	return &types.MsgCompleteWithdrawResponse{Amount: amount}, nil
}

// RollToNextRound closes the open round.
func (k msgServer) RollToNextRound(goCtx context.Context, msg *types.MsgRollToNextRound) (*types.MsgRollToNextRoundResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	result, state, err := k.Keeper.RollToNextRound(ctx, sender)
	if err != nil {
		return nil, err
	}
	return &types.MsgRollToNextRoundResponse{
		ClosedRound:   state.Round - 1,
		PricePerShare: result.PricePerShare,
		MintedShares:  result.MintShares,
		LockedAmount:  result.LockedBalance,
	}, nil
}

// BuyOption pays one option allocation to the option seller.
func (k msgServer) BuyOption(goCtx context.Context, msg *types.MsgBuyOption) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.BuyOption(ctx, sender); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// PayOptionYield returns option proceeds to the vault.
func (k msgServer) PayOptionYield(goCtx context.Context, msg *types.MsgPayOptionYield) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.PayOptionYield(ctx, sender, msg.Amount); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// ReturnLentFunds repays the loan to the vault.
func (k msgServer) ReturnLentFunds(goCtx context.Context, msg *types.MsgReturnLentFunds) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.Keeper.ReturnLentFunds(ctx, sender, msg.Amount); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

// UpdateParam applies one owner setter.
func (k msgServer) UpdateParam(goCtx context.Context, msg *types.MsgUpdateParam) (*types.MsgResponse, error) {
	sender, err := validated(msg, msg.Sender)
	if err != nil {
		return nil, err
	}

	ctx := sdk.UnwrapSDKContext(goCtx)
	if err := k.updateParam(ctx, sender, msg.Param, msg.Value); err != nil {
		return nil, err
	}
	return &types.MsgResponse{}, nil
}

func (k msgServer) updateParam(ctx sdk.Context, sender sdk.AccAddress, param types.Param, value string) error {
	switch param {
	case types.ParamCap:
		newCap, ok := math.NewIntFromString(value)
		if !ok {
			return errors.Wrapf(types.ErrInvalidRequest, "invalid cap %q", value)
		}
		return k.SetCap(ctx, sender, newCap)
	case types.ParamDecimals:
		decimals, err := parseUint(value, 32)
		if err != nil {
			return err
		}
		return k.SetDecimals(ctx, sender, uint32(decimals))
	case types.ParamManagementFee:
		fee, err := parseUint(value, 64)
		if err != nil {
			return err
		}
		return k.SetManagementFee(ctx, sender, fee)
	case types.ParamPerformanceFee:
		fee, err := parseUint(value, 64)
		if err != nil {
			return err
		}
		return k.SetPerformanceFee(ctx, sender, fee)
	case types.ParamFeeRecipient:
		return k.SetFeeRecipient(ctx, sender, value)
	case types.ParamKeeper:
		return k.SetNewKeeper(ctx, sender, value)
	case types.ParamAllocationPCT:
		loanPCT, optionPCT, err := parseAllocationPCT(value)
		if err != nil {
			return err
		}
		return k.SetAllocationPCT(ctx, sender, loanPCT, optionPCT)
	case types.ParamLoanTermLength:
		term, err := parseUint(value, 64)
		if err != nil {
			return err
		}
		return k.SetLoanTermLength(ctx, sender, term)
	case types.ParamOptionPurchaseFreq:
		freq, err := parseUint(value, 64)
		if err != nil {
			return err
		}
		return k.SetOptionPurchaseFrequency(ctx, sender, freq)
	case types.ParamBorrower:
		return k.SetBorrower(ctx, sender, value)
	case types.ParamOptionSeller:
		return k.SetOptionSeller(ctx, sender, value)
	case types.ParamCommitBorrower:
		return k.CommitBorrower(ctx, sender)
	case types.ParamCommitOptionSeller:
		return k.CommitOptionSeller(ctx, sender)
	default:
		return errors.Wrapf(types.ErrInvalidRequest, "unknown param %q", param)
	}
}

// validated runs stateless validation of msg and parses its sender.
func validated(msg interface{ ValidateBasic() error }, sender string) (sdk.AccAddress, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, errors.Wrap(types.ErrInvalidRequest, err.Error())
	}
	return sdk.AccAddressFromBech32(sender)
}

func parseUint(value string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, errors.Wrapf(types.ErrInvalidRequest, "invalid value %q: %s", value, err)
	}
	return v, nil
}

// parseAllocationPCT parses "loanPCT,optionPCT".
func parseAllocationPCT(value string) (uint32, uint32, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Wrapf(types.ErrInvalidRequest, "allocation must be \"loan,option\", got %q", value)
	}
	loanPCT, err := parseUint(strings.TrimSpace(parts[0]), 32)
	if err != nil {
		return 0, 0, err
	}
	optionPCT, err := parseUint(strings.TrimSpace(parts[1]), 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(loanPCT), uint32(optionPCT), nil
}
