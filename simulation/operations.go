package simulation

import (
	"math/rand"

	sdkmath "cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/baseapp"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/module"
	simtypes "github.com/cosmos/cosmos-sdk/types/simulation"
	"github.com/cosmos/cosmos-sdk/x/simulation"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

const (
	OpWeightMsgDeposit           = "op_weight_msg_deposit"
	OpWeightMsgWithdrawInstantly = "op_weight_msg_withdraw_instantly"
	OpWeightMsgRedeem            = "op_weight_msg_redeem"
	OpWeightMsgInitiateWithdraw  = "op_weight_msg_initiate_withdraw"
	OpWeightMsgCompleteWithdraw  = "op_weight_msg_complete_withdraw"
	OpWeightMsgRollToNextRound   = "op_weight_msg_roll_to_next_round"
	OpWeightMsgBuyOption         = "op_weight_msg_buy_option"
	OpWeightMsgPayOptionYield    = "op_weight_msg_pay_option_yield"
	OpWeightMsgReturnLentFunds   = "op_weight_msg_return_lent_funds"
)

const (
	DefaultWeightMsgDeposit           = 35
	DefaultWeightMsgWithdrawInstantly = 10
	DefaultWeightMsgRedeem            = 10
	DefaultWeightMsgInitiateWithdraw  = 15
	DefaultWeightMsgCompleteWithdraw  = 10
	DefaultWeightMsgRollToNextRound   = 5
	DefaultWeightMsgBuyOption         = 5
	DefaultWeightMsgPayOptionYield    = 5
	DefaultWeightMsgReturnLentFunds   = 5
)

const (
	msgDeposit           = "deposit"
	msgWithdrawInstantly = "withdraw_instantly"
	msgRedeem            = "redeem"
	msgInitiateWithdraw  = "initiate_withdraw"
	msgCompleteWithdraw  = "complete_withdraw"
	msgRollToNextRound   = "roll_to_next_round"
	msgBuyOption         = "buy_option"
	msgPayOptionYield    = "pay_option_yield"
	msgReturnLentFunds   = "return_lent_funds"
)

// WeightedOperations returns the vault operations with their weights.
func WeightedOperations(simState module.SimulationState, k *keeper.Keeper) simulation.WeightedOperations {
	var (
		wDeposit           int
		wWithdrawInstantly int
		wRedeem            int
		wInitiateWithdraw  int
		wCompleteWithdraw  int
		wRollToNextRound   int
		wBuyOption         int
		wPayOptionYield    int
		wReturnLentFunds   int
	)

	simState.AppParams.GetOrGenerate(OpWeightMsgDeposit, &wDeposit, simState.Rand, func(r *rand.Rand) { wDeposit = DefaultWeightMsgDeposit })
	simState.AppParams.GetOrGenerate(OpWeightMsgWithdrawInstantly, &wWithdrawInstantly, simState.Rand, func(r *rand.Rand) { wWithdrawInstantly = DefaultWeightMsgWithdrawInstantly })
	simState.AppParams.GetOrGenerate(OpWeightMsgRedeem, &wRedeem, simState.Rand, func(r *rand.Rand) { wRedeem = DefaultWeightMsgRedeem })
	simState.AppParams.GetOrGenerate(OpWeightMsgInitiateWithdraw, &wInitiateWithdraw, simState.Rand, func(r *rand.Rand) { wInitiateWithdraw = DefaultWeightMsgInitiateWithdraw })
	simState.AppParams.GetOrGenerate(OpWeightMsgCompleteWithdraw, &wCompleteWithdraw, simState.Rand, func(r *rand.Rand) { wCompleteWithdraw = DefaultWeightMsgCompleteWithdraw })
	simState.AppParams.GetOrGenerate(OpWeightMsgRollToNextRound, &wRollToNextRound, simState.Rand, func(r *rand.Rand) { wRollToNextRound = DefaultWeightMsgRollToNextRound })
	simState.AppParams.GetOrGenerate(OpWeightMsgBuyOption, &wBuyOption, simState.Rand, func(r *rand.Rand) { wBuyOption = DefaultWeightMsgBuyOption })
	simState.AppParams.GetOrGenerate(OpWeightMsgPayOptionYield, &wPayOptionYield, simState.Rand, func(r *rand.Rand) { wPayOptionYield = DefaultWeightMsgPayOptionYield })
	simState.AppParams.GetOrGenerate(OpWeightMsgReturnLentFunds, &wReturnLentFunds, simState.Rand, func(r *rand.Rand) { wReturnLentFunds = DefaultWeightMsgReturnLentFunds })

	return simulation.WeightedOperations{
		simulation.NewWeightedOperation(wDeposit, SimulateMsgDeposit(k)),
		simulation.NewWeightedOperation(wWithdrawInstantly, SimulateMsgWithdrawInstantly(k)),
		simulation.NewWeightedOperation(wRedeem, SimulateMsgRedeem(k)),
		simulation.NewWeightedOperation(wInitiateWithdraw, SimulateMsgInitiateWithdraw(k)),
		simulation.NewWeightedOperation(wCompleteWithdraw, SimulateMsgCompleteWithdraw(k)),
		simulation.NewWeightedOperation(wRollToNextRound, SimulateMsgRollToNextRound(k)),
		simulation.NewWeightedOperation(wBuyOption, SimulateMsgBuyOption(k)),
		simulation.NewWeightedOperation(wPayOptionYield, SimulateMsgPayOptionYield(k)),
		simulation.NewWeightedOperation(wReturnLentFunds, SimulateMsgReturnLentFunds(k)),
	}
}

func SimulateMsgDeposit(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		params, err := k.GetVaultParams(ctx)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgDeposit, "vault not initialized"), nil, nil
		}
		acc, _ := simtypes.RandomAcc(r, accs)

		balance := k.BankKeeper.GetBalance(ctx, acc.Address, params.Asset)
		if !balance.Amount.IsPositive() {
			return simtypes.NoOpMsg(types.ModuleName, msgDeposit, "no asset balance"), nil, nil
		}
		amount, err := simtypes.RandPositiveInt(r, balance.Amount)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgDeposit, err.Error()), nil, nil
		}

		msg := &types.MsgDeposit{Sender: acc.Address.String(), Amount: amount}
		if _, err := keeper.NewMsgServer(k).Deposit(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgDeposit, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgDeposit, "", true, nil), nil, nil
	}
}

func SimulateMsgWithdrawInstantly(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgWithdrawInstantly, "vault not initialized"), nil, nil
		}

		var (
			acc     simtypes.Account
			receipt types.DepositReceipt
		)
		for _, a := range shuffled(r, accs) {
			rc, err := k.GetDepositReceipt(ctx, a.Address)
			if err != nil {
				return simtypes.NoOpMsg(types.ModuleName, msgWithdrawInstantly, err.Error()), nil, err
			}
			if rc.Round == state.Round && rc.Amount.IsPositive() {
				acc, receipt = a, rc
				break
			}
		}
		if acc.Address.Empty() {
			return simtypes.NoOpMsg(types.ModuleName, msgWithdrawInstantly, "no deposit in current round"), nil, nil
		}
		amount, err := simtypes.RandPositiveInt(r, receipt.Amount)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgWithdrawInstantly, err.Error()), nil, nil
		}

		msg := &types.MsgWithdrawInstantly{Sender: acc.Address.String(), Amount: amount}
		if _, err := keeper.NewMsgServer(k).WithdrawInstantly(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgWithdrawInstantly, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgWithdrawInstantly, "", true, nil), nil, nil
	}
}

func SimulateMsgRedeem(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		var (
			acc        simtypes.Account
			unredeemed sdkmath.Int
		)
		for _, a := range shuffled(r, accs) {
			shares, err := k.UnredeemedShares(ctx, a.Address)
			if err != nil {
				return simtypes.NoOpMsg(types.ModuleName, msgRedeem, err.Error()), nil, nil
			}
			if shares.IsPositive() {
				acc, unredeemed = a, shares
				break
			}
		}
		if acc.Address.Empty() {
			return simtypes.NoOpMsg(types.ModuleName, msgRedeem, "no unredeemed shares"), nil, nil
		}

		msg := &types.MsgRedeem{Sender: acc.Address.String(), Max: r.Intn(2) == 0}
		if !msg.Max {
			shares, err := simtypes.RandPositiveInt(r, unredeemed)
			if err != nil {
				return simtypes.NoOpMsg(types.ModuleName, msgRedeem, err.Error()), nil, nil
			}
			msg.Shares = shares
		}
		if _, err := keeper.NewMsgServer(k).Redeem(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgRedeem, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgRedeem, "", true, nil), nil, nil
	}
}

func SimulateMsgInitiateWithdraw(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		var (
			acc   simtypes.Account
			total sdkmath.Int
		)
		for _, a := range shuffled(r, accs) {
			held, unredeemed, err := k.AccountShares(ctx, a.Address)
			if err != nil {
				return simtypes.NoOpMsg(types.ModuleName, msgInitiateWithdraw, err.Error()), nil, nil
			}
			if sum := held.Add(unredeemed); sum.IsPositive() {
				acc, total = a, sum
				break
			}
		}
		if acc.Address.Empty() {
			return simtypes.NoOpMsg(types.ModuleName, msgInitiateWithdraw, "no shares"), nil, nil
		}
		shares, err := simtypes.RandPositiveInt(r, total)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgInitiateWithdraw, err.Error()), nil, nil
		}

		msg := &types.MsgInitiateWithdraw{Sender: acc.Address.String(), Shares: shares}
		if _, err := keeper.NewMsgServer(k).InitiateWithdraw(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgInitiateWithdraw, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgInitiateWithdraw, "", true, nil), nil, nil
	}
}

func SimulateMsgCompleteWithdraw(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		state, err := k.GetVaultState(ctx)
		if err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgCompleteWithdraw, "vault not initialized"), nil, nil
		}

		var acc simtypes.Account
		for _, a := range shuffled(r, accs) {
			w, err := k.GetWithdrawal(ctx, a.Address)
			if err != nil {
				return simtypes.NoOpMsg(types.ModuleName, msgCompleteWithdraw, err.Error()), nil, err
			}
			if w.IsActive() && w.Round < state.Round {
				acc = a
				break
			}
		}
		if acc.Address.Empty() {
			return simtypes.NoOpMsg(types.ModuleName, msgCompleteWithdraw, "no completable withdrawal"), nil, nil
		}

		msg := &types.MsgCompleteWithdraw{Sender: acc.Address.String()}
		if _, err := keeper.NewMsgServer(k).CompleteWithdraw(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgCompleteWithdraw, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgCompleteWithdraw, "", true, nil), nil, nil
	}
}

func SimulateMsgRollToNextRound(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		acc, ok := roleAccount(ctx, k, types.RoleKeeper, accs)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgRollToNextRound, "keeper account not found"), nil, nil
		}

		msg := &types.MsgRollToNextRound{Sender: acc.Address.String()}
		if _, err := keeper.NewMsgServer(k).RollToNextRound(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgRollToNextRound, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgRollToNextRound, "", true, nil), nil, nil
	}
}

func SimulateMsgBuyOption(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		acc, ok := roleAccount(ctx, k, types.RoleKeeper, accs)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgBuyOption, "keeper account not found"), nil, nil
		}

		msg := &types.MsgBuyOption{Sender: acc.Address.String()}
		if _, err := keeper.NewMsgServer(k).BuyOption(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgBuyOption, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgBuyOption, "", true, nil), nil, nil
	}
}

func SimulateMsgPayOptionYield(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		acc, ok := roleAccount(ctx, k, types.RoleOptionSeller, accs)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgPayOptionYield, "option seller account not found"), nil, nil
		}
		amount, ok := counterpartyPayment(r, ctx, k, acc)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgPayOptionYield, "option seller has no funds"), nil, nil
		}

		msg := &types.MsgPayOptionYield{Sender: acc.Address.String(), Amount: amount}
		if _, err := keeper.NewMsgServer(k).PayOptionYield(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgPayOptionYield, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgPayOptionYield, "", true, nil), nil, nil
	}
}

func SimulateMsgReturnLentFunds(k *keeper.Keeper) simtypes.Operation {
	return func(r *rand.Rand, app *baseapp.BaseApp, ctx sdk.Context,
		accs []simtypes.Account, chainID string,
	) (simtypes.OperationMsg, []simtypes.FutureOperation, error) {
		acc, ok := roleAccount(ctx, k, types.RoleBorrower, accs)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgReturnLentFunds, "borrower account not found"), nil, nil
		}
		amount, ok := counterpartyPayment(r, ctx, k, acc)
		if !ok {
			return simtypes.NoOpMsg(types.ModuleName, msgReturnLentFunds, "borrower has no funds"), nil, nil
		}

		msg := &types.MsgReturnLentFunds{Sender: acc.Address.String(), Amount: amount}
		if _, err := keeper.NewMsgServer(k).ReturnLentFunds(ctx, msg); err != nil {
			return simtypes.NoOpMsg(types.ModuleName, msgReturnLentFunds, err.Error()), nil, nil
		}
		return simtypes.NewOperationMsgBasic(types.ModuleName, msgReturnLentFunds, "", true, nil), nil, nil
	}
}

// roleAccount finds the simulation account bound to role.
func roleAccount(ctx sdk.Context, k *keeper.Keeper, role types.Role, accs []simtypes.Account) (simtypes.Account, bool) {
	roles, err := k.GetRoles(ctx)
	if err != nil {
		return simtypes.Account{}, false
	}
	addr, err := sdk.AccAddressFromBech32(roles.Address(role))
	if err != nil {
		return simtypes.Account{}, false
	}
	return simtypes.FindAccount(accs, addr)
}

// counterpartyPayment picks a random amount of the asset held by acc.
func counterpartyPayment(r *rand.Rand, ctx sdk.Context, k *keeper.Keeper, acc simtypes.Account) (sdkmath.Int, bool) {
	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return sdkmath.Int{}, false
	}
	balance := k.BankKeeper.GetBalance(ctx, acc.Address, params.Asset)
	if !balance.Amount.IsPositive() {
		return sdkmath.Int{}, false
	}
	amount, err := simtypes.RandPositiveInt(r, balance.Amount)
	if err != nil {
		return sdkmath.Int{}, false
	}
	return amount, true
}

func shuffled(r *rand.Rand, accs []simtypes.Account) []simtypes.Account {
	out := make([]simtypes.Account, len(accs))
	copy(out, accs)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
