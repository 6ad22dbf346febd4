package types

import (
	"fmt"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/utils"
)

// InitParams is everything needed to open a vault at round 1.
type InitParams struct {
	Params              VaultParams `json:"params"`
	Fees                FeeParams   `json:"fees"`
	Roles               Roles       `json:"roles"`
	LoanTermLength      uint64      `json:"loan_term_length"`
	OptionPurchaseFreq  uint64      `json:"option_purchase_freq"`
	LoanAllocationPCT   uint32      `json:"loan_allocation_pct"`
	OptionAllocationPCT uint32      `json:"option_allocation_pct"`
}

// Validate performs stateless validation of the initialization params.
func (p InitParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if err := p.Fees.Validate(); err != nil {
		return err
	}
	if err := p.Roles.Validate(); err != nil {
		return err
	}
	if err := ValidateTermAndFrequency(p.LoanTermLength, p.OptionPurchaseFreq); err != nil {
		return err
	}
	return ValidateAllocationPCT(p.LoanAllocationPCT, p.OptionAllocationPCT)
}

// Allocation returns the allocation state the vault opens with.
func (p InitParams) Allocation() AllocationState {
	return AllocationState{
		CurrentLoanTermLength:     p.LoanTermLength,
		CurrentOptionPurchaseFreq: p.OptionPurchaseFreq,
		LoanAllocationPCT:         p.LoanAllocationPCT,
		OptionAllocationPCT:       p.OptionAllocationPCT,
		LoanAllocation:            math.ZeroInt(),
		OptionAllocation:          math.ZeroInt(),
	}
}

// MsgInitializeVault opens the vault. Only the module authority may send it.
type MsgInitializeVault struct {
	Authority string     `json:"authority"`
	Init      InitParams `json:"init"`
}

// ValidateBasic performs stateless validation of MsgInitializeVault.
func (m MsgInitializeVault) ValidateBasic() error {
	if err := validateSender(m.Authority); err != nil {
		return fmt.Errorf("invalid authority address: %w", err)
	}
	return m.Init.Validate()
}

// MsgDeposit deposits the asset for the current round. An empty Creditor
// credits the sender.
type MsgDeposit struct {
	Sender   string   `json:"sender"`
	Creditor string   `json:"creditor,omitempty"`
	Amount   math.Int `json:"amount"`
}

// ValidateBasic performs stateless validation of MsgDeposit.
func (m MsgDeposit) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	if m.Creditor != "" {
		if _, err := sdk.AccAddressFromBech32(m.Creditor); err != nil {
			return fmt.Errorf("invalid creditor address: %q: %w", m.Creditor, err)
		}
	}
	return validatePositive("amount", m.Amount, utils.Uint104Bits)
}

// MsgWithdrawInstantly withdraws a deposit made in the current round.
type MsgWithdrawInstantly struct {
	Sender string   `json:"sender"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless validation of MsgWithdrawInstantly.
func (m MsgWithdrawInstantly) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	return validatePositive("amount", m.Amount, utils.Uint104Bits)
}

// MsgRedeem moves unredeemed shares from the vault to the sender. Max
// redeems everything and ignores Shares.
type MsgRedeem struct {
	Sender string   `json:"sender"`
	Shares math.Int `json:"shares"`
	Max    bool     `json:"max,omitempty"`
}

// ValidateBasic performs stateless validation of MsgRedeem.
func (m MsgRedeem) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	if m.Max {
		return nil
	}
	return validatePositive("shares", m.Shares, utils.Uint128Bits)
}

// MsgInitiateWithdraw queues shares for withdrawal at the next rollover.
type MsgInitiateWithdraw struct {
	Sender string   `json:"sender"`
	Shares math.Int `json:"shares"`
}

// ValidateBasic performs stateless validation of MsgInitiateWithdraw.
func (m MsgInitiateWithdraw) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	return validatePositive("shares", m.Shares, utils.Uint128Bits)
}

// MsgCompleteWithdraw pays out a withdrawal queued in a closed round.
type MsgCompleteWithdraw struct {
	Sender string `json:"sender"`
}

// ValidateBasic performs stateless validation of MsgCompleteWithdraw.
func (m MsgCompleteWithdraw) ValidateBasic() error {
	return validateSender(m.Sender)
}

// MsgRollToNextRound closes the current round. Keeper only.
type MsgRollToNextRound struct {
	Sender string `json:"sender"`
}

// ValidateBasic performs stateless validation of MsgRollToNextRound.
func (m MsgRollToNextRound) ValidateBasic() error {
	return validateSender(m.Sender)
}

// MsgBuyOption sends one option allocation to the option seller. Keeper only.
type MsgBuyOption struct {
	Sender string `json:"sender"`
}

// ValidateBasic performs stateless validation of MsgBuyOption.
func (m MsgBuyOption) ValidateBasic() error {
	return validateSender(m.Sender)
}

// MsgPayOptionYield returns option proceeds to the vault. Option seller only.
type MsgPayOptionYield struct {
	Sender string   `json:"sender"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless validation of MsgPayOptionYield.
func (m MsgPayOptionYield) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	return validatePositive("amount", m.Amount, utils.Uint128Bits)
}

// MsgReturnLentFunds repays the loan to the vault. Borrower only.
type MsgReturnLentFunds struct {
	Sender string   `json:"sender"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless validation of MsgReturnLentFunds.
func (m MsgReturnLentFunds) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	return validatePositive("amount", m.Amount, utils.Uint128Bits)
}

// Param identifies an owner-settable vault parameter.
type Param string

const (
	ParamCap                Param = "cap"
	ParamDecimals           Param = "decimals"
	ParamManagementFee      Param = "management_fee"
	ParamPerformanceFee     Param = "performance_fee"
	ParamFeeRecipient       Param = "fee_recipient"
	ParamKeeper             Param = "keeper"
	ParamAllocationPCT      Param = "allocation_pct"
	ParamLoanTermLength     Param = "loan_term_length"
	ParamOptionPurchaseFreq Param = "option_purchase_frequency"
	ParamBorrower           Param = "borrower"
	ParamOptionSeller       Param = "option_seller"
	ParamCommitBorrower     Param = "commit_borrower"
	ParamCommitOptionSeller Param = "commit_option_seller"
)

// MsgUpdateParam is an owner setter. Value is the new value rendered as a
// string; allocation_pct takes "loanPCT,optionPCT" and commits take no value.
type MsgUpdateParam struct {
	Sender string `json:"sender"`
	Param  Param  `json:"param"`
	Value  string `json:"value,omitempty"`
}

// ValidateBasic performs stateless validation of MsgUpdateParam.
func (m MsgUpdateParam) ValidateBasic() error {
	if err := validateSender(m.Sender); err != nil {
		return err
	}
	switch m.Param {
	case ParamCommitBorrower, ParamCommitOptionSeller:
		return nil
	case ParamCap, ParamDecimals, ParamManagementFee, ParamPerformanceFee, ParamFeeRecipient, ParamKeeper,
		ParamAllocationPCT, ParamLoanTermLength, ParamOptionPurchaseFreq, ParamBorrower, ParamOptionSeller:
		if m.Value == "" {
			return fmt.Errorf("param %q requires a value", m.Param)
		}
		return nil
	default:
		return fmt.Errorf("unknown param %q", m.Param)
	}
}

// MsgResponse is returned by messages that produce no data.
type MsgResponse struct{}

// MsgRedeemResponse reports the shares moved to the sender.
type MsgRedeemResponse struct {
	Shares math.Int `json:"shares"`
}

// MsgCompleteWithdrawResponse reports the asset paid out.
type MsgCompleteWithdrawResponse struct {
	Amount math.Int `json:"amount"`
}

// MsgRollToNextRoundResponse reports the closed round's result.
type MsgRollToNextRoundResponse struct {
	ClosedRound   uint16   `json:"closed_round"`
	PricePerShare math.Int `json:"price_per_share"`
	MintedShares  math.Int `json:"minted_shares"`
	LockedAmount  math.Int `json:"locked_amount"`
}

func validateSender(sender string) error {
	if _, err := sdk.AccAddressFromBech32(sender); err != nil {
		return fmt.Errorf("invalid sender address: %q: %w", sender, err)
	}
	return nil
}

func validatePositive(name string, amount math.Int, bits int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%s must be positive", name)
	}
	if err := utils.AssertWidth(amount, bits); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
