package types

import (
	"fmt"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/provlabs/epochvault/interest"
	"github.com/provlabs/epochvault/utils"
)

// VaultState is the round ledger of the vault.
//
// CurrentQueuedWithdrawShares holds shares queued for withdrawal in the open
// round. QueuedWithdrawShares holds shares queued in closed rounds that have
// not been paid out yet, and LastQueuedWithdrawAmount is the asset reserved
// for them.
type VaultState struct {
	Round                       uint16   `json:"round"`
	LockedAmount                math.Int `json:"locked_amount"`
	LastLockedAmount            math.Int `json:"last_locked_amount"`
	TotalPending                math.Int `json:"total_pending"`
	QueuedWithdrawShares        math.Int `json:"queued_withdraw_shares"`
	CurrentQueuedWithdrawShares math.Int `json:"current_queued_withdraw_shares"`
	LastQueuedWithdrawAmount    math.Int `json:"last_queued_withdraw_amount"`
	LastEpochTime               int64    `json:"last_epoch_time"`
	LastOptionPurchaseTime      int64    `json:"last_option_purchase_time"`
	OptionsBoughtInRound        math.Int `json:"options_bought_in_round"`
	AmtFundsReturned            math.Int `json:"amt_funds_returned"`
}

// NewVaultState returns the state of a freshly initialized vault at round 1.
func NewVaultState(lastEpochTime int64) VaultState {
	return VaultState{
		Round:                       1,
		LockedAmount:                math.ZeroInt(),
		LastLockedAmount:            math.ZeroInt(),
		TotalPending:                math.ZeroInt(),
		QueuedWithdrawShares:        math.ZeroInt(),
		CurrentQueuedWithdrawShares: math.ZeroInt(),
		LastQueuedWithdrawAmount:    math.ZeroInt(),
		LastEpochTime:               lastEpochTime,
		OptionsBoughtInRound:        math.ZeroInt(),
		AmtFundsReturned:            math.ZeroInt(),
	}
}

// Outstanding returns the capital still held by counterparties in the open
// round: the loan plus options bought, less what has been paid back, floored
// at zero.
func (s VaultState) Outstanding(alloc AllocationState) math.Int {
	return utils.SubFloor(alloc.LoanAllocation.Add(s.OptionsBoughtInRound), s.AmtFundsReturned)
}

// Normalize replaces unset amounts with zero.
func (s *VaultState) Normalize() {
	for _, f := range []*math.Int{
		&s.LockedAmount, &s.LastLockedAmount, &s.TotalPending, &s.QueuedWithdrawShares,
		&s.CurrentQueuedWithdrawShares, &s.LastQueuedWithdrawAmount, &s.OptionsBoughtInRound, &s.AmtFundsReturned,
	} {
		normalizeInt(f)
	}
}

// Validate checks the storage widths of every amount.
func (s VaultState) Validate() error {
	if s.Round == 0 {
		return fmt.Errorf("round must be at least 1")
	}
	checks := []struct {
		name  string
		value math.Int
		width int
	}{
		{"locked amount", s.LockedAmount, utils.Uint104Bits},
		{"last locked amount", s.LastLockedAmount, utils.Uint104Bits},
		{"total pending", s.TotalPending, utils.Uint128Bits},
		{"queued withdraw shares", s.QueuedWithdrawShares, utils.Uint128Bits},
		{"current queued withdraw shares", s.CurrentQueuedWithdrawShares, utils.Uint128Bits},
		{"last queued withdraw amount", s.LastQueuedWithdrawAmount, utils.Uint128Bits},
		{"options bought in round", s.OptionsBoughtInRound, utils.Uint128Bits},
		{"amount of funds returned", s.AmtFundsReturned, utils.Uint128Bits},
	}
	for _, c := range checks {
		if err := utils.AssertWidth(c.value, c.width); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// AllocationState splits locked capital between the loan and the option
// purchases of a term. Lengths and frequencies are in seconds; percentages
// are out of interest.TotalPCT.
type AllocationState struct {
	CurrentLoanTermLength     uint64   `json:"current_loan_term_length"`
	CurrentOptionPurchaseFreq uint64   `json:"current_option_purchase_freq"`
	NextLoanTermLength        uint64   `json:"next_loan_term_length"`
	NextOptionPurchaseFreq    uint64   `json:"next_option_purchase_freq"`
	LoanAllocationPCT         uint32   `json:"loan_allocation_pct"`
	OptionAllocationPCT       uint32   `json:"option_allocation_pct"`
	LoanAllocation            math.Int `json:"loan_allocation"`
	OptionAllocation          math.Int `json:"option_allocation"`
}

// Normalize replaces unset amounts with zero.
func (a *AllocationState) Normalize() {
	normalizeInt(&a.LoanAllocation)
	normalizeInt(&a.OptionAllocation)
}

// Validate checks the allocation settings and amount widths.
func (a AllocationState) Validate() error {
	if err := ValidateAllocationPCT(a.LoanAllocationPCT, a.OptionAllocationPCT); err != nil {
		return err
	}
	if err := ValidateTermAndFrequency(a.CurrentLoanTermLength, a.CurrentOptionPurchaseFreq); err != nil {
		return err
	}
	if err := utils.AssertUint104(a.LoanAllocation); err != nil {
		return fmt.Errorf("loan allocation: %w", err)
	}
	if err := utils.AssertUint104(a.OptionAllocation); err != nil {
		return fmt.Errorf("option allocation: %w", err)
	}
	return nil
}

// PurchasesPerTerm returns how many option purchases fit in the current term.
func (a AllocationState) PurchasesPerTerm() uint64 {
	if a.CurrentOptionPurchaseFreq == 0 {
		return 0
	}
	return a.CurrentLoanTermLength / a.CurrentOptionPurchaseFreq
}

// Recompute applies any staged term length and purchase frequency, then splits
// locked between the loan and a single option purchase:
//
//	loan   = locked * loanPCT / TotalPCT
//	option = (locked - loan) / (term / frequency)
//
// The division by purchases per term floors, so any remainder stays idle in
// the vault until the next rollover.
func (a *AllocationState) Recompute(locked math.Int) error {
	if a.NextLoanTermLength != 0 {
		a.CurrentLoanTermLength = a.NextLoanTermLength
		a.NextLoanTermLength = 0
	}
	if a.NextOptionPurchaseFreq != 0 {
		a.CurrentOptionPurchaseFreq = a.NextOptionPurchaseFreq
		a.NextOptionPurchaseFreq = 0
	}

	purchases := a.PurchasesPerTerm()
	if purchases == 0 {
		return errors.Wrapf(ErrInvalidParams, "no option purchases fit in term %ds at frequency %ds",
			a.CurrentLoanTermLength, a.CurrentOptionPurchaseFreq)
	}

	loan := locked.MulRaw(int64(a.LoanAllocationPCT)).QuoRaw(interest.TotalPCT)
	option := locked.Sub(loan).Quo(math.NewIntFromUint64(purchases))

	if err := utils.AssertUint104(loan); err != nil {
		return errors.Wrapf(ErrOverflow, "loan allocation: %s", err)
	}
	if err := utils.AssertUint104(option); err != nil {
		return errors.Wrapf(ErrOverflow, "option allocation: %s", err)
	}

	a.LoanAllocation = loan
	a.OptionAllocation = option
	return nil
}

// ValidateAllocationPCT ensures the loan and option shares do not exceed 100%.
func ValidateAllocationPCT(loanPCT, optionPCT uint32) error {
	if uint64(loanPCT)+uint64(optionPCT) > interest.TotalPCT {
		return errors.Wrapf(ErrInvalidParams, "allocation %d + %d exceeds %d", loanPCT, optionPCT, interest.TotalPCT)
	}
	return nil
}

// ValidateTermAndFrequency ensures at least one option purchase fits in a term.
func ValidateTermAndFrequency(term, freq uint64) error {
	if term == 0 {
		return errors.Wrap(ErrInvalidParams, "loan term length must be positive")
	}
	if freq == 0 {
		return errors.Wrap(ErrInvalidParams, "option purchase frequency must be positive")
	}
	if freq > term {
		return errors.Wrapf(ErrInvalidParams, "option purchase frequency %d exceeds loan term %d", freq, term)
	}
	return nil
}

// DepositReceipt records an account's deposits and unredeemed shares.
//
// Amount is only meaningful for the receipt's round: once that round closes
// it is converted into shares at the round's price the next time the receipt
// is touched.
type DepositReceipt struct {
	Round            uint16   `json:"round"`
	Amount           math.Int `json:"amount"`
	UnredeemedShares math.Int `json:"unredeemed_shares"`
}

// NewDepositReceipt returns an empty receipt.
func NewDepositReceipt() DepositReceipt {
	return DepositReceipt{Amount: math.ZeroInt(), UnredeemedShares: math.ZeroInt()}
}

// Normalize replaces unset amounts with zero.
func (r *DepositReceipt) Normalize() {
	normalizeInt(&r.Amount)
	normalizeInt(&r.UnredeemedShares)
}

// IsEmpty reports whether the receipt holds neither a deposit nor shares.
func (r DepositReceipt) IsEmpty() bool {
	return !r.Amount.IsPositive() && !r.UnredeemedShares.IsPositive()
}

// NeedsConversion reports whether the receipt's deposit belongs to a closed
// round and must be converted at that round's price.
func (r DepositReceipt) NeedsConversion(currentRound uint16) bool {
	return r.Round > 0 && r.Round < currentRound
}

// SharesFromReceipt returns the shares an account can redeem. A deposit made
// in a closed round converts at that round's price per share and adds to the
// stored unredeemed shares; a deposit in the open round has no shares yet.
func (r DepositReceipt) SharesFromReceipt(currentRound uint16, assetPerShare math.Int, decimals uint32) (math.Int, error) {
	if !r.NeedsConversion(currentRound) {
		return r.UnredeemedShares, nil
	}
	shares, err := utils.AssetToShares(r.Amount, assetPerShare, decimals)
	if err != nil {
		return math.Int{}, fmt.Errorf("converting receipt of round %d: %w", r.Round, err)
	}
	return r.UnredeemedShares.Add(shares), nil
}

// Validate checks the storage widths of the receipt.
func (r DepositReceipt) Validate() error {
	if err := utils.AssertUint104(r.Amount); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if err := utils.AssertUint128(r.UnredeemedShares); err != nil {
		return fmt.Errorf("unredeemed shares: %w", err)
	}
	return nil
}

// Withdrawal is an account's queued withdrawal. Round is fixed while Shares
// is positive; completion zeroes Shares and leaves Round in place.
type Withdrawal struct {
	Round  uint16   `json:"round"`
	Shares math.Int `json:"shares"`
}

// NewWithdrawal returns an empty withdrawal.
func NewWithdrawal() Withdrawal {
	return Withdrawal{Shares: math.ZeroInt()}
}

// Normalize replaces unset amounts with zero.
func (w *Withdrawal) Normalize() {
	normalizeInt(&w.Shares)
}

// IsActive reports whether the withdrawal still holds escrowed shares.
func (w Withdrawal) IsActive() bool {
	return w.Shares.IsPositive()
}

// Validate checks the storage width of the withdrawal.
func (w Withdrawal) Validate() error {
	if err := utils.AssertUint128(w.Shares); err != nil {
		return fmt.Errorf("shares: %w", err)
	}
	return nil
}

// PendingCounterparty is a staged borrower or option seller change.
type PendingCounterparty struct {
	Address  string `json:"address"`
	StagedAt int64  `json:"staged_at"`
}

// CommittableAt returns the earliest unix time the change may be committed.
func (p PendingCounterparty) CommittableAt() int64 {
	return p.StagedAt + int64(CounterpartyTimelock.Seconds())
}

func normalizeInt(i *math.Int) {
	if i.IsNil() {
		*i = math.ZeroInt()
	}
}
