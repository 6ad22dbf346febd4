package types

import (
	"strconv"

	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	EventTypeDeposit               = "deposit"
	EventTypeInstantWithdraw       = "instant_withdraw"
	EventTypeRedeem                = "redeem"
	EventTypeInitiateWithdraw      = "initiate_withdraw"
	EventTypeWithdraw              = "withdraw"
	EventTypeRollover              = "rollover"
	EventTypeCollectVaultFees      = "collect_vault_fees"
	EventTypeOpenLoan              = "open_loan"
	EventTypeCloseLoan             = "close_loan"
	EventTypePurchaseOption        = "purchase_option"
	EventTypePayOptionYield        = "pay_option_yield"
	EventTypeParamSet              = "param_set"
	EventTypeCounterpartyStaged    = "counterparty_staged"
	EventTypeCounterpartyCommitted = "counterparty_committed"
	EventTypeVaultInitialized      = "vault_initialized"

	AttributeKeyAccount        = "account"
	AttributeKeyCaller         = "caller"
	AttributeKeyAmount         = "amount"
	AttributeKeyShares         = "shares"
	AttributeKeyRound          = "round"
	AttributeKeyPricePerShare  = "price_per_share"
	AttributeKeyMintedShares   = "minted_shares"
	AttributeKeyLockedAmount   = "locked_amount"
	AttributeKeyQueuedAmount   = "queued_withdraw_amount"
	AttributeKeyPerformance    = "performance_fee"
	AttributeKeyManagement     = "management_fee"
	AttributeKeyRecipient      = "recipient"
	AttributeKeyYield          = "yield"
	AttributeKeyYieldPercent   = "yield_percent"
	AttributeKeyAnnualizedRate = "annualized_rate"
	AttributeKeyRole           = "role"
	AttributeKeyParam          = "param"
	AttributeKeyOldValue       = "old_value"
	AttributeKeyNewValue       = "new_value"
	AttributeKeyCommittableAt  = "committable_at"
)

func roundAttr(round uint16) sdk.Attribute {
	return sdk.NewAttribute(AttributeKeyRound, strconv.FormatUint(uint64(round), 10))
}

// NewEventDeposit creates a deposit event credited to creditor.
func NewEventDeposit(creditor string, amount sdkmath.Int, round uint16) sdk.Event {
	return sdk.NewEvent(EventTypeDeposit,
		sdk.NewAttribute(AttributeKeyAccount, creditor),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
		roundAttr(round),
	)
}

// NewEventInstantWithdraw creates an instant withdraw event.
func NewEventInstantWithdraw(account string, amount sdkmath.Int, round uint16) sdk.Event {
	return sdk.NewEvent(EventTypeInstantWithdraw,
		sdk.NewAttribute(AttributeKeyAccount, account),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
		roundAttr(round),
	)
}

// NewEventRedeem creates a redeem event.
func NewEventRedeem(account string, shares sdkmath.Int, receiptRound uint16) sdk.Event {
	return sdk.NewEvent(EventTypeRedeem,
		sdk.NewAttribute(AttributeKeyAccount, account),
		sdk.NewAttribute(AttributeKeyShares, shares.String()),
		roundAttr(receiptRound),
	)
}

// NewEventInitiateWithdraw creates an initiate withdraw event.
func NewEventInitiateWithdraw(account string, shares sdkmath.Int, round uint16) sdk.Event {
	return sdk.NewEvent(EventTypeInitiateWithdraw,
		sdk.NewAttribute(AttributeKeyAccount, account),
		sdk.NewAttribute(AttributeKeyShares, shares.String()),
		roundAttr(round),
	)
}

// NewEventWithdraw creates a completed withdraw event.
func NewEventWithdraw(account string, amount, shares sdkmath.Int) sdk.Event {
	return sdk.NewEvent(EventTypeWithdraw,
		sdk.NewAttribute(AttributeKeyAccount, account),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
		sdk.NewAttribute(AttributeKeyShares, shares.String()),
	)
}

// NewEventRollover creates a rollover event for the closed round.
func NewEventRollover(closedRound uint16, pricePerShare, minted, locked, queued sdkmath.Int) sdk.Event {
	return sdk.NewEvent(EventTypeRollover,
		roundAttr(closedRound),
		sdk.NewAttribute(AttributeKeyPricePerShare, pricePerShare.String()),
		sdk.NewAttribute(AttributeKeyMintedShares, minted.String()),
		sdk.NewAttribute(AttributeKeyLockedAmount, locked.String()),
		sdk.NewAttribute(AttributeKeyQueuedAmount, queued.String()),
	)
}

// NewEventCollectVaultFees creates a fee collection event.
func NewEventCollectVaultFees(recipient string, performance, management sdkmath.Int, round uint16) sdk.Event {
	return sdk.NewEvent(EventTypeCollectVaultFees,
		sdk.NewAttribute(AttributeKeyRecipient, recipient),
		sdk.NewAttribute(AttributeKeyPerformance, performance.String()),
		sdk.NewAttribute(AttributeKeyManagement, management.String()),
		roundAttr(round),
	)
}

// NewEventOpenLoan creates a loan transfer event.
func NewEventOpenLoan(borrower string, amount sdkmath.Int) sdk.Event {
	return sdk.NewEvent(EventTypeOpenLoan,
		sdk.NewAttribute(AttributeKeyRecipient, borrower),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
	)
}

// NewEventCloseLoan creates a loan repayment event. annualizedRate is the
// yield over the loan allocation scaled to a year since the round opened.
func NewEventCloseLoan(borrower string, amount, yield, yieldPercent sdkmath.Int, annualizedRate sdkmath.LegacyDec) sdk.Event {
	return sdk.NewEvent(EventTypeCloseLoan,
		sdk.NewAttribute(AttributeKeyCaller, borrower),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
		sdk.NewAttribute(AttributeKeyYield, yield.String()),
		sdk.NewAttribute(AttributeKeyYieldPercent, yieldPercent.String()),
		sdk.NewAttribute(AttributeKeyAnnualizedRate, annualizedRate.String()),
	)
}

// NewEventPurchaseOption creates an option purchase event.
func NewEventPurchaseOption(seller string, amount sdkmath.Int) sdk.Event {
	return sdk.NewEvent(EventTypePurchaseOption,
		sdk.NewAttribute(AttributeKeyRecipient, seller),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
	)
}

// NewEventPayOptionYield creates an option payout event.
func NewEventPayOptionYield(seller string, amount, yield, yieldPercent sdkmath.Int) sdk.Event {
	return sdk.NewEvent(EventTypePayOptionYield,
		sdk.NewAttribute(AttributeKeyCaller, seller),
		sdk.NewAttribute(AttributeKeyAmount, amount.String()),
		sdk.NewAttribute(AttributeKeyYield, yield.String()),
		sdk.NewAttribute(AttributeKeyYieldPercent, yieldPercent.String()),
	)
}

// NewEventParamSet creates an event for an owner setter.
func NewEventParamSet(param, oldValue, newValue string) sdk.Event {
	return sdk.NewEvent(EventTypeParamSet,
		sdk.NewAttribute(AttributeKeyParam, param),
		sdk.NewAttribute(AttributeKeyOldValue, oldValue),
		sdk.NewAttribute(AttributeKeyNewValue, newValue),
	)
}

// NewEventCounterpartyStaged creates an event for a staged counterparty change.
func NewEventCounterpartyStaged(role Role, pending PendingCounterparty) sdk.Event {
	return sdk.NewEvent(EventTypeCounterpartyStaged,
		sdk.NewAttribute(AttributeKeyRole, string(role)),
		sdk.NewAttribute(AttributeKeyNewValue, pending.Address),
		sdk.NewAttribute(AttributeKeyCommittableAt, strconv.FormatInt(pending.CommittableAt(), 10)),
	)
}

// NewEventCounterpartyCommitted creates an event for a committed counterparty change.
func NewEventCounterpartyCommitted(role Role, oldAddress, newAddress string) sdk.Event {
	return sdk.NewEvent(EventTypeCounterpartyCommitted,
		sdk.NewAttribute(AttributeKeyRole, string(role)),
		sdk.NewAttribute(AttributeKeyOldValue, oldAddress),
		sdk.NewAttribute(AttributeKeyNewValue, newAddress),
	)
}

// NewEventVaultInitialized creates the vault initialization event.
func NewEventVaultInitialized(params VaultParams, owner string) sdk.Event {
	return sdk.NewEvent(EventTypeVaultInitialized,
		sdk.NewAttribute(AttributeKeyAccount, owner),
		sdk.NewAttribute(AttributeKeyParam, params.Asset+"/"+params.ShareDenom),
	)
}
