package types

import "cosmossdk.io/errors"

var (
	ErrInvalidRequest       = errors.Register(ModuleName, 2, "invalid request")
	ErrUnauthorized         = errors.Register(ModuleName, 3, "unauthorized")
	ErrInvalidAmount        = errors.Register(ModuleName, 4, "invalid amount")
	ErrCapExceeded          = errors.Register(ModuleName, 5, "exceeds vault cap")
	ErrInsufficientSupply   = errors.Register(ModuleName, 6, "insufficient vault balance")
	ErrRoundNotClosed       = errors.Register(ModuleName, 7, "round not closed")
	ErrWithdrawalExists     = errors.Register(ModuleName, 8, "existing withdrawal in another round")
	ErrNoWithdrawal         = errors.Register(ModuleName, 9, "withdrawal not initiated")
	ErrEpochNotReady        = errors.Register(ModuleName, 10, "epoch has not ended")
	ErrPurchaseTooEarly     = errors.Register(ModuleName, 11, "option purchase too early")
	ErrTimelock             = errors.Register(ModuleName, 12, "timelock not elapsed")
	ErrNoPendingChange      = errors.Register(ModuleName, 13, "no pending change staged")
	ErrOverflow             = errors.Register(ModuleName, 14, "value overflow")
	ErrInvalidPricePerShare = errors.Register(ModuleName, 15, "invalid price per share")
	ErrReentrantCall        = errors.Register(ModuleName, 16, "reentrant call")
	ErrInvariant            = errors.Register(ModuleName, 17, "invariant violated")
	ErrInvalidParams        = errors.Register(ModuleName, 18, "invalid params")
	ErrNotInitialized       = errors.Register(ModuleName, 19, "vault not initialized")
	ErrAlreadyInitialized   = errors.Register(ModuleName, 20, "vault already initialized")
)
