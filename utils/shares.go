package utils

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// Codespace for share math failures. These are registered separately from the
// module errors so the pure math package has no dependency on types.
const Codespace = "sharemath"

var (
	ErrInvalidPricePerShare = errorsmod.Register(Codespace, 2, "invalid price per share")
	ErrOverflow             = errorsmod.Register(Codespace, 3, "value exceeds storage width")
	ErrNegative             = errorsmod.Register(Codespace, 4, "negative value not allowed")
	ErrUnderflow            = errorsmod.Register(Codespace, 5, "subtraction underflow")
	ErrDivisionByZero       = errorsmod.Register(Codespace, 6, "division by zero")
)

// Storage widths of the persisted amounts.
const (
	Uint16Bits  = 16
	Uint104Bits = 104
	Uint128Bits = 128

	// MaxDecimals bounds the price-per-share precision so that
	// shares(u128) * pricePerShare always fits in math.Int.
	MaxDecimals = 36
)

// SingleShare returns 10^decimals, the fixed-point representation of 1.0.
func SingleShare(decimals uint32) math.Int {
	return math.NewIntWithDecimal(1, int(decimals))
}

// SharesToAsset converts a share count into asset units at the given price:
//
//	assets = shares * pricePerShare / 10^decimals
func SharesToAsset(shares, pricePerShare math.Int, decimals uint32) (math.Int, error) {
	if err := requireNonNegative(shares, pricePerShare); err != nil {
		return math.Int{}, err
	}
	if decimals > MaxDecimals {
		return math.Int{}, fmt.Errorf("decimals %d exceeds maximum %d", decimals, MaxDecimals)
	}
	return MulDiv(shares, pricePerShare, SingleShare(decimals))
}

// AssetToShares converts an asset amount into shares at the given price:
//
//	shares = assets * 10^decimals / pricePerShare
//
// A non-positive price is a fatal precondition failure, never a silent zero.
func AssetToShares(assets, pricePerShare math.Int, decimals uint32) (math.Int, error) {
	if pricePerShare.IsNil() || !pricePerShare.IsPositive() {
		return math.Int{}, errorsmod.Wrapf(ErrInvalidPricePerShare, "price per share must be positive, got %s", pricePerShare)
	}
	if err := requireNonNegative(assets); err != nil {
		return math.Int{}, err
	}
	if decimals > MaxDecimals {
		return math.Int{}, fmt.Errorf("decimals %d exceeds maximum %d", decimals, MaxDecimals)
	}
	return MulDiv(assets, SingleShare(decimals), pricePerShare)
}

// PricePerShare returns the asset value of one share, fixed to decimals.
//
// With no shares outstanding the price is exactly 1.0 (10^decimals). Otherwise
// pending deposits are excluded so that they neither dilute nor inflate the
// shares already outstanding:
//
//	pps = (totalBalance - pendingAmount) * 10^decimals / totalSupply
func PricePerShare(totalSupply, totalBalance, pendingAmount math.Int, decimals uint32) (math.Int, error) {
	if err := requireNonNegative(totalSupply, totalBalance, pendingAmount); err != nil {
		return math.Int{}, err
	}
	if decimals > MaxDecimals {
		return math.Int{}, fmt.Errorf("decimals %d exceeds maximum %d", decimals, MaxDecimals)
	}

	single := SingleShare(decimals)
	if totalSupply.IsZero() {
		return single, nil
	}

	net, err := SafeSub(totalBalance, pendingAmount)
	if err != nil {
		return math.Int{}, errorsmod.Wrap(err, "pending amount exceeds total balance")
	}
	return MulDiv(net, single, totalSupply)
}

// MulDiv returns floor(a * b / c) and fails on a zero divisor or an
// intermediate product wider than math.Int allows.
func MulDiv(a, b, c math.Int) (math.Int, error) {
	if c.IsNil() || c.IsZero() {
		return math.Int{}, ErrDivisionByZero
	}
	product, err := a.SafeMul(b)
	if err != nil {
		return math.Int{}, errorsmod.Wrapf(ErrOverflow, "%s * %s: %s", a, b, err)
	}
	return product.Quo(c), nil
}

// SafeSub returns a - b and fails when the result would be negative.
func SafeSub(a, b math.Int) (math.Int, error) {
	if a.LT(b) {
		return math.Int{}, errorsmod.Wrapf(ErrUnderflow, "%s - %s", a, b)
	}
	return a.Sub(b), nil
}

// SubFloor returns max(0, a - b).
func SubFloor(a, b math.Int) math.Int {
	if a.GT(b) {
		return a.Sub(b)
	}
	return math.ZeroInt()
}

// AssertUint16 fails when x does not fit in 16 bits.
func AssertUint16(x math.Int) error { return AssertWidth(x, Uint16Bits) }

// AssertUint104 fails when x does not fit in 104 bits.
func AssertUint104(x math.Int) error { return AssertWidth(x, Uint104Bits) }

// AssertUint128 fails when x does not fit in 128 bits.
func AssertUint128(x math.Int) error { return AssertWidth(x, Uint128Bits) }

// AssertWidth fails when x is nil, negative, or wider than bits. A value that
// outgrows its storage width signals an accounting bug and is never truncated.
func AssertWidth(x math.Int, bits int) error {
	if x.IsNil() {
		return errorsmod.Wrap(ErrNegative, "nil amount")
	}
	if x.IsNegative() {
		return errorsmod.Wrapf(ErrNegative, "%s", x)
	}
	if x.BigInt().BitLen() > bits {
		return errorsmod.Wrapf(ErrOverflow, "%s does not fit in uint%d", x, bits)
	}
	return nil
}

func requireNonNegative(values ...math.Int) error {
	for _, v := range values {
		if v.IsNil() || v.IsNegative() {
			return errorsmod.Wrapf(ErrNegative, "invalid input: %s", v)
		}
	}
	return nil
}
