package interest

import (
	"fmt"

	cosmosmath "cosmossdk.io/math"
)

const (
	SecondsPerHour = 3_600
	SecondsPerDay  = 86_400
	SecondsPerYear = 31_536_000

	// FeeMultiplier scales fee percentages: 2% is 2 * FeeMultiplier.
	FeeMultiplier = 1_000_000
	// MaxFee is the exclusive upper bound of a fee, 100%.
	MaxFee = 100 * FeeMultiplier
	// TotalPCT is the basis of allocation percentages: 10000 is 100%.
	TotalPCT = 10_000
	// MonthsPerYear annualizes a loan term's yield percentage.
	MonthsPerYear = 12
)

// Fees holds the fees charged when a round closes.
type Fees struct {
	Performance cosmosmath.Int
	Management  cosmosmath.Int
}

// Total returns the sum of performance and management fees.
func (f Fees) Total() cosmosmath.Int {
	return f.Performance.Add(f.Management)
}

// VaultFees computes the fees owed on the round being closed.
//
// The base is the vault's locked capital excluding pending deposits:
//
//	lockedSansPending = max(0, balanceForFees - pending)
//
// Fees are charged only when the round was profitable, that is when
// lockedSansPending exceeds lastLocked:
//
//	performance = (lockedSansPending - lastLocked) * performanceFee / (100 * 10^6)
//	management  = lockedSansPending * managementFee * termSeconds / (SecondsPerYear * 100 * 10^6)
//
// A losing round is charged nothing.
func VaultFees(balanceForFees, lastLocked, pending cosmosmath.Int, performanceFee, managementFee, termSeconds uint64) (Fees, error) {
	if performanceFee >= MaxFee || managementFee >= MaxFee {
		return Fees{}, fmt.Errorf("fee out of range: performance %d, management %d", performanceFee, managementFee)
	}

	fees := Fees{Performance: cosmosmath.ZeroInt(), Management: cosmosmath.ZeroInt()}

	lockedSansPending := cosmosmath.ZeroInt()
	if balanceForFees.GT(pending) {
		lockedSansPending = balanceForFees.Sub(pending)
	}
	if !lockedSansPending.GT(lastLocked) {
		return fees, nil
	}

	profit := lockedSansPending.Sub(lastLocked)
	fees.Performance = profit.Mul(cosmosmath.NewIntFromUint64(performanceFee)).QuoRaw(MaxFee)
	fees.Management = ManagementFee(lockedSansPending, managementFee, termSeconds)
	return fees, nil
}

// ManagementFee pro-rates an annual management fee over a term of termSeconds.
func ManagementFee(base cosmosmath.Int, managementFee, termSeconds uint64) cosmosmath.Int {
	return base.
		Mul(cosmosmath.NewIntFromUint64(managementFee)).
		Mul(cosmosmath.NewIntFromUint64(termSeconds)).
		Quo(cosmosmath.NewInt(SecondsPerYear).MulRaw(MaxFee))
}

// Yield is the excess of a counterparty payment over the allocation it settles.
type Yield struct {
	Amount cosmosmath.Int
	// Percent is an integer percentage of the allocation.
	Percent cosmosmath.Int
}

// OptionYield returns the option seller's payout excess over the option allocation.
//
//	yield = max(0, amount - allocation)
//	pct   = yield * 100 / allocation
func OptionYield(amount, allocation cosmosmath.Int) Yield {
	return excess(amount, allocation, 1)
}

// LoanYield returns the borrower's repayment excess over the loan allocation
// with the percentage annualized over a monthly term.
//
//	yield = max(0, amount - allocation)
//	pct   = yield * 12 * 100 / allocation
func LoanYield(amount, allocation cosmosmath.Int) Yield {
	return excess(amount, allocation, MonthsPerYear)
}

func excess(amount, allocation cosmosmath.Int, periods int64) Yield {
	y := Yield{Amount: cosmosmath.ZeroInt(), Percent: cosmosmath.ZeroInt()}
	if amount.GT(allocation) {
		y.Amount = amount.Sub(allocation)
	}
	if allocation.IsPositive() {
		y.Percent = y.Amount.MulRaw(periods * 100).Quo(allocation)
	}
	return y
}

// AnnualizedRate returns the simple annual rate implied by growing principal
// by gain over seconds, for reporting only.
func AnnualizedRate(gain, principal cosmosmath.Int, seconds int64) cosmosmath.LegacyDec {
	if !principal.IsPositive() || seconds <= 0 {
		return cosmosmath.LegacyZeroDec()
	}
	// r = (gain / principal) * (SecondsPerYear / seconds)
	r := cosmosmath.LegacyNewDecFromInt(gain).QuoInt(principal)
	return r.MulInt64(SecondsPerYear).QuoInt64(seconds)
}

// EpochStart normalizes a unix timestamp to 08:00 UTC of its day.
func EpochStart(unix int64) int64 {
	return unix - unix%SecondsPerDay + 8*SecondsPerHour
}
