/*

This file contains the blended real yield calculation: annualized fee yield
plus annualized impermanent loss.

*/

package calculator

import "time"

const secondsPerDay = 86400.0

// RealAPR blends the annualized fee yield of a position with its annualized
// impermanent loss, both linearly extrapolated from the position's age.
// Returns 0.0 when liquidityUSD is zero or the age is not positive (clock
// skew can report creation in the future).
//
// The additive blend is a deliberate simplification: ilPercent is a
// point-in-time unrealized figure and dividing by a small ageDays can
// produce extreme values for very young positions. That behavior is part of
// the contract, not something to clamp here.
func RealAPR(feesUSD, liquidityUSD float64, createdAt, now time.Time, ilPercent float64) float64 {
	if liquidityUSD == 0 {
		return 0.0
	}

	ageSeconds := now.Sub(createdAt).Seconds()
	if ageSeconds <= 0 {
		return 0.0
	}

	ageDays := ageSeconds / secondsPerDay

	annualizedFees := (feesUSD / ageDays) * 365
	feeAPR := annualizedFees / liquidityUSD * 100

	annualizedIL := ilPercent / ageDays * 365

	return feeAPR + annualizedIL
}
