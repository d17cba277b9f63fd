/*

This file contains the closed-form impermanent loss approximation used for
every metric snapshot. Pure math, no side effects.

*/

package calculator

import "math"

// ImpermanentLoss calculates the percentage impermanent loss of a two-asset
// position relative to simply holding, using the simplified closed form
//
//	IL = (2 * sqrt(r) / (1 + r)) - 1, r = currentRatio / initialRatio
//
// expressed as a percentage. The result is <= 0 for any r != 1 and exactly 0
// at r = 1. A zero initial ratio or a negative r is a domain guard, not an
// error: the function returns 0.0 so the caller can still record a partial
// snapshot.
func ImpermanentLoss(initialRatio, currentRatio float64) float64 {
	if initialRatio == 0 {
		return 0.0
	}

	priceRatio := currentRatio / initialRatio
	if priceRatio < 0 {
		return 0.0
	}

	il := (2*math.Sqrt(priceRatio))/(1+priceRatio) - 1
	return il * 100
}
