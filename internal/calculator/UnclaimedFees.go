package calculator

// UnclaimedFeesUSD values the uncollected fee amounts of both pool tokens in
// USD. No guards: non-finite inputs propagate, sanitizing them is the
// caller's responsibility upstream.
func UnclaimedFeesUSD(fee0, fee1, price0USD, price1USD float64) float64 {
	return fee0*price0USD + fee1*price1USD
}
