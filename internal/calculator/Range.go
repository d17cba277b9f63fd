package calculator

// NormalizePriceBounds orders a pair of boundary prices. Source feeds are
// not guaranteed to deliver them ordered (inverted pairs flip the bounds),
// so every ingestion path runs through this before persisting.
func NormalizePriceBounds(lower, upper float64) (float64, float64) {
	if lower > upper {
		return upper, lower
	}
	return lower, upper
}

// InRange reports whether the current price sits inside the inclusive
// [lower, upper] interval. Callers must pass normalized bounds.
func InRange(lower, upper, current float64) bool {
	return lower <= current && current <= upper
}
