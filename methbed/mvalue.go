package methbed

import "math"

// StabilizedBeta re-estimates the methylated fraction from whole read counts
// with a pseudo-count k added to both the methylated and unmethylated counts.
// For any k > 0 the result lies strictly inside (0, 1).
func StabilizedBeta(beta float64, coverage int, k float64) float64 {
	c := float64(coverage)

	// Ties round to even
	m := math.RoundToEven(c * beta)
	u := c - m

	return (m + k) / ((m + k) + (u + k))
}

// MValue is the logit of the stabilized beta value. It is finite for every
// beta in [0, 1], coverage >= 0, and k > 0.
func MValue(beta float64, coverage int, k float64) float64 {
	s := StabilizedBeta(beta, coverage, k)

	return math.Log(s / (1 - s))
}
