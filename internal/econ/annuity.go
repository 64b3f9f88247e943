// Package econ holds the capital-cost arithmetic used by the objective.
package econ

import "math"

// AnnuityFactor returns the capital recovery factor for an interest rate i
// and a lifetime of n years: i(1+i)^n / ((1+i)^n - 1).
//
// A zero lifetime returns 1 (the full cost is borne in one year) and a zero
// interest rate returns 1/n.
func AnnuityFactor(i float64, n int) float64 {
	if n == 0 {
		return 1
	}
	if i == 0 {
		return 1 / float64(n)
	}
	g := math.Pow(1+i, float64(n))
	return i * g / (g - 1)
}
