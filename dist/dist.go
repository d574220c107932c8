// Package dist provides the distribution quantiles behind the
// likelihood-ratio confidence intervals.
package dist

import (
	"math"

	"github.com/gonum/mathext"
)

// QuantileNormal returns z so that Prob{x<z}=prob for a standard normal
// x.
func QuantileNormal(prob float64) float64 {
	return mathext.NormalQuantile(prob)
}

// QuantileChi2 returns z so that Prob{x<z}=prob where x is Chi2
// distributed with one degree of freedom. A Chi2(1) variable is the
// square of a standard normal, so the quantile follows from the normal
// one directly.
func QuantileChi2(prob float64) float64 {
	z := QuantileNormal(0.5 + prob/2)
	return z * z
}

// LikelihoodRatioThreshold returns the likelihood below which a profiled
// parameter value leaves the confidence region. The likelihood-ratio
// statistic 2*(log maxL - log L) is Chi2(1) distributed under the null,
// so the region boundary sits at maxL scaled by exp(-q/2).
func LikelihoodRatioThreshold(maxL, confidence float64) float64 {
	return maxL * math.Exp(-QuantileChi2(confidence)/2)
}
