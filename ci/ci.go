// Package ci computes profile-likelihood confidence intervals. One
// parameter is fixed at trial values walking outward from the point
// estimate while the remaining parameters are re-optimized; the interval
// ends where the best attainable likelihood falls below a threshold.
package ci

import (
	"context"
	"fmt"
	"math"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/ecotype/ecosim/sim"
)

var log = logging.MustGetLogger("ci")

// Bound is one endpoint of a confidence interval. Open means the search
// exhausted its configured range without the likelihood crossing the
// threshold, so the true bound lies beyond Value.
type Bound struct {
	Value      float64 `json:"value"`
	Likelihood float64 `json:"likelihood"`
	Open       bool    `json:"open"`
}

// Interval is a two-sided confidence interval for one parameter.
type Interval struct {
	Lower Bound `json:"lower"`
	Upper Bound `json:"upper"`
	// Max is the configured upper search limit, used when the upper
	// bound is reported open.
	Max float64 `json:"max"`
}

// SetLowerResult stores the lower endpoint.
func (iv *Interval) SetLowerResult(value, likelihood float64) {
	iv.Lower.Value = value
	iv.Lower.Likelihood = likelihood
}

// SetUpperResult stores the upper endpoint.
func (iv *Interval) SetUpperResult(value, likelihood float64) {
	iv.Upper.Value = value
	iv.Upper.Likelihood = likelihood
}

func (iv Interval) String() string {
	high := fmt.Sprintf("%.4g", iv.Upper.Value)
	if iv.Upper.Open {
		high = fmt.Sprintf(">%g", iv.Max)
	}
	return fmt.Sprintf("%.4g to %s (%.4g, %.4g)",
		iv.Lower.Value, high, iv.Lower.Likelihood, iv.Upper.Likelihood)
}

// Objective re-optimizes the free parameters with one parameter held at
// fixed and returns the best parameter set found.
type Objective func(ctx context.Context, fixed float64) (sim.ParameterSet, error)

// Search describes one confidence-interval computation. Trial values
// are log-spaced: Steps increments cover [Min, Max] with a constant
// ratio, and each direction walks outward from the point estimate one
// increment at a time.
type Search struct {
	Min, Max  float64
	Steps     int
	Threshold float64
	Optimize  Objective
}

// factor is the multiplicative grid increment.
func (s *Search) factor() float64 {
	if s.Steps < 1 {
		return s.Max / s.Min
	}
	return math.Pow(s.Max/s.Min, 1/float64(s.Steps))
}

// Run performs the lower and upper searches concurrently starting from
// the estimate's value of the searched parameter.
func (s *Search) Run(ctx context.Context, start float64) (Interval, error) {
	iv := Interval{Max: s.Max}
	g, ctx := errgroup.WithContext(ctx)
	var lower, upper Bound
	g.Go(func() (err error) {
		lower, err = s.walk(ctx, start, false)
		return err
	})
	g.Go(func() (err error) {
		upper, err = s.walk(ctx, start, true)
		return err
	})
	err := g.Wait()
	iv.Lower = lower
	iv.Upper = upper
	return iv, err
}

// walk moves outward from start one grid increment at a time. It stops
// at the first trial value whose re-optimized likelihood falls below the
// threshold; that value and its likelihood form the bound. Leaving
// [Min, Max] without crossing produces an open bound at the range limit.
func (s *Search) walk(ctx context.Context, start float64, up bool) (Bound, error) {
	factor := s.factor()
	value := start
	last := Bound{Value: start}
	for {
		if up {
			value *= factor
			if value > s.Max {
				return Bound{Value: s.Max, Likelihood: last.Likelihood, Open: true}, nil
			}
		} else {
			value /= factor
			if value < s.Min {
				return Bound{Value: s.Min, Likelihood: last.Likelihood, Open: true}, nil
			}
		}
		p, err := s.Optimize(ctx, value)
		if err != nil {
			return last, err
		}
		log.Debugf("ci trial value=%g likelihood=%g", value, p.Likelihood)
		if p.Likelihood < s.Threshold {
			return Bound{Value: value, Likelihood: p.Likelihood}, nil
		}
		last = Bound{Value: value, Likelihood: p.Likelihood}
	}
}
