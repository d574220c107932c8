// Package optimize provides derivative-free maximization of a stochastic
// likelihood function over a small set of bounded float parameters. The
// objective is expensive (every call runs a full simulation), so the
// optimizer budgets likelihood evaluations rather than wall time.
package optimize

import (
	"fmt"
	"math"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("optimize")

// Optimizable is a model with a likelihood and float parameters. The
// likelihood may be stochastic; nominally equal parameter vectors can
// yield different values.
type Optimizable interface {
	GetFloatParameters() FloatParameters
	Copy() Optimizable
	Likelihood() float64
}

// Optimizer is a likelihood maximizer.
type Optimizer interface {
	SetOptimizable(Optimizable)
	SetReportPeriod(period int)
	// Run performs at most evaluations likelihood calls. Hitting the
	// cap is not an error; the result is flagged non-converged in the
	// summary.
	Run(evaluations int) error
	GetMaxL() float64
	GetMaxLParameters() []float64
	Summary() Summary
}

// Summary describes one finished optimization.
type Summary struct {
	Converged      bool               `json:"converged"`
	Evaluations    int                `json:"evaluations"`
	MaxL           float64            `json:"maxL"`
	MaxLParameters map[string]float64 `json:"maxLParameters"`
}

// BaseOptimizer contains the bookkeeping shared by optimizers.
type BaseOptimizer struct {
	Optimizable
	i         int
	calls     int
	maxL      float64
	maxLPar   []float64
	converged bool
	repPeriod int
	Quiet     bool
}

func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.maxL = math.Inf(-1)
}

func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

func (o *BaseOptimizer) PrintHeader(parameters FloatParameters) {
	if !o.Quiet {
		fmt.Printf("iteration\tlikelihood\t%s\n", parameters.NamesString())
	}
}

func (o *BaseOptimizer) PrintLine(parameters FloatParameters, l float64) {
	if !o.Quiet {
		fmt.Printf("%d\t%f\t%s\n", o.i, l, parameters.ValuesString())
	}
}

func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

func (o *BaseOptimizer) Summary() Summary {
	s := Summary{
		Converged:   o.converged,
		Evaluations: o.calls,
		MaxL:        o.maxL,
	}
	if o.Optimizable != nil {
		parameters := o.GetFloatParameters()
		s.MaxLParameters = make(map[string]float64, len(parameters))
		for i, name := range parameters.Names() {
			if i < len(o.maxLPar) {
				s.MaxLParameters[name] = o.maxLPar[i]
			}
		}
	}
	return s
}
