package sim

import (
	"context"
	"math"

	"bitbucket.org/ecotype/ecosim/optimize"
)

// MinRate is the smallest rate value the simulator accepts; free rates
// are clamped to it before every evaluation.
const MinRate = 1e-7

// MaxRate bounds the free rate search space from above.
const MaxRate = 100

// FixedParameter names the rate held constant during one optimization.
type FixedParameter int

const (
	FixedOmega FixedParameter = iota
	FixedSigma
)

func (f FixedParameter) String() string {
	if f == FixedOmega {
		return "omega"
	}
	return "sigma"
}

// Model is the likelihood model the simplex optimizer drives. One rate
// parameter (omega or sigma) is held fixed; the free dimensions are the
// log of the other rate and npop. Npop is kept as a real internally and
// rounded and clamped to [1, nu] before every evaluation.
type Model struct {
	ev    Evaluator
	cfg   *Config
	ctx   context.Context
	fixed FixedParameter
	value float64

	logRate    float64
	npop       float64
	parameters optimize.FloatParameters

	best ParameterSet
	err  error
}

// NewModel creates a model with the given rate fixed and the free
// parameters seeded from start.
func NewModel(ctx context.Context, ev Evaluator, cfg *Config, fixed FixedParameter, value float64, start ParameterSet) *Model {
	m := &Model{
		ev:    ev,
		cfg:   cfg,
		ctx:   ctx,
		fixed: fixed,
		value: value,
	}
	rate := start.Sigma
	name := "logsigma"
	if fixed == FixedSigma {
		rate = start.Omega
		name = "logomega"
	}
	m.logRate = math.Log(math.Max(rate, MinRate))
	m.npop = float64(start.Npop)
	m.setupParameters(name)
	return m
}

func (m *Model) setupParameters(rateName string) {
	rate := optimize.NewBasicFloatParameter(&m.logRate, rateName)
	rate.SetMin(math.Log(MinRate))
	rate.SetMax(math.Log(MaxRate))
	npop := optimize.NewBasicFloatParameter(&m.npop, "npop")
	npop.SetMin(1)
	npop.SetMax(float64(m.cfg.Nu))
	m.parameters = nil
	m.parameters.Append(rate)
	m.parameters.Append(npop)
}

// GetFloatParameters implements optimize.Optimizable.
func (m *Model) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// Copy implements optimize.Optimizable. The copy shares the evaluator
// and configuration but has its own parameter storage.
func (m *Model) Copy() optimize.Optimizable {
	c := &Model{
		ev:      m.ev,
		cfg:     m.cfg,
		ctx:     m.ctx,
		fixed:   m.fixed,
		value:   m.value,
		logRate: m.logRate,
		npop:    m.npop,
	}
	name := "logsigma"
	if m.fixed == FixedSigma {
		name = "logomega"
	}
	c.setupParameters(name)
	return c
}

// At maps free parameter values (log rate, npop) to a full parameter
// set, applying the evaluation clamps.
func (m *Model) At(values []float64) ParameterSet {
	logRate, npop := m.logRate, m.npop
	if len(values) == 2 {
		logRate, npop = values[0], values[1]
	}
	rate := math.Max(math.Exp(logRate), MinRate)
	n := int(math.Round(npop))
	if n < 1 {
		n = 1
	}
	if n > m.cfg.Nu {
		n = m.cfg.Nu
	}
	p := ParameterSet{Npop: n}
	if m.fixed == FixedOmega {
		p.Omega = m.value
		p.Sigma = rate
	} else {
		p.Sigma = m.value
		p.Omega = rate
	}
	return p
}

// Likelihood implements optimize.Optimizable. Oracle failures are
// recorded and surface through Err; unusable simulator results score
// -Inf so the simplex moves away from them.
func (m *Model) Likelihood() float64 {
	p := m.At(nil)
	result, err := m.ev.Evaluate(m.ctx, p)
	if err != nil {
		if m.err == nil {
			m.err = err
		}
		return math.Inf(-1)
	}
	if !result.Usable() {
		log.Debugf("no usable result for %v", p)
		return math.Inf(-1)
	}
	if result.Better(m.best) {
		m.best = result
	}
	return result.Likelihood
}

// Err returns the first oracle failure seen, if any.
func (m *Model) Err() error {
	return m.err
}

// Best returns the most likely parameter set this model instance has
// evaluated.
func (m *Model) Best() ParameterSet {
	return m.best
}
