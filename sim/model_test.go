package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEvaluator records the parameter sets it is asked to evaluate and
// answers from a caller-supplied function.
type stubEvaluator struct {
	mu       sync.Mutex
	requests []ParameterSet
	answer   func(ParameterSet) (ParameterSet, error)
}

func (s *stubEvaluator) Evaluate(ctx context.Context, p ParameterSet) (ParameterSet, error) {
	s.mu.Lock()
	s.requests = append(s.requests, p)
	s.mu.Unlock()
	return s.answer(p)
}

func (s *stubEvaluator) last() ParameterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func echo(likelihood float64) func(ParameterSet) (ParameterSet, error) {
	return func(p ParameterSet) (ParameterSet, error) {
		p.Likelihood = likelihood
		return p, nil
	}
}

func TestModelAt(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{answer: echo(0.5)}
	start := ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7}
	m := NewModel(context.Background(), ev, cfg, FixedOmega, 0.02, start)

	p := m.At(nil)
	assert.Equal(t, 0.02, p.Omega)
	assert.InDelta(t, 1.5, p.Sigma, 1e-9)
	assert.Equal(t, 7, p.Npop)

	// Rate below the floor is clamped, fractional npop is rounded.
	p = m.At([]float64{-200, 6.6})
	assert.Equal(t, MinRate, p.Sigma)
	assert.Equal(t, 7, p.Npop)

	// Npop cannot leave [1, nu].
	p = m.At([]float64{0, 55})
	assert.Equal(t, cfg.Nu, p.Npop)
	p = m.At([]float64{0, -3})
	assert.Equal(t, 1, p.Npop)
}

func TestModelFixedSigma(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{answer: echo(0.5)}
	start := ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7}
	m := NewModel(context.Background(), ev, cfg, FixedSigma, 1.5, start)

	p := m.At([]float64{math.Log(0.04), 3})
	assert.Equal(t, 1.5, p.Sigma)
	assert.InDelta(t, 0.04, p.Omega, 1e-9)

	names := m.GetFloatParameters().Names()
	require.Len(t, names, 2)
	assert.Equal(t, "logomega", names[0])
	assert.Equal(t, "npop", names[1])
}

func TestModelLikelihood(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{answer: echo(0.8)}
	start := ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7}
	m := NewModel(context.Background(), ev, cfg, FixedOmega, 0.02, start)

	l := m.Likelihood()
	assert.InDelta(t, 0.8, l, 1e-9)
	assert.Equal(t, 7, ev.last().Npop)
	assert.Equal(t, 0.8, m.Best().Likelihood)
	require.NoError(t, m.Err())
}

func TestModelUnusableResult(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{answer: func(p ParameterSet) (ParameterSet, error) {
		p.Npop = 0
		p.Likelihood = 0.9
		return p, nil
	}}
	m := NewModel(context.Background(), ev, cfg, FixedOmega, 0.02,
		ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7})

	assert.True(t, math.IsInf(m.Likelihood(), -1))
	require.NoError(t, m.Err())
	assert.Equal(t, ParameterSet{}, m.Best())
}

func TestModelEvaluatorError(t *testing.T) {
	cfg := testConfig()
	broken := errors.New("simulator crashed")
	ev := &stubEvaluator{answer: func(p ParameterSet) (ParameterSet, error) {
		return ParameterSet{}, broken
	}}
	m := NewModel(context.Background(), ev, cfg, FixedOmega, 0.02,
		ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7})

	assert.True(t, math.IsInf(m.Likelihood(), -1))
	assert.ErrorIs(t, m.Err(), broken)
}

func TestModelCopy(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{answer: echo(0.5)}
	m := NewModel(context.Background(), ev, cfg, FixedOmega, 0.02,
		ParameterSet{Omega: 0.02, Sigma: 1.5, Npop: 7})

	c := m.Copy()
	// The copy owns its parameter storage.
	c.GetFloatParameters().SetValues([]float64{math.Log(3), 2})
	assert.InDelta(t, 1.5, m.At(nil).Sigma, 1e-9)
	assert.InDelta(t, 3, c.(*Model).At(nil).Sigma, 1e-9)
}
