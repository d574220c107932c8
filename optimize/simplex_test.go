package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadratic is a deterministic test objective with a single maximum of 0
// at (3, -1).
type quadratic struct {
	x, y       float64
	parameters FloatParameters
}

func newQuadratic(x, y float64) *quadratic {
	q := &quadratic{x: x, y: y}
	px := NewBasicFloatParameter(&q.x, "x")
	px.SetMin(-100)
	px.SetMax(100)
	py := NewBasicFloatParameter(&q.y, "y")
	py.SetMin(-100)
	py.SetMax(100)
	q.parameters.Append(px)
	q.parameters.Append(py)
	return q
}

func (q *quadratic) GetFloatParameters() FloatParameters {
	return q.parameters
}

func (q *quadratic) Copy() Optimizable {
	return newQuadratic(q.x, q.y)
}

func (q *quadratic) Likelihood() float64 {
	return -((q.x-3)*(q.x-3) + (q.y+1)*(q.y+1))
}

func TestSimplexQuadratic(t *testing.T) {
	starts := [][2]float64{{0, 0}, {-10, 5}, {20, -20}}
	for _, start := range starts {
		ds := NewDS()
		ds.Quiet = true
		ds.Tol = 1e-10
		ds.SetOptimizable(newQuadratic(start[0], start[1]))
		require.NoError(t, ds.Run(10000))

		s := ds.Summary()
		assert.True(t, s.Converged, "start %v", start)
		assert.InDelta(t, 0, ds.GetMaxL(), 1e-4, "start %v", start)
		par := ds.GetMaxLParameters()
		require.Len(t, par, 2)
		assert.InDelta(t, 3, par[0], 1e-2, "start %v", start)
		assert.InDelta(t, -1, par[1], 1e-2, "start %v", start)
	}
}

func TestSimplexBudgetExhausted(t *testing.T) {
	ds := NewDS()
	ds.Quiet = true
	ds.Tol = 0 // unattainable
	ds.SetOptimizable(newQuadratic(0, 0))
	require.NoError(t, ds.Run(20))

	s := ds.Summary()
	assert.False(t, s.Converged)
	assert.False(t, math.IsInf(s.MaxL, -1))
}

func TestSimplexRespectsBounds(t *testing.T) {
	q := newQuadratic(0, 0)
	// Constrain x away from the unconstrained optimum.
	q.parameters[0].SetMax(2)
	ds := NewDS()
	ds.Quiet = true
	ds.SetOptimizable(q)
	require.NoError(t, ds.Run(10000))

	par := ds.GetMaxLParameters()
	require.Len(t, par, 2)
	assert.LessOrEqual(t, par[0], 2.0)
	assert.InDelta(t, -1, par[1], 0.05)
}
