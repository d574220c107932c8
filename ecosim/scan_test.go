package main

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/ecotype/ecosim/checkpoint"
	"bitbucket.org/ecotype/ecosim/sim"
)

// peakedEvaluator is a deterministic simulator stand-in whose likelihood
// peaks at omega=0.02 regardless of the free parameters.
type peakedEvaluator struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *peakedEvaluator) Evaluate(ctx context.Context, p sim.ParameterSet) (sim.ParameterSet, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail {
		return p, errors.New("simulator gone")
	}
	d := math.Log(p.Omega / 0.02)
	p.Likelihood = math.Exp(-d * d)
	return p, nil
}

func testSearch(ev sim.Evaluator) *search {
	cfg := sim.NewConfig(20, 1000, 42)
	return &search{
		cfg:     cfg,
		ev:      ev,
		simplex: SimplexConfig{Tolerance: 1e-4, MaxEvaluations: 100, Delta: []float64{0.5, 1}},
	}
}

func testScanConfig() *Config {
	c := DefaultConfig()
	c.Workers = 2
	c.Scan = GridConfig{Min: 1e-3, Max: 100, Steps: 20}
	return c
}

func TestGrid(t *testing.T) {
	values := grid(GridConfig{Min: 0.01, Max: 100, Steps: 4})
	require.Len(t, values, 5)
	assert.InDelta(t, 0.01, values[0], 1e-9)
	assert.InDelta(t, 1, values[2], 1e-6)
	assert.InDelta(t, 100, values[4], 1e-4)
}

func TestRunScan(t *testing.T) {
	ev := &peakedEvaluator{}
	s := testSearch(ev)
	conf := testScanConfig()
	est := sim.ParameterSet{Omega: 1, Sigma: 1, Npop: 5}

	best, err := s.runScan(context.Background(), conf, nil, est)
	require.NoError(t, err)
	assert.Greater(t, best.Likelihood, 0.5)
	// The best grid point brackets the peak within one grid increment.
	factor := math.Pow(conf.Scan.Max/conf.Scan.Min, 1/float64(conf.Scan.Steps))
	assert.Greater(t, best.Omega, 0.02/factor)
	assert.Less(t, best.Omega, 0.02*factor)
	assert.Greater(t, ev.calls, 0)
}

func TestRunScanCheckpointResume(t *testing.T) {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "scan.db"), 0644, nil)
	require.NoError(t, err)
	defer db.Close()
	ckp := checkpoint.NewIO(db, []byte("scan"), 30)

	conf := testScanConfig()
	est := sim.ParameterSet{Omega: 1, Sigma: 1, Npop: 5}

	first := testSearch(&peakedEvaluator{})
	best, err := first.runScan(context.Background(), conf, ckp, est)
	require.NoError(t, err)

	// A finished scan is replayed from the checkpoint; the simulator is
	// never called again.
	broken := &peakedEvaluator{fail: true}
	second := testSearch(broken)
	resumed, err := second.runScan(context.Background(), conf, checkpoint.NewIO(db, []byte("scan"), 30), est)
	require.NoError(t, err)
	assert.Equal(t, best, resumed)
	assert.Equal(t, 0, broken.calls)
}

func TestRunScanError(t *testing.T) {
	s := testSearch(&peakedEvaluator{fail: true})
	conf := testScanConfig()
	_, err := s.runScan(context.Background(), conf, nil, sim.ParameterSet{Omega: 1, Sigma: 1, Npop: 5})
	assert.Error(t, err)
}

func TestOptimizeFixed(t *testing.T) {
	s := testSearch(&peakedEvaluator{})
	p, err := s.optimizeFixed(context.Background(), sim.FixedOmega, 0.02,
		sim.ParameterSet{Omega: 0.02, Sigma: 1, Npop: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.02, p.Omega)
	assert.InDelta(t, 1, p.Likelihood, 1e-6)
}
