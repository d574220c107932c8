package main

import (
	"context"
	"math"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"bitbucket.org/ecotype/ecosim/checkpoint"
	"bitbucket.org/ecotype/ecosim/optimize"
	"bitbucket.org/ecotype/ecosim/sim"
)

// search bundles everything needed to re-optimize the free parameters
// with one rate held fixed. It is shared by the omega scan, the
// hillclimb and the confidence-interval searches.
type search struct {
	cfg     *sim.Config
	ev      sim.Evaluator
	simplex SimplexConfig
}

// optimizeFixed runs one downhill simplex with the given rate fixed at
// value, seeded from start. When no simulation at this value produces a
// usable result the returned likelihood is zero.
func (s *search) optimizeFixed(ctx context.Context, fixed sim.FixedParameter, value float64, start sim.ParameterSet) (sim.ParameterSet, error) {
	m := sim.NewModel(ctx, s.ev, s.cfg, fixed, value, start)
	ds := optimize.NewDS()
	ds.Quiet = true
	ds.Tol = s.simplex.Tolerance
	ds.Delta = s.simplex.Delta
	ds.SetOptimizable(m)
	if err := ds.Run(s.simplex.MaxEvaluations); err != nil {
		return m.Best(), err
	}
	p := m.At(ds.GetMaxLParameters())
	if l := ds.GetMaxL(); !math.IsInf(l, -1) {
		p.Likelihood = l
	}
	return p, nil
}

// refine polishes the best grid point with one more simplex run seeded
// from it.
func (s *search) refine(ctx context.Context, best sim.ParameterSet) (sim.ParameterSet, error) {
	p, err := s.optimizeFixed(ctx, sim.FixedOmega, best.Omega, best)
	if err != nil {
		return best, err
	}
	if p.Better(best) {
		return p, nil
	}
	return best, nil
}

// runScan optimizes every omega grid point concurrently and returns the
// best parameter set found. Grid points recorded in the checkpoint are
// skipped; the first failure cancels the in-flight evaluations.
func (s *search) runScan(ctx context.Context, conf *Config, ckp *checkpoint.IO, estimate sim.ParameterSet) (sim.ParameterSet, error) {
	state := &checkpoint.ScanData{Done: map[string]sim.ParameterSet{}}
	if ckp != nil {
		saved, err := ckp.Load()
		if err != nil {
			return sim.ParameterSet{}, err
		}
		if saved != nil {
			state = saved
		}
	}
	if state.Final {
		log.Notice("Scan already finished, reusing checkpoint")
		return state.Best, nil
	}

	// Decide what is left to do before any worker touches the state.
	var pending []float64
	for _, omega := range grid(conf.Scan) {
		if _, done := state.Done[strconv.FormatFloat(omega, 'g', -1, 64)]; done {
			log.Debugf("skipping checkpointed omega=%g", omega)
			continue
		}
		pending = append(pending, omega)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	if conf.Workers > 0 {
		g.SetLimit(conf.Workers)
	}
	for _, omega := range pending {
		omega := omega
		key := strconv.FormatFloat(omega, 'g', -1, 64)
		g.Go(func() error {
			p, err := s.optimizeFixed(ctx, sim.FixedOmega, omega, estimate)
			if err != nil {
				return err
			}
			log.Infof("scan omega=%g: %v", omega, p)
			mu.Lock()
			defer mu.Unlock()
			state.Done[key] = p
			if p.Better(state.Best) {
				state.Best = p
			}
			if ckp != nil && ckp.Old() {
				ckp.Save(state)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return state.Best, err
	}
	state.Final = true
	if ckp != nil {
		if err := ckp.Save(state); err != nil {
			return state.Best, err
		}
	}
	return state.Best, nil
}

// grid returns the log-spaced values of a grid configuration, endpoints
// included.
func grid(gc GridConfig) []float64 {
	values := make([]float64, 0, gc.Steps+1)
	factor := math.Pow(gc.Max/gc.Min, 1/float64(gc.Steps))
	v := gc.Min
	for i := 0; i <= gc.Steps; i++ {
		values = append(values, v)
		v *= factor
	}
	return values
}
