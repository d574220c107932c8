package optimize

import (
	"fmt"
	"math"
)

// Standard Nelder–Mead coefficients: reflection, expansion and
// contraction of the worst vertex through the centroid of the rest.
const (
	reflectFac  = -1.0
	expandFac   = 2.0
	contractFac = 0.5
)

// DefaultDelta is the initial simplex step for dimensions without an
// explicit one.
const DefaultDelta = 1.0

// DS is a downhill simplex (Nelder–Mead) likelihood maximizer. It never
// needs derivatives, which makes it the only optimizer here usable with
// the stochastic simulation objective.
type DS struct {
	BaseOptimizer
	// Delta holds per-dimension steps for building the starting
	// simplex.
	Delta []float64
	// Tol stops the search once the standard deviation of the vertex
	// likelihoods falls below it.
	Tol float64

	maxCalls   int
	points     []Optimizable
	parameters []FloatParameters
	l          []float64
	newOpt     Optimizable
	newPar     FloatParameters
	psum       []float64
	err        error
}

// errReporter is implemented by models whose likelihood can fail
// internally (e.g. the simulator is gone); Likelihood itself cannot
// return an error.
type errReporter interface {
	Err() error
}

func NewDS() (ds *DS) {
	ds = &DS{Tol: 1e-4}
	ds.repPeriod = 10
	return ds
}

// delta returns the initial step for dimension i.
func (ds *DS) delta(i int) float64 {
	if i < len(ds.Delta) {
		return ds.Delta[i]
	}
	return DefaultDelta
}

// likelihood evaluates one vertex, counting the call and tracking the
// best point seen. Out-of-range vertices score -Inf without spending an
// evaluation.
func (ds *DS) likelihood(opt Optimizable, parameters FloatParameters) float64 {
	if !parameters.InRange() {
		return math.Inf(-1)
	}
	l := opt.Likelihood()
	ds.calls++
	if r, ok := opt.(errReporter); ok {
		if err := r.Err(); err != nil && ds.err == nil {
			ds.err = err
		}
	}
	if l > ds.maxL {
		ds.maxL = l
		ds.maxLPar = parameters.Values(ds.maxLPar)
	}
	return l
}

func (ds *DS) createSimplex(opt Optimizable) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.parameters = make([]FloatParameters, len(ds.points))
	ds.l = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.parameters[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.parameters[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.parameters[i+1][i]
		parameter.Set(parameter.Get() + ds.delta(i))
	}
	for i := range ds.points {
		ds.l[i] = ds.likelihood(ds.points[i], ds.parameters[i])
	}
}

func (ds *DS) calcPsum() {
	if ds.psum == nil {
		ds.psum = make([]float64, len(ds.parameters[0]))
	}
	for i := range ds.psum {
		ds.psum[i] = 0
		for _, parameters := range ds.parameters {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the worst point and keeps the new point if it improves.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.parameters[ilo][j].Get()*fac2)
	}
	l := ds.likelihood(ds.newOpt, ds.newPar)
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.parameters[ilo], ds.newPar = ds.newPar, ds.parameters[ilo]
		ds.l[ilo] = l
	}
	return l
}

// order returns the indices of the worst, second-worst and best
// vertices.
func (ds *DS) order() (ilo, inlo, ihi int) {
	if ds.l[0] < ds.l[1] {
		ilo, inlo, ihi = 0, 1, 1
	} else {
		ilo, inlo, ihi = 1, 0, 0
	}
	for i := 2; i < len(ds.points); i++ {
		if ds.l[i] >= ds.l[ihi] {
			ihi = i
		}
		if ds.l[i] < ds.l[ilo] {
			inlo = ilo
			ilo = i
		} else if ds.l[i] < ds.l[inlo] {
			inlo = i
		}
	}
	return ilo, inlo, ihi
}

// stddev is the standard deviation of the vertex likelihoods; the
// convergence measure.
func (ds *DS) stddev() float64 {
	mean := 0.0
	for _, l := range ds.l {
		mean += l
	}
	mean /= float64(len(ds.l))
	v := 0.0
	for _, l := range ds.l {
		d := l - mean
		v += d * d
	}
	return math.Sqrt(v / float64(len(ds.l)))
}

// shrink contracts every vertex halfway toward the best one.
func (ds *DS) shrink(ihi int) {
	for i, point := range ds.points {
		if i == ihi {
			continue
		}
		for j := range ds.parameters[i] {
			ds.parameters[i][j].Set(0.5 * (ds.parameters[i][j].Get() + ds.parameters[ihi][j].Get()))
		}
		ds.l[i] = ds.likelihood(point, ds.parameters[i])
	}
}

// Run maximizes the likelihood, spending at most the given number of
// likelihood evaluations. Exhausting the budget leaves the best vertex
// in place and the summary flagged non-converged.
func (ds *DS) Run(evaluations int) error {
	if ds.Optimizable == nil {
		return fmt.Errorf("no optimizable set")
	}
	ds.maxCalls = evaluations
	ds.maxL = math.Inf(-1)
	ds.createSimplex(ds.Optimizable)
	ds.PrintHeader(ds.parameters[0])

	// The iteration bound keeps the loop finite even when every trial
	// vertex lands out of range and spends no evaluations.
	for ds.i = 1; ds.err == nil && ds.i <= evaluations; ds.i++ {
		ilo, inlo, ihi := ds.order()
		llo, lnlo, lhi := ds.l[ilo], ds.l[inlo], ds.l[ihi]
		if ds.repPeriod > 0 && ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.parameters[ihi], lhi)
		}
		if ds.stddev() < ds.Tol {
			ds.converged = true
			break
		}
		if ds.calls >= ds.maxCalls {
			break
		}
		l := ds.amotry(ilo, reflectFac)
		switch {
		case l >= lhi:
			ds.amotry(ilo, expandFac)
		case l <= lnlo:
			l = ds.amotry(ilo, contractFac)
			if l <= llo {
				ds.shrink(ihi)
			}
		}
	}

	if ds.err != nil {
		log.Errorf("downhill simplex aborted after %d evaluations: %v", ds.calls, ds.err)
		return ds.err
	}
	if !ds.converged {
		log.Warningf("evaluation budget exhausted (%d), returning best point found", ds.maxCalls)
	}
	log.Infof("finished downhill simplex, %d evaluations", ds.calls)
	log.Noticef("maximum likelihood: %v", ds.maxL)
	log.Infof("parameter  names: %v", ds.parameters[0].NamesString())
	log.Infof("parameter values: %v", ds.maxLPar)
	return nil
}
