// Package sim talks to the external coalescent simulator. It defines the
// parameter set of the ecotype model, the run configuration, the textual
// request/response protocol of the simulator, and a likelihood model that
// the simplex optimizer can drive.
package sim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("sim")

// ParameterSet is one point of the ecotype model parameter space together
// with its likelihood (a success rate, higher is better). Values are
// passed around by value and never mutated after an estimation step
// produced them.
type ParameterSet struct {
	Omega      float64 `json:"omega"`
	Sigma      float64 `json:"sigma"`
	Npop       int     `json:"npop"`
	Likelihood float64 `json:"likelihood"`
}

// Usable reports whether the simulator produced a meaningful result; a
// non-positive npop or likelihood means it did not.
func (p ParameterSet) Usable() bool {
	return p.Npop > 0 && p.Likelihood > 0
}

// Better reports whether p has a strictly higher likelihood than q.
func (p ParameterSet) Better(q ParameterSet) bool {
	return p.Likelihood > q.Likelihood
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("omega=%.5g sigma=%.5g npop=%d likelihood=%.5g",
		p.Omega, p.Sigma, p.Npop, p.Likelihood)
}

// maxSeed bounds generated random seeds below nine digits.
const maxSeed = 100000000

// Config carries everything one simulator run needs besides the
// parameter set. It is passed explicitly through the call chain; there is
// no ambient process-wide state. The seed source is safe for concurrent
// use.
type Config struct {
	// Nu is the number of environmental sequences (population sample
	// size) and the upper bound for npop.
	Nu int
	// Length is the sequence length after removing gaps.
	Length int
	// Nrep is the number of stochastic replicates per evaluation.
	Nrep int
	// Criterion selects which of the simulator's success-rate
	// statistics is returned.
	Criterion int
	// WorkingDir is where request/response files are created.
	WorkingDir string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewConfig creates a run configuration with its own seed source.
func NewConfig(nu, length int, seed int64) *Config {
	return &Config{
		Nu:         nu,
		Length:     length,
		Nrep:       10000,
		Criterion:  3,
		WorkingDir: ".",
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// NextSeed returns a random seed for one simulator run: an odd integer
// less than nine digits long.
func (c *Config) NextSeed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seed := c.rng.Int63n(maxSeed)
	if seed%2 == 0 {
		seed++
	}
	return seed
}
