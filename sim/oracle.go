package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"bitbucket.org/ecotype/ecosim/binning"
)

// ErrOracle wraps I/O failures while talking to the simulator.
var ErrOracle = errors.New("simulator unavailable")

// Evaluator computes the likelihood of a parameter set against the
// observed binning curve. Implementations must be safe for concurrent
// use; every call is independent.
type Evaluator interface {
	Evaluate(ctx context.Context, p ParameterSet) (ParameterSet, error)
}

// WriteRequest writes one simulator request. Fields are fixed-width for
// readability but the simulator reads them positionally as
// whitespace-separated tokens.
func WriteRequest(w io.Writer, c *Config, bins binning.Binning, p ParameterSet, seed int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-20d numcrit\n", len(bins))
	for _, bin := range bins {
		fmt.Fprintf(bw, "%-20.6f %-20d\n", bin.Crit, bin.Level)
	}
	fmt.Fprintf(bw, "%-20.5f omega\n", p.Omega)
	fmt.Fprintf(bw, "%-20.5f sigma\n", p.Sigma)
	fmt.Fprintf(bw, "%-20d npop\n", p.Npop)
	fmt.Fprintf(bw, "%-20d nu\n", c.Nu)
	fmt.Fprintf(bw, "%-20d nrep\n", c.Nrep)
	fmt.Fprintf(bw, "%-20d iii (random number seed)\n", seed)
	fmt.Fprintf(bw, "%-20d lengthseq (after deleting gaps, etc.)\n", c.Length)
	fmt.Fprintf(bw, "%-20d whichavg\n", c.Criterion)
	return bw.Flush()
}

// ReadResponse reads the simulator's answer: a single line of four
// numbers, omega, sigma, npop and the achieved likelihood. If the file
// holds several lines, the last one wins.
func ReadResponse(rd io.Reader) (ParameterSet, error) {
	var p ParameterSet
	var found bool
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		values, err := readFloats(line)
		if err != nil {
			return p, err
		}
		if len(values) != 4 {
			return p, fmt.Errorf("expected four values, got %d in %q", len(values), line)
		}
		p = ParameterSet{
			Omega:      values[0],
			Sigma:      values[1],
			Npop:       int(values[2]),
			Likelihood: values[3],
		}
		found = true
	}
	if err := scanner.Err(); err != nil {
		return p, err
	}
	if !found {
		return p, fmt.Errorf("empty response")
	}
	return p, nil
}

// readFloats converts a string of whitespace-separated floats into a
// slice of float64.
func readFloats(s string) ([]float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Split(bufio.ScanWords)
	var result []float64
	for scanner.Scan() {
		x, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return result, err
		}
		result = append(result, x)
	}
	return result, scanner.Err()
}

// ExecEvaluator runs the simulator binary once per evaluation. The
// request is written to a fresh file in the working directory and the
// binary is invoked with the request and response file names as its two
// arguments.
type ExecEvaluator struct {
	Config *Config
	Bins   binning.Binning
	// Path is the simulator binary.
	Path string
}

// Evaluate implements Evaluator. A response with non-positive npop or
// likelihood is returned as-is (not Usable), never as an error.
func (e *ExecEvaluator) Evaluate(ctx context.Context, p ParameterSet) (ParameterSet, error) {
	in, err := os.CreateTemp(e.Config.WorkingDir, "simIn*.dat")
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	defer os.Remove(in.Name())
	outName := strings.TrimSuffix(in.Name(), ".dat") + ".out"
	defer os.Remove(outName)

	seed := e.Config.NextSeed()
	err = WriteRequest(in, e.Config, e.Bins, p, seed)
	if cerr := in.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return p, fmt.Errorf("%w: writing request: %v", ErrOracle, err)
	}

	log.Debugf("running %s for %v (seed=%d)", e.Path, p, seed)
	cmd := exec.CommandContext(ctx, e.Path, in.Name(), outName)
	cmd.Dir = e.Config.WorkingDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return p, fmt.Errorf("%w: %v: %s", ErrOracle, err, out)
	}

	out, err := os.Open(outName)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	defer out.Close()
	result, err := ReadResponse(out)
	if err != nil {
		return p, fmt.Errorf("%w: reading response: %v", ErrOracle, err)
	}
	return result, nil
}
