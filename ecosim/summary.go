package main

import (
	"bitbucket.org/ecotype/ecosim/ci"
	"bitbucket.org/ecotype/ecosim/sim"
)

// RunSummary is the JSON document describing one complete inference run.
type RunSummary struct {
	// Version stores the ecosim version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Workers is the number of concurrent simulator runs.
	Workers int `json:"workers"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`

	// Tree is the analysis tree after pruning and rerooting.
	Tree string `json:"tree,omitempty"`
	// NLeaves is the leaf count of the analysis tree.
	NLeaves int `json:"nLeaves,omitempty"`

	// Estimate is the closed-form seed from the two-segment fit.
	Estimate sim.ParameterSet `json:"estimate"`
	// Best is the hillclimb result.
	Best sim.ParameterSet `json:"best"`
	// Threshold is the likelihood below which a parameter value leaves
	// the confidence region.
	Threshold float64 `json:"threshold"`

	// OmegaInterval and SigmaInterval are the profile-likelihood
	// confidence intervals.
	OmegaInterval IntervalSummary `json:"omegaInterval"`
	SigmaInterval IntervalSummary `json:"sigmaInterval"`
}

// IntervalSummary pairs an interval with its human-readable rendering.
type IntervalSummary struct {
	Interval ci.Interval `json:"interval"`
	Text     string      `json:"text"`
}
