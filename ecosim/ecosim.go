/*

Ecosim infers the parameters of the ecotype model (ecotype formation
rate omega, periodic selection rate sigma and the number of ecotypes
npop) from the sequence binning curve of an environmental sample. An
initial estimate from a two-segment line fit seeds a downhill simplex
search driven by the external coalescent simulator, followed by
profile-likelihood confidence intervals for omega and sigma.

The basic usage looks like this:

	ecosim --nu 53 --length 412 binning.dat

To see all the options run:

	ecosim -h

*/
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/ecotype/ecosim/binning"
	"bitbucket.org/ecotype/ecosim/checkpoint"
	"bitbucket.org/ecotype/ecosim/ci"
	"bitbucket.org/ecotype/ecosim/dist"
	"bitbucket.org/ecotype/ecosim/estimate"
	"bitbucket.org/ecotype/ecosim/sim"
	"bitbucket.org/ecotype/ecosim/tree"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = "branch: " + gitbranch + ", revision: " + githash + ", build time: " + buildstamp

// Logger settings.
var log = logging.MustGetLogger("ecosim")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("ecosim", "ecotype model parameter inference").Version(version)

	// input
	binningFileName = app.Arg("binning", "binning curve (criterion and cluster count pairs)").Required().ExistingFile()
	treeFileName    = app.Flag("tree", "phylogenetic tree of the sample (newick)").ExistingFile()
	outgroup        = app.Flag("outgroup", "reroot the tree at this leaf before analysis").String()
	prune           = app.Flag("prune", "leaf to remove from the tree (can be repeated)").Strings()

	// model parameters
	nu     = app.Flag("nu", "number of environmental sequences").Required().Int()
	length = app.Flag("length", "sequence length after removing gaps").Required().Int()

	// simulator
	simulator = app.Flag("simulator", "simulator binary").Default("fredmethod").String()
	workDir   = app.Flag("workdir", "directory for simulator request/response files").Default(".").String()
	nrep      = app.Flag("nrep", "stochastic replicates per likelihood evaluation (overrides config)").Default("-1").Int()
	criterion = app.Flag("criterion", "success-rate statistic index (overrides config)").Default("-1").Int()

	// technical
	workers            = app.Flag("workers", "concurrent simulator runs (overrides config)").Default("-1").Int()
	seed               = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	configFileName     = app.Flag("config", "yaml configuration file").ExistingFile()
	checkpointFileName = app.Flag("checkpoint", "bolt database for scan checkpoints").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// prepareTree parses the analysis tree and applies the requested edits.
func prepareTree() *tree.Tree {
	f, err := os.Open(*treeFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	t, err := tree.Parse(f)
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range *prune {
		if err = t.Prune(name); err != nil {
			log.Fatal(err)
		}
	}
	if *outgroup != "" {
		if err = t.Reroot(*outgroup); err != nil {
			log.Fatal(err)
		}
	}
	t.SortChildren()
	log.Infof("analysis tree: %d leaves, total length %f", t.NLeaves(), t.Length())
	log.Debugf("tree=%s", t)
	return t
}

func run(ctx context.Context, conf *Config) (summary *RunSummary) {
	startTime := time.Now()
	summary = &RunSummary{}

	if *treeFileName != "" {
		t := prepareTree()
		summary.Tree = t.String()
		summary.NLeaves = t.NLeaves()
	}

	f, err := os.Open(*binningFileName)
	if err != nil {
		log.Fatal(err)
	}
	bins, err := binning.Read(f)
	f.Close()
	if err != nil {
		log.Fatal(err)
	}
	if err = bins.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Infof("Read binning curve with %d levels", len(bins))

	est, err := estimate.Estimate(*length, bins)
	if err != nil {
		log.Fatal(err)
	}
	log.Noticef("initial estimate: %v", est)
	summary.Estimate = est

	cfg := sim.NewConfig(*nu, *length, *seed)
	cfg.Nrep = conf.Nrep
	cfg.Criterion = conf.Criterion
	cfg.WorkingDir = *workDir

	s := &search{
		cfg:     cfg,
		ev:      &sim.ExecEvaluator{Config: cfg, Bins: bins, Path: *simulator},
		simplex: conf.Simplex,
	}

	var ckp *checkpoint.IO
	if *checkpointFileName != "" {
		db, err := bolt.Open(*checkpointFileName, 0644, nil)
		if err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer db.Close()
		ckp = checkpoint.NewIO(db, []byte("scan"), 30)
	}

	best, err := s.runScan(ctx, conf, ckp, est)
	if err != nil {
		log.Fatal(err)
	}
	log.Noticef("best scan point: %v", best)

	best, err = s.refine(ctx, best)
	if err != nil {
		log.Fatal(err)
	}
	log.Noticef("hillclimb result: %v", best)
	summary.Best = best

	threshold := dist.LikelihoodRatioThreshold(best.Likelihood, conf.CI.Confidence)
	log.Infof("likelihood threshold for %g confidence: %g", conf.CI.Confidence, threshold)
	summary.Threshold = threshold

	omegaSearch := &ci.Search{
		Min:       conf.CI.Omega.Min,
		Max:       conf.CI.Omega.Max,
		Steps:     conf.CI.Omega.Steps,
		Threshold: threshold,
		Optimize: func(ctx context.Context, fixed float64) (sim.ParameterSet, error) {
			return s.optimizeFixed(ctx, sim.FixedOmega, fixed, best)
		},
	}
	omegaInterval, err := omegaSearch.Run(ctx, best.Omega)
	if err != nil {
		log.Fatal(err)
	}
	log.Noticef("omega confidence interval: %s", omegaInterval)
	summary.OmegaInterval = IntervalSummary{Interval: omegaInterval, Text: omegaInterval.String()}

	sigmaSearch := &ci.Search{
		Min:       conf.CI.Sigma.Min,
		Max:       conf.CI.Sigma.Max,
		Steps:     conf.CI.Sigma.Steps,
		Threshold: threshold,
		Optimize: func(ctx context.Context, fixed float64) (sim.ParameterSet, error) {
			return s.optimizeFixed(ctx, sim.FixedSigma, fixed, best)
		},
	}
	sigmaInterval, err := sigmaSearch.Run(ctx, best.Sigma)
	if err != nil {
		log.Fatal(err)
	}
	log.Noticef("sigma confidence interval: %s", sigmaInterval)
	summary.SigmaInterval = IntervalSummary{Interval: sigmaInterval, Text: sigmaInterval.String()}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	return
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, pkg := range []string{"ecosim", "tree", "estimate", "optimize", "sim", "ci", "checkpoint"} {
		logging.SetLevel(level, pkg)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	conf, err := ReadConfig(*configFileName)
	if err != nil {
		log.Fatal(err)
	}
	if *nrep > 0 {
		conf.Nrep = *nrep
	}
	if *criterion >= 0 {
		conf.Criterion = *criterion
	}
	if *workers > 0 {
		conf.Workers = *workers
	}
	log.Infof("Using %d workers, %d replicates per evaluation", conf.Workers, conf.Nrep)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary := run(ctx, conf)
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = *seed
	summary.Workers = conf.Workers

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
