package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/alicel/migsim/pkg/schedule"
)

const (
	defaultLogLevel           = "info"
	defaultStragglerThreshold = 20.0
	defaultOutputName         = "migsim"
	defaultOutputDir          = "."
	defaultExecutionMode      = "concurrent"
)

// options is the parsed CLI surface described by spec.md §6: a positional
// input directory plus per-tier thread/worker counts, straggler tuning,
// execution mode, and output location.
type options struct {
	inputDir string

	smallThreads, mediumThreads, largeThreads         int
	smallMaxWorkers, mediumMaxWorkers, largeMaxWorkers int

	stragglerThresholdPct float64
	noStragglers          bool
	summaryOnly           bool

	executionMode        string
	maxConcurrentWorkers int

	outputName   string
	outputDir    string
	logLevel     string
	progressAddr string
}

var (
	errMissingInputDir    = errors.New("missing required <input-dir> argument")
	errRoundRobinNeedsCap = errors.New("--execution-mode round_robin requires --max-concurrent-workers > 0")
)

func parseArgs(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migsim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&opts.smallThreads, "small-threads", 1, "Threads per SMALL-tier worker")
	fs.IntVar(&opts.mediumThreads, "medium-threads", 1, "Threads per MEDIUM-tier worker")
	fs.IntVar(&opts.largeThreads, "large-threads", 1, "Threads per LARGE-tier worker")
	fs.IntVar(&opts.smallMaxWorkers, "small-max-workers", 1, "Max concurrent SMALL-tier workers")
	fs.IntVar(&opts.mediumMaxWorkers, "medium-max-workers", 1, "Max concurrent MEDIUM-tier workers")
	fs.IntVar(&opts.largeMaxWorkers, "large-max-workers", 1, "Max concurrent LARGE-tier workers")
	fs.Float64Var(&opts.stragglerThresholdPct, "straggler-threshold", defaultStragglerThreshold,
		"Percentage above average completion time that marks a thread a straggler")
	fs.BoolVar(&opts.noStragglers, "no-stragglers", false, "Disable straggler/idle-thread analysis")
	fs.BoolVar(&opts.summaryOnly, "summary-only", false, "Suppress the per-worker and per-thread detail report files")
	fs.StringVar(&opts.executionMode, "execution-mode", defaultExecutionMode,
		"Scheduling mode: concurrent, sequential, or round_robin")
	fs.IntVar(&opts.maxConcurrentWorkers, "max-concurrent-workers", 0,
		"Global worker cap, required when --execution-mode=round_robin")
	fs.StringVar(&opts.outputName, "output-name", defaultOutputName, "Base file name for report artifacts")
	fs.StringVar(&opts.outputDir, "output-dir", defaultOutputDir, "Directory to write report artifacts into")
	fs.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Structured log level (debug, info, warn, error)")
	fs.StringVar(&opts.progressAddr, "progress-addr", "", "Optional host:port to serve the Prometheus metrics endpoint while the run lasts")

	// Flags may appear before or after the positional input directory, so
	// parsing resumes after each positional argument it stops at.
	var positional []string

	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return options{}, fmt.Errorf("parse CLI arguments: %w", err)
		}

		if fs.NArg() == 0 {
			break
		}

		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(positional) == 0 {
		return options{}, errMissingInputDir
	}

	opts.inputDir = positional[0]

	opts.executionMode = strings.ToLower(strings.TrimSpace(opts.executionMode))
	if _, err := schedule.ParseExecutionMode(opts.executionMode); err != nil {
		return options{}, err
	}

	if opts.executionMode == "round_robin" && opts.maxConcurrentWorkers <= 0 {
		return options{}, errRoundRobinNeedsCap
	}

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	opts.outputName = strings.TrimSpace(opts.outputName)
	if opts.outputName == "" {
		opts.outputName = defaultOutputName
	}

	opts.outputDir = strings.TrimSpace(opts.outputDir)
	if opts.outputDir == "" {
		opts.outputDir = defaultOutputDir
	}

	return opts, nil
}

func (o options) schedulerConfig() (schedule.Config, error) {
	mode, err := schedule.ParseExecutionMode(o.executionMode)
	if err != nil {
		return schedule.Config{}, err
	}

	cfg := schedule.Config{
		Worker: schedule.WorkerConfig{
			Large:  schedule.TierConfig{NumThreads: o.largeThreads, MaxWorkers: o.largeMaxWorkers},
			Medium: schedule.TierConfig{NumThreads: o.mediumThreads, MaxWorkers: o.mediumMaxWorkers},
			Small:  schedule.TierConfig{NumThreads: o.smallThreads, MaxWorkers: o.smallMaxWorkers},
		},
		StragglerThresholdPct: o.stragglerThresholdPct,
		DisableAnalysis:       o.noStragglers,
		Mode:                  mode,
		GlobalMaxWorkers:      o.maxConcurrentWorkers,
	}

	return cfg, nil
}
