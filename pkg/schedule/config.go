package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionMode selects how the scheduler dispatches workers across tiers.
type ExecutionMode int

const (
	// ModeConcurrent runs every tier in parallel, each capped
	// independently by its TierConfig.MaxWorkers.
	ModeConcurrent ExecutionMode = iota
	// ModeSequential runs tiers one at a time, in LARGE, MEDIUM, SMALL,
	// UNIVERSAL order, draining each tier before starting the next.
	ModeSequential
	// ModeRoundRobin runs all tiers under a single global concurrency cap,
	// cycling through tiers to interleave which one gets the next free
	// slot.
	ModeRoundRobin
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeConcurrent:
		return "concurrent"
	case ModeSequential:
		return "sequential"
	case ModeRoundRobin:
		return "round_robin"
	default:
		return "unknown"
	}
}

// ParseExecutionMode maps a CLI-supplied mode name to an ExecutionMode.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "concurrent":
		return ModeConcurrent, nil
	case "sequential":
		return ModeSequential, nil
	case "round_robin", "round-robin", "roundrobin":
		return ModeRoundRobin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownExecutionMode, s)
	}
}

// TierConfig configures worker spawning for one tier.
type TierConfig struct {
	NumThreads int
	MaxWorkers int
}

// WorkerConfig groups the per-tier configuration. Universal defaults to one
// thread and Large's worker cap when left unset, matching the simple
// layout's "one universal tier, one thread per worker" degenerate case.
type WorkerConfig struct {
	Large     TierConfig
	Medium    TierConfig
	Small     TierConfig
	Universal TierConfig
}

// Config is everything the scheduler needs to run one migration.
type Config struct {
	Worker                WorkerConfig
	StragglerThresholdPct float64
	DisableAnalysis       bool
	Mode                  ExecutionMode
	GlobalMaxWorkers      int
}

var (
	// ErrUnknownExecutionMode is returned by ParseExecutionMode for an
	// unrecognized mode string.
	ErrUnknownExecutionMode = errors.New("schedule: unknown execution mode")
	// ErrInvalidTierConfig is returned when a tier's thread/worker counts
	// are non-positive.
	ErrInvalidTierConfig = errors.New("schedule: tier config must have positive thread and worker counts")
	// ErrMissingGlobalCap is returned when ModeRoundRobin is selected
	// without a positive GlobalMaxWorkers.
	ErrMissingGlobalCap = errors.New("schedule: round_robin mode requires a positive global worker cap")
)

// Validate checks the configuration is internally consistent, filling in
// the Universal tier's defaults from Large when left zero-valued.
func (c *Config) Validate() error {
	if c.Worker.Universal.NumThreads <= 0 {
		c.Worker.Universal.NumThreads = 1
	}

	if c.Worker.Universal.MaxWorkers <= 0 {
		c.Worker.Universal.MaxWorkers = c.Worker.Large.MaxWorkers
	}

	for _, tc := range []TierConfig{c.Worker.Large, c.Worker.Medium, c.Worker.Small, c.Worker.Universal} {
		if tc.NumThreads <= 0 || tc.MaxWorkers <= 0 {
			return fmt.Errorf("%w: got threads=%d workers=%d", ErrInvalidTierConfig, tc.NumThreads, tc.MaxWorkers)
		}
	}

	if c.Mode == ModeRoundRobin && c.GlobalMaxWorkers <= 0 {
		return ErrMissingGlobalCap
	}

	return nil
}
