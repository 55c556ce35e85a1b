// Package driver fans a scheduling run out across multiple independent
// migrations. Per-migration scheduling stays a pure, single-threaded
// simulation; only the driver layer runs migrations concurrently, which
// does not change any one migration's determinism.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alicel/migsim/internal/telemetry"
	"github.com/alicel/migsim/pkg/analyze"
	"github.com/alicel/migsim/pkg/report"
	"github.com/alicel/migsim/pkg/schedule"
	"github.com/alicel/migsim/pkg/subset"
)

const resultsDirName = "migration_exec_results"

// Outcome is one migration's result from a driver run.
type Outcome struct {
	MigrationID string
	Result      *schedule.Result
	Err         error
}

// Driver runs the subset-reader -> scheduler -> analyzer -> report pipeline
// for every migration found under a parent directory, bounded by a
// configurable concurrency limit.
type Driver struct {
	cfg         schedule.Config
	logger      *zap.Logger
	concurrency int
	telemetry   *telemetry.Exporter
}

// New constructs a Driver. concurrency <= 0 means unbounded (errgroup's
// SetLimit is skipped). A nil telemetry exporter disables progress gauges.
func New(cfg schedule.Config, logger *zap.Logger, concurrency int, tel *telemetry.Exporter) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{cfg: cfg, logger: logger, concurrency: concurrency, telemetry: tel}
}

// DiscoverMigrations lists the subdirectories of parentDir that look like
// migration roots (they contain metadata/subsets), in sorted order.
func DiscoverMigrations(parentDir string) ([]string, error) {
	entries, err := os.ReadDir(parentDir)
	if err != nil {
		return nil, fmt.Errorf("read parent dir %s: %w", parentDir, err)
	}

	var ids []string

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if _, err := os.Stat(filepath.Join(parentDir, e.Name(), "metadata", "subsets")); err == nil {
			ids = append(ids, e.Name())
		}
	}

	sort.Strings(ids)

	return ids, nil
}

// Run schedules every migration under parentDir and writes each one's
// reports under <outputDir>/migration_exec_results/<migID>/.
func (d *Driver) Run(ctx context.Context, parentDir, outputDir, outputName string) ([]Outcome, error) {
	ids, err := DiscoverMigrations(parentDir)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}

	for i, id := range ids {
		i, id := i, id

		g.Go(func() error {
			select {
			case <-gctx.Done():
				outcomes[i] = Outcome{MigrationID: id, Err: gctx.Err()}

				return nil
			default:
			}

			result, err := d.runOne(parentDir, outputDir, outputName, id)
			outcomes[i] = Outcome{MigrationID: id, Result: result, Err: err}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("driver run: %w", err)
	}

	return outcomes, nil
}

func (d *Driver) runOne(parentDir, outputDir, outputName, migID string) (*schedule.Result, error) {
	migDir := filepath.Join(parentDir, migID)

	subsets, warnings, err := subset.NewReader(d.logger).Read(migDir)
	if err != nil {
		return nil, fmt.Errorf("read subsets for %s: %w", migID, err)
	}

	for _, w := range warnings {
		d.logger.Warn("subset warning", zap.String("migrationId", migID), zap.String("path", w.Path), zap.String("reason", w.Reason))
	}

	sched, err := schedule.NewScheduler(d.cfg, d.logger)
	if err != nil {
		return nil, fmt.Errorf("configure scheduler for %s: %w", migID, err)
	}

	if d.telemetry != nil {
		d.telemetry.SetActiveMigrations(1)

		defer d.telemetry.SetActiveMigrations(0)
	}

	result, err := sched.Run(subsets)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", migID, err)
	}

	if d.telemetry != nil {
		for _, t := range subset.Tiers() {
			d.telemetry.SetCompletedWorkers(t.String(), countTier(result, t))
		}
	}

	agg := analyze.BuildAggregate(result.Workers)

	migOutputDir := filepath.Join(outputDir, resultsDirName, migID)

	run := report.Run{
		MigrationID:           migID,
		Mode:                  d.cfg.Mode,
		Config:                d.cfg,
		Workers:               result.Workers,
		Aggregate:             agg,
		StragglerThresholdPct: d.cfg.StragglerThresholdPct,
		DroppedCount:          len(warnings) + len(result.Dropped),
	}

	if err := report.NewWriter(d.logger).WriteAll(migOutputDir, outputName, run); err != nil {
		return nil, fmt.Errorf("write report for %s: %w", migID, err)
	}

	return result, nil
}

func countTier(result *schedule.Result, t subset.Tier) int {
	count := 0

	for _, w := range result.Workers {
		if w.Subset.Tier == t {
			count++
		}
	}

	return count
}
