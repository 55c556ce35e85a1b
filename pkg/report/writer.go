// Package report writes the deterministic CSV and JSON artifacts produced by
// a completed scheduling run, plus an additive human-readable text summary.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/alicel/migsim/pkg/analyze"
	"github.com/alicel/migsim/pkg/model"
	"github.com/alicel/migsim/pkg/schedule"
)

const lockFileName = ".migsim.lock"

// Writer emits the four required report files for a completed run, guarded
// by a file lock so concurrent drivers writing to the same output directory
// don't interleave.
type Writer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter constructs a Writer. A nil logger is replaced with zap.NewNop().
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Writer{logger: logger, now: time.Now}
}

// Run is everything WriteAll needs about a completed scheduling run.
type Run struct {
	MigrationID           string
	Mode                  schedule.ExecutionMode
	Config                schedule.Config
	Workers               []*model.Worker
	Aggregate             *analyze.Aggregate
	StragglerThresholdPct float64
	DroppedCount          int
	// SummaryOnly suppresses the per-worker and per-thread detail emitters
	// (spec.md §6's --summary-only), leaving only the summary CSV and the
	// execution-report JSON.
	SummaryOnly bool
}

// WriteAll writes <outputDir>/<outputName>_summary.csv and
// _execution_report.json always, plus _workers.csv and _threads.csv unless
// run.SummaryOnly is set, all guarded by a single exclusive lock on
// outputDir. A write failure on any one file is logged and does not stop
// the remaining emitters from being attempted; WriteAll still returns a
// non-nil error once every emitter has run, so the caller sees a nonzero
// exit without losing whichever files did succeed.
func (w *Writer) WriteAll(outputDir, outputName string, run Run) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", outputDir, err)
	}

	lock := flock.New(filepath.Join(outputDir, lockFileName))

	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock output dir %s: %w", outputDir, err)
	}

	defer func() {
		_ = lock.Unlock()
	}()

	workers := make([]*model.Worker, len(run.Workers))
	copy(workers, run.Workers)
	sort.SliceStable(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	run.Workers = workers

	base := filepath.Join(outputDir, outputName)

	var errs []error

	if !run.SummaryOnly {
		if err := writeWorkersCSV(base+"_workers.csv", workers); err != nil {
			w.logger.Error("failed to write workers report", zap.Error(err))
			errs = append(errs, err)
		}

		if err := writeThreadsCSV(base+"_threads.csv", workers); err != nil {
			w.logger.Error("failed to write threads report", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := writeSummaryCSV(base+"_summary.csv", run); err != nil {
		w.logger.Error("failed to write summary report", zap.Error(err))
		errs = append(errs, err)
	}

	if err := writeExecutionReportJSON(base+"_execution_report.json", run, w.now()); err != nil {
		w.logger.Error("failed to write execution report json", zap.Error(err))
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("write reports to %s: %w", outputDir, errors.Join(errs...))
	}

	w.logger.Info("wrote run reports",
		zap.String("outputDir", outputDir),
		zap.String("outputName", outputName),
		zap.Int("workers", len(workers)),
		zap.Bool("summaryOnly", run.SummaryOnly),
	)

	return nil
}
