package report

import (
	"fmt"
	"io"

	"github.com/alicel/migsim/pkg/subset"
)

// WriteText writes a short human-readable summary of a run to dst. It is
// additive console output, never a substitute for the CSV/JSON artifacts
// WriteAll produces.
func WriteText(dst io.Writer, run Run) error {
	fmt.Fprintf(dst, "migration %s (%s mode)\n", run.MigrationID, run.Mode)
	fmt.Fprintf(dst, "  total workers: %d   total time: %.2f\n", len(run.Workers), maxCompletion(run.Workers))

	if run.Aggregate == nil {
		return nil
	}

	for _, t := range subset.Tiers() {
		ta, ok := run.Aggregate.ByTier[t]
		if !ok {
			continue
		}

		fmt.Fprintf(dst, "  %-9s workers=%-4d stragglers=%-4d idle=%-4d efficiency=%.1f%%\n",
			t.String(), ta.TotalWorkers, ta.StragglerWorkers, ta.WorkersWithIdleThreads, ta.EfficiencyPercent())
	}

	fmt.Fprintf(dst, "  overall efficiency: %.1f%%\n", run.Aggregate.EfficiencyPercent())

	return nil
}
