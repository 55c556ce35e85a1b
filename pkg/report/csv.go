package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/alicel/migsim/pkg/model"
	"github.com/alicel/migsim/pkg/subset"
)

const bytesPerGB = 1024 * 1024 * 1024

var workersHeader = []string{
	"Worker_ID", "Tier", "Start_Time", "End_Time", "Duration", "SSTable_Count",
	"Data_Size_GB", "Is_Straggler_Worker", "Num_Threads", "Total_Used_CPU_Time",
	"Total_Active_CPU_Time", "CPU_Inefficiency", "CPU_Efficiency_Percent",
}

// writeWorkersCSV writes <base>_workers.csv per spec.md §4.5: one row per
// worker, in the order workers is already sorted (worker-ID ascending).
func writeWorkersCSV(path string, workers []*model.Worker) error {
	return writeCSV(path, workersHeader, func(w *csv.Writer) error {
		for _, wk := range workers {
			used := wk.UsedCPUTime()
			active := wk.ActiveCPUTime()

			record := []string{
				strconv.Itoa(wk.WorkerID),
				wk.Subset.Tier.String(),
				formatTime(wk.StartTime),
				formatTime(wk.CompletionTime),
				formatTime(wk.Duration()),
				strconv.Itoa(wk.Subset.NumSSTables),
				formatTime(float64(wk.ActualDataSize()) / bytesPerGB),
				strconv.FormatBool(wk.IsStraggler),
				strconv.Itoa(wk.NumThreads),
				formatTime(used),
				formatTime(active),
				formatTime(used - active),
				formatPercent(wk.EfficiencyPercent()),
			}

			if err := w.Write(record); err != nil {
				return fmt.Errorf("write worker record: %w", err)
			}
		}

		return nil
	})
}

var threadsHeader = []string{
	"Worker_ID", "Tier", "Thread_ID", "Task_Name", "Start_Time", "End_Time",
	"Task_Size", "Is_Straggler_Thread",
}

// writeThreadsCSV writes <base>_threads.csv: one row per processed item
// (not per thread), per spec.md §4.5. Threads that never received an item
// (idle, because N exceeded len(items)) contribute no rows.
func writeThreadsCSV(path string, workers []*model.Worker) error {
	return writeCSV(path, threadsHeader, func(w *csv.Writer) error {
		for _, wk := range workers {
			for _, tl := range wk.Threads {
				_, isStraggler := wk.StragglerThreadIDs[tl.ThreadID]

				for i, item := range tl.Items {
					start := tl.TaskStartTimes[i]
					end := start + float64(item.Size)

					record := []string{
						strconv.Itoa(wk.WorkerID),
						wk.Subset.Tier.String(),
						strconv.Itoa(tl.ThreadID),
						item.Key,
						formatTime(start),
						formatTime(end),
						strconv.FormatInt(item.Size, 10),
						strconv.FormatBool(isStraggler),
					}

					if err := w.Write(record); err != nil {
						return fmt.Errorf("write thread record: %w", err)
					}
				}
			}
		}

		return nil
	})
}

// writeSummaryCSV writes <base>_summary.csv: a leading comment recording the
// dropped-subset count (spec.md §7), a Metric/Value block, a blank
// separator row, then a per-tier table.
func writeSummaryCSV(path string, run Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "# dropped_subsets=%d\n", run.DroppedCount); err != nil {
		return fmt.Errorf("write comment to %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	totalWorkers := len(run.Workers)
	totalCPUs := 0
	totalCPUTime := 0.0

	for _, wk := range run.Workers {
		totalCPUs += wk.NumThreads
		totalCPUTime += wk.UsedCPUTime()
	}

	metricRows := [][]string{
		{"Metric", "Value"},
		{"Total_Simulation_Time", formatTime(maxCompletion(run.Workers))},
		{"Total_Workers", strconv.Itoa(totalWorkers)},
		{"Straggler_Threshold_Percent", formatPercent(run.StragglerThresholdPct)},
		{"Total_CPUs", strconv.Itoa(totalCPUs)},
		{"Total_CPU_Time", formatTime(totalCPUTime)},
	}

	for _, r := range metricRows {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("write summary metric: %w", err)
		}
	}

	if err := w.Write([]string{}); err != nil {
		return fmt.Errorf("write summary separator row: %w", err)
	}

	tierHeader := []string{"Tier", "Total_Workers", "Analyzable_Workers", "Straggler_Workers", "Straggler_Percent"}
	if err := w.Write(tierHeader); err != nil {
		return fmt.Errorf("write tier table header: %w", err)
	}

	if run.Aggregate != nil {
		for _, t := range subset.Tiers() {
			ta, ok := run.Aggregate.ByTier[t]
			if !ok {
				continue
			}

			record := []string{
				t.String(),
				strconv.Itoa(ta.TotalWorkers),
				strconv.Itoa(ta.AnalyzableWorkers),
				strconv.Itoa(ta.StragglerWorkers),
				formatPercent(ta.StragglerPercent()),
			}

			if err := w.Write(record); err != nil {
				return fmt.Errorf("write tier table row: %w", err)
			}
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return nil
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}

	if err := body(w); err != nil {
		return err
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return nil
}

// formatTime renders a time or byte-size value to 2 decimal places, per
// spec.md §4.5's numeric formatting rule.
func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatPercent renders a percentage to 1 decimal place.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
