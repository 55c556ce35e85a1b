package report_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicel/migsim/pkg/analyze"
	"github.com/alicel/migsim/pkg/model"
	"github.com/alicel/migsim/pkg/report"
	"github.com/alicel/migsim/pkg/schedule"
	"github.com/alicel/migsim/pkg/subset"
	"github.com/alicel/migsim/pkg/thread"
	"github.com/alicel/migsim/pkg/work"
)

func sampleRun() report.Run {
	w := &model.Worker{
		WorkerID:   0,
		Subset:     subset.Subset{MigrationID: "mig", Label: "ks", SubsetID: "0", Tier: subset.TierLarge, NumSSTables: 1, DataSize: 100},
		NumThreads: 1,
		StartTime:  0,
		CompletionTime: 10,
		Threads: []thread.Timeline{{
			ThreadID:            0,
			Items:               []work.Item{{Key: "SST0", Size: 10}},
			TaskStartTimes:      []float64{0},
			AvailableTime:       10,
			TotalProcessingTime: 10,
		}},
	}

	agg := analyze.BuildAggregate([]*model.Worker{w})

	cfg := schedule.Config{
		Worker:           schedule.WorkerConfig{Large: schedule.TierConfig{NumThreads: 1, MaxWorkers: 1}},
		Mode:             schedule.ModeConcurrent,
		GlobalMaxWorkers: 0,
	}

	return report.Run{
		MigrationID:           "mig",
		Mode:                  schedule.ModeConcurrent,
		Config:                cfg,
		Workers:               []*model.Worker{w},
		Aggregate:             agg,
		StragglerThresholdPct: 20.0,
		DroppedCount:          1,
	}
}

func TestWriteAllProducesFourFiles(t *testing.T) {
	dir := t.TempDir()

	w := report.NewWriter(nil)
	require.NoError(t, w.WriteAll(dir, "run1", sampleRun()))

	for _, suffix := range []string{"_workers.csv", "_threads.csv", "_summary.csv", "_execution_report.json"} {
		path := filepath.Join(dir, "run1"+suffix)
		_, err := os.Stat(path)
		assert.NoErrorf(t, err, "expected %s to exist", path)
	}
}

func TestWriteWorkersCSVHasExpectedRow(t *testing.T) {
	dir := t.TempDir()

	w := report.NewWriter(nil)
	require.NoError(t, w.WriteAll(dir, "run1", sampleRun()))

	data, err := os.ReadFile(filepath.Join(dir, "run1_workers.csv"))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"Worker_ID", "Tier", "Start_Time", "End_Time", "Duration", "SSTable_Count",
		"Data_Size_GB", "Is_Straggler_Worker", "Num_Threads", "Total_Used_CPU_Time",
		"Total_Active_CPU_Time", "CPU_Inefficiency", "CPU_Efficiency_Percent",
	}, records[0])
	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "LARGE", records[1][1])
	assert.Equal(t, "100.0", records[1][12])
}

func TestWriteSummaryCSVHasCommentAndTierTable(t *testing.T) {
	dir := t.TempDir()

	w := report.NewWriter(nil)
	require.NoError(t, w.WriteAll(dir, "run1", sampleRun()))

	data, err := os.ReadFile(filepath.Join(dir, "run1_summary.csv"))
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "# dropped_subsets=1")
	assert.Contains(t, content, "Total_Simulation_Time")
	assert.Contains(t, content, "Tier,Total_Workers,Analyzable_Workers,Straggler_Workers,Straggler_Percent")
}

func TestWriteAllSummaryOnlySkipsDetailFiles(t *testing.T) {
	dir := t.TempDir()

	run := sampleRun()
	run.SummaryOnly = true

	w := report.NewWriter(nil)
	require.NoError(t, w.WriteAll(dir, "run1", run))

	for _, suffix := range []string{"_workers.csv", "_threads.csv"} {
		_, err := os.Stat(filepath.Join(dir, "run1"+suffix))
		assert.True(t, os.IsNotExist(err), "expected %s to be absent", suffix)
	}

	for _, suffix := range []string{"_summary.csv", "_execution_report.json"} {
		_, err := os.Stat(filepath.Join(dir, "run1"+suffix))
		assert.NoErrorf(t, err, "expected %s to exist", suffix)
	}
}

func TestWriteAllFailsOpenOnSingleFileError(t *testing.T) {
	dir := t.TempDir()

	// Pre-create a directory where the workers CSV should go, so
	// writeWorkersCSV's os.Create fails while the other three emitters can
	// still succeed.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "run1_workers.csv"), 0o755))

	w := report.NewWriter(nil)
	err := w.WriteAll(dir, "run1", sampleRun())
	require.Error(t, err)

	for _, suffix := range []string{"_threads.csv", "_summary.csv", "_execution_report.json"} {
		_, statErr := os.Stat(filepath.Join(dir, "run1"+suffix))
		assert.NoErrorf(t, statErr, "expected %s to exist despite the workers.csv failure", suffix)
	}
}

func TestWriteTextSummary(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.WriteText(&buf, sampleRun()))
	assert.Contains(t, buf.String(), "migration mig")
	assert.Contains(t, buf.String(), "LARGE")
}
