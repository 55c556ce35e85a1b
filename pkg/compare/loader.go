package compare

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const resultsDirName = "migration_exec_results"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Loader re-reads report artifacts from disk. Disk and parse failures are
// wrapped with github.com/pkg/errors so a human operator running the
// comparison tool gets a stack trace pointing at the failing file.
type Loader struct {
	logger *zap.Logger
}

// NewLoader constructs a Loader. A nil logger is replaced with zap.NewNop().
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{logger: logger}
}

// LoadRunDir reads every migration under <runDir>/migration_exec_results/
// and returns its metrics keyed by migration ID.
func (l *Loader) LoadRunDir(runDir string) (map[string]MigrationMetrics, error) {
	resultsDir := filepath.Join(runDir, resultsDirName)

	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read results dir %s", resultsDir)
	}

	out := map[string]MigrationMetrics{}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		migDir := filepath.Join(resultsDir, e.Name())

		m, err := l.loadMigration(migDir, e.Name())
		if err != nil {
			l.logger.Warn("skipping migration directory", zap.String("dir", migDir), zap.Error(err))

			continue
		}

		out[e.Name()] = m
	}

	return out, nil
}

func (l *Loader) loadMigration(migDir, migID string) (MigrationMetrics, error) {
	m := MigrationMetrics{MigrationID: migID}

	summaryPath, err := findBySuffix(migDir, "_summary.csv")
	if err != nil {
		return m, err
	}

	if summaryPath != "" {
		if err := readSummaryCSV(summaryPath, &m); err != nil {
			return m, errors.Wrapf(err, "read summary csv %s", summaryPath)
		}
	}

	reportPath, err := findBySuffix(migDir, "_execution_report.json")
	if err != nil {
		return m, err
	}

	if reportPath != "" {
		if err := readExecutionReportJSON(reportPath, &m); err != nil {
			return m, errors.Wrapf(err, "read execution report %s", reportPath)
		}
	}

	if summaryPath == "" && reportPath == "" {
		return m, errors.Errorf("no summary csv or execution report json found in %s", migDir)
	}

	return m, nil
}

func findBySuffix(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "read dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	for _, n := range names {
		if len(n) >= len(suffix) && n[len(n)-len(suffix):] == suffix {
			return filepath.Join(dir, n), nil
		}
	}

	return "", nil
}

// readSummaryCSV parses the authoritative per-worker totals from
// <base>_summary.csv (spec.md §4.5): a leading "# dropped_subsets=N"
// comment, a Metric/Value block, a blank row, then a per-tier table. The
// required tier table carries no CPU-efficiency columns, so EfficiencyPct
// is left for readExecutionReportJSON to fill in — the CSV/JSON split
// spec.md §4.6 describes ("JSON is the fallback when CSV lacks efficiency
// columns"). Unknown columns are ignored rather than failing the load.
func readSummaryCSV(path string, m *MigrationMetrics) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.Comment = '#'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return errors.Wrap(err, "parse csv")
	}

	// encoding/csv silently drops blank separator lines, so the metric/tier
	// blocks are split on content: the tier table's header row is the only
	// row starting with the literal "Tier".
	var metricBlock, tierBlock [][]string

	inTierBlock := false

	for _, row := range records {
		if len(row) > 0 && row[0] == "Tier" {
			inTierBlock = true
		}

		if inTierBlock {
			tierBlock = append(tierBlock, row)
		} else {
			metricBlock = append(metricBlock, row)
		}
	}

	metrics := map[string]string{}

	for _, row := range metricBlock {
		if len(row) < 2 || row[0] == "Metric" {
			continue
		}

		metrics[row[0]] = row[1]
	}

	m.TotalWorkers, _ = strconv.Atoi(metrics["Total_Workers"])
	m.TotalTime, _ = strconv.ParseFloat(metrics["Total_Simulation_Time"], 64)

	if len(tierBlock) == 0 {
		return nil
	}

	header := tierBlock[0]
	col := map[string]int{}

	for i, h := range header {
		col[h] = i
	}

	for _, row := range tierBlock[1:] {
		m.StragglerWorkers += intAt(row, col, "Straggler_Workers")
	}

	return nil
}

func readExecutionReportJSON(path string, m *MigrationMetrics) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}

	var parsed struct {
		SimConfig struct {
			ExecutionMode string `json:"execution_mode"`
		} `json:"simulation_config"`
		TotalExecutionTime      float64 `json:"total_execution_time"`
		TotalMigrationSizeBytes int64   `json:"total_migration_size_bytes"`
		TotalUsedCPUTime        float64 `json:"total_used_cpu_time"`
		TotalActiveCPUTime      float64 `json:"total_active_cpu_time"`
		ByTier                  map[string]struct {
			TotalWorkers     int `json:"total_workers"`
			StragglerWorkers int `json:"straggler_workers"`
		} `json:"by_tier"`
	}

	if err := jsonAPI.Unmarshal(data, &parsed); err != nil {
		return errors.Wrap(err, "unmarshal")
	}

	m.ExecutionMode = parsed.SimConfig.ExecutionMode
	m.TotalTime = parsed.TotalExecutionTime
	m.TotalDataSize = parsed.TotalMigrationSizeBytes

	if m.EfficiencyPct == 0 && parsed.TotalUsedCPUTime > 0 {
		m.EfficiencyPct = parsed.TotalActiveCPUTime / parsed.TotalUsedCPUTime * 100
	}

	totalWorkers, stragglerWorkers := 0, 0
	for _, ts := range parsed.ByTier {
		totalWorkers += ts.TotalWorkers
		stragglerWorkers += ts.StragglerWorkers
	}

	if m.TotalWorkers == 0 {
		m.TotalWorkers = totalWorkers
	}

	if m.StragglerWorkers == 0 {
		m.StragglerWorkers = stragglerWorkers
	}

	return nil
}

func intAt(row []string, col map[string]int, key string) int {
	idx, ok := col[key]
	if !ok || idx >= len(row) {
		return 0
	}

	v, _ := strconv.Atoi(row[idx])

	return v
}

// Compare loads both run directories and pairs migrations by ID.
func Compare(leftDir, rightDir string, logger *zap.Logger) (*Report, error) {
	l := NewLoader(logger)

	left, err := l.LoadRunDir(leftDir)
	if err != nil {
		return nil, errors.Wrap(err, "load left run")
	}

	right, err := l.LoadRunDir(rightDir)
	if err != nil {
		return nil, errors.Wrap(err, "load right run")
	}

	report := &Report{LeftDir: leftDir, RightDir: rightDir}

	ids := make([]string, 0, len(left))
	for id := range left {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		rightM, ok := right[id]
		if !ok {
			report.LeftOnly = append(report.LeftOnly, id)

			continue
		}

		report.Paired = append(report.Paired, Pair{MigrationID: id, Left: left[id], Right: rightM})
	}

	rightIDs := make([]string, 0, len(right))
	for id := range right {
		rightIDs = append(rightIDs, id)
	}

	sort.Strings(rightIDs)

	for _, id := range rightIDs {
		if _, ok := left[id]; !ok {
			report.RightOnly = append(report.RightOnly, id)
		}
	}

	return report, nil
}
