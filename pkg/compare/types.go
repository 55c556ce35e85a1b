// Package compare re-reads the report artifacts two runs produced and pairs
// them by migration ID so an operator can see what changed between runs.
package compare

// MigrationMetrics is what Loader extracts from one migration's report
// artifacts. It is reconstructed straight from the CSV/JSON files, not the
// in-memory model types, since compare runs as a separate tool long after
// the scheduling run that produced the reports.
type MigrationMetrics struct {
	MigrationID      string
	ExecutionMode    string
	TotalWorkers     int
	TotalTime        float64
	EfficiencyPct    float64
	StragglerWorkers int
	TotalDataSize    int64
}

// Report is the result of comparing two run directories.
type Report struct {
	LeftDir   string
	RightDir  string
	Paired    []Pair
	LeftOnly  []string
	RightOnly []string
}

// Pair holds the left and right metrics for one migration ID present in
// both runs.
type Pair struct {
	MigrationID string
	Left        MigrationMetrics
	Right       MigrationMetrics
}

// EfficiencyDelta is Right minus Left efficiency, in percentage points.
func (p Pair) EfficiencyDelta() float64 {
	return p.Right.EfficiencyPct - p.Left.EfficiencyPct
}

// TotalTimeDelta is Right minus Left total time.
func (p Pair) TotalTimeDelta() float64 {
	return p.Right.TotalTime - p.Left.TotalTime
}
