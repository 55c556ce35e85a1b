// Package model holds the records produced by scheduling a migration:
// workers, their thread timelines, and the straggler/idle annotations the
// analyzers attach to them.
package model

import (
	"github.com/alicel/migsim/pkg/subset"
	"github.com/alicel/migsim/pkg/thread"
	"github.com/alicel/migsim/pkg/work"
)

// Worker is one scheduled execution of a Subset: a simulated process that
// ran NumThreads threads from StartTime to CompletionTime.
type Worker struct {
	WorkerID       int
	Subset         subset.Subset
	NumThreads     int
	StartTime      float64
	CompletionTime float64
	Threads        []thread.Timeline

	// IsStraggler and AnalysisApplicable are set by pkg/analyze once the
	// worker retires; a freshly scheduled Worker has the zero value for
	// both.
	IsStraggler        bool
	AnalysisApplicable bool
	StragglerThreadIDs map[int]struct{}
	IdleThreadIDs      map[int]struct{}
	StragglerDetail    *StragglerDetail
}

// StragglerDetail is the supplemented, richer straggler breakdown: per
// -thread completion-time stats plus a per-entry delay percentage, beyond
// the boolean/count-level result the required reports carry.
type StragglerDetail struct {
	AvgCompletionTime    float64
	MaxCompletionTime    float64
	MinCompletionTime    float64
	CompletionTimeSpread float64
	Entries              []StragglerEntry
}

// StragglerEntry describes one straggling thread.
type StragglerEntry struct {
	ThreadID       int
	CompletionTime float64
	DelayPercent   float64
}

// Duration is how long the worker ran.
func (w *Worker) Duration() float64 {
	return w.CompletionTime - w.StartTime
}

// UsedCPUTime is the CPU time the worker reserved: duration * thread count,
// regardless of whether every thread stayed busy the whole time.
func (w *Worker) UsedCPUTime() float64 {
	return w.Duration() * float64(w.NumThreads)
}

// ActiveCPUTime sums the processing time each thread actually spent on
// assigned items.
func (w *Worker) ActiveCPUTime() float64 {
	var total float64
	for _, tl := range w.Threads {
		total += tl.TotalProcessingTime
	}

	return total
}

// EfficiencyPercent is ActiveCPUTime over UsedCPUTime, as a percentage. It
// is 0 when UsedCPUTime is zero, per the allocated-vs-active definition: no
// CPU time was reserved, so there is nothing to compute a ratio against.
func (w *Worker) EfficiencyPercent() float64 {
	used := w.UsedCPUTime()
	if used <= 0 {
		return 0
	}

	return w.ActiveCPUTime() / used * 100
}

// ActualDataSize sums the sizes of every item the worker's threads
// processed, which may differ from the subset's declared DataSize.
func (w *Worker) ActualDataSize() int64 {
	var total int64
	for _, tl := range w.Threads {
		total += work.TotalSize(tl.Items)
	}

	return total
}
