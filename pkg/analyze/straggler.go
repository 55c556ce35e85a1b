// Package analyze computes straggler, idle-thread, and CPU-efficiency
// annotations for scheduled workers.
package analyze

import (
	"sort"

	"github.com/alicel/migsim/pkg/model"
)

const (
	// idleFloor is the minimum meaningful-work threshold regardless of how
	// small the median completion time is: a thread that finished in under
	// one time unit always counts as idle, even when every thread of the
	// worker did.
	idleFloor = 1.0
	// idleMedianFraction is the fraction of the median thread completion
	// time below which a thread is considered to have done negligible work.
	idleMedianFraction = 0.1

	percentScale = 100.0
)

// DefaultStragglerThresholdPct is applied when a caller passes <= 0.
const DefaultStragglerThresholdPct = 20.0

// AnnotateWorker computes straggler and idle-thread detail for w and stores
// it on w. thresholdPct is the percentage above the average completion time
// (among working threads) that marks a thread a straggler; values <= 0 fall
// back to DefaultStragglerThresholdPct.
func AnnotateWorker(w *model.Worker, thresholdPct float64) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultStragglerThresholdPct
	}

	n := len(w.Threads)
	if n < 2 {
		w.AnalysisApplicable = false

		return
	}

	durations := make([]float64, n)
	for i, tl := range w.Threads {
		durations[i] = tl.AvailableTime
	}

	median := medianOf(durations)
	meaningfulThreshold := idleMedianFraction * median
	if meaningfulThreshold < idleFloor {
		meaningfulThreshold = idleFloor
	}

	idle := map[int]struct{}{}

	var working []model.StragglerEntry

	for i, tl := range w.Threads {
		if durations[i] < meaningfulThreshold {
			idle[i] = struct{}{}

			continue
		}

		working = append(working, model.StragglerEntry{ThreadID: i, CompletionTime: durations[i]})
	}

	w.IdleThreadIDs = idle

	if len(working) < 2 {
		w.AnalysisApplicable = false
		w.StragglerThreadIDs = map[int]struct{}{}

		return
	}

	w.AnalysisApplicable = true

	var sum, maxT, minT float64

	minT = working[0].CompletionTime
	for _, e := range working {
		sum += e.CompletionTime
		if e.CompletionTime > maxT {
			maxT = e.CompletionTime
		}

		if e.CompletionTime < minT {
			minT = e.CompletionTime
		}
	}

	avg := sum / float64(len(working))
	stragglerThreshold := avg * (1 + thresholdPct/percentScale)

	stragglers := map[int]struct{}{}

	var entries []model.StragglerEntry

	for _, e := range working {
		if e.CompletionTime <= stragglerThreshold {
			continue
		}

		delay := 0.0
		if avg > 0 {
			delay = (e.CompletionTime - avg) / avg * percentScale
		}

		entries = append(entries, model.StragglerEntry{
			ThreadID:       e.ThreadID,
			CompletionTime: e.CompletionTime,
			DelayPercent:   delay,
		})
		stragglers[e.ThreadID] = struct{}{}
	}

	w.StragglerThreadIDs = stragglers
	w.IsStraggler = len(stragglers) > 0
	w.StragglerDetail = &model.StragglerDetail{
		AvgCompletionTime:    avg,
		MaxCompletionTime:    maxT,
		MinCompletionTime:    minT,
		CompletionTimeSpread: maxT - minT,
		Entries:              entries,
	}
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}
