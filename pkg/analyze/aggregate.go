package analyze

import (
	"github.com/alicel/migsim/pkg/model"
	"github.com/alicel/migsim/pkg/subset"
)

// TierAggregate rolls up worker-level metrics for a single tier.
type TierAggregate struct {
	Tier                   subset.Tier
	TotalWorkers           int
	AnalyzableWorkers      int
	StragglerWorkers       int
	WorkersWithIdleThreads int
	WorkersWithBoth        int
	TotalDataSize          int64
	TotalUsedCPUTime       float64
	TotalActiveCPUTime     float64
}

// EfficiencyPercent is the tier's weighted CPU efficiency: total active CPU
// time over total used CPU time, as a percentage. It is 0 when no CPU time
// was allocated, matching model.Worker.EfficiencyPercent.
func (t *TierAggregate) EfficiencyPercent() float64 {
	if t.TotalUsedCPUTime <= 0 {
		return 0
	}

	return t.TotalActiveCPUTime / t.TotalUsedCPUTime * percentScale
}

// StragglerPercent is the share of this tier's workers flagged as
// stragglers.
func (t *TierAggregate) StragglerPercent() float64 {
	if t.TotalWorkers == 0 {
		return 0
	}

	return float64(t.StragglerWorkers) / float64(t.TotalWorkers) * percentScale
}

// Aggregate is the roll-up across every tier and the run as a whole.
type Aggregate struct {
	ByTier             map[subset.Tier]*TierAggregate
	TotalWorkers       int
	AnalyzableWorkers  int
	TotalDataSize      int64
	TotalUsedCPUTime   float64
	TotalActiveCPUTime float64
}

// EfficiencyPercent is the run-wide weighted CPU efficiency. It is 0 when no
// CPU time was allocated.
func (a *Aggregate) EfficiencyPercent() float64 {
	if a.TotalUsedCPUTime <= 0 {
		return 0
	}

	return a.TotalActiveCPUTime / a.TotalUsedCPUTime * percentScale
}

// BuildAggregate rolls up per-tier and overall metrics from a set of
// already-annotated workers. Callers should run AnnotateWorker on each
// worker before calling this.
func BuildAggregate(workers []*model.Worker) *Aggregate {
	agg := &Aggregate{ByTier: map[subset.Tier]*TierAggregate{}}

	for _, w := range workers {
		tier := w.Subset.Tier

		ta, ok := agg.ByTier[tier]
		if !ok {
			ta = &TierAggregate{Tier: tier}
			agg.ByTier[tier] = ta
		}

		used := w.UsedCPUTime()
		active := w.ActiveCPUTime()
		dataSize := w.ActualDataSize()

		ta.TotalWorkers++
		ta.TotalDataSize += dataSize
		ta.TotalUsedCPUTime += used
		ta.TotalActiveCPUTime += active

		hasIdle := len(w.IdleThreadIDs) > 0

		if w.AnalysisApplicable {
			ta.AnalyzableWorkers++
			agg.AnalyzableWorkers++
		}

		if w.IsStraggler {
			ta.StragglerWorkers++
		}

		if hasIdle {
			ta.WorkersWithIdleThreads++
		}

		if w.IsStraggler && hasIdle {
			ta.WorkersWithBoth++
		}

		agg.TotalWorkers++
		agg.TotalDataSize += dataSize
		agg.TotalUsedCPUTime += used
		agg.TotalActiveCPUTime += active
	}

	return agg
}
