// Package schedule runs the discrete-event simulation that turns an ordered
// list of subsets into scheduled workers.
package schedule

import (
	"container/heap"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alicel/migsim/pkg/analyze"
	"github.com/alicel/migsim/pkg/model"
	"github.com/alicel/migsim/pkg/subset"
	"github.com/alicel/migsim/pkg/thread"
)

// ErrNoWorkersSpawned is returned when every candidate subset failed to
// spawn a worker, leaving the simulation with nothing to run.
var ErrNoWorkersSpawned = errors.New("schedule: no workers could be spawned")

// ErrInvalidWorkerID is returned when a subset's ID cannot be parsed into a
// worker ID (neither a plain integer nor "subset-X"). This is fatal: the
// simulation stops rather than dropping the subset and continuing.
var ErrInvalidWorkerID = errors.New("schedule: invalid subset ID")

// DroppedSubset records a subset that could not be scheduled.
type DroppedSubset struct {
	Subset subset.Subset
	Reason string
}

// Result is the outcome of running the scheduler over one migration's
// subsets.
type Result struct {
	Workers   []*model.Worker
	Dropped   []DroppedSubset
	TotalTime float64
}

// Scheduler runs the single-threaded, discrete-event worker simulation.
type Scheduler struct {
	cfg    Config
	logger *zap.Logger
}

// NewScheduler validates cfg and constructs a Scheduler.
func NewScheduler(cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{cfg: cfg, logger: logger}, nil
}

// tierQueue is a FIFO of pending subsets for one tier, read with a cursor so
// popping the front is O(1).
type tierQueue struct {
	items  []subset.Subset
	cursor int
}

func (q *tierQueue) empty() bool { return q.cursor >= len(q.items) }

func (q *tierQueue) pop() (subset.Subset, bool) {
	if q.empty() {
		return subset.Subset{}, false
	}

	s := q.items[q.cursor]
	q.cursor++

	return s, true
}

// completionEvent is one entry in the scheduler's event heap.
type completionEvent struct {
	time     float64
	sequence uint64
	worker   *model.Worker
}

type eventHeap []completionEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	return h[i].sequence < h[j].sequence
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(completionEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]

	return e
}

// Run schedules every subset in subsets and returns the completed workers in
// spawn order (not sorted by worker ID).
func (s *Scheduler) Run(subsets []subset.Subset) (*Result, error) {
	pending := map[subset.Tier]*tierQueue{}
	for _, t := range subset.Tiers() {
		pending[t] = &tierQueue{}
	}

	for _, sub := range subsets {
		q := pending[sub.Tier]
		q.items = append(q.items, sub)
	}

	run := &schedulerRun{
		cfg:     s.cfg,
		logger:  s.logger,
		pending: pending,
		active:  map[subset.Tier]int{},
		events:  &eventHeap{},
	}

	var result *Result

	var err error

	switch s.cfg.Mode {
	case ModeConcurrent:
		result, err = run.runConcurrent()
	case ModeSequential:
		result, err = run.runSequential()
	case ModeRoundRobin:
		result, err = run.runRoundRobin()
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownExecutionMode, s.cfg.Mode)
	}

	if err != nil {
		return nil, err
	}

	if len(result.Workers) == 0 && len(subsets) > 0 {
		return nil, fmt.Errorf("%w: %d subset(s) presented", ErrNoWorkersSpawned, len(subsets))
	}

	return result, nil
}

// schedulerRun holds the mutable state of a single Run call.
type schedulerRun struct {
	cfg         Config
	logger      *zap.Logger
	pending     map[subset.Tier]*tierQueue
	active      map[subset.Tier]int
	events      *eventHeap
	currentTime float64
	nextSeq     uint64
	workers     []*model.Worker
	dropped     []DroppedSubset
}

func (r *schedulerRun) tierConfig(t subset.Tier) TierConfig {
	switch t {
	case subset.TierLarge:
		return r.cfg.Worker.Large
	case subset.TierMedium:
		return r.cfg.Worker.Medium
	case subset.TierSmall:
		return r.cfg.Worker.Small
	default:
		return r.cfg.Worker.Universal
	}
}

func (r *schedulerRun) totalActive() int {
	total := 0
	for _, n := range r.active {
		total += n
	}

	return total
}

// spawn attempts to start a worker for the next pending subset in tier t. It
// returns (false, nil) when the tier has no pending subsets, and a non-nil
// error when the popped subset's ID won't parse into a worker ID — a fatal
// condition, matching the reference implementation's behavior of raising
// immediately rather than dropping the subset and continuing.
func (r *schedulerRun) spawn(t subset.Tier) (bool, error) {
	q := r.pending[t]

	sub, ok := q.pop()
	if !ok {
		return false, nil
	}

	workerID, err := subset.ParseWorkerID(sub.SubsetID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidWorkerID, err)
	}

	tc := r.tierConfig(t)

	items := sub.WorkItems()

	timelines := thread.Simulate(items, tc.NumThreads)

	var duration float64
	for _, tl := range timelines {
		if tl.AvailableTime > duration {
			duration = tl.AvailableTime
		}
	}

	w := &model.Worker{
		WorkerID:       workerID,
		Subset:         sub,
		NumThreads:     tc.NumThreads,
		StartTime:      r.currentTime,
		CompletionTime: r.currentTime + duration,
		Threads:        timelines,
	}

	r.active[t]++
	r.workers = append(r.workers, w)

	heap.Push(r.events, completionEvent{time: w.CompletionTime, sequence: r.nextSeq, worker: w})
	r.nextSeq++

	return true, nil
}

// retire pops and processes the single earliest event in the heap, advancing
// currentTime and returning the worker that just completed.
func (r *schedulerRun) retire() *model.Worker {
	e := heap.Pop(r.events).(completionEvent)
	r.currentTime = e.time
	r.active[e.worker.Subset.Tier]--

	if !r.cfg.DisableAnalysis {
		analyze.AnnotateWorker(e.worker, r.cfg.StragglerThresholdPct)
	}

	return e.worker
}

func (r *schedulerRun) finalResult() *Result {
	return &Result{Workers: r.workers, Dropped: r.dropped, TotalTime: r.currentTime}
}

// runConcurrent fills every tier to its own cap, then refills a tier
// whenever one of its workers retires.
func (r *schedulerRun) runConcurrent() (*Result, error) {
	for _, t := range subset.Tiers() {
		tc := r.tierConfig(t)

		for r.active[t] < tc.MaxWorkers {
			spawned, err := r.spawn(t)
			if err != nil {
				return nil, err
			}

			if !spawned {
				break
			}
		}
	}

	for r.events.Len() > 0 {
		w := r.retire()
		tier := w.Subset.Tier
		tc := r.tierConfig(tier)

		if r.active[tier] < tc.MaxWorkers {
			if _, err := r.spawn(tier); err != nil {
				return nil, err
			}
		}
	}

	return r.finalResult(), nil
}

// runSequential drains each tier, in priority order, before starting the
// next.
func (r *schedulerRun) runSequential() (*Result, error) {
	for _, t := range subset.Tiers() {
		tc := r.tierConfig(t)

		for r.active[t] < tc.MaxWorkers {
			spawned, err := r.spawn(t)
			if err != nil {
				return nil, err
			}

			if !spawned {
				break
			}
		}

		for r.active[t] > 0 {
			r.retire()

			if r.active[t] < tc.MaxWorkers {
				if _, err := r.spawn(t); err != nil {
					return nil, err
				}
			}
		}
	}

	return r.finalResult(), nil
}

// runRoundRobin runs every tier under a single global cap, cycling LARGE,
// MEDIUM, SMALL, UNIVERSAL to decide which tier gets the next free slot.
// Each refill pass (the initial fill, and every pass triggered by a
// retirement) restarts its scan at LARGE; the cursor only carries across
// multiple slots filled within the same pass, which is what produces
// LARGE-then-MEDIUM-then-LARGE-then-MEDIUM interleaving ahead of SMALL when
// the earlier tiers still have pending work.
func (r *schedulerRun) runRoundRobin() (*Result, error) {
	cycle := subset.Tiers()

	refill := func() error {
		cursor := 0
		for r.totalActive() < r.cfg.GlobalMaxWorkers {
			spawnedThisSlot := false

			for attempt := 0; attempt < len(cycle); attempt++ {
				t := cycle[cursor]
				cursor = (cursor + 1) % len(cycle)

				if !r.pending[t].empty() {
					if _, err := r.spawn(t); err != nil {
						return err
					}

					spawnedThisSlot = true

					break
				}
			}

			if !spawnedThisSlot {
				return nil
			}
		}

		return nil
	}

	if err := refill(); err != nil {
		return nil, err
	}

	for r.events.Len() > 0 {
		r.retire()

		if err := refill(); err != nil {
			return nil, err
		}
	}

	return r.finalResult(), nil
}
