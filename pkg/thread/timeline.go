// Package thread implements the longest-processing-time-first dispatch of
// work items across a fixed number of threads.
package thread

import (
	"container/heap"
	"sort"

	"github.com/alicel/migsim/pkg/work"
)

// Timeline is one thread's schedule: the items it processed, in assignment
// order, and the wall-clock time each one started.
type Timeline struct {
	ThreadID            int
	Items               []work.Item
	TaskStartTimes      []float64
	TotalProcessingTime float64
	AvailableTime       float64
}

// Simulate assigns items to n threads using longest-processing-time-first
// (LPT) dispatch: items are sorted by descending size, and each is assigned
// to whichever thread becomes available soonest (ties broken by the lower
// thread ID). It returns one Timeline per thread, in thread-ID order,
// including threads that never receive any work when n exceeds len(items).
func Simulate(items []work.Item, n int) []Timeline {
	timelines := make([]Timeline, n)
	for i := range timelines {
		timelines[i] = Timeline{ThreadID: i}
	}

	if n <= 0 {
		return timelines
	}

	sorted := make([]work.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})

	h := make(threadHeap, n)
	for i := 0; i < n; i++ {
		h[i] = threadState{threadID: i}
	}

	heap.Init(&h)

	for _, item := range sorted {
		t := heap.Pop(&h).(threadState)

		tl := &timelines[t.threadID]
		tl.TaskStartTimes = append(tl.TaskStartTimes, t.availableTime)
		tl.Items = append(tl.Items, item)
		tl.TotalProcessingTime += float64(item.Size)

		t.availableTime += float64(item.Size)
		tl.AvailableTime = t.availableTime

		heap.Push(&h, t)
	}

	return timelines
}

type threadState struct {
	threadID      int
	availableTime float64
}

// threadHeap orders threads by ascending availableTime, ties broken by the
// lower threadID, matching the "cheapest thread, lowest ID first" dispatch
// rule.
type threadHeap []threadState

func (h threadHeap) Len() int { return len(h) }

func (h threadHeap) Less(i, j int) bool {
	if h[i].availableTime != h[j].availableTime {
		return h[i].availableTime < h[j].availableTime
	}

	return h[i].threadID < h[j].threadID
}

func (h threadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *threadHeap) Push(x any) {
	*h = append(*h, x.(threadState))
}

func (h *threadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
