package sched

import (
	"container/heap"

	"queuedfs/internal/job"
)

// sjfHeap is the container/heap.Interface backing SJF: jobs order by
// EstCost ascending, tying on ArrivalMS so no job starves among equal-cost
// peers. EstCost == 0 (unknown) sorts smallest, i.e. highest priority —
// deliberate: a request the acceptor couldn't estimate is served promptly
// rather than deferred.
type sjfHeap []job.Job

func (h sjfHeap) Len() int { return len(h) }

func (h sjfHeap) Less(i, j int) bool {
	if h[i].EstCost != h[j].EstCost {
		return h[i].EstCost < h[j].EstCost
	}
	return h[i].ArrivalMS < h[j].ArrivalMS
}

func (h sjfHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *sjfHeap) Push(x any) { *h = append(*h, x.(job.Job)) }

func (h *sjfHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = job.Job{}
	*h = old[:n-1]
	return j
}

// SJF is a fixed-capacity shortest-job-first scheduler. It does not
// guarantee freedom from starvation under a continuous stream of small
// jobs — that is an accepted property of the policy, not a bug.
type SJF struct {
	capacity int
	heap     sjfHeap
}

// NewSJF allocates a binary min-heap of capacity slots. A non-positive
// capacity is clamped to 1.
func NewSJF(capacity int) *SJF {
	if capacity <= 0 {
		capacity = 1
	}
	s := &SJF{capacity: capacity, heap: make(sjfHeap, 0, capacity)}
	heap.Init(&s.heap)
	return s
}

func (s *SJF) Cap() int { return s.capacity }
func (s *SJF) Len() int { return s.heap.Len() }

func (s *SJF) Push(j job.Job) Status {
	if s.heap.Len() >= s.capacity {
		return Full
	}
	heap.Push(&s.heap, j)
	return OK
}

func (s *SJF) Pop() (job.Job, Status) {
	if s.heap.Len() == 0 {
		return job.Job{}, Empty
	}
	return heap.Pop(&s.heap).(job.Job), OK
}
