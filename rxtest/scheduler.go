package rxtest

import (
	"container/heap"
	"sync"
	"time"

	"github.com/gorx/rx"
)

// TestScheduler is a manually-advanced virtual-time rx.Scheduler: nothing
// runs until AdvanceBy or AdvanceTo is called, so time-aware operators
// (Debounce, Sample, Throttle, Timeout, BufferTime) can be driven
// deterministically in a test instead of racing a real clock. Grounded in
// the teacher's scheduler tests, generalized the way RxJava's TestScheduler
// generalizes a wall-clock scheduler into one with an explicit virtual now.
type TestScheduler struct {
	mu      sync.Mutex
	now     time.Time
	tasks   taskHeap
	nextSeq uint64
}

// NewTestScheduler starts the virtual clock at the given time.
func NewTestScheduler(start time.Time) *TestScheduler {
	return &TestScheduler{now: start}
}

type scheduledTask struct {
	at     time.Time
	seq    uint64
	action rx.Action
	cancel *bool
}

type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(*scheduledTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (s *TestScheduler) Schedule(action rx.Action) rx.Subscription {
	return s.ScheduleDelayed(action, 0)
}

func (s *TestScheduler) ScheduleDelayed(action rx.Action, delay time.Duration) rx.Subscription {
	s.mu.Lock()
	cancelled := false
	task := &scheduledTask{at: s.now.Add(delay), seq: s.nextSeq, action: action, cancel: &cancelled}
	s.nextSeq++
	heap.Push(&s.tasks, task)
	s.mu.Unlock()

	return rx.NewActionSubscription(func() {
		s.mu.Lock()
		*task.cancel = true
		s.mu.Unlock()
	})
}

func (s *TestScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AdvanceBy moves the virtual clock forward by d, running every task due at
// or before the new time, in (time, arrival-order) order, including tasks
// that schedule further tasks within this same advance.
func (s *TestScheduler) AdvanceBy(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()
	s.AdvanceTo(target)
}

// AdvanceTo moves the virtual clock forward to target, running every due
// task along the way.
func (s *TestScheduler) AdvanceTo(target time.Time) {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 || s.tasks[0].at.After(target) {
			s.now = target
			s.mu.Unlock()
			return
		}
		task := heap.Pop(&s.tasks).(*scheduledTask)
		s.now = task.at
		cancelled := *task.cancel
		s.mu.Unlock()

		if !cancelled {
			task.action()
		}
	}
}

var _ rx.Scheduler = (*TestScheduler)(nil)
