package rx

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gorx/rx/rxlog"
)

// Action is a unit of work handed to a Scheduler.
type Action func()

// Scheduler abstracts over where and when work runs (spec §3, §6).
type Scheduler interface {
	// Schedule runs action and returns a Subscription that cancels it if
	// it hasn't started yet (best-effort: once an action has begun
	// running on its worker, Unsubscribe does not interrupt it).
	Schedule(action Action) Subscription
	// ScheduleDelayed runs action after delay has elapsed.
	ScheduleDelayed(action Action, delay time.Duration) Subscription
	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

// wallClockNow is shared by every scheduler whose clock is the real one.
func wallClockNow() time.Time { return time.Now() }

// --- immediate: runs synchronously on the calling goroutine -------------

type immediateScheduler struct{}

// Immediate returns the scheduler that runs actions synchronously on the
// calling goroutine, grounded in the teacher's immediateScheduler
// (scheduler.go). ScheduleDelayed is the exception: it runs the action on
// a timer goroutine once delay has elapsed.
func Immediate() Scheduler { return immediateScheduler{} }

func (immediateScheduler) Schedule(action Action) Subscription {
	action()
	return Noop
}

func (immediateScheduler) ScheduleDelayed(action Action, delay time.Duration) Subscription {
	timer := time.NewTimer(delay)
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			action()
		case <-done:
			timer.Stop()
		}
	}()
	return NewActionSubscription(func() { close(done) })
}

func (immediateScheduler) Now() time.Time { return wallClockNow() }

// --- current-thread: trampolined queue on the calling goroutine ---------

// currentThreadScheduler runs actions on whichever goroutine first calls
// Schedule, trampolining re-entrant Schedule calls onto the same queue
// instead of recursing, to avoid unbounded stack growth from an operator
// that schedules from within its own scheduled action. Grounded in the
// teacher's currentThreadScheduler.
type currentThreadScheduler struct {
	mu         sync.Mutex
	queue      []Action
	processing bool
}

// CurrentThread returns a fresh trampolined scheduler. It is not a shared
// singleton: each operator that needs current-thread semantics owns its own
// trampoline so unrelated call chains don't serialize against each other.
func CurrentThread() Scheduler {
	return &currentThreadScheduler{}
}

func (s *currentThreadScheduler) Schedule(action Action) Subscription {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	alreadyProcessing := s.processing
	s.processing = true
	s.mu.Unlock()

	if !alreadyProcessing {
		s.drain()
	}
	return Noop
}

func (s *currentThreadScheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
	}
}

func (s *currentThreadScheduler) ScheduleDelayed(action Action, delay time.Duration) Subscription {
	timer := time.NewTimer(delay)
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			s.Schedule(action)
		case <-done:
			timer.Stop()
		}
	}()
	return NewActionSubscription(func() { close(done) })
}

func (s *currentThreadScheduler) Now() time.Time { return wallClockNow() }

// --- new-thread: one goroutine per action --------------------------------

type newThreadScheduler struct{}

// NewThread returns a scheduler that runs each action on a fresh goroutine.
func NewThread() Scheduler { return newThreadScheduler{} }

func (newThreadScheduler) Schedule(action Action) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		default:
			runScheduledAction(action)
		}
	}()
	return NewActionSubscription(cancel)
}

func (newThreadScheduler) ScheduleDelayed(action Action, delay time.Duration) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			runScheduledAction(action)
		}
	}()
	return NewActionSubscription(cancel)
}

func (newThreadScheduler) Now() time.Time { return wallClockNow() }

// --- thread-pool: fixed worker count, bounded by a semaphore -------------

// poolScheduler runs actions on a bounded set of concurrent workers. The
// bound is enforced with golang.org/x/sync/semaphore rather than a
// hand-rolled counting channel (the concern the retrieval pack's
// Baxromumarov-scoped/semaphore.go hand-rolls for its own worker Pool),
// so a scheduled action either acquires a slot immediately or spawns
// waiting for one, and ScheduleDelayed/cancel release the slot correctly.
type poolScheduler struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPoolScheduler(workers int64) *poolScheduler {
	if workers <= 0 {
		workers = int64(runtime.NumCPU())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &poolScheduler{sem: semaphore.NewWeighted(workers), ctx: ctx, cancel: cancel}
}

// ThreadPool returns a scheduler bounded to workers concurrent actions,
// defaulting to runtime.NumCPU() when workers <= 0.
func ThreadPool(workers int) Scheduler {
	return newPoolScheduler(int64(workers))
}

// IOPool returns a scheduler intended for blocking I/O-bound work: a large
// but still bounded pool (grounded in the teacher's unbounded
// newThreadScheduler, bounded here to guard against runaway goroutine
// growth under a misbehaving producer).
func IOPool() Scheduler {
	return newPoolScheduler(int64(64))
}

func (p *poolScheduler) Schedule(action Action) Subscription {
	ctx, cancel := context.WithCancel(p.ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		select {
		case <-ctx.Done():
		default:
			runScheduledAction(action)
		}
	}()
	return NewActionSubscription(cancel)
}

// runScheduledAction recovers a panicking action so one bad scheduled action
// cannot take the worker's goroutine down with it, and reports the panic
// through rxlog rather than letting it vanish.
func runScheduledAction(action Action) {
	defer func() {
		if r := recover(); r != nil {
			rxlog.Current().Errorw("rx: scheduler worker panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	action()
}

func (p *poolScheduler) ScheduleDelayed(action Action, delay time.Duration) Subscription {
	ctx, cancel := context.WithCancel(p.ctx)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.Schedule(func() {
			select {
			case <-ctx.Done():
			default:
				action()
			}
		})
	}()
	return NewActionSubscription(cancel)
}

func (p *poolScheduler) Now() time.Time { return wallClockNow() }
