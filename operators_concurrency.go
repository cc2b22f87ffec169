package rx

import (
	"sync"
	"time"
)

// SubscribeOn moves the actual upstream Subscribe call onto scheduler,
// returning immediately to the caller with a Subscription that cancels the
// scheduled subscribe if it hasn't run yet (spec §3, §6).
func SubscribeOn[T any](upstream Stream[T], scheduler Scheduler) Stream[T] {
	return New[T]("SubscribeOn", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		composite.Add(scheduler.Schedule(func() {
			composite.Add(upstream.Subscribe(observer))
		}))
		return composite
	})
}

// ObserveOn redelivers every OnNext/OnError/OnCompleted from upstream onto
// scheduler, preserving order via a single serial queue rather than one
// scheduled action per event racing against the next (spec §3, §6).
func ObserveOn[T any](upstream Stream[T], scheduler Scheduler) Stream[T] {
	return New[T]("ObserveOn", func(observer Observer[T]) Subscription {
		stage := &observeOnStage[T]{downstream: observer, scheduler: scheduler}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type observeOnStage[T any] struct {
	internalMarker
	downstream Observer[T]
	scheduler  Scheduler
	upstream   Subscription

	mu      sync.Mutex
	queue   []func()
	running bool
}

func (s *observeOnStage[T]) enqueue(action func()) {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.scheduler.Schedule(s.drain)
}

func (s *observeOnStage[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
	}
}

func (s *observeOnStage[T]) OnNext(v T)      { s.enqueue(func() { s.downstream.OnNext(v) }) }
func (s *observeOnStage[T]) OnError(err error) { s.enqueue(func() { s.downstream.OnError(err) }) }
func (s *observeOnStage[T]) OnCompleted()    { s.enqueue(func() { s.downstream.OnCompleted() }) }

// Synchronize wraps upstream so that, regardless of how many goroutines a
// multi-threaded producer uses to call the underlying OnSubscribe function,
// every event downstream is delivered serialized behind a single mutex
// (spec §3's "producer discipline" note, made defensive for the cases where
// a producer does not honor it).
func Synchronize[T any](upstream Stream[T]) Stream[T] {
	return New[T]("Synchronize", func(observer Observer[T]) Subscription {
		var mu sync.Mutex
		stage := &synchronizeStage[T]{downstream: observer, mu: &mu}
		return upstream.Subscribe(stage)
	})
}

type synchronizeStage[T any] struct {
	internalMarker
	downstream Observer[T]
	mu         *sync.Mutex
}

func (s *synchronizeStage[T]) OnNext(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downstream.OnNext(v)
}
func (s *synchronizeStage[T]) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downstream.OnError(err)
}
func (s *synchronizeStage[T]) OnCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downstream.OnCompleted()
}

// Sample emits the most recent value from upstream every period, as
// measured by scheduler, dropping every value that arrives between ticks
// rather than buffering them. No value is emitted on a tick where nothing
// new has arrived since the previous one (spec §4.5: time-aware sampling).
func Sample[T any](upstream Stream[T], period time.Duration, scheduler Scheduler) Stream[T] {
	return New[T]("Sample", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		var latest T
		have := false
		done := false

		tick := func() {
			mu.Lock()
			v, ok := latest, have
			have = false
			finished := done
			mu.Unlock()
			if ok {
				observer.OnNext(v)
			}
			if finished {
				observer.OnCompleted()
				composite.Unsubscribe()
			}
		}

		var scheduleNext func()
		scheduleNext = func() {
			composite.Add(scheduler.ScheduleDelayed(func() {
				tick()
				mu.Lock()
				finished := done
				mu.Unlock()
				if !finished {
					scheduleNext()
				}
			}, period))
		}
		scheduleNext()

		stage := &sampleStage[T]{
			onNext: func(v T) { mu.Lock(); latest, have = v, true; mu.Unlock() },
			onError: func(err error) {
				observer.OnError(err)
				composite.Unsubscribe()
			},
			onCompleted: func() { mu.Lock(); done = true; mu.Unlock() },
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type sampleStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *sampleStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *sampleStage[T]) OnError(err error) { s.onError(err) }
func (s *sampleStage[T]) OnCompleted()    { s.onCompleted() }

// Debounce emits a value only after silence has elapsed since it arrived:
// every new value cancels the pending scheduled emission of the previous
// one and starts a fresh timer (spec §4.5). Upstream completion flushes
// whatever value is currently pending, if any.
func Debounce[T any](upstream Stream[T], duration time.Duration, scheduler Scheduler) Stream[T] {
	return New[T]("Debounce", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		var pendingTimer Subscription
		var pendingValue T
		havePending := false

		flush := func() {
			mu.Lock()
			v, ok := pendingValue, havePending
			havePending = false
			mu.Unlock()
			if ok {
				observer.OnNext(v)
			}
		}

		stage := &debounceStage[T]{
			onNext: func(v T) {
				mu.Lock()
				if pendingTimer != nil {
					pendingTimer.Unsubscribe()
				}
				pendingValue, havePending = v, true
				timer := scheduler.ScheduleDelayed(flush, duration)
				pendingTimer = timer
				composite.Add(timer)
				mu.Unlock()
			},
			onError: func(err error) {
				observer.OnError(err)
				composite.Unsubscribe()
			},
			onCompleted: func() {
				flush()
				observer.OnCompleted()
				composite.Unsubscribe()
			},
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type debounceStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *debounceStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *debounceStage[T]) OnError(err error) { s.onError(err) }
func (s *debounceStage[T]) OnCompleted()    { s.onCompleted() }

// Throttle forwards the first value in every window of duration and drops
// every other value that arrives before the window elapses (leading-edge
// throttling, spec §4.5's other time-aware combinator alongside Debounce
// and Sample).
func Throttle[T any](upstream Stream[T], duration time.Duration, scheduler Scheduler) Stream[T] {
	return New[T]("Throttle", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		gateOpen := true

		stage := &throttleStage[T]{
			onNext: func(v T) {
				mu.Lock()
				open := gateOpen
				if open {
					gateOpen = false
				}
				mu.Unlock()
				if !open {
					return
				}
				observer.OnNext(v)
				composite.Add(scheduler.ScheduleDelayed(func() {
					mu.Lock()
					gateOpen = true
					mu.Unlock()
				}, duration))
			},
			onError: func(err error) {
				observer.OnError(err)
				composite.Unsubscribe()
			},
			onCompleted: func() {
				observer.OnCompleted()
				composite.Unsubscribe()
			},
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type throttleStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *throttleStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *throttleStage[T]) OnError(err error) { s.onError(err) }
func (s *throttleStage[T]) OnCompleted()    { s.onCompleted() }
