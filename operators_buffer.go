package rx

import (
	"sync"
	"time"
)

// Buffer collects values from upstream into slices of at most size values
// and emits each slice as soon as it fills. If upstream completes with a
// partial, non-empty buffer pending, that partial buffer is emitted before
// completion; an empty buffer is never emitted (an Open Question in the
// originating spec, resolved in SPEC_FULL.md).
func Buffer[T any](upstream Stream[T], size int) Stream[[]T] {
	return BufferSkip(upstream, size, size)
}

// BufferSkip is Buffer generalized with an independent skip: a new buffer
// starts every skip values, and each buffer emits once it accumulates size
// values, so overlapping (skip < size) and gapped (skip > size) windows are
// both expressible (spec §4.5's buffer family).
func BufferSkip[T any](upstream Stream[T], size, skip int) Stream[[]T] {
	return New[[]T]("Buffer", func(observer Observer[[]T]) Subscription {
		stage := &bufferCountStage[T]{downstream: observer, size: size, skip: skip}
		return upstream.Subscribe(stage)
	})
}

type bufferCountStage[T any] struct {
	internalMarker
	downstream Observer[[]T]
	size, skip int
	count      int
	windows    [][]T
}

func (s *bufferCountStage[T]) OnNext(v T) {
	if s.count%s.skip == 0 {
		s.windows = append(s.windows, make([]T, 0, s.size))
	}
	s.count++

	for i := range s.windows {
		s.windows[i] = append(s.windows[i], v)
	}

	for len(s.windows) > 0 && len(s.windows[0]) == s.size {
		s.downstream.OnNext(s.windows[0])
		s.windows = s.windows[1:]
	}
}

func (s *bufferCountStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *bufferCountStage[T]) OnCompleted() {
	for _, w := range s.windows {
		if len(w) > 0 {
			s.downstream.OnNext(w)
		}
	}
	s.downstream.OnCompleted()
}

// BufferTime collects values arriving within each successive timespan
// window, measured by scheduler, and emits the accumulated slice (possibly
// empty) when the window closes. Unlike the count-based family, a time
// window that closes empty still emits an empty slice, since the window's
// boundary is itself the signal, not the presence of data (spec §4.5).
func BufferTime[T any](upstream Stream[T], timespan time.Duration, scheduler Scheduler) Stream[[]T] {
	return BufferTimeShift(upstream, timespan, timespan, scheduler)
}

// BufferTimeShift keeps a single window that is emitted and replaced every
// timeshift, measured by scheduler. The timespan argument is not used:
// windows always last exactly timeshift, so they never overlap and never
// leave gaps between them.
func BufferTimeShift[T any](upstream Stream[T], timespan, timeshift time.Duration, scheduler Scheduler) Stream[[]T] {
	return New[[]T]("BufferTime", func(observer Observer[[]T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		current := make([]T, 0)
		closed := false

		flush := func() {
			mu.Lock()
			if closed {
				mu.Unlock()
				return
			}
			out := current
			current = make([]T, 0)
			mu.Unlock()
			observer.OnNext(out)
		}

		var scheduleTick func()
		scheduleTick = func() {
			composite.Add(scheduler.ScheduleDelayed(func() {
				flush()
				mu.Lock()
				done := closed
				mu.Unlock()
				if !done {
					scheduleTick()
				}
			}, timeshift))
		}
		scheduleTick()

		stage := &bufferTimeStage[T]{
			onNext: func(v T) {
				mu.Lock()
				if !closed {
					current = append(current, v)
				}
				mu.Unlock()
			},
			onError: func(err error) {
				mu.Lock()
				closed = true
				mu.Unlock()
				observer.OnError(err)
				composite.Unsubscribe()
			},
			onCompleted: func() {
				mu.Lock()
				out := current
				closed = true
				mu.Unlock()
				if len(out) > 0 {
					observer.OnNext(out)
				}
				observer.OnCompleted()
				composite.Unsubscribe()
			},
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type bufferTimeStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *bufferTimeStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *bufferTimeStage[T]) OnError(err error) { s.onError(err) }
func (s *bufferTimeStage[T]) OnCompleted()    { s.onCompleted() }

// BufferWithBoundary opens a new buffer window each time opening emits, and
// closes (and flushes) it when the stream produced by closingSelector for
// that window emits or completes, matching RxJava's
// buffer(openings, closingSelector) overload — the opening/closing-signal
// variant of the buffer family referenced by spec §4.5.
func BufferWithBoundary[T, O, C any](upstream Stream[T], opening Stream[O], closingSelector func(O) Stream[C]) Stream[[]T] {
	return New[[]T]("BufferWithBoundary", func(observer Observer[[]T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		windows := map[int]*[]T{}
		nextID := 0

		closeWindow := func(id int) {
			mu.Lock()
			buf, ok := windows[id]
			delete(windows, id)
			mu.Unlock()
			if ok {
				observer.OnNext(*buf)
			}
		}

		openingStage := &bufferBoundaryOpenStage[O]{
			onNext: func(signal O) {
				mu.Lock()
				id := nextID
				nextID++
				buf := make([]T, 0)
				windows[id] = &buf
				mu.Unlock()

				closing := closingSelector(signal)
				closeStage := &bufferBoundaryCloseStage[C]{
					onSignal: func() { closeWindow(id) },
				}
				composite.Add(closing.Subscribe(closeStage))
			},
			onCompleted: func() {},
		}
		composite.Add(opening.Subscribe(openingStage))

		mainStage := &bufferBoundaryMainStage[T]{
			onNext: func(v T) {
				mu.Lock()
				for _, buf := range windows {
					*buf = append(*buf, v)
				}
				mu.Unlock()
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
		composite.Add(upstream.Subscribe(mainStage))
		return composite
	})
}

type bufferBoundaryOpenStage[O any] struct {
	internalMarker
	onNext      func(O)
	onCompleted func()
}

func (s *bufferBoundaryOpenStage[O]) OnNext(v O)     { s.onNext(v) }
func (s *bufferBoundaryOpenStage[O]) OnError(error) {}
func (s *bufferBoundaryOpenStage[O]) OnCompleted()  { s.onCompleted() }

type bufferBoundaryCloseStage[C any] struct {
	internalMarker
	onSignal func()
	fired    bool
}

func (s *bufferBoundaryCloseStage[C]) OnNext(C) {
	if !s.fired {
		s.fired = true
		s.onSignal()
	}
}
func (s *bufferBoundaryCloseStage[C]) OnError(error) {}
func (s *bufferBoundaryCloseStage[C]) OnCompleted() {
	if !s.fired {
		s.fired = true
		s.onSignal()
	}
}

type bufferBoundaryMainStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *bufferBoundaryMainStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *bufferBoundaryMainStage[T]) OnError(err error) { s.onError(err) }
func (s *bufferBoundaryMainStage[T]) OnCompleted()    { s.onCompleted() }
