package rx

import "sync/atomic"

// Filter (aka where) passes through only values for which predicate
// returns true. A panic inside predicate becomes on_error downstream with
// upstream unsubscribed (spec §4.3).
func Filter[T any](upstream Stream[T], predicate func(T) bool) Stream[T] {
	return New[T]("Filter", func(observer Observer[T]) Subscription {
		stage := &filterStage[T]{downstream: observer, predicate: predicate}
		return upstream.Subscribe(stage)
	})
}

type filterStage[T any] struct {
	internalMarker
	downstream Observer[T]
	predicate  func(T) bool
}

func (s *filterStage[T]) OnNext(v T) {
	var keep bool
	if err := callRecovered(func() { keep = s.predicate(v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	if keep {
		s.downstream.OnNext(v)
	}
}

func (s *filterStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *filterStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// Skip drops the first n values, forwarding everything after.
func Skip[T any](upstream Stream[T], n int) Stream[T] {
	return New[T]("Skip", func(observer Observer[T]) Subscription {
		stage := &skipStage[T]{downstream: observer, remaining: n}
		return upstream.Subscribe(stage)
	})
}

type skipStage[T any] struct {
	internalMarker
	downstream Observer[T]
	remaining  int
}

func (s *skipStage[T]) OnNext(v T) {
	if s.remaining > 0 {
		s.remaining--
		return
	}
	s.downstream.OnNext(v)
}
func (s *skipStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *skipStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// Take forwards at most the first n values then completes downstream and
// unsubscribes upstream.
func Take[T any](upstream Stream[T], n int) Stream[T] {
	return New[T]("Take", func(observer Observer[T]) Subscription {
		if n <= 0 {
			observer.OnCompleted()
			return Noop
		}
		stage := &takeStage[T]{downstream: observer, remaining: n}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type takeStage[T any] struct {
	internalMarker
	downstream Observer[T]
	remaining  int
	upstream   Subscription
}

func (s *takeStage[T]) OnNext(v T) {
	if s.remaining <= 0 {
		return
	}
	s.remaining--
	s.downstream.OnNext(v)
	if s.remaining == 0 {
		s.downstream.OnCompleted()
		if s.upstream != nil {
			s.upstream.Unsubscribe()
		}
	}
}
func (s *takeStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *takeStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// TakeWhile forwards values while predicate holds, completing downstream
// and unsubscribing upstream as soon as it returns false.
func TakeWhile[T any](upstream Stream[T], predicate func(T) bool) Stream[T] {
	return TakeWhileWithIndex(upstream, func(v T, _ int) bool { return predicate(v) })
}

// TakeWhileWithIndex is TakeWhile with the 0-based index of the value
// passed to predicate alongside it (spec §4.6).
func TakeWhileWithIndex[T any](upstream Stream[T], predicate func(T, int) bool) Stream[T] {
	return New[T]("TakeWhile", func(observer Observer[T]) Subscription {
		stage := &takeWhileStage[T]{downstream: observer, predicate: predicate}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type takeWhileStage[T any] struct {
	internalMarker
	downstream Observer[T]
	predicate  func(T, int) bool
	index      int
	upstream   Subscription
}

func (s *takeWhileStage[T]) OnNext(v T) {
	var keep bool
	if err := callRecovered(func() { keep = s.predicate(v, s.index) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	s.index++
	if !keep {
		s.downstream.OnCompleted()
		if s.upstream != nil {
			s.upstream.Unsubscribe()
		}
		return
	}
	s.downstream.OnNext(v)
}
func (s *takeWhileStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *takeWhileStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// TakeLast buffers every value and emits only the final n once upstream
// completes (spec §4.6: "requires completion before emission").
func TakeLast[T any](upstream Stream[T], n int) Stream[T] {
	return New[T]("TakeLast", func(observer Observer[T]) Subscription {
		stage := &takeLastStage[T]{downstream: observer, n: n}
		return upstream.Subscribe(stage)
	})
}

type takeLastStage[T any] struct {
	internalMarker
	downstream Observer[T]
	n          int
	buf        []T
}

func (s *takeLastStage[T]) OnNext(v T) {
	if s.n <= 0 {
		return
	}
	s.buf = append(s.buf, v)
	if len(s.buf) > s.n {
		s.buf = s.buf[len(s.buf)-s.n:]
	}
}
func (s *takeLastStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *takeLastStage[T]) OnCompleted() {
	for _, v := range s.buf {
		s.downstream.OnNext(v)
	}
	s.downstream.OnCompleted()
}

// TakeUntil forwards upstream until other emits its first value (or
// terminates), at which point downstream completes and both upstream and
// other are unsubscribed (spec §4.5).
func TakeUntil[T, U any](upstream Stream[T], other Stream[U]) Stream[T] {
	return New[T]("TakeUntil", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		done := make(chan struct{})
		var once boolOnce

		finish := func() {
			if once.do() {
				close(done)
				observer.OnCompleted()
				composite.Unsubscribe()
			}
		}

		otherStage := &takeUntilOtherStage[U]{onTrigger: finish}
		composite.Add(other.Subscribe(otherStage))

		mainStage := &takeUntilMainStage[T]{downstream: observer, done: done, finish: func() {
			if once.do() {
				close(done)
				composite.Unsubscribe()
			}
		}}
		composite.Add(upstream.Subscribe(mainStage))
		return composite
	})
}

// boolOnce runs its effect exactly once across concurrent callers.
type boolOnce struct {
	done atomic.Bool
}

func (b *boolOnce) do() bool { return b.done.CompareAndSwap(false, true) }

type takeUntilOtherStage[U any] struct {
	internalMarker
	onTrigger func()
}

func (s *takeUntilOtherStage[U]) OnNext(U)      { s.onTrigger() }
func (s *takeUntilOtherStage[U]) OnError(error) { s.onTrigger() }
func (s *takeUntilOtherStage[U]) OnCompleted()  { s.onTrigger() }

type takeUntilMainStage[T any] struct {
	internalMarker
	downstream Observer[T]
	done       chan struct{}
	finish     func()
}

func (s *takeUntilMainStage[T]) OnNext(v T) {
	select {
	case <-s.done:
		return
	default:
	}
	s.downstream.OnNext(v)
}
func (s *takeUntilMainStage[T]) OnError(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	s.finish()
	s.downstream.OnError(err)
}
func (s *takeUntilMainStage[T]) OnCompleted() {
	select {
	case <-s.done:
		return
	default:
	}
	s.finish()
	s.downstream.OnCompleted()
}
