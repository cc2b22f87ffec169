package rx

import (
	"context"
	"sort"
)

// Just emits the given values, in order, then completes — all synchronously
// on the subscribing goroutine, grounded in the teacher's factory.Just.
func Just[T any](values ...T) Stream[T] {
	return New[T]("Just", func(observer Observer[T]) Subscription {
		for _, v := range values {
			if observer == nil {
				break
			}
			observer.OnNext(v)
		}
		observer.OnCompleted()
		return Noop
	})
}

// Empty completes immediately without emitting any value.
func Empty[T any]() Stream[T] {
	return New[T]("Empty", func(observer Observer[T]) Subscription {
		observer.OnCompleted()
		return Noop
	})
}

// Never emits nothing and never terminates.
func Never[T any]() Stream[T] {
	return New[T]("Never", func(observer Observer[T]) Subscription {
		return Noop
	})
}

// ErrorStream emits err immediately and nothing else.
func ErrorStream[T any](err error) Stream[T] {
	return New[T]("Error", func(observer Observer[T]) Subscription {
		observer.OnError(err)
		return Noop
	})
}

// RangeInts emits count consecutive ints starting at start, then completes.
func RangeInts(start, count int) Stream[int] {
	return New[int]("Range", func(observer Observer[int]) Subscription {
		for i := 0; i < count; i++ {
			observer.OnNext(start + i)
		}
		observer.OnCompleted()
		return Noop
	})
}

// FromSlice emits each element of values in order, then completes.
func FromSlice[T any](values []T) Stream[T] {
	return New[T]("FromSlice", func(observer Observer[T]) Subscription {
		for _, v := range values {
			observer.OnNext(v)
		}
		observer.OnCompleted()
		return Noop
	})
}

// FromChannel emits every value received from ch until it is closed, then
// completes. Unsubscribing stops forwarding further values but does not
// close ch (the producer still owns it), matching the "cooperative
// cancellation" semantics of spec §5.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return New[T]("FromChannel", func(observer Observer[T]) Subscription {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						observer.OnCompleted()
						return
					}
					observer.OnNext(v)
				}
			}
		}()
		return NewActionSubscription(func() { close(done) })
	})
}

// Future is the minimal contract FromFuture needs: a blocking getter, as
// named by spec §3.6's "from(future[, timeout])".
type Future[T any] interface {
	Get(ctx context.Context) (T, error)
}

// FromFuture blocks the subscribing goroutine on future.Get (spec §5:
// "from(future) blocks the thread that calls the future's get — avoidance
// is the user's responsibility via subscribeOn"), emitting the single
// result or error. ctx carries the optional timeout.
func FromFuture[T any](ctx context.Context, future Future[T]) Stream[T] {
	return New[T]("FromFuture", func(observer Observer[T]) Subscription {
		v, err := future.Get(ctx)
		if err != nil {
			observer.OnError(err)
			return Noop
		}
		observer.OnNext(v)
		observer.OnCompleted()
		return Noop
	})
}

// Defer calls factory anew for every subscriber, so that each subscription
// gets its own freshly-built Stream (spec §4.6's defer).
func Defer[T any](factory func() Stream[T]) Stream[T] {
	return New[T]("Defer", func(observer Observer[T]) Subscription {
		return factory().Subscribe(observer)
	})
}

// Concat subscribes to each source in order, moving to the next only after
// the previous completes; any error short-circuits the whole chain.
func Concat[T any](sources ...Stream[T]) Stream[T] {
	return New[T]("Concat", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var subscribeNext func(i int)
		subscribeNext = func(i int) {
			if composite.IsUnsubscribed() {
				return
			}
			if i >= len(sources) {
				observer.OnCompleted()
				return
			}
			stage := &concatStage[T]{downstream: observer, onDone: func() { subscribeNext(i + 1) }}
			sub := sources[i].Subscribe(stage)
			composite.Add(sub)
		}
		subscribeNext(0)
		return composite
	})
}

type concatStage[T any] struct {
	internalMarker
	downstream Observer[T]
	onDone     func()
}

func (s *concatStage[T]) OnNext(v T)      { s.downstream.OnNext(v) }
func (s *concatStage[T]) OnError(e error) { s.downstream.OnError(e) }
func (s *concatStage[T]) OnCompleted()    { s.onDone() }

// ToSortedSlice collects every value, sorts with less, and emits the sorted
// slice as a single value on completion (spec §4.6's toSortedList).
func ToSortedSlice[T any](upstream Stream[T], less func(a, b T) bool) Stream[[]T] {
	return New[[]T]("ToSortedSlice", func(observer Observer[[]T]) Subscription {
		stage := &toSliceStage[T]{downstream: observer, sort: func(s []T) {
			sort.Slice(s, func(i, j int) bool { return less(s[i], s[j]) })
		}}
		return upstream.Subscribe(stage)
	})
}

type toSliceStage[T any] struct {
	internalMarker
	downstream Observer[[]T]
	items      []T
	sort       func([]T)
}

func (s *toSliceStage[T]) OnNext(v T) { s.items = append(s.items, v) }
func (s *toSliceStage[T]) OnError(e error) { s.downstream.OnError(e) }
func (s *toSliceStage[T]) OnCompleted() {
	if s.sort != nil {
		s.sort(s.items)
	}
	s.downstream.OnNext(s.items)
	s.downstream.OnCompleted()
}

// ToSlice collects every value into a slice, emitted as a single value on
// completion (spec §4.6's toList).
func ToSlice[T any](upstream Stream[T]) Stream[[]T] {
	return New[[]T]("ToSlice", func(observer Observer[[]T]) Subscription {
		stage := &toSliceStage[T]{downstream: observer}
		return upstream.Subscribe(stage)
	})
}
