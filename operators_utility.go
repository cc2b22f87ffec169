package rx

import "sync"

// DoOnNext runs action for its side effect on every value, then forwards
// the value unchanged. A panic inside action becomes on_error, same as any
// other operator callback (spec §4.6's doOnNext).
func DoOnNext[T any](upstream Stream[T], action func(T)) Stream[T] {
	return New[T]("DoOnNext", func(observer Observer[T]) Subscription {
		stage := &doStage[T]{downstream: observer, onNextFn: action}
		return upstream.Subscribe(stage)
	})
}

// DoOnError runs action on the error upstream raises, then still forwards
// it downstream (spec §4.6's doOnError).
func DoOnError[T any](upstream Stream[T], action func(error)) Stream[T] {
	return New[T]("DoOnError", func(observer Observer[T]) Subscription {
		stage := &doStage[T]{downstream: observer, onErrorFn: action}
		return upstream.Subscribe(stage)
	})
}

// DoOnCompleted runs action when upstream completes, then still completes
// downstream (spec §4.6's doOnCompleted).
func DoOnCompleted[T any](upstream Stream[T], action func()) Stream[T] {
	return New[T]("DoOnCompleted", func(observer Observer[T]) Subscription {
		stage := &doStage[T]{downstream: observer, onCompletedFn: action}
		return upstream.Subscribe(stage)
	})
}

// FinallyDo runs action exactly once after upstream reaches any terminal
// state — on_error, on_completed, or unsubscribe — whichever comes first
// (spec §4.6's finallyDo, grounded on the same "runs once regardless of
// path" contract as a deferred cleanup).
func FinallyDo[T any](upstream Stream[T], action func()) Stream[T] {
	return New[T]("FinallyDo", func(observer Observer[T]) Subscription {
		var once boolOnce
		run := func() {
			if once.do() {
				action()
			}
		}
		stage := &doStage[T]{
			downstream:    observer,
			onErrorFn:     func(error) { run() },
			onCompletedFn: run,
		}
		sub := upstream.Subscribe(stage)
		return NewActionSubscription(func() {
			sub.Unsubscribe()
			run()
		})
	})
}

type doStage[T any] struct {
	internalMarker
	downstream    Observer[T]
	onNextFn      func(T)
	onErrorFn     func(error)
	onCompletedFn func()
}

func (s *doStage[T]) OnNext(v T) {
	if s.onNextFn != nil {
		if err := callRecovered(func() { s.onNextFn(v) }); err != nil {
			s.downstream.OnError(err)
			return
		}
	}
	s.downstream.OnNext(v)
}
func (s *doStage[T]) OnError(err error) {
	if s.onErrorFn != nil {
		s.onErrorFn(err)
	}
	s.downstream.OnError(err)
}
func (s *doStage[T]) OnCompleted() {
	if s.onCompletedFn != nil {
		s.onCompletedFn()
	}
	s.downstream.OnCompleted()
}

// GroupedStream pairs a key with the Stream[T] of values sharing it, the
// element type GroupBy emits (spec §4.6's groupBy).
type GroupedStream[K comparable, T any] struct {
	Key    K
	Values Stream[T]
}

// GroupBy partitions upstream by keySelector, emitting one GroupedStream
// per distinct key the first time that key is seen. Every group's inner
// Stream replays nothing: it is itself a PublishSubject fed from upstream,
// so a group must be subscribed promptly or its values in the interim are
// lost, matching RxJava's groupBy semantics.
func GroupBy[K comparable, T any](upstream Stream[T], keySelector func(T) K) Stream[GroupedStream[K, T]] {
	return New[GroupedStream[K, T]]("GroupBy", func(observer Observer[GroupedStream[K, T]]) Subscription {
		var mu sync.Mutex
		groups := map[K]*PublishSubject[T]{}

		stage := &groupByStage[T]{
			onNext: func(v T) {
				var key K
				if err := callRecovered(func() { key = keySelector(v) }); err != nil {
					observer.OnError(err)
					return
				}
				mu.Lock()
				subject, ok := groups[key]
				if !ok {
					subject = NewPublishSubject[T]()
					groups[key] = subject
				}
				mu.Unlock()
				if !ok {
					observer.OnNext(GroupedStream[K, T]{Key: key, Values: subject.AsStream()})
				}
				subject.OnNext(v)
			},
			onError: func(err error) {
				mu.Lock()
				snapshot := make([]*PublishSubject[T], 0, len(groups))
				for _, s := range groups {
					snapshot = append(snapshot, s)
				}
				mu.Unlock()
				for _, s := range snapshot {
					s.OnError(err)
				}
				observer.OnError(err)
			},
			onCompleted: func() {
				mu.Lock()
				snapshot := make([]*PublishSubject[T], 0, len(groups))
				for _, s := range groups {
					snapshot = append(snapshot, s)
				}
				mu.Unlock()
				for _, s := range snapshot {
					s.OnCompleted()
				}
				observer.OnCompleted()
			},
		}
		return upstream.Subscribe(stage)
	})
}

type groupByStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *groupByStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *groupByStage[T]) OnError(err error) { s.onError(err) }
func (s *groupByStage[T]) OnCompleted()    { s.onCompleted() }

// FlatMap (aka mapMany/selectMany) applies project to every value and
// merges the resulting streams concurrently, forwarding every value from
// every active inner stream as it arrives. The outer completes once the
// upstream and every still-active inner stream have completed (spec
// §4.3's mapMany, generalized to n concurrent inner streams as RxJava's
// flatMap does).
func FlatMap[T, R any](upstream Stream[T], project func(T) Stream[R]) Stream[R] {
	return New[R]("FlatMap", func(observer Observer[R]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		active := 1 // upstream itself counts until it completes
		var once boolOnce

		checkDone := func() {
			mu.Lock()
			done := active == 0
			mu.Unlock()
			if done && once.do() {
				observer.OnCompleted()
			}
		}
		fail := func(err error) {
			if once.do() {
				observer.OnError(err)
				composite.Unsubscribe()
			}
		}

		outerStage := &flatMapOuterStage[T, R]{
			onNext: func(v T) {
				var inner Stream[R]
				if err := callRecovered(func() { inner = project(v) }); err != nil {
					fail(err)
					return
				}
				mu.Lock()
				active++
				mu.Unlock()
				innerStage := &flatMapInnerStage[R]{
					downstream: observer,
					mu:         &mu,
					onError:    fail,
					onCompleted: func() {
						mu.Lock()
						active--
						mu.Unlock()
						checkDone()
					},
				}
				composite.Add(inner.Subscribe(innerStage))
			},
			onError: fail,
			onCompleted: func() {
				mu.Lock()
				active--
				mu.Unlock()
				checkDone()
			},
		}
		composite.Add(upstream.Subscribe(outerStage))
		return composite
	})
}

type flatMapOuterStage[T, R any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *flatMapOuterStage[T, R]) OnNext(v T)      { s.onNext(v) }
func (s *flatMapOuterStage[T, R]) OnError(err error) { s.onError(err) }
func (s *flatMapOuterStage[T, R]) OnCompleted()    { s.onCompleted() }

// flatMapInnerStage forwards under the shared mutex every inner stage of
// this FlatMap shares, since each inner stream is subscribed independently
// and may emit into the downstream observer concurrently with the others.
type flatMapInnerStage[R any] struct {
	internalMarker
	downstream  Observer[R]
	mu          *sync.Mutex
	onError     func(error)
	onCompleted func()
}

func (s *flatMapInnerStage[R]) OnNext(v R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downstream.OnNext(v)
}
func (s *flatMapInnerStage[R]) OnError(err error) { s.onError(err) }
func (s *flatMapInnerStage[R]) OnCompleted()      { s.onCompleted() }
