package rx

// All emits a single bool: whether predicate held for every value upstream
// produced. It short-circuits to false (and unsubscribes upstream) on the
// first value predicate rejects (spec §4.6's all()).
func All[T any](upstream Stream[T], predicate func(T) bool) Stream[bool] {
	return New[bool]("All", func(observer Observer[bool]) Subscription {
		stage := &allStage[T]{downstream: observer, predicate: predicate, result: true}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type allStage[T any] struct {
	internalMarker
	downstream Observer[bool]
	predicate  func(T) bool
	result     bool
	upstream   Subscription
}

func (s *allStage[T]) OnNext(v T) {
	var ok bool
	if err := callRecovered(func() { ok = s.predicate(v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	if !ok {
		s.result = false
		s.downstream.OnNext(false)
		s.downstream.OnCompleted()
		if s.upstream != nil {
			s.upstream.Unsubscribe()
		}
	}
}
func (s *allStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *allStage[T]) OnCompleted() {
	if s.result {
		s.downstream.OnNext(true)
	}
	s.downstream.OnCompleted()
}

// Any emits a single bool: whether predicate held for at least one value
// upstream produced, short-circuiting to true on the first match (spec
// §4.6's exists()/any()).
func Any[T any](upstream Stream[T], predicate func(T) bool) Stream[bool] {
	return New[bool]("Any", func(observer Observer[bool]) Subscription {
		stage := &anyStage[T]{downstream: observer, predicate: predicate}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type anyStage[T any] struct {
	internalMarker
	downstream Observer[bool]
	predicate  func(T) bool
	matched    bool
	upstream   Subscription
}

func (s *anyStage[T]) OnNext(v T) {
	var ok bool
	if err := callRecovered(func() { ok = s.predicate(v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	if ok {
		s.matched = true
		s.downstream.OnNext(true)
		s.downstream.OnCompleted()
		if s.upstream != nil {
			s.upstream.Unsubscribe()
		}
	}
}
func (s *anyStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *anyStage[T]) OnCompleted() {
	if !s.matched {
		s.downstream.OnNext(false)
	}
	s.downstream.OnCompleted()
}

// Count emits the number of values upstream produced, once upstream
// completes.
func Count[T any](upstream Stream[T]) Stream[int] {
	return New[int]("Count", func(observer Observer[int]) Subscription {
		stage := &countStage[T]{downstream: observer}
		return upstream.Subscribe(stage)
	})
}

type countStage[T any] struct {
	internalMarker
	downstream Observer[int]
	n          int
}

func (s *countStage[T]) OnNext(T)          { s.n++ }
func (s *countStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *countStage[T]) OnCompleted() {
	s.downstream.OnNext(s.n)
	s.downstream.OnCompleted()
}

// ElementAt emits the value at the given 0-based index and completes,
// erroring if upstream completes with fewer than index+1 values.
func ElementAt[T any](upstream Stream[T], index int) Stream[T] {
	return New[T]("ElementAt", func(observer Observer[T]) Subscription {
		stage := &elementAtStage[T]{downstream: observer, index: index}
		sub := upstream.Subscribe(stage)
		stage.upstream = sub
		return sub
	})
}

type elementAtStage[T any] struct {
	internalMarker
	downstream Observer[T]
	index      int
	seen       int
	upstream   Subscription
}

func (s *elementAtStage[T]) OnNext(v T) {
	if s.seen == s.index {
		s.downstream.OnNext(v)
		s.downstream.OnCompleted()
		if s.upstream != nil {
			s.upstream.Unsubscribe()
		}
	}
	s.seen++
}
func (s *elementAtStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *elementAtStage[T]) OnCompleted() {
	if s.seen <= s.index {
		s.downstream.OnError(ErrIndexOutOfRange)
		return
	}
	s.downstream.OnCompleted()
}

// SequenceEqual is literally zip with equality (spec §4.6): it emits
// equal(a_i, b_i) for every positional pair as soon as both sides have
// produced their i-th value, and completes under the same policy as Zip2
// (once either input has completed and all of its values have been
// paired). For [1,2,3] vs [1,2,4] this yields
// next(true), next(true), next(false), completed (spec §8 scenario 3) —
// a caller wanting the single aggregate "are these two sequences equal"
// boolean reduces the emitted stream with All(identity) themselves.
func SequenceEqual[T any](a, b Stream[T], equal func(x, y T) bool) Stream[bool] {
	return Zip2(a, b, equal)
}
