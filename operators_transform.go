package rx

import "time"

// Map applies transform to every value (spec §4.6). A panic inside
// transform is caught and surfaced as on_error, with upstream unsubscribed.
func Map[S, D any](upstream Stream[S], transform func(S) D) Stream[D] {
	return New[D]("Map", func(observer Observer[D]) Subscription {
		stage := &mapStage[S, D]{downstream: observer, transform: transform}
		return upstream.Subscribe(stage)
	})
}

type mapStage[S, D any] struct {
	internalMarker
	downstream Observer[D]
	transform  func(S) D
}

func (s *mapStage[S, D]) OnNext(v S) {
	var out D
	if err := callRecovered(func() { out = s.transform(v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	s.downstream.OnNext(out)
}

func (s *mapStage[S, D]) OnError(err error) { s.downstream.OnError(err) }
func (s *mapStage[S, D]) OnCompleted()      { s.downstream.OnCompleted() }

// ScanSeeded emits the running accumulation f(seed, v1), f(f(seed,v1), v2),
// ... — one output per input, starting from the caller-supplied seed; the
// seed itself is not emitted (spec §4.6's seeded scan).
func ScanSeeded[S, A any](upstream Stream[S], seed A, f func(A, S) A) Stream[A] {
	return New[A]("Scan", func(observer Observer[A]) Subscription {
		stage := &scanStage[S, A]{downstream: observer, acc: seed, f: f}
		return upstream.Subscribe(stage)
	})
}

// Scan is the unseeded variant: the first value passes through unchanged
// and becomes the initial accumulator for subsequent values.
func Scan[T any](upstream Stream[T], f func(T, T) T) Stream[T] {
	return New[T]("Scan", func(observer Observer[T]) Subscription {
		stage := &unseededScanStage[T]{downstream: observer, f: f}
		return upstream.Subscribe(stage)
	})
}

type scanStage[S, A any] struct {
	internalMarker
	downstream Observer[A]
	acc        A
	f          func(A, S) A
}

func (s *scanStage[S, A]) OnNext(v S) {
	var next A
	if err := callRecovered(func() { next = s.f(s.acc, v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	s.acc = next
	s.downstream.OnNext(s.acc)
}

func (s *scanStage[S, A]) OnError(err error) { s.downstream.OnError(err) }
func (s *scanStage[S, A]) OnCompleted()      { s.downstream.OnCompleted() }

type unseededScanStage[T any] struct {
	internalMarker
	downstream Observer[T]
	acc        T
	have       bool
	f          func(T, T) T
}

func (s *unseededScanStage[T]) OnNext(v T) {
	if !s.have {
		s.have = true
		s.acc = v
		s.downstream.OnNext(s.acc)
		return
	}
	var next T
	if err := callRecovered(func() { next = s.f(s.acc, v) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	s.acc = next
	s.downstream.OnNext(s.acc)
}

func (s *unseededScanStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *unseededScanStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// ReduceSeeded is scan(seed, f) followed by takeLast(1): it emits exactly
// one value, the final accumulation, on completion (spec §4.6).
func ReduceSeeded[S, A any](upstream Stream[S], seed A, f func(A, S) A) Stream[A] {
	return TakeLast(ScanSeeded(upstream, seed, f), 1)
}

// Reduce is the unseeded reduce = scan + takeLast(1) (spec §4.6, §8
// property 5).
func Reduce[T any](upstream Stream[T], f func(T, T) T) Stream[T] {
	return TakeLast(Scan(upstream, f), 1)
}

// Timestamp pairs every value with the time it was observed, using now to
// obtain the clock (pass a Scheduler.Now or time.Now).
func Timestamp[T any](upstream Stream[T], now func() time.Time) Stream[Timestamped[T]] {
	return New[Timestamped[T]]("Timestamp", func(observer Observer[Timestamped[T]]) Subscription {
		stage := &timestampStage[T]{downstream: observer, now: now}
		return upstream.Subscribe(stage)
	})
}

// Timestamped pairs a value with the instant it was observed.
type Timestamped[T any] struct {
	Value T
	At    time.Time
}

type timestampStage[T any] struct {
	internalMarker
	downstream Observer[Timestamped[T]]
	now        func() time.Time
}

func (s *timestampStage[T]) OnNext(v T) {
	s.downstream.OnNext(Timestamped[T]{Value: v, At: s.now()})
}
func (s *timestampStage[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *timestampStage[T]) OnCompleted()      { s.downstream.OnCompleted() }

// StartWith prepends values ahead of anything upstream emits.
func StartWith[T any](upstream Stream[T], values ...T) Stream[T] {
	return Concat(FromSlice(values), upstream)
}
