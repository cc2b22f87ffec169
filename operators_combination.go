package rx

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Merge subscribes to every source concurrently and forwards every value
// as it arrives; the first error from any source terminates the merged
// stream immediately, unsubscribing the rest (spec §4.5).
func Merge[T any](sources ...Stream[T]) Stream[T] {
	return New[T]("Merge", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		remaining := len(sources)
		var once boolOnce

		if remaining == 0 {
			observer.OnCompleted()
			return composite
		}

		var g errgroup.Group
		for _, source := range sources {
			source := source
			stage := &mergeStage[T]{
				downstream: observer,
				mu:         &mu,
				onError: func(err error) {
					if once.do() {
						observer.OnError(err)
						composite.Unsubscribe()
					}
				},
				onCompleted: func() {
					mu.Lock()
					remaining--
					done := remaining == 0
					mu.Unlock()
					if done && once.do() {
						observer.OnCompleted()
					}
				},
			}
			g.Go(func() error {
				composite.Add(source.Subscribe(stage))
				return nil
			})
		}
		// Sources are subscribed concurrently: a source whose Subscribe call
		// blocks (e.g. a FromFuture-backed stream) would otherwise delay every
		// source after it in the list from starting at all.
		_ = g.Wait()
		return composite
	})
}

// mergeStage forwards under the shared mutex every merged source's stage
// runs against, since sources are subscribed from separate errgroup
// goroutines and may emit into the downstream observer concurrently.
type mergeStage[T any] struct {
	internalMarker
	downstream  Observer[T]
	mu          *sync.Mutex
	onError     func(error)
	onCompleted func()
}

func (s *mergeStage[T]) OnNext(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downstream.OnNext(v)
}
func (s *mergeStage[T]) OnError(err error) { s.onError(err) }
func (s *mergeStage[T]) OnCompleted()      { s.onCompleted() }

// MergeDelayError behaves like Merge but lets every source run to
// completion even if one or more error: all collected errors are emitted
// together as a single composite error once every source has finished
// (spec §4.5).
func MergeDelayError[T any](sources ...Stream[T]) Stream[T] {
	return New[T]("MergeDelayError", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		remaining := len(sources)
		var errs []error

		if remaining == 0 {
			observer.OnCompleted()
			return composite
		}

		finishOne := func(err error) {
			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			}
			remaining--
			done := remaining == 0
			collected := append([]error(nil), errs...)
			mu.Unlock()

			if !done {
				return
			}
			if composed := newCompositeError(collected); composed != nil {
				observer.OnError(composed)
			} else {
				observer.OnCompleted()
			}
		}

		var g errgroup.Group
		for _, source := range sources {
			source := source
			stage := &mergeStage[T]{
				downstream:  observer,
				mu:          &mu,
				onError:     func(err error) { finishOne(err) },
				onCompleted: func() { finishOne(nil) },
			}
			g.Go(func() error {
				composite.Add(source.Subscribe(stage))
				return nil
			})
		}
		_ = g.Wait()
		return composite
	})
}

// CombineLatest2 holds the latest value from each of a and b, emitting
// combine(a_i, b_i) on every new value once both have produced at least
// one (spec §4.5). It completes once both inputs have completed and errors
// immediately on either input's error.
func CombineLatest2[A, B, R any](a Stream[A], b Stream[B], combine func(A, B) R) Stream[R] {
	return New[R]("CombineLatest2", func(observer Observer[R]) Subscription {
		var mu sync.Mutex
		var va A
		var vb B
		haveA, haveB := false, false
		doneA, doneB := false, false
		var once boolOnce

		composite := NewCompositeSubscription()

		emit := func() {
			if !haveA || !haveB {
				return
			}
			var out R
			if err := callRecovered(func() { out = combine(va, vb) }); err != nil {
				if once.do() {
					observer.OnError(err)
					composite.Unsubscribe()
				}
				return
			}
			observer.OnNext(out)
		}

		onErr := func(err error) {
			if once.do() {
				observer.OnError(err)
				composite.Unsubscribe()
			}
		}
		checkDone := func() {
			if doneA && doneB && once.do() {
				observer.OnCompleted()
			}
		}

		var g errgroup.Group
		g.Go(func() error {
			composite.Add(a.Subscribe(&combineLatestStage[A]{
				onNext:     func(v A) { mu.Lock(); va, haveA = v, true; mu.Unlock(); emit() },
				onError:    onErr,
				onComplete: func() { mu.Lock(); doneA = true; mu.Unlock(); checkDone() },
			}))
			return nil
		})
		g.Go(func() error {
			composite.Add(b.Subscribe(&combineLatestStage[B]{
				onNext:     func(v B) { mu.Lock(); vb, haveB = v, true; mu.Unlock(); emit() },
				onError:    onErr,
				onComplete: func() { mu.Lock(); doneB = true; mu.Unlock(); checkDone() },
			}))
			return nil
		})
		_ = g.Wait()
		return composite
	})
}

// CombineLatest3 is CombineLatest2 extended to three inputs.
func CombineLatest3[A, B, C, R any](a Stream[A], b Stream[B], c Stream[C], combine func(A, B, C) R) Stream[R] {
	type pair struct {
		a A
		b B
	}
	ab := CombineLatest2(a, b, func(x A, y B) pair { return pair{x, y} })
	return CombineLatest2(ab, c, func(p pair, z C) R { return combine(p.a, p.b, z) })
}

type combineLatestStage[T any] struct {
	internalMarker
	onNext     func(T)
	onError    func(error)
	onComplete func()
}

func (s *combineLatestStage[T]) OnNext(v T)    { s.onNext(v) }
func (s *combineLatestStage[T]) OnError(e error) { s.onError(e) }
func (s *combineLatestStage[T]) OnCompleted()  { s.onComplete() }

// Zip2 pairs a and b strictly positionally: the i-th output is emitted only
// once both the i-th value of a and the i-th value of b have arrived. It
// completes as soon as one input has completed and every value that input
// emitted has been paired; values of the other input left without a partner
// are discarded (spec §4.5, Open Question resolved in SPEC_FULL.md:
// completes-on-first-completion policy, matching RxJava's zip).
func Zip2[A, B, R any](a Stream[A], b Stream[B], combine func(A, B) R) Stream[R] {
	return New[R]("Zip2", func(observer Observer[R]) Subscription {
		var mu sync.Mutex
		var qa []A
		var qb []B
		doneA, doneB := false, false
		var once boolOnce
		composite := NewCompositeSubscription()

		finishErr := func(err error) {
			if once.do() {
				observer.OnError(err)
				composite.Unsubscribe()
			}
		}
		finishDone := func() {
			if once.do() {
				observer.OnCompleted()
				composite.Unsubscribe()
			}
		}

		drain := func() {
			for len(qa) > 0 && len(qb) > 0 {
				va, vb := qa[0], qb[0]
				qa, qb = qa[1:], qb[1:]
				var out R
				if err := callRecovered(func() { out = combine(va, vb) }); err != nil {
					finishErr(err)
					return
				}
				observer.OnNext(out)
			}
		}
		// checkDone completes once an input has completed and every value it
		// emitted has been paired. Called with mu held.
		checkDone := func() {
			if (doneA && len(qa) == 0) || (doneB && len(qb) == 0) {
				finishDone()
			}
		}

		var g errgroup.Group
		g.Go(func() error {
			composite.Add(a.Subscribe(&zipStage[A]{
				onNext:  func(v A) { mu.Lock(); qa = append(qa, v); drain(); checkDone(); mu.Unlock() },
				onError: finishErr,
				onDone:  func() { mu.Lock(); doneA = true; checkDone(); mu.Unlock() },
			}))
			return nil
		})
		g.Go(func() error {
			composite.Add(b.Subscribe(&zipStage[B]{
				onNext:  func(v B) { mu.Lock(); qb = append(qb, v); drain(); checkDone(); mu.Unlock() },
				onError: finishErr,
				onDone:  func() { mu.Lock(); doneB = true; checkDone(); mu.Unlock() },
			}))
			return nil
		})
		_ = g.Wait()
		return composite
	})
}

// Zip3 is Zip2 extended to three inputs.
func Zip3[A, B, C, R any](a Stream[A], b Stream[B], c Stream[C], combine func(A, B, C) R) Stream[R] {
	type pair struct {
		a A
		b B
	}
	ab := Zip2(a, b, func(x A, y B) pair { return pair{x, y} })
	return Zip2(ab, c, func(p pair, z C) R { return combine(p.a, p.b, z) })
}

type zipStage[T any] struct {
	internalMarker
	onNext  func(T)
	onError func(error)
	onDone  func()
}

func (s *zipStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *zipStage[T]) OnError(err error) { s.onError(err) }
func (s *zipStage[T]) OnCompleted()    { s.onDone() }

// WithLatestFrom2 emits combine(mainValue, latestOther) every time main
// emits, as long as other has produced at least one value; otherwise that
// emission from main is dropped. Only main's completion/error terminates
// the result.
func WithLatestFrom2[A, B, R any](main Stream[A], other Stream[B], combine func(A, B) R) Stream[R] {
	return New[R]("WithLatestFrom2", func(observer Observer[R]) Subscription {
		var mu sync.Mutex
		var latest B
		have := false
		composite := NewCompositeSubscription()

		composite.Add(other.Subscribe(&withLatestOtherStage[B]{
			onNext: func(v B) { mu.Lock(); latest, have = v, true; mu.Unlock() },
		}))
		composite.Add(main.Subscribe(&mainStageWithLatest[A, B, R]{
			downstream: observer,
			combine:    combine,
			read:       func() (B, bool) { mu.Lock(); defer mu.Unlock(); return latest, have },
		}))
		return composite
	})
}

type withLatestOtherStage[T any] struct {
	internalMarker
	onNext func(T)
}

func (s *withLatestOtherStage[T]) OnNext(v T)  { s.onNext(v) }
func (s *withLatestOtherStage[T]) OnError(error) {}
func (s *withLatestOtherStage[T]) OnCompleted() {}

type mainStageWithLatest[A, B, R any] struct {
	internalMarker
	downstream Observer[R]
	combine    func(A, B) R
	read       func() (B, bool)
}

func (s *mainStageWithLatest[A, B, R]) OnNext(v A) {
	latest, have := s.read()
	if !have {
		return
	}
	var out R
	if err := callRecovered(func() { out = s.combine(v, latest) }); err != nil {
		s.downstream.OnError(err)
		return
	}
	s.downstream.OnNext(out)
}
func (s *mainStageWithLatest[A, B, R]) OnError(err error) { s.downstream.OnError(err) }
func (s *mainStageWithLatest[A, B, R]) OnCompleted()      { s.downstream.OnCompleted() }

// Amb subscribes to every source; whichever emits (or terminates) first
// "wins", and events from every other source are ignored from then on. The
// losing sources are not unsubscribed when the winner is chosen, only when
// the returned Subscription is unsubscribed.
func Amb[T any](sources ...Stream[T]) Stream[T] {
	return New[T]("Amb", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		winner := -1

		for i, source := range sources {
			i := i
			stage := &ambStage[T]{
				tryWin: func() bool {
					mu.Lock()
					defer mu.Unlock()
					if winner == -1 {
						winner = i
						return true
					}
					return winner == i
				},
				downstream: observer,
			}
			composite.Add(source.Subscribe(stage))
		}
		return composite
	})
}

type ambStage[T any] struct {
	internalMarker
	tryWin     func() bool
	downstream Observer[T]
}

func (s *ambStage[T]) OnNext(v T) {
	if s.tryWin() {
		s.downstream.OnNext(v)
	}
}
func (s *ambStage[T]) OnError(err error) {
	if s.tryWin() {
		s.downstream.OnError(err)
	}
}
func (s *ambStage[T]) OnCompleted() {
	if s.tryWin() {
		s.downstream.OnCompleted()
	}
}

// SwitchDo subscribes to a stream-of-streams, unsubscribing the previous
// inner stream and subscribing the new one every time one arrives (spec
// §4.5's switchDo). Completion waits for both the outer and the currently
// active inner stream to complete.
func SwitchDo[T any](outer Stream[Stream[T]]) Stream[T] {
	return New[T]("SwitchDo", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var mu sync.Mutex
		var innerSub Subscription
		outerDone, innerDone := false, true
		generation := 0

		checkDone := func() {
			if outerDone && innerDone {
				observer.OnCompleted()
			}
		}

		outerStage := &switchOuterStage[T]{
			onNext: func(inner Stream[T]) {
				mu.Lock()
				generation++
				myGen := generation
				if innerSub != nil {
					innerSub.Unsubscribe()
				}
				innerDone = false
				mu.Unlock()

				isCurrent := func() bool {
					mu.Lock()
					defer mu.Unlock()
					return myGen == generation
				}

				stage := &switchInnerStage[T]{
					downstream: observer,
					isCurrent:  isCurrent,
					onDone: func() {
						mu.Lock()
						current := myGen == generation
						if current {
							innerDone = true
						}
						mu.Unlock()
						if current {
							checkDone()
						}
					},
				}
				sub := inner.Subscribe(stage)
				mu.Lock()
				if myGen == generation {
					innerSub = sub
				} else {
					sub.Unsubscribe()
				}
				mu.Unlock()
			},
			onError: observer.OnError,
			onDone: func() {
				mu.Lock()
				outerDone = true
				mu.Unlock()
				checkDone()
			},
		}
		composite.Add(outer.Subscribe(outerStage))
		return composite
	})
}

type switchOuterStage[T any] struct {
	internalMarker
	onNext  func(Stream[T])
	onError func(error)
	onDone  func()
}

func (s *switchOuterStage[T]) OnNext(v Stream[T]) { s.onNext(v) }
func (s *switchOuterStage[T]) OnError(err error)  { s.onError(err) }
func (s *switchOuterStage[T]) OnCompleted()       { s.onDone() }

type switchInnerStage[T any] struct {
	internalMarker
	downstream Observer[T]
	isCurrent  func() bool
	onDone     func()
}

func (s *switchInnerStage[T]) OnNext(v T) {
	if s.isCurrent() {
		s.downstream.OnNext(v)
	}
}
func (s *switchInnerStage[T]) OnError(err error) {
	if s.isCurrent() {
		s.downstream.OnError(err)
	}
}
func (s *switchInnerStage[T]) OnCompleted() { s.onDone() }
