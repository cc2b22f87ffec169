package rx

import (
	"sync/atomic"
	"time"
)

// OnErrorReturn substitutes a single fallback value and a clean completion
// for whatever error upstream raises, letting a stream that can fail
// degrade into one that always completes (spec §4.6).
func OnErrorReturn[T any](upstream Stream[T], resumeFunc func(error) T) Stream[T] {
	return New[T]("OnErrorReturn", func(observer Observer[T]) Subscription {
		stage := &onErrorReturnStage[T]{downstream: observer, resumeFunc: resumeFunc}
		return upstream.Subscribe(stage)
	})
}

type onErrorReturnStage[T any] struct {
	internalMarker
	downstream Observer[T]
	resumeFunc func(error) T
}

func (s *onErrorReturnStage[T]) OnNext(v T) { s.downstream.OnNext(v) }
func (s *onErrorReturnStage[T]) OnError(err error) {
	var v T
	if cerr := callRecovered(func() { v = s.resumeFunc(err) }); cerr != nil {
		s.downstream.OnError(cerr)
		return
	}
	s.downstream.OnNext(v)
	s.downstream.OnCompleted()
}
func (s *onErrorReturnStage[T]) OnCompleted() { s.downstream.OnCompleted() }

// OnErrorResumeNext switches to the stream produced by resumeFunc(err)
// instead of propagating err, splicing that stream's own events (including
// its own errors) in place of upstream's continuation (spec §4.6).
func OnErrorResumeNext[T any](upstream Stream[T], resumeFunc func(error) Stream[T]) Stream[T] {
	return New[T]("OnErrorResumeNext", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		stage := &onErrorResumeStage[T]{
			downstream: observer,
			onFailure: func(err error) {
				var fallback Stream[T]
				if cerr := callRecovered(func() { fallback = resumeFunc(err) }); cerr != nil {
					observer.OnError(cerr)
					return
				}
				composite.Add(fallback.Subscribe(observer))
			},
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type onErrorResumeStage[T any] struct {
	internalMarker
	downstream Observer[T]
	onFailure  func(error)
}

func (s *onErrorResumeStage[T]) OnNext(v T)      { s.downstream.OnNext(v) }
func (s *onErrorResumeStage[T]) OnError(err error) { s.onFailure(err) }
func (s *onErrorResumeStage[T]) OnCompleted()    { s.downstream.OnCompleted() }

// OnExceptionResumeNext is OnErrorResumeNext restricted to errors matching
// isException: errors isException rejects still propagate normally (spec
// §4.6's narrower "resume only from exceptions, not from explicit on_error
// calls carrying ordinary domain errors" variant).
func OnExceptionResumeNext[T any](upstream Stream[T], isException func(error) bool, fallback Stream[T]) Stream[T] {
	return OnErrorResumeNext(upstream, func(err error) Stream[T] {
		if isException(err) {
			return fallback
		}
		return ErrorStream[T](err)
	})
}

// Catch is an alias for OnErrorResumeNext with a fixed fallback stream,
// matching the common "catch(fallback)" spelling used across Rx dialects.
func Catch[T any](upstream Stream[T], fallback Stream[T]) Stream[T] {
	return OnErrorResumeNext(upstream, func(error) Stream[T] { return fallback })
}

// Retry resubscribes to source whenever it errors, subscribing at most
// maxAttempts times in total (1 means "no retry"), and passes through the
// final error if every attempt is exhausted (spec §4.6's retry(count)).
func Retry[T any](source Stream[T], maxAttempts int) Stream[T] {
	return New[T]("Retry", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var attempt func(n int)
		attempt = func(n int) {
			stage := &retryStage[T]{
				downstream: observer,
				onFailure: func(err error) {
					if n+1 >= maxAttempts {
						observer.OnError(err)
						return
					}
					attempt(n + 1)
				},
			}
			composite.Add(source.Subscribe(stage))
		}
		attempt(0)
		return composite
	})
}

type retryStage[T any] struct {
	internalMarker
	downstream Observer[T]
	onFailure  func(error)
}

func (s *retryStage[T]) OnNext(v T)      { s.downstream.OnNext(v) }
func (s *retryStage[T]) OnError(err error) { s.onFailure(err) }
func (s *retryStage[T]) OnCompleted()    { s.downstream.OnCompleted() }

// RetryWhen resubscribes to source every time notifier's returned stream
// (fed the sequence of upstream errors) emits a value. If notifier's stream
// errors, that error is propagated downstream; if it completes, downstream
// completes (spec §4.6's retryWhen, the error-driven generalization of
// Retry).
func RetryWhen[T any](source Stream[T], notifier func(Stream[error]) Stream[struct{}]) Stream[T] {
	return New[T]("RetryWhen", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		errSubject := NewPublishSubject[error]()
		signal := notifier(errSubject.AsStream())

		var attempt func()
		attempt = func() {
			stage := &retryStage[T]{
				downstream: observer,
				onFailure:  func(err error) { errSubject.OnNext(err) },
			}
			composite.Add(source.Subscribe(stage))
		}

		composite.Add(signal.Subscribe(&retryWhenSignalStage{
			onNext: func(struct{}) { attempt() },
			onError: func(err error) {
				observer.OnError(err)
				composite.Unsubscribe()
			},
			onDone: func() {
				observer.OnCompleted()
				composite.Unsubscribe()
			},
		}))
		attempt()
		return composite
	})
}

type retryWhenSignalStage struct {
	internalMarker
	onNext  func(struct{})
	onError func(error)
	onDone  func()
}

func (s *retryWhenSignalStage) OnNext(v struct{}) { s.onNext(v) }
func (s *retryWhenSignalStage) OnError(err error) { s.onError(err) }
func (s *retryWhenSignalStage) OnCompleted()      { s.onDone() }

// Timeout errors downstream with ErrTimeout if upstream produces no value
// (and no terminal event) within duration of either subscription or the
// previous value, measured by scheduler (spec §4.6's timeout()).
func Timeout[T any](upstream Stream[T], duration time.Duration, scheduler Scheduler) Stream[T] {
	return New[T]("Timeout", func(observer Observer[T]) Subscription {
		composite := NewCompositeSubscription()
		var timedOut atomic.Bool
		var terminalOnce boolOnce
		var timerSub Subscription

		fire := func() {
			if !timedOut.CompareAndSwap(false, true) {
				return
			}
			if terminalOnce.do() {
				observer.OnError(ErrTimeout)
				composite.Unsubscribe()
			}
		}
		resetTimer := func() {
			if timerSub != nil {
				timerSub.Unsubscribe()
			}
			timerSub = scheduler.ScheduleDelayed(fire, duration)
			composite.Add(timerSub)
		}
		resetTimer()

		stage := &timeoutStage[T]{
			onNext: func(v T) {
				if timedOut.Load() {
					return
				}
				observer.OnNext(v)
				resetTimer()
			},
			onError: func(err error) {
				if terminalOnce.do() {
					observer.OnError(err)
					composite.Unsubscribe()
				}
			},
			onCompleted: func() {
				if terminalOnce.do() {
					observer.OnCompleted()
					composite.Unsubscribe()
				}
			},
		}
		composite.Add(upstream.Subscribe(stage))
		return composite
	})
}

type timeoutStage[T any] struct {
	internalMarker
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (s *timeoutStage[T]) OnNext(v T)      { s.onNext(v) }
func (s *timeoutStage[T]) OnError(err error) { s.onError(err) }
func (s *timeoutStage[T]) OnCompleted()    { s.onCompleted() }
