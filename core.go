// Package rx provides reactive programming primitives for Go: push-based
// streams of values composed with a fluent operator algebra, built on an
// observer protocol with strict emission-grammar guarantees.
package rx

// Observer is the sink of a Stream[T]: on_next* followed by at most one of
// on_error or on_completed. Nothing is delivered after termination.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// funcObserver adapts the subscribe-with-callbacks overloads from spec §6
// into a single Observer[T]. A nil onError means "no handler supplied" and
// must surface OnErrorNotImplementedError (see safe_observer.go).
type funcObserver[T any] struct {
	onNext      func(T)
	onError     func(error)
	onCompleted func()
}

func (f *funcObserver[T]) OnNext(v T) {
	if f.onNext != nil {
		f.onNext(v)
	}
}

func (f *funcObserver[T]) OnError(err error) {
	if f.onError != nil {
		f.onError(err)
		return
	}
	panic(&OnErrorNotImplementedError{Cause: err})
}

func (f *funcObserver[T]) OnCompleted() {
	if f.onCompleted != nil {
		f.onCompleted()
	}
}

// NewObserver builds an Observer[T] from up to three callbacks, mirroring
// the subscribe(on_next[, on_error[, on_completed]]) overloads of spec §6.
// onNext, onError and onCompleted may each be nil.
func NewObserver[T any](onNext func(T), onError func(error), onCompleted func()) Observer[T] {
	return &funcObserver[T]{onNext: onNext, onError: onError, onCompleted: onCompleted}
}

// internalObserver is the marker capability used to skip safety-wrapping
// for observers that are themselves internal operator stages (spec §4.1,
// design note: detection must not rely on package/name lookups).
type internalObserver interface {
	internalObserverMarker()
}

// internalMarker is embedded by every stage observer defined in this module
// so Stream.Subscribe can recognize it without type-switching on concretes.
type internalMarker struct{}

func (internalMarker) internalObserverMarker() {}

func isInternalObserver(o any) bool {
	_, ok := o.(internalObserver)
	return ok
}
