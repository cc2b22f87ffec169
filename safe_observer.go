package rx

import (
	"fmt"
	"sync/atomic"

	"github.com/gorx/rx/plugins"
)

// safeObserver enforces the emission grammar (spec §4.1) around a raw
// downstream Observer[T]: at most one terminal event, no on_next after
// termination or unsubscribe, and conversion of an observer's own panics
// into on_error on itself rather than letting them escape uncontrolled.
//
// It is bound to the Subscription returned for this particular subscribe
// call so that reaching a terminal event also unsubscribes.
type safeObserver[T any] struct {
	internalMarker
	downstream Observer[T]
	sub        Subscription
	terminal   atomic.Bool
}

// newSafeObserver wraps downstream, bound to sub. sub is unsubscribed as
// soon as a terminal event is reached (spec §4.1: on_error/on_completed
// "mark terminal, unsubscribe").
func newSafeObserver[T any](downstream Observer[T], sub Subscription) *safeObserver[T] {
	return &safeObserver[T]{downstream: downstream, sub: sub}
}

func (s *safeObserver[T]) OnNext(v T) {
	if s.terminal.Load() || s.sub.IsUnsubscribed() {
		return
	}
	if err := callRecovered(func() { s.downstream.OnNext(v) }); err != nil {
		s.OnError(err)
	}
}

func (s *safeObserver[T]) OnError(err error) {
	if !s.terminal.CompareAndSwap(false, true) {
		// Already terminal: this is itself an unhandled, late error.
		plugins.NotifyUnhandledError(err)
		return
	}
	s.sub.Unsubscribe()

	secondary := callRecovered(func() { s.downstream.OnError(err) })
	if secondary == nil {
		return
	}
	if notImpl, ok := asOnErrorNotImplemented(secondary); ok {
		// The distinguished marker: propagate out of the emitting thread
		// unchanged, not as a secondary-error composite (spec §4.1).
		panic(notImpl)
	}
	se := &SecondaryError{Primary: err, Secondary: secondary}
	plugins.NotifyUnhandledError(se.Combined())
	panic(se)
}

func (s *safeObserver[T]) OnCompleted() {
	if !s.terminal.CompareAndSwap(false, true) {
		return
	}
	s.sub.Unsubscribe()

	if err := callRecovered(func() { s.downstream.OnCompleted() }); err != nil {
		plugins.NotifyUnhandledError(err)
	}
}

// callRecovered runs fn, converting any panic into an error. A panic whose
// value already implements error is passed through as-is (preserving
// *OnErrorNotImplementedError identity); anything else is formatted.
func callRecovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("rx: panic: %v", r)
		}
	}()
	fn()
	return nil
}

func asOnErrorNotImplemented(err error) (*OnErrorNotImplementedError, bool) {
	e, ok := err.(*OnErrorNotImplementedError)
	return e, ok
}
