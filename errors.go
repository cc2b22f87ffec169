package rx

import (
	"fmt"

	"go.uber.org/multierr"
)

// OnErrorNotImplementedError is the distinguished failure raised when an
// on_error notification reaches a subscriber that supplied no error
// handler (spec §4.1, §7 kind 5). It propagates out of the emitting thread:
// the caller of Subscribe for a synchronous producer, or the producer's own
// goroutine for an asynchronous one.
type OnErrorNotImplementedError struct {
	Cause error
}

func (e *OnErrorNotImplementedError) Error() string {
	return fmt.Sprintf("rx: OnErrorNotImplemented: %v", e.Cause)
}

func (e *OnErrorNotImplementedError) Unwrap() error { return e.Cause }

// SecondaryError wraps the original on_error failure together with whatever
// the observer's own OnError raised while handling it (spec §7 kind 4). Both
// are reported to the global plugins ErrorHandler before this is rethrown
// on the emitting thread.
type SecondaryError struct {
	Primary   error
	Secondary error
}

func (e *SecondaryError) Error() string {
	return fmt.Sprintf("rx: error while handling error %v: %v", e.Primary, e.Secondary)
}

// Combined returns a single error aggregating Primary and Secondary, using
// go.uber.org/multierr so callers that only care about "did anything fail"
// can treat it like any other error while multierr.Errors can still recover
// the individual causes.
func (e *SecondaryError) Combined() error {
	return multierr.Combine(e.Primary, e.Secondary)
}

func (e *SecondaryError) Unwrap() []error { return []error{e.Primary, e.Secondary} }

// CompositeError aggregates the independent failures collected by
// mergeDelayError (spec §4.5) once every source has finished. Built on
// go.uber.org/multierr, which is also how the teacher pack's
// pkg/client/tx and pkg/client/events combine independent RPC failures.
type CompositeError struct {
	Errors []error
}

func (e *CompositeError) Error() string {
	return multierr.Combine(e.Errors...).Error()
}

func (e *CompositeError) Unwrap() []error { return e.Errors }

// newCompositeError returns nil if errs is empty, the lone error if there is
// exactly one, and a *CompositeError otherwise.
func newCompositeError(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &CompositeError{Errors: errs}
	}
}

// ErrNilObserver is the value Subscribe panics with (spec §7 kind 6) when
// it is called with a nil observer.
var ErrNilObserver = fmt.Errorf("rx: observer must not be nil")

// ErrIndexOutOfRange is returned by ElementAt when upstream completes
// before reaching the requested index.
var ErrIndexOutOfRange = fmt.Errorf("rx: element at index out of range")

// ErrTimeout is returned by Timeout when no value arrives within the
// configured window.
var ErrTimeout = fmt.Errorf("rx: timed out waiting for next value")
