// Package rxtest collects the testing helpers used across this module's own
// test suite: a thread-safe recording Observer and a virtual-time
// Scheduler, grounded in the teacher's own ad hoc pattern of a mutex-guarded
// values slice plus a done channel repeated in every test (simple_test.go,
// test_basic_test.go, phase3_operators_test.go), promoted here into one
// reusable, generalized Observer[T] double instead of being copy-pasted per
// test.
package rxtest

import (
	"fmt"
	"sync"

	"github.com/gorx/rx"
)

// Event is one recorded notification, tagged by kind so a test can assert
// on the exact interleaving of values and termination.
type Event[T any] struct {
	Kind  rx.NotificationKind
	Value T
	Err   error
}

func (e Event[T]) String() string {
	switch e.Kind {
	case rx.NotificationNext:
		return fmt.Sprintf("Next(%v)", e.Value)
	case rx.NotificationError:
		return fmt.Sprintf("Error(%v)", e.Err)
	default:
		return "Completed"
	}
}

// RecordingObserver records every event delivered to it, in arrival order,
// safe for concurrent delivery from multiple goroutines (e.g. a Merge of
// several async sources).
type RecordingObserver[T any] struct {
	mu     sync.Mutex
	events []Event[T]
}

// NewRecordingObserver returns an empty recorder.
func NewRecordingObserver[T any]() *RecordingObserver[T] {
	return &RecordingObserver[T]{}
}

func (r *RecordingObserver[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event[T]{Kind: rx.NotificationNext, Value: v})
}

func (r *RecordingObserver[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event[T]{Kind: rx.NotificationError, Err: err})
}

func (r *RecordingObserver[T]) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event[T]{Kind: rx.NotificationCompleted})
}

// Events returns a snapshot of every event recorded so far.
func (r *RecordingObserver[T]) Events() []Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event[T], len(r.events))
	copy(out, r.events)
	return out
}

// Values returns just the on_next payloads, in order.
func (r *RecordingObserver[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.events))
	for _, e := range r.events {
		if e.Kind == rx.NotificationNext {
			out = append(out, e.Value)
		}
	}
	return out
}

// Err returns the error recorded, if any terminal event was an on_error.
func (r *RecordingObserver[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == rx.NotificationError {
			return e.Err
		}
	}
	return nil
}

// Completed reports whether an on_completed has been recorded.
func (r *RecordingObserver[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == rx.NotificationCompleted {
			return true
		}
	}
	return false
}

// Count returns how many events have been recorded in total.
func (r *RecordingObserver[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
