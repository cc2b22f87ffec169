package rx

import (
	"sync"
)

// Publish returns a ConnectableStream that multicasts source through a
// PublishSubject (spec §4.4: publish() = multicast(stream, PublishSubject)).
func Publish[T any](source Stream[T]) *ConnectableStream[T] {
	return Multicast(source, NewPublishSubject[T]())
}

// Replay returns a ConnectableStream that multicasts source through an
// unbounded ReplaySubject (spec §4.4: replay() = multicast(stream,
// ReplaySubject)).
func Replay[T any](source Stream[T]) *ConnectableStream[T] {
	return Multicast(source, NewReplaySubject[T]())
}

// ReplayBounded is Replay with a ReplaySubject that keeps only the latest
// maxCount values; it sets no age bound.
func ReplayBounded[T any](source Stream[T], maxCount int) *ConnectableStream[T] {
	return Multicast(source, NewReplaySubjectBounded[T](maxCount, 0, nil))
}

// Cache subscribes source exactly once, on the first subscriber, into an
// unbounded ReplaySubject, and routes every subsequent Subscribe call
// (including ones that race with the first) to that subject. There is no
// way to unsubscribe from source through the returned Stream — spec §4.4 is
// explicit that cache() has no disposal mechanism, so callers must not
// apply it to an infinite source.
//
// The upstream subscribe is guarded by a sync.Once: it must run exactly
// once for the lifetime of the cache, not once per burst of concurrent
// first-subscribers, so a subscriber that arrives after the first burst has
// already completed must still be routed to the same, already-connected
// subject rather than re-triggering source.Subscribe.
func Cache[T any](source Stream[T]) Stream[T] {
	subject := NewReplaySubject[T]()
	var connect sync.Once

	return New[T]("Cache", func(observer Observer[T]) Subscription {
		connect.Do(func() {
			stage := &connectStage[T]{subject: subject}
			source.Subscribe(stage)
		})
		return subject.Subscribe(observer)
	})
}
