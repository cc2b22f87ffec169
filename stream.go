package rx

import (
	"fmt"

	"github.com/gorx/rx/plugins"
)

// OnSubscribe is the pure function a Stream[T] owns: given an Observer[T]
// it starts producing events and returns a Subscription representing that
// execution (spec §3). It is invoked once per Subscribe call.
type OnSubscribe[T any] func(observer Observer[T]) Subscription

// Stream is an immutable description of a push-based sequence of values
// (spec §3's Stream<T>). Two Subscribe calls on the same Stream run two
// independent executions unless the stream was built by a multicast
// operator (publish/replay/cache).
type Stream[T any] struct {
	name       string
	onSubscribe OnSubscribe[T]
}

// New builds a Stream[T] from a raw OnSubscribe function. name is used only
// for plugin-hook diagnostics (spec §6 hook signatures take a "source").
func New[T any](name string, onSubscribe OnSubscribe[T]) Stream[T] {
	return Stream[T]{name: name, onSubscribe: onSubscribe}
}

func (s Stream[T]) sourceName() string {
	if s.name != "" {
		return s.name
	}
	return fmt.Sprintf("Stream[%T]", *new(T))
}

// Subscribe implements the dispatch algorithm of spec §4.2:
//  1. reject a nil observer;
//  2. run the subscribe-start plugin hook;
//  3. call the producer directly when observer is already an internal
//     stage (no double safety-wrapping);
//  4. otherwise wrap observer in a safe observer bound to a fresh
//     composite subscription and call the producer with that;
//  5. route a synchronous panic from the producer to the safe observer's
//     OnError and return a no-op subscription — unless the panic is the
//     OnErrorNotImplemented marker, which propagates to the caller of
//     Subscribe unchanged instead (spec §4.1, §7 kind 5);
//  6. run the subscribe-return plugin hook on the resulting subscription.
func (s Stream[T]) Subscribe(observer Observer[T]) Subscription {
	if observer == nil {
		panic(ErrNilObserver)
	}

	if err := plugins.NotifySubscribeStart(s.sourceName()); err != nil {
		panic(err)
	}

	if isInternalObserver(observer) {
		sub := s.onSubscribe(observer)
		if sub == nil {
			sub = Noop
		}
		return notifyReturn(s.sourceName(), sub)
	}

	composite := NewCompositeSubscription()
	safe := newSafeObserver[T](observer, composite)

	var inner Subscription
	if subscribeErr := callRecovered(func() { inner = s.onSubscribe(safe) }); subscribeErr != nil {
		// A panic reaching here can be a genuine producer error (safe is
		// not yet terminal: route it through safe.OnError as usual) or the
		// OnErrorNotImplemented marker already thrown by safe.OnError itself
		// (safe is already terminal). The latter must propagate to the
		// caller of Subscribe unchanged (spec §4.1, §7 kind 5) rather than
		// be fed back into safe.OnError, which would just report it to the
		// already-terminal branch and swallow it.
		if notImpl, ok := asOnErrorNotImplemented(subscribeErr); ok {
			panic(notImpl)
		}
		subscribeErr = plugins.NotifySubscribeError(s.sourceName(), subscribeErr)
		safe.OnError(subscribeErr)
		return notifyReturn(s.sourceName(), Noop)
	}
	if inner != nil {
		composite.Add(inner)
	}
	return notifyReturn(s.sourceName(), composite)
}

func notifyReturn(sourceName string, sub Subscription) Subscription {
	if replaced := plugins.NotifySubscribeReturn(sourceName, sub); replaced != nil {
		if rs, ok := replaced.(Subscription); ok {
			return rs
		}
	}
	return sub
}

// SubscribeFunc synthesizes a full Observer[T] from up to three callbacks,
// matching the overloads of spec §6. A nil onError means "no handler
// supplied" and routes on_error through the OnErrorNotImplemented path.
func (s Stream[T]) SubscribeFunc(onNext func(T), onError func(error), onCompleted func()) Subscription {
	return s.Subscribe(NewObserver(onNext, onError, onCompleted))
}
