package rx

import (
	"sync"

	"github.com/gorx/rx/rxlog"
)

// ConnectableStream is a Stream[T] whose subscription to its upstream is
// deferred until Connect is called (spec §4.4). Subscribing to it only
// attaches to the underlying Subject; Connect performs the single upstream
// subscription that feeds that subject.
type ConnectableStream[T any] struct {
	source  Stream[T]
	subject Subject[T]

	mu         sync.Mutex
	connection Subscription
}

// Multicast builds a ConnectableStream that relays source through subject:
// subscribing to the result routes observers to subject without
// subscribing subject to source; that only happens on Connect.
func Multicast[T any](source Stream[T], subject Subject[T]) *ConnectableStream[T] {
	return &ConnectableStream[T]{source: source, subject: subject}
}

// AsStream exposes the connectable's subscriber-facing side as an ordinary
// Stream[T]. Subscribing here never triggers Connect.
func (c *ConnectableStream[T]) AsStream() Stream[T] {
	return New[T]("ConnectableStream", func(observer Observer[T]) Subscription {
		return c.subject.Subscribe(observer)
	})
}

// Subscribe attaches observer to the subject side, matching AsStream().
func (c *ConnectableStream[T]) Subscribe(observer Observer[T]) Subscription {
	return c.subject.Subscribe(observer)
}

// Connect subscribes the subject to the upstream source exactly once.
// Concurrent callers are serialized; a caller that arrives while already
// connected gets back the same connection handle rather than creating a
// second upstream subscription (spec §4.4).
func (c *ConnectableStream[T]) Connect() Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connection != nil {
		return c.connection
	}

	stage := &connectStage[T]{subject: c.subject}
	sub := c.source.Subscribe(stage)
	rxlog.Current().Debugw("rx: connectable stream connected")
	c.connection = NewActionSubscription(func() {
		sub.Unsubscribe()
	})
	return c.connection
}

// Disconnect unsubscribes from the upstream and resets connection state so
// a subsequent Connect re-subscribes afresh (spec §4.4).
func (c *ConnectableStream[T]) Disconnect() {
	c.mu.Lock()
	conn := c.connection
	c.connection = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Unsubscribe()
		rxlog.Current().Debugw("rx: connectable stream disconnected")
	}
}

// IsConnected reports whether Connect has been called without a matching
// Disconnect.
func (c *ConnectableStream[T]) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection != nil
}

// connectStage forwards the upstream's three events to the subject. It is
// itself an internal observer so it is not double safety-wrapped when the
// source subscribes it.
type connectStage[T any] struct {
	internalMarker
	subject Subject[T]
}

func (s *connectStage[T]) OnNext(v T)      { s.subject.OnNext(v) }
func (s *connectStage[T]) OnError(e error) { s.subject.OnError(e) }
func (s *connectStage[T]) OnCompleted()    { s.subject.OnCompleted() }

// RefCount returns a Stream[T] that connects on the first subscriber and
// disconnects once the last subscriber leaves, automating Connect/Disconnect
// for the common "share while anyone is listening" use case referenced by
// spec's Share() in the surrounding ecosystem conventions.
func RefCount[T any](c *ConnectableStream[T]) Stream[T] {
	var mu sync.Mutex
	count := 0

	return New[T]("RefCount", func(observer Observer[T]) Subscription {
		sub := c.Subscribe(observer)

		mu.Lock()
		count++
		if count == 1 {
			c.Connect()
		}
		mu.Unlock()

		return NewActionSubscription(func() {
			sub.Unsubscribe()
			mu.Lock()
			count--
			if count == 0 {
				c.Disconnect()
			}
			mu.Unlock()
		})
	})
}
