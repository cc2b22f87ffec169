package rx

import (
	"sync"
	"time"
)

// Subject is simultaneously an Observer[T] (inbound) and a Stream[T]
// (outbound) — the fan-out relay spec §4.4 builds multicast on top of.
type Subject[T any] interface {
	Observer[T]
	// Subscribe attaches observer to the subject's outbound side.
	Subscribe(observer Observer[T]) Subscription
	// AsStream exposes the subject's outbound side as an ordinary
	// Stream[T] for composing with the operator library.
	AsStream() Stream[T]
}

// subjectObserverEntry pairs a live observer with a stable id so Unsubscribe
// can remove exactly one entry by identity even if the same Observer value
// subscribes twice.
type subjectObserverEntry[T any] struct {
	id       uint64
	observer Observer[T]
}

// --- PublishSubject -------------------------------------------------------

// PublishSubject forwards every OnNext synchronously to whichever observers
// are subscribed at the moment it arrives; a subscriber only ever sees
// events that arrive strictly after it subscribes. Once terminal, late
// subscribers immediately receive the cached terminal event (spec §4.4).
type PublishSubject[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	observers []subjectObserverEntry[T]
	terminal  bool
	termErr   error // nil + terminal=true means OnCompleted
	isError   bool
}

// NewPublishSubject constructs an empty PublishSubject.
func NewPublishSubject[T any]() *PublishSubject[T] {
	return &PublishSubject[T]{}
}

func (p *PublishSubject[T]) OnNext(v T) {
	p.mu.Lock()
	if p.terminal {
		p.mu.Unlock()
		return
	}
	snapshot := snapshotObservers(p.observers)
	p.mu.Unlock()

	for _, e := range snapshot {
		e.observer.OnNext(v)
	}
}

func (p *PublishSubject[T]) OnError(err error) {
	p.mu.Lock()
	if p.terminal {
		p.mu.Unlock()
		return
	}
	p.terminal, p.isError, p.termErr = true, true, err
	snapshot := snapshotObservers(p.observers)
	p.observers = nil
	p.mu.Unlock()

	for _, e := range snapshot {
		e.observer.OnError(err)
	}
}

func (p *PublishSubject[T]) OnCompleted() {
	p.mu.Lock()
	if p.terminal {
		p.mu.Unlock()
		return
	}
	p.terminal = true
	snapshot := snapshotObservers(p.observers)
	p.observers = nil
	p.mu.Unlock()

	for _, e := range snapshot {
		e.observer.OnCompleted()
	}
}

func (p *PublishSubject[T]) Subscribe(observer Observer[T]) Subscription {
	p.mu.Lock()
	if p.terminal {
		isError, err := p.isError, p.termErr
		p.mu.Unlock()
		if isError {
			observer.OnError(err)
		} else {
			observer.OnCompleted()
		}
		return Noop
	}
	id := p.nextID
	p.nextID++
	p.observers = append(p.observers, subjectObserverEntry[T]{id: id, observer: observer})
	p.mu.Unlock()

	return NewActionSubscription(func() { p.remove(id) })
}

func (p *PublishSubject[T]) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.observers {
		if e.id == id {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *PublishSubject[T]) AsStream() Stream[T] {
	return New[T]("PublishSubject", func(observer Observer[T]) Subscription {
		return p.Subscribe(observer)
	})
}

func snapshotObservers[T any](observers []subjectObserverEntry[T]) []subjectObserverEntry[T] {
	out := make([]subjectObserverEntry[T], len(observers))
	copy(out, observers)
	return out
}

// --- BehaviorSubject -------------------------------------------------------

// BehaviorSubject caches only the latest value; a new subscriber is
// immediately given that value (or the seed, if nothing has arrived yet)
// before joining the live stream (spec §4.4).
type BehaviorSubject[T any] struct {
	inner *PublishSubject[T]
	mu    sync.Mutex
	value T
	have  bool
}

// NewBehaviorSubject seeds the subject with initial.
func NewBehaviorSubject[T any](initial T) *BehaviorSubject[T] {
	return &BehaviorSubject[T]{inner: NewPublishSubject[T](), value: initial, have: true}
}

// NewBehaviorSubjectEmpty starts with no cached value; subscribers before
// the first OnNext receive nothing until one arrives.
func NewBehaviorSubjectEmpty[T any]() *BehaviorSubject[T] {
	return &BehaviorSubject[T]{inner: NewPublishSubject[T]()}
}

func (b *BehaviorSubject[T]) OnNext(v T) {
	b.mu.Lock()
	b.value, b.have = v, true
	b.mu.Unlock()
	b.inner.OnNext(v)
}
func (b *BehaviorSubject[T]) OnError(err error) { b.inner.OnError(err) }
func (b *BehaviorSubject[T]) OnCompleted()      { b.inner.OnCompleted() }

// Value returns the last cached value and whether one has been observed.
func (b *BehaviorSubject[T]) Value() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.have
}

func (b *BehaviorSubject[T]) Subscribe(observer Observer[T]) Subscription {
	b.mu.Lock()
	v, have := b.value, b.have
	b.mu.Unlock()

	// Deliver the cached value, then subscribe for the live tail. There is
	// an unavoidable race between reading the cache and subscribing, so the
	// inner PublishSubject is what actually enforces terminal-state
	// correctness; a value delivered here that's immediately followed by a
	// terminal event on the live subscribe is harmless duplication at
	// worst, never a grammar violation, because safeObserver downstream of
	// this call still enforces at-most-one-terminal.
	if have {
		observer.OnNext(v)
	}
	return b.inner.Subscribe(observer)
}

func (b *BehaviorSubject[T]) AsStream() Stream[T] {
	return New[T]("BehaviorSubject", func(observer Observer[T]) Subscription {
		return b.Subscribe(observer)
	})
}

// --- ReplaySubject ---------------------------------------------------------

// ReplaySubject appends every OnNext to an internal buffer — unbounded, or
// bounded by count and/or age — and replays that buffer in order to each
// new subscriber before it joins the live stream. The terminal event is
// cached too, so late subscribers see the full recorded history followed
// by the same terminal event every other subscriber saw (spec §4.4, §8
// property 6: unbounded replay exposes the entire source sequence to every
// subscriber).
type ReplaySubject[T any] struct {
	inner *PublishSubject[T]

	mu        sync.Mutex
	buf       []replayItem[T]
	maxCount  int           // 0 = unbounded
	maxAge    time.Duration // 0 = unbounded
	now       func() time.Time
	terminal  bool
	isError   bool
	termErr   error
}

type replayItem[T any] struct {
	value T
	at    time.Time
}

// NewReplaySubject returns an unbounded ReplaySubject.
func NewReplaySubject[T any]() *ReplaySubject[T] {
	return NewReplaySubjectBounded[T](0, 0, time.Now)
}

// NewReplaySubjectBounded bounds the replay buffer by count (0 = unbounded)
// and/or age (0 = unbounded), using now as the clock for age eviction.
func NewReplaySubjectBounded[T any](maxCount int, maxAge time.Duration, now func() time.Time) *ReplaySubject[T] {
	if now == nil {
		now = time.Now
	}
	return &ReplaySubject[T]{inner: NewPublishSubject[T](), maxCount: maxCount, maxAge: maxAge, now: now}
}

func (r *ReplaySubject[T]) trim() {
	if r.maxAge > 0 {
		cutoff := r.now().Add(-r.maxAge)
		i := 0
		for i < len(r.buf) && r.buf[i].at.Before(cutoff) {
			i++
		}
		r.buf = r.buf[i:]
	}
	if r.maxCount > 0 && len(r.buf) > r.maxCount {
		r.buf = r.buf[len(r.buf)-r.maxCount:]
	}
}

func (r *ReplaySubject[T]) OnNext(v T) {
	r.mu.Lock()
	if r.terminal {
		r.mu.Unlock()
		return
	}
	r.buf = append(r.buf, replayItem[T]{value: v, at: r.now()})
	r.trim()
	r.mu.Unlock()
	r.inner.OnNext(v)
}

func (r *ReplaySubject[T]) OnError(err error) {
	r.mu.Lock()
	if r.terminal {
		r.mu.Unlock()
		return
	}
	r.terminal, r.isError, r.termErr = true, true, err
	r.mu.Unlock()
	r.inner.OnError(err)
}

func (r *ReplaySubject[T]) OnCompleted() {
	r.mu.Lock()
	if r.terminal {
		r.mu.Unlock()
		return
	}
	r.terminal = true
	r.mu.Unlock()
	r.inner.OnCompleted()
}

// Subscribe replays the buffered history, in order, then joins the live
// PublishSubject so the subscriber sees exactly the same suffix (if any)
// every other live subscriber sees from this point on.
func (r *ReplaySubject[T]) Subscribe(observer Observer[T]) Subscription {
	r.mu.Lock()
	r.trim()
	history := make([]T, len(r.buf))
	for i, item := range r.buf {
		history[i] = item.value
	}
	terminal, isError, termErr := r.terminal, r.isError, r.termErr
	r.mu.Unlock()

	for _, v := range history {
		observer.OnNext(v)
	}
	if terminal {
		if isError {
			observer.OnError(termErr)
		} else {
			observer.OnCompleted()
		}
		return Noop
	}
	return r.inner.Subscribe(observer)
}

func (r *ReplaySubject[T]) AsStream() Stream[T] {
	return New[T]("ReplaySubject", func(observer Observer[T]) Subscription {
		return r.Subscribe(observer)
	})
}
