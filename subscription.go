package rx

import "sync"

// Subscription is the handle returned by Subscribe. Unsubscribe is
// idempotent; IsUnsubscribed reports whether it has already fired.
type Subscription interface {
	Unsubscribe()
	IsUnsubscribed() bool
}

// actionSubscription runs a cleanup function exactly once, on the first
// Unsubscribe call. Grounded in the teacher's baseDisposable (core.go),
// split out as its own named kind per spec §3.
type actionSubscription struct {
	mu      sync.Mutex
	done    bool
	cleanup func()
}

// NewActionSubscription returns a Subscription that runs cleanup exactly
// once. cleanup may be nil.
func NewActionSubscription(cleanup func()) Subscription {
	return &actionSubscription{cleanup: cleanup}
}

func (a *actionSubscription) Unsubscribe() {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.done = true
	cleanup := a.cleanup
	a.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
}

func (a *actionSubscription) IsUnsubscribed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// booleanSubscription flips a flag on Unsubscribe and runs no cleanup; used
// where a caller only needs to check is_unsubscribed cooperatively.
type booleanSubscription struct {
	mu          sync.Mutex
	unsubscribed bool
}

// NewBooleanSubscription returns a Subscription with no attached cleanup.
func NewBooleanSubscription() Subscription {
	return &booleanSubscription{}
}

func (b *booleanSubscription) Unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = true
}

func (b *booleanSubscription) IsUnsubscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribed
}

// CompositeSubscription aggregates child subscriptions and disposes all of
// them, in addition order, exactly once. Adding a child to an already
// unsubscribed composite disposes that child immediately rather than
// leaking it. Grounded in the teacher's CompositeDisposable (core.go).
type CompositeSubscription struct {
	mu           sync.Mutex
	unsubscribed bool
	children     []Subscription
}

// NewCompositeSubscription builds an empty composite, optionally seeded
// with children.
func NewCompositeSubscription(children ...Subscription) *CompositeSubscription {
	c := &CompositeSubscription{}
	for _, child := range children {
		c.Add(child)
	}
	return c
}

// Add attaches a child subscription. If the composite is already
// unsubscribed, child is unsubscribed immediately instead of being retained.
func (c *CompositeSubscription) Add(child Subscription) {
	if child == nil {
		return
	}
	c.mu.Lock()
	if c.unsubscribed {
		c.mu.Unlock()
		child.Unsubscribe()
		return
	}
	c.children = append(c.children, child)
	c.mu.Unlock()
}

// Remove detaches child without unsubscribing it, if still present.
func (c *CompositeSubscription) Remove(child Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.children {
		if s == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

func (c *CompositeSubscription) Unsubscribe() {
	c.mu.Lock()
	if c.unsubscribed {
		c.mu.Unlock()
		return
	}
	c.unsubscribed = true
	children := c.children
	c.children = nil
	c.mu.Unlock()

	for _, child := range children {
		child.Unsubscribe()
	}
}

func (c *CompositeSubscription) IsUnsubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribed
}

// noopSubscription is returned where the contract requires a Subscription
// but there is nothing to dispose (e.g. a synchronous producer already ran
// to completion before returning).
type noopSubscription struct{}

func (noopSubscription) Unsubscribe()          {}
func (noopSubscription) IsUnsubscribed() bool { return false }

// Noop is a Subscription with no effect, used as a placeholder return value.
var Noop Subscription = noopSubscription{}
