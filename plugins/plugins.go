// Package plugins holds the process-wide interception points named in
// spec §6: subscribe-start, subscribe-return, subscribe-error, and a
// side-band unhandled-error reporter. They form a singleton configured
// exactly once per process before the first Subscribe call; a second
// Configure call after that point fails fast (spec §9, "Global plugin
// state must be ... configured before first subscribe; attempting to
// reconfigure after first subscribe must fail fast").
package plugins

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorx/rx/rxlog"
)

// ErrorHandler receives every error the library surfaces through the
// unhandled-error path, for side-band logging (spec §6).
type ErrorHandler interface {
	Handle(err error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(err error)

func (f ErrorHandlerFunc) Handle(err error) { f(err) }

// Hooks is the full set of process-wide interception points. Any field left
// nil behaves as an identity/no-op hook.
type Hooks struct {
	// OnSubscribeStart is passed the source's name and is invoked for its
	// side effect before the producer runs (spec §4.2 step 2). It cannot
	// replace the subscribe function; returning a non-nil error makes
	// Subscribe panic with that error instead of running the producer.
	OnSubscribeStart func(sourceName string) error

	// OnSubscribeReturn lets a plugin wrap or inspect the subscription
	// returned from a subscribe call (spec §4.2 step 6).
	OnSubscribeReturn func(sourceName string, sub any) any

	// OnSubscribeError lets a plugin rewrite an error raised by a
	// producer's OnSubscribe before it reaches the safety wrapper.
	OnSubscribeError func(sourceName string, err error) error

	// ErrorHandler is invoked for every on_error the library surfaces
	// through the unhandled-error path (spec §6).
	ErrorHandler ErrorHandler
}

var (
	configured atomic.Bool
	mu         sync.Mutex
	current    = Hooks{}
)

// Configure installs the process-wide Hooks. It must be called at most once
// per process, and only before the first Subscribe anywhere in the process;
// a second call returns an error rather than silently overwriting the
// first configuration.
func Configure(h Hooks) error {
	mu.Lock()
	defer mu.Unlock()
	if configured.Load() {
		return fmt.Errorf("rx/plugins: Configure called more than once")
	}
	current = h
	configured.Store(true)
	return nil
}

// markFirstSubscribe freezes the current configuration against further
// Configure calls. Called internally on the first Subscribe.
func markFirstSubscribe() {
	configured.Store(true)
}

// Current returns the active Hooks snapshot (read-only use).
func Current() Hooks {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// NotifySubscribeStart invokes the configured OnSubscribeStart hook, if any,
// and marks the process as having subscribed at least once (closing the
// Configure window).
func NotifySubscribeStart(sourceName string) error {
	markFirstSubscribe()
	mu.Lock()
	hook := current.OnSubscribeStart
	mu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(sourceName)
}

// NotifySubscribeReturn invokes the configured OnSubscribeReturn hook, if
// any, returning sub unchanged when there is none.
func NotifySubscribeReturn(sourceName string, sub any) any {
	mu.Lock()
	hook := current.OnSubscribeReturn
	mu.Unlock()
	if hook == nil {
		return sub
	}
	return hook(sourceName, sub)
}

// NotifySubscribeError invokes the configured OnSubscribeError hook, if
// any, returning err unchanged when there is none.
func NotifySubscribeError(sourceName string, err error) error {
	mu.Lock()
	hook := current.OnSubscribeError
	mu.Unlock()
	if hook == nil {
		return err
	}
	return hook(sourceName, err)
}

// NotifyUnhandledError routes err to the configured ErrorHandler, if any.
// With no handler configured it falls back to rxlog.Current() at Warn level,
// so an unhandled error is never silently dropped from the process's logs.
func NotifyUnhandledError(err error) {
	mu.Lock()
	handler := current.ErrorHandler
	mu.Unlock()
	if handler != nil {
		handler.Handle(err)
		return
	}
	rxlog.Current().Warnw("rx: unhandled error", "error", err)
}

// resetForTest clears the singleton. It is unexported, so only code in this
// package (including its _test.go files) can call it; there is no public
// reset that production code could call.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()
	current = Hooks{}
	configured.Store(false)
}
