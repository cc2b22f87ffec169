// Package rxlog is a small, backend-agnostic logging facade used for the
// side-band diagnostics this module emits (unhandled-error routing,
// scheduler worker panics, multicast connect/disconnect transitions). It is
// deliberately narrow — the hot emission path never logs — and is modeled
// on the teacher retrieval pack's polylog abstraction
// (pokt-network-poktroll/pkg/polylog), which keeps a vendor-neutral Logger
// interface in front of a concrete backend.
package rxlog

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the narrow interface the rest of this module depends on.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// zapLogger adapts *zap.SugaredLogger to Logger, the default backend,
// grounded in pkg/polylog/polyzap/logger.go.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (z *zapLogger) Debugw(msg string, kv ...any) { z.sugar.Debugw(msg, kv...) }
func (z *zapLogger) Warnw(msg string, kv ...any)  { z.sugar.Warnw(msg, kv...) }
func (z *zapLogger) Errorw(msg string, kv ...any) { z.sugar.Errorw(msg, kv...) }

// nopLogger discards everything; returned by Nop, and used as the default
// when a zap logger cannot be built.
type nopLogger struct{}

func (nopLogger) Debugw(string, ...any) {}
func (nopLogger) Warnw(string, ...any)  {}
func (nopLogger) Errorw(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

var (
	once    sync.Once
	def     Logger
	defInit = func() {
		z, err := zap.NewProduction()
		if err != nil {
			def = nopLogger{}
			return
		}
		def = &zapLogger{sugar: z.Sugar()}
	}
)

// Default returns the process-wide default Logger, built lazily on first
// use from a production zap.Logger.
func Default() Logger {
	once.Do(defInit)
	return def
}

// mu guards an override installed via SetDefault, independent of the
// lazy-init singleton above so tests can swap in a Nop() logger.
var (
	mu       sync.RWMutex
	override Logger
)

// SetDefault overrides the logger returned by Current; Default keeps
// returning the lazily built zap-backed logger. Intended for
// tests and for applications that want to route these diagnostics into
// their own zap.Logger.
func SetDefault(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	override = l
}

// Current returns the override logger if one was installed, else Default().
func Current() Logger {
	mu.RLock()
	o := override
	mu.RUnlock()
	if o != nil {
		return o
	}
	return Default()
}
