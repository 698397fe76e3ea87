package corectx

import "sync"

// AutowiringEvents is the global signal capability spec.md §6 describes:
// NewContext fires whenever any context in the process creates a child,
// NewObject fires whenever any context adds a member. Used for
// diagnostics and state reconstruction, never for ordinary application
// wiring.
type AutowiringEvents interface {
	IsEventReceiver()
	NewContext(child *Context)
	NewObject(ctx *Context, object any)
}

var (
	globalOnce sync.Once
	globalRoot *Context
)

// GlobalContext returns the process-wide root context, constructing it
// lazily on first access (spec.md §4.1). It is never itself a child of
// anything and is torn down last, typically via an explicit
// GlobalContext().SignalShutdown call from main before process exit.
// Grounded on centraunit-digo/container.go's sync.Once-guarded
// GetContainer() singleton.
func GlobalContext() *Context {
	globalOnce.Do(func() {
		globalRoot = newRootContext()
		ensureMetrics()
		contextsLiveGauge.Inc()
	})
	return globalRoot
}

// fireNewContext and fireNewObject publish the two AutowiringEvents. A
// process with no registered AutowiringEvents listener pays only the cost
// of an empty JunctionBox snapshot (a zero-length slice copy).
func fireNewContext(child *Context) {
	_ = Fire(Sender[AutowiringEvents](GlobalContext()), func(e AutowiringEvents) {
		e.NewContext(child)
	})
}

func fireNewObject(ctx *Context, object any) {
	_ = Fire(Sender[AutowiringEvents](GlobalContext()), func(e AutowiringEvents) {
		e.NewObject(ctx, object)
	})
}
