package corectx

import "sync"

// currentSlots emulates per-thread storage keyed by goid(), the same
// technique centraunit-digo/goroutine.go uses for its resolution-chain
// state (spec.md §4.7). Go has no native TLS and no notion of "the current
// goroutine exiting" to hook an automatic eviction into, so callers that
// park a context as current on a long-lived goroutine are responsible for
// calling EvictCurrent before that goroutine ends.
var currentSlots sync.Map // int64 -> *Context

// SetCurrent installs ctx as the calling goroutine's current context and
// returns whatever was previously installed (nil if none). Passing nil is
// equivalent to EvictCurrent.
func SetCurrent(ctx *Context) *Context {
	id := goid()
	var prev *Context
	if v, ok := currentSlots.Load(id); ok {
		prev = v.(*Context)
	}
	if ctx == nil {
		currentSlots.Delete(id)
	} else {
		currentSlots.Store(id, ctx)
	}
	return prev
}

// EvictCurrent clears the calling goroutine's current context slot and
// returns whatever was installed, if anything.
func EvictCurrent() *Context {
	return SetCurrent(nil)
}

// CurrentContext returns the calling goroutine's current context, or the
// process GlobalContext when none is set (spec.md §4.1, §4.7).
//
// Go has no destructor hook, so the "a destructing node is not also the
// thread-current node" invariant (spec.md §4.7, §9) has no literal Go
// analog: there is no window during garbage collection where CurrentContext
// could observe a node mid-teardown reading inconsistent state the way a
// C++ destructor body could. The closest meaningful enforcement point is
// SignalShutdown itself, which does not read or depend on the TLS slot at
// all — it is asserted to be reentrancy-safe with respect to CurrentContext
// by construction, not by a runtime check.
func CurrentContext() *Context {
	id := goid()
	if v, ok := currentSlots.Load(id); ok {
		return v.(*Context)
	}
	return GlobalContext()
}
