// Package autowired is sugar over corectx's DeferrableAutowiring contract:
// instead of implementing GetType/GetFlink/SetFlink/SatisfyAutowiring by
// hand for every field that wants a deferred dependency, declare a
// Field[T] and call Attach. Kept as its own package, separate from
// corectx's core, matching spec.md's boundary between the core primitives
// and any field-level convenience layered on top of them.
package autowired

import (
	"reflect"
	"sync"

	"github.com/centraunit/corectx"
)

// Field is a deferrable autowiring slot for type T: Attach resolves it
// immediately if some ancestor of the given context already has a T, or
// links it onto that context's deferred chain to resolve the moment one
// is added anywhere the ascending search would find it.
type Field[T any] struct {
	mu          sync.RWMutex
	value       T
	satisfied   bool
	flink       corectx.DeferrableAutowiring
	onSatisfied func(T)
}

// OnSatisfied registers a callback invoked the moment the field receives
// its value. When Attach resolves the field immediately, the callback runs
// outside any Context lock; when the value arrives through a later Add,
// it runs while that Add holds the Context's lock. Must be set before
// Attach to avoid racing a synchronous resolution.
func (f *Field[T]) OnSatisfied(cb func(T)) {
	f.mu.Lock()
	f.onSatisfied = cb
	f.mu.Unlock()
}

// Attach issues corectx.Autowire[T](ctx, f).
func (f *Field[T]) Attach(ctx *corectx.Context) error {
	return corectx.Autowire[T](ctx, f)
}

// Cancel detaches f from whichever node's deferred chain it is linked
// onto, searching upward from ctx.
func (f *Field[T]) Cancel(ctx *corectx.Context) bool {
	return corectx.CancelAutowiringNotification(ctx, f)
}

// Get returns the field's current value and whether it has been satisfied
// yet.
func (f *Field[T]) Get() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, f.satisfied
}

func (f *Field[T]) GetType() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func (f *Field[T]) GetFlink() corectx.DeferrableAutowiring { return f.flink }

func (f *Field[T]) SetFlink(next corectx.DeferrableAutowiring) { f.flink = next }

func (f *Field[T]) ReleaseDependentChain() corectx.DeferrableAutowiring { return nil }

func (f *Field[T]) GetStrategy() corectx.AutowiringStrategy { return nil }

func (f *Field[T]) SatisfyAutowiring(value any) bool {
	typed, ok := value.(T)
	if !ok {
		return false
	}
	f.mu.Lock()
	f.value = typed
	f.satisfied = true
	cb := f.onSatisfied
	f.mu.Unlock()
	if cb != nil {
		cb(typed)
	}
	return true
}
