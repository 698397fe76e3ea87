package corectx

import (
	"fmt"
	"sync"
)

// Deferred is the return-type marker an event capability's method uses to
// declare itself async. An operation typed func(E) Deferred may only be
// dispatched through Defer; an operation typed func(E) (no return) may
// only be dispatched through Fire. Go's type system rejects mixing the two
// at compile time — a stricter, earlier form of the "static check...
// detected at the call site" spec.md §4.4 calls for.
type Deferred struct{}

// Dispatcher is the receiver-owned queue Defer enqueues onto. Defer runs
// the operation inline for a receiver that does not implement it.
type Dispatcher interface {
	Enqueue(fn func())
}

// receiverEntry pairs a receiver with the context that added it, per
// spec.md §3's eventReceivers set — the owning context is needed for
// snoop/unsnoop bookkeeping and for locating the right ExceptionFilterChain
// when a receiver panics.
type receiverEntry[E any] struct {
	owner    *Context
	receiver E
}

// JunctionBox is the fan-out point for one event capability E: the set of
// receivers, plus Fire/Defer entry points that invoke an operation on each
// current receiver. Grounded on other_examples/GoCodeAlone-modular__observer.go's
// Subject (register/unregister/notify-all over a per-type receiver set),
// generalized from a single CloudEvents-typed Subject to one box per
// generic capability as spec.md §4.4 requires.
type JunctionBox[E any] struct {
	mu        sync.Mutex
	receivers []receiverEntry[E]
}

// NewJunctionBox constructs an empty box for capability E.
func NewJunctionBox[E any]() *JunctionBox[E] {
	return &JunctionBox[E]{}
}

// Add registers receiver as belonging to owner. Safe for concurrent use
// with Fire/Defer/Remove.
func (b *JunctionBox[E]) Add(owner *Context, receiver E) {
	b.mu.Lock()
	b.receivers = append(b.receivers, receiverEntry[E]{owner: owner, receiver: receiver})
	b.mu.Unlock()
}

// Remove unregisters every entry added by owner for this exact receiver
// value. Comparison uses the any-boxed equality of E; E must be comparable
// in practice (an interface holding a pointer, as all corectx event
// capabilities are).
func (b *JunctionBox[E]) Remove(owner *Context, receiver E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.receivers[:0]
	for _, e := range b.receivers {
		if e.owner == owner && any(e.receiver) == any(receiver) {
			continue
		}
		kept = append(kept, e)
	}
	b.receivers = kept
}

// RemoveAllFrom unregisters every receiver owned by owner, used when a
// context clears its event receivers on shutdown (spec.md §4.1
// SignalShutdown).
func (b *JunctionBox[E]) RemoveAllFrom(owner *Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.receivers[:0]
	for _, e := range b.receivers {
		if e.owner == owner {
			continue
		}
		kept = append(kept, e)
	}
	b.receivers = kept
}

// snapshot copies the current receiver set under lock, giving Fire/Defer a
// copy-on-iterate view that stays consistent despite concurrent Add/Remove
// (spec.md §4.4).
func (b *JunctionBox[E]) snapshot() []receiverEntry[E] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]receiverEntry[E], len(b.receivers))
	copy(out, b.receivers)
	return out
}

// Fire invokes op synchronously, on the caller's goroutine, against every
// current receiver. A receiver that panics has the panic value offered to
// its owning context's ExceptionFilterChain via FilterFiringException; if
// no filter swallows it, Fire returns it wrapped in a ListenerException.
// Fire never suspends the caller waiting on a receiver (spec.md §5); a slow
// receiver simply keeps the caller busy until it returns, by design.
func Fire[E any](box *JunctionBox[E], op func(E)) error {
	recordEventFired[E]()
	for _, entry := range box.snapshot() {
		if err := fireOne(entry, op); err != nil {
			return err
		}
	}
	return nil
}

func fireOne[E any](entry receiverEntry[E], op func(E)) (result error) {
	defer func() {
		if r := recover(); r != nil {
			err := toError(r)
			handled := false
			if entry.owner != nil {
				handled = entry.owner.filterFiringException(err, entry.receiver, entry.receiver)
			}
			if !handled {
				result = &ListenerException{Recipient: entry.receiver, Err: err}
			}
		}
	}()
	op(entry.receiver)
	return nil
}

// Defer invokes op against every current receiver. For a receiver that
// implements Dispatcher, op is enqueued there and Defer does not wait for
// it. A receiver that does not implement Dispatcher has op run inline on
// the caller's goroutine, without any log entry, rather than the event
// being dropped.
func Defer[E any](box *JunctionBox[E], op func(E) Deferred) {
	recordEventDeferred[E]()
	for _, entry := range box.snapshot() {
		deferOne(entry, op)
	}
}

func deferOne[E any](entry receiverEntry[E], op func(E) Deferred) {
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				err := toError(r)
				handled := false
				if entry.owner != nil {
					handled = entry.owner.filterFiringException(err, entry.receiver, entry.receiver)
				}
				if !handled && entry.owner != nil {
					entry.owner.logger().Warn("unhandled deferred listener panic", zapErrField(err))
				}
			}
		}()
		op(entry.receiver)
	}

	if d, ok := any(entry.receiver).(Dispatcher); ok {
		d.Enqueue(run)
		return
	}
	run()
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
