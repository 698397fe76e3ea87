package corectx

import (
	"reflect"
	"sync"
)

// JunctionBoxManager owns one JunctionBox per event capability ever
// referenced through it, keyed by the capability's interface type. Two
// peer contexts share a single JunctionBoxManager instance (spec.md §4.5);
// every other context has its own.
type JunctionBoxManager struct {
	mu    sync.Mutex
	boxes map[reflect.Type]any // reflect.Type(E) -> *JunctionBox[E]
}

func newJunctionBoxManager() *JunctionBoxManager {
	return &JunctionBoxManager{boxes: make(map[reflect.Type]any, 4)}
}

// GetBox returns the JunctionBox for capability E owned by mgr, creating it
// on first reference. Grounded on centraunit-digo/container.go's
// reflect.TypeOf((*T)(nil)).Elem() keying idiom, generalized from a single
// flat binding map to one box per event type per manager.
func GetBox[E any](mgr *JunctionBoxManager) *JunctionBox[E] {
	t := reflect.TypeOf((*E)(nil)).Elem()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if existing, ok := mgr.boxes[t]; ok {
		return existing.(*JunctionBox[E])
	}
	box := NewJunctionBox[E]()
	mgr.boxes[t] = box
	return box
}

// eventReg is a type-erased registration produced by AddEventReceiver /
// Snoop: it closes over the concrete capability type E so Context's
// bookkeeping (delayedEventReceivers, snoopers, shutdown clearing) does
// not itself need to be generic.
type eventReg struct {
	receiver      any
	install       func(mgr *JunctionBoxManager)
	removeAllFrom func(mgr *JunctionBoxManager)
}

// AddEventReceiver registers receiver as a listener for capability E,
// visible to senders anywhere in ctx's context tree at or above ctx once
// propagation completes (spec.md §4.4 Propagation). Before ctx is
// Initiated the registration is held in ctx.delayedEventReceivers and
// drained at Initiate time (spec.md §9 Open Question, resolved in
// DESIGN.md: the drain always pushes into every ancestor's manager,
// independent of the ancestor's own init state).
func AddEventReceiver[E any](ctx *Context, receiver E) {
	reg := eventReg{
		receiver: receiver,
		install: func(mgr *JunctionBoxManager) {
			GetBox[E](mgr).Add(ctx, receiver)
		},
		removeAllFrom: func(mgr *JunctionBoxManager) {
			GetBox[E](mgr).RemoveAllFrom(ctx)
		},
	}
	ctx.registerEventReceiver(reg, false)
}

// RemoveEventReceiver reverses AddEventReceiver, removing receiver from
// ctx's local manager and every ancestor's manager it was propagated into.
func RemoveEventReceiver[E any](ctx *Context, receiver E) {
	ctx.unregisterEventReceiver(receiver, false)
	GetBox[E](ctx.junctionManager).Remove(ctx, receiver)
	for anc := ctx.parent; anc != nil; anc = anc.parent {
		GetBox[E](anc.junctionManager).Remove(ctx, receiver)
	}
}

// Snoop registers receiver as a listener for capability E in ctx without
// making it a member of ctx (spec.md §3 snoopers). Otherwise identical to
// AddEventReceiver.
func Snoop[E any](ctx *Context, receiver E) {
	reg := eventReg{
		receiver: receiver,
		install: func(mgr *JunctionBoxManager) {
			GetBox[E](mgr).Add(ctx, receiver)
		},
		removeAllFrom: func(mgr *JunctionBoxManager) {
			GetBox[E](mgr).RemoveAllFrom(ctx)
		},
	}
	ctx.registerEventReceiver(reg, true)
}

// Unsnoop reverses Snoop.
func Unsnoop[E any](ctx *Context, receiver E) {
	ctx.unregisterEventReceiver(receiver, true)
	GetBox[E](ctx.junctionManager).Remove(ctx, receiver)
	for anc := ctx.parent; anc != nil; anc = anc.parent {
		GetBox[E](anc.junctionManager).Remove(ctx, receiver)
	}
}

// Sender returns the shared JunctionBox for capability E reachable from
// ctx — the same box a peer of ctx would get, since peers share one
// manager. Use with Fire/Defer to dispatch E-typed events from ctx.
func Sender[E any](ctx *Context) *JunctionBox[E] {
	return GetBox[E](ctx.junctionManager)
}
