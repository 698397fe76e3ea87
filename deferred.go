package corectx

// The deferred-autowiring chain is intrusive: each DeferrableAutowiring
// owns its own forward link (GetFlink/SetFlink per spec.md §4.3/§9); a
// Memo only ever holds the head. This file collects the chain-manipulation
// helpers context.go uses for deferral, bulk satisfaction on Add, and
// cancellation.

// chainPush links field onto the front of head and returns the new head.
func chainPush(head DeferrableAutowiring, field DeferrableAutowiring) DeferrableAutowiring {
	field.SetFlink(head)
	return field
}

// chainRemove detaches target from the chain rooted at head, returning the
// (possibly unchanged) new head and whether target was found. O(chain
// length) — per spec.md §4.3, a conscious tradeoff since cancellation is
// rare.
func chainRemove(head DeferrableAutowiring, target DeferrableAutowiring) (DeferrableAutowiring, bool) {
	if head == nil {
		return nil, false
	}
	if head == target {
		return head.GetFlink(), true
	}
	prev := head
	cur := head.GetFlink()
	for cur != nil {
		if cur == target {
			prev.SetFlink(cur.GetFlink())
			return head, true
		}
		prev = cur
		cur = cur.GetFlink()
	}
	return head, false
}

// pendingFinalize pairs a strategy with the field it should finalize. These
// are collected while a node's lock is held and run afterward (§4.2 step
// 8) since strategies may re-enter context operations.
type pendingFinalize struct {
	strategy AutowiringStrategy
	field    DeferrableAutowiring
}

// satisfyChain walks head depth-first, assigning value to every field,
// splicing in any dependent chain a field releases, and collecting
// (strategy, field) pairs that need finalization. Must be called with the
// owning node's lock held; the returned finalizers must be run outside any
// lock.
func satisfyChain(head DeferrableAutowiring, value any) []pendingFinalize {
	var finalizers []pendingFinalize
	stack := make([]DeferrableAutowiring, 0, 8)
	for cur := head; cur != nil; cur = cur.GetFlink() {
		stack = append(stack, cur)
	}
	for len(stack) > 0 {
		n := len(stack) - 1
		field := stack[n]
		stack = stack[:n]

		field.SatisfyAutowiring(value)
		if dep := field.ReleaseDependentChain(); dep != nil {
			for cur := dep; cur != nil; cur = cur.GetFlink() {
				stack = append(stack, cur)
			}
		}
		if strategy := field.GetStrategy(); strategy != nil {
			finalizers = append(finalizers, pendingFinalize{strategy: strategy, field: field})
		}
	}
	return finalizers
}

// runFinalizers executes every collected finalizer. Must be called outside
// any Context lock (§4.2 rationale).
func runFinalizers(pending []pendingFinalize) {
	for _, p := range pending {
		p.strategy.Finalize(p.field)
	}
}
