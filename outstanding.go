package corectx

import "sync"

// OutstandingCounter tracks the number of live Runnables in one Context's
// subtree (spec.md §3 "Outstanding count", §9). It is created lazily, when
// its Context is first Initiated, and recursively holds a
// token against its parent's counter for as long as its own count is
// non-zero — so a subtree's activity is visible at every ancestor without
// any ancestor polling its descendants. Grounded on
// original_source/OutstandingCountTracker.h's lazy parent-adoption and
// notify-on-zero shape.
type OutstandingCounter struct {
	mu          sync.Mutex
	count       int64
	parent      *OutstandingCounter
	parentToken *OutstandingToken
	onZero      func()
}

// newOutstandingCounter constructs a counter for a node whose parent
// counter is parent (nil for the root). onZero is invoked, outside the
// counter's own lock, whenever the count transitions from 1 to 0; the
// owning Context uses it to wake threads blocked in SignalShutdown(wait=true)
// or DelayUntilInitiated.
func newOutstandingCounter(parent *OutstandingCounter, onZero func()) *OutstandingCounter {
	return &OutstandingCounter{parent: parent, onZero: onZero}
}

// OutstandingToken is the handle a Runnable holds from Start until its work
// completes. Release is idempotent; releasing a token more than once has no
// further effect.
type OutstandingToken struct {
	once    sync.Once
	counter *OutstandingCounter
}

// NewToken issues a new outstanding token from c, lazily acquiring a token
// from c's parent counter if this is the transition from zero to one live
// runnable in this subtree.
func (c *OutstandingCounter) NewToken() *OutstandingToken {
	c.mu.Lock()
	if c.count == 0 && c.parent != nil && c.parentToken == nil {
		// Recurse into the parent while still holding our own lock: this
		// matches the context tree's child→parent lock order (§5), since
		// outstanding counters mirror the context nesting one-to-one.
		c.parentToken = c.parent.NewToken()
	}
	c.count++
	c.mu.Unlock()
	return &OutstandingToken{counter: c}
}

// Release decrements the counter. On the last release it fires onZero and
// releases any token held against the parent, propagating the transition
// upward.
func (t *OutstandingToken) Release() {
	t.once.Do(func() {
		c := t.counter
		c.mu.Lock()
		c.count--
		if c.count < 0 {
			c.count = 0
		}
		zero := c.count == 0
		var parentToken *OutstandingToken
		if zero {
			parentToken = c.parentToken
			c.parentToken = nil
		}
		c.mu.Unlock()

		if zero {
			if c.onZero != nil {
				c.onZero()
			}
			if parentToken != nil {
				parentToken.Release()
			}
		}
	})
}

// Live reports whether the counter currently has at least one outstanding
// token, satisfying the "Subtree outstanding" invariant (spec.md §8).
func (c *OutstandingCounter) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > 0
}
