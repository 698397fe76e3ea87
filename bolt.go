package corectx

import "reflect"

// boltMatches reports whether b listens for sigil: either it declared no
// sigils at all (the anonymous void sigil, "all") or sigil is explicitly
// among the ones it declared. A bolt that lists both S and void in its
// GetContextSigils is still asked "does this bolt match?" exactly once per
// creation event, so it cannot double-fire the way a sigil->bolts lookup
// table that visited the void bucket and the S bucket separately would
// (spec.md §8's Bolt non-duplication invariant, satisfied here by
// construction rather than by a dedup pass).
func boltMatches(b Bolt, sigil reflect.Type) bool {
	sigils := b.GetContextSigils()
	if len(sigils) == 0 {
		return true
	}
	for _, s := range sigils {
		if s == sigil {
			return true
		}
	}
	return false
}

// broadcastSigil fires every bolt matching sigil registered at ctx, in
// insertion order, then recurses to ctx's parent — spec.md §4.1's "broadcasts
// the sigil upward, invoking matching bolts at each ancestor".
func broadcastSigil(ctx *Context, sigil reflect.Type, child *Context) {
	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		bolts := make([]Bolt, len(node.bolts))
		copy(bolts, node.bolts)
		node.mu.Unlock()

		for _, b := range bolts {
			if boltMatches(b, sigil) {
				b.ContextCreated(sigil, child)
			}
		}
	}
}
