package corectx

import (
	"fmt"
	"reflect"
	"sync"
	"weak"

	"go.uber.org/zap"
)

// State is a Context's position in its lifecycle: Constructed, then
// Initiated, then Shutdown. Transitions only move forward (spec.md §4.1).
type State int32

const (
	StateConstructed State = iota
	StateInitiated
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateInitiated:
		return "initiated"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// ShutdownMode selects how SignalShutdown treats in-flight Runnables.
type ShutdownMode int

const (
	// Graceful asks every Runnable to finish in-flight work before stopping.
	Graceful ShutdownMode = iota
	// Immediate asks every Runnable to abandon in-flight work.
	Immediate
)

// Context is one node of the tree spec.md §3 describes: a set of typed
// members, a type registry resolving Autowire requests by ascending the
// tree, a local JunctionBoxManager for event dispatch, and the lifecycle
// state governing when Runnables run and when teardown happens.
//
// Grounded on centraunit-digo/container.go's container struct, generalized
// from one flat, parentless binding table into a tree: a strong reference
// up to parent, weak references down to children (spec.md §3's explicit
// "a context does not keep its children alive"), a typeRegistry per node
// instead of one shared map, and the lifecycle/outstanding-count machinery
// the teacher's container never needed because it has no concept of
// Runnables or teardown ordering.
type Context struct {
	id   ID
	name string

	mu    sync.Mutex
	cond  *sync.Cond
	state State

	parent   *Context
	children []weak.Pointer[Context]

	junctionManager *JunctionBoxManager

	registry typeRegistry
	objects  map[any]struct{}

	concreteMembers []any
	contextMembers  []ContextMember
	runnables       []Runnable
	filters         []ExceptionFilter
	bolts           []Bolt

	eventReceivers        []eventReg
	delayedEventReceivers []eventReg
	snoopers              []eventReg
	delayedSnoopers       []eventReg

	outstanding *OutstandingCounter

	log *zap.Logger
}

func newContext(parent *Context, manager *JunctionBoxManager) *Context {
	c := &Context{
		id:              newContextID(),
		parent:          parent,
		junctionManager: manager,
		registry:        newTypeRegistry(),
		objects:         make(map[any]struct{}, 8),
	}
	c.cond = sync.NewCond(&c.mu)
	if parent != nil {
		c.log = parent.logger()
	}
	return c
}

func newRootContext() *Context {
	return newContext(nil, newJunctionBoxManager())
}

// ID returns ctx's process-lifetime-unique identity.
func (ctx *Context) ID() ID {
	return ctx.id
}

// Parent returns ctx's parent, or nil if ctx is a root.
func (ctx *Context) Parent() *Context {
	return ctx.parent
}

// State returns ctx's current lifecycle state.
func (ctx *Context) State() State {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.state
}

func (ctx *Context) shutdownLocked() bool {
	return ctx.state == StateShutdown
}

func (ctx *Context) liveChildrenLocked() []*Context {
	out := make([]*Context, 0, len(ctx.children))
	for _, w := range ctx.children {
		if c := w.Value(); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (ctx *Context) addChildLocked(child *Context) {
	ctx.children = append(ctx.children, weak.Make(child))
}

// Create constructs a new child of parent tagged with sigil Sigil, appends
// it to parent's (weak) child list, broadcasts the sigil to every matching
// Bolt from parent up to the root, and publishes a global NewContext event
// (spec.md §4.1).
func Create[Sigil any](parent *Context) *Context {
	child := newContext(parent, newJunctionBoxManager())

	if parent != nil {
		parent.mu.Lock()
		parent.addChildLocked(child)
		parent.mu.Unlock()
	}

	ensureMetrics()
	contextsLiveGauge.Inc()

	sigil := reflect.TypeOf((*Sigil)(nil)).Elem()
	if parent != nil {
		broadcastSigil(parent, sigil, child)
	}
	fireNewContext(child)
	return child
}

// CreatePeer constructs a sibling of ctx: same parent, but sharing ctx's
// own JunctionBoxManager rather than getting a fresh one (spec.md §4.5).
// Membership, deferrals and lifecycle remain independent; only the event
// fan-out surface is shared.
func CreatePeer(ctx *Context) *Context {
	peer := newContext(ctx.parent, ctx.junctionManager)

	if ctx.parent != nil {
		ctx.parent.mu.Lock()
		ctx.parent.addChildLocked(peer)
		ctx.parent.mu.Unlock()
	}

	ensureMetrics()
	contextsLiveGauge.Inc()
	fireNewContext(peer)
	return peer
}

// Inject constructs a T via construct and adds it to ctx, the idiomatic Go
// replacement for spec.md's Inject<T>(args...) — Go generics cannot forward
// an arbitrary constructor argument list, so the caller supplies the
// construction step itself instead of a template parameter pack.
//
// If construct makes ctx the calling goroutine's current context
// (spec.md §7's CtorAutowireCycle: "a member's constructor attempts to make
// its enclosing context current"), Inject detects the change on return and
// fails rather than adding the half-constructed value — ctx cannot
// legitimately become current as a side effect of constructing one of its
// own members, since nothing has linked the member to ctx yet at that point.
func Inject[T any](ctx *Context, construct func() T) (T, error) {
	before := CurrentContext()
	v := construct()
	if after := CurrentContext(); after == ctx && before != ctx {
		var zero T
		return zero, &CtorAutowireCycleError{Type: reflect.TypeOf((*T)(nil)).Elem()}
	}
	if err := Add(ctx, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Add installs obj as a member of ctx under the generic parameter T (its
// declared type at the call site — an interface if the caller wrote
// Add[Iface](ctx, obj), obj's own concrete type if the caller just wrote
// Add(ctx, obj)) and separately under obj's concrete runtime type, so a
// later Autowire[ConcreteType] or Autowire[Iface] both resolve (spec.md
// §4.2's "the object's concrete type" plus whatever capability it was
// declared under). ContextMember, Runnable, ExceptionFilter and Bolt
// capabilities are discovered by type assertion and appended to ctx's
// dispatch lists in insertion order.
func Add[T any](ctx *Context, obj T) error {
	var boxed any = obj
	if boxed == nil {
		return fmt.Errorf("corectx: cannot add nil object")
	}

	declaredType := reflect.TypeOf((*T)(nil)).Elem()
	concreteType := reflect.TypeOf(boxed)

	ctx.mu.Lock()
	if ctx.shutdownLocked() {
		ctx.mu.Unlock()
		return &ShutdownReentryError{Op: "Add"}
	}
	if _, exists := ctx.objects[boxed]; exists {
		ctx.mu.Unlock()
		return &DuplicateMemberError{Type: concreteType, Kind: ErrDuplicateObject}
	}
	// A memo value cached from an ancestor by propagateToChildren is not one
	// of ctx's own members and may be shadowed; only an own member collides.
	if m := ctx.registry.lookup(declaredType); m != nil && m.value != nil {
		if _, own := ctx.objects[m.value]; own {
			ctx.mu.Unlock()
			return &DuplicateMemberError{Type: declaredType, Kind: ErrDuplicateType}
		}
	}
	if declaredType != concreteType {
		if m := ctx.registry.lookup(concreteType); m != nil && m.value != nil {
			if _, own := ctx.objects[m.value]; own {
				ctx.mu.Unlock()
				return &DuplicateMemberError{Type: concreteType, Kind: ErrDuplicateType}
			}
		}
	}

	ctx.objects[boxed] = struct{}{}
	ctx.concreteMembers = append(ctx.concreteMembers, boxed)
	if cm, ok := boxed.(ContextMember); ok {
		ctx.contextMembers = append(ctx.contextMembers, cm)
	}
	if r, ok := boxed.(Runnable); ok {
		ctx.runnables = append(ctx.runnables, r)
	}
	if f, ok := boxed.(ExceptionFilter); ok {
		ctx.filters = append(ctx.filters, f)
	}
	if b, ok := boxed.(Bolt); ok {
		ctx.bolts = append(ctx.bolts, b)
	}

	declaredMemo := ctx.registry.entry(declaredType)
	declaredMemo.value = boxed
	declaredHead := declaredMemo.pFirst
	declaredMemo.pFirst = nil
	finalizers := satisfyChain(declaredHead, boxed)

	if declaredType != concreteType {
		concreteMemo := ctx.registry.entry(concreteType)
		concreteMemo.value = boxed
		concreteHead := concreteMemo.pFirst
		concreteMemo.pFirst = nil
		finalizers = append(finalizers, satisfyChain(concreteHead, boxed)...)
	}
	ctx.mu.Unlock()

	finalizers = append(finalizers, ctx.propagateToChildren(declaredType, boxed)...)
	if declaredType != concreteType {
		finalizers = append(finalizers, ctx.propagateToChildren(concreteType, boxed)...)
	}
	runFinalizers(finalizers)

	ctx.logger().Debug("member added", zap.String("type", declaredType.String()))
	fireNewObject(ctx, boxed)
	return nil
}

// propagateToChildren carries a newly-installed (type, value) pair down
// into every live descendant that does not already have its own value for
// that type (spec.md §4.2 step 7, §8's Deferred downward broadcast
// scenario): a descendant with no value of its own would, were it to
// Autowire right now, ascend and find value at ctx — caching it locally
// lets an already-deferred field there resolve immediately instead of
// waiting for its own Add. A descendant that already has its own value is
// left alone and the recursion does not continue past it, since anything
// further down would resolve to that descendant's value first anyway.
func (ctx *Context) propagateToChildren(t reflect.Type, value any) []pendingFinalize {
	ctx.mu.Lock()
	children := ctx.liveChildrenLocked()
	ctx.mu.Unlock()

	var out []pendingFinalize
	for _, c := range children {
		c.mu.Lock()
		m := c.registry.entry(t)
		if _, own := c.objects[m.value]; m.value != nil && own {
			c.mu.Unlock()
			continue
		}
		m.value = value
		head := m.pFirst
		m.pFirst = nil
		fin := satisfyChain(head, value)
		c.mu.Unlock()

		out = append(out, fin...)
		out = append(out, c.propagateToChildren(t, value)...)
	}
	return out
}

// findCompatibleLocked resolves t against node's own members: the exact
// registry entry if something was explicitly declared under t (Add[T] or
// a prior Add's own concrete type), otherwise — only when t is an
// interface — every concrete member independently assignable to t (spec.md
// overview: "the first type-compatible member reachable upward"). Caller
// must hold node.mu. More than one independently-satisfying member for an
// interface type is AmbiguousAutowireError (spec.md §7); neither case found
// returns a nil value with a nil error, meaning "keep ascending".
func (node *Context) findCompatibleLocked(t reflect.Type) (any, error) {
	if m := node.registry.lookup(t); m != nil && m.value != nil {
		return m.value, nil
	}
	if t.Kind() != reflect.Interface {
		return nil, nil
	}
	var match any
	count := 0
	for _, obj := range node.concreteMembers {
		if reflect.TypeOf(obj).AssignableTo(t) {
			count++
			if count > 1 {
				return nil, &AmbiguousAutowireError{Type: t}
			}
			match = obj
		}
	}
	if count == 1 {
		return match, nil
	}
	return nil, nil
}

// Autowire resolves field's sought type T by ascending from ctx to the
// root, taking the first node with a value. If no ancestor has one, field
// is linked onto ctx's own deferred chain for T (spec.md §4.3: "at this
// node only, the node where Autowire was issued") and resolved later by
// whichever node's Add installs a T first.
func Autowire[T any](ctx *Context, field DeferrableAutowiring) error {
	t := reflect.TypeOf((*T)(nil)).Elem()

	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		val, err := node.findCompatibleLocked(t)
		node.mu.Unlock()
		if err != nil {
			return err
		}
		if val != nil {
			field.SatisfyAutowiring(val)
			if strat := field.GetStrategy(); strat != nil {
				strat.Finalize(field)
			}
			return nil
		}
	}

	ctx.mu.Lock()
	if ctx.shutdownLocked() {
		ctx.mu.Unlock()
		return &ShutdownReentryError{Op: "Autowire"}
	}
	m := ctx.registry.entry(t)
	m.pFirst = chainPush(m.pFirst, field)
	ctx.mu.Unlock()
	return nil
}

// FindByType performs the same ascending search Autowire does but never
// defers: it reports ok=false immediately if no ancestor currently has a T.
// An ambiguous interface resolution (spec.md §7's AmbiguousAutowire, an
// "immediate fatal error") panics rather than silently returning ok=false,
// since FindByType's two-value return has no room for a distinct error.
func FindByType[T any](ctx *Context) (value T, ok bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		val, err := node.findCompatibleLocked(t)
		node.mu.Unlock()
		if err != nil {
			panic(err)
		}
		if val != nil {
			typed, assignable := val.(T)
			return typed, assignable
		}
	}
	return value, false
}

// CancelAutowiringNotification detaches field from whichever node's
// deferred chain it is linked onto, searching from ctx upward (the node
// passed to Autowire, and its ancestors, cover every node a chain for
// field's type could live on). Reports whether field was found and
// removed; if so its strategy, if any, is finalized exactly as it would
// have been on satisfaction.
func CancelAutowiringNotification(ctx *Context, field DeferrableAutowiring) bool {
	t := field.GetType()
	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		m := node.registry.lookup(t)
		if m == nil {
			node.mu.Unlock()
			continue
		}
		newHead, found := chainRemove(m.pFirst, field)
		if found {
			m.pFirst = newHead
		}
		node.mu.Unlock()
		if found {
			if strat := field.GetStrategy(); strat != nil {
				strat.Finalize(field)
			}
			return true
		}
	}
	return false
}

func (ctx *Context) parentOutstandingCounter() *OutstandingCounter {
	if ctx.parent == nil {
		return nil
	}
	ctx.parent.mu.Lock()
	defer ctx.parent.mu.Unlock()
	return ctx.parent.outstanding
}

// Initiate moves ctx (and, first, every ancestor not already Initiated)
// into the Initiated state: delayed event receivers and snoopers recorded
// before now are drained into ctx's own JunctionBoxManager and every
// ancestor's, the outstanding counter is created, and every Runnable added
// so far is started (spec.md §4.1). Initiate is idempotent; calling it
// again, or calling it after SignalShutdown, is a no-op.
func (ctx *Context) Initiate() error {
	if ctx.parent != nil {
		if err := ctx.parent.Initiate(); err != nil {
			return err
		}
	}
	parentCounter := ctx.parentOutstandingCounter()

	ctx.mu.Lock()
	if ctx.state != StateConstructed {
		ctx.mu.Unlock()
		return nil
	}
	ctx.state = StateInitiated

	delayedRecv := ctx.delayedEventReceivers
	delayedSnoop := ctx.delayedSnoopers
	ctx.delayedEventReceivers = nil
	ctx.delayedSnoopers = nil
	ctx.eventReceivers = append(ctx.eventReceivers, delayedRecv...)
	ctx.snoopers = append(ctx.snoopers, delayedSnoop...)

	if ctx.outstanding == nil {
		// onZero fires from Release, on whichever goroutine drove the count
		// to zero, synchronized only by the counter's own mutex (outstanding.go)
		// — a different lock than ctx.mu. Taking ctx.mu here before
		// broadcasting closes that gap: SignalShutdown's wait loop always
		// checks Live() and calls ctx.cond.Wait() as one critical section
		// under ctx.mu, so a broadcast that itself waits on ctx.mu cannot
		// land in the instant between that check and the Wait call.
		ctx.outstanding = newOutstandingCounter(parentCounter, func() {
			ctx.mu.Lock()
			ctx.cond.Broadcast()
			ctx.mu.Unlock()
			ctx.reportOutstandingMetric()
		})
	}
	outstanding := ctx.outstanding
	runnables := append([]Runnable(nil), ctx.runnables...)
	ctx.cond.Broadcast()
	ctx.mu.Unlock()

	for _, reg := range delayedRecv {
		reg.install(ctx.junctionManager)
		for anc := ctx.parent; anc != nil; anc = anc.parent {
			reg.install(anc.junctionManager)
		}
	}
	for _, reg := range delayedSnoop {
		reg.install(ctx.junctionManager)
		for anc := ctx.parent; anc != nil; anc = anc.parent {
			reg.install(anc.junctionManager)
		}
	}

	for _, r := range runnables {
		token := outstanding.NewToken()
		if err := r.Start(token); err != nil {
			token.Release()
			return err
		}
	}
	ctx.reportOutstandingMetric()
	ctx.logger().Info("context initiated")
	return nil
}

// DelayUntilInitiated blocks the calling goroutine until ctx is Initiated
// or Shutdown, returning true iff it reached Initiated. A Context that is
// already past Constructed returns immediately.
func (ctx *Context) DelayUntilInitiated() bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for ctx.state == StateConstructed {
		ctx.cond.Wait()
	}
	return ctx.state == StateInitiated
}

// SignalShutdown tears ctx down: clears its event receivers and snoopers
// from its own manager and every ancestor's, recurses into live children
// in reverse insertion order, stops every Runnable (gracefully or not,
// per mode), notifies every ContextMember in reverse insertion order, and,
// if wait is true, blocks until every Runnable has fully stopped and the
// subtree's outstanding count has reached zero. SignalShutdown is
// idempotent: a second call on an already-Shutdown node is a no-op with
// the same observable effect as the first (spec.md §8).
func (ctx *Context) SignalShutdown(wait bool, mode ShutdownMode) error {
	ctx.mu.Lock()
	if ctx.state == StateShutdown {
		ctx.mu.Unlock()
		return nil
	}
	ctx.state = StateShutdown

	localRecv := append([]eventReg(nil), ctx.eventReceivers...)
	localSnoop := append([]eventReg(nil), ctx.snoopers...)
	ctx.eventReceivers = nil
	ctx.snoopers = nil
	ctx.delayedEventReceivers = nil
	ctx.delayedSnoopers = nil

	children := ctx.liveChildrenLocked()
	runnables := append([]Runnable(nil), ctx.runnables...)
	contextMembers := append([]ContextMember(nil), ctx.contextMembers...)
	outstanding := ctx.outstanding
	ctx.cond.Broadcast()
	ctx.mu.Unlock()

	for _, reg := range localRecv {
		reg.removeAllFrom(ctx.junctionManager)
		for anc := ctx.parent; anc != nil; anc = anc.parent {
			reg.removeAllFrom(anc.junctionManager)
		}
	}
	for _, reg := range localSnoop {
		reg.removeAllFrom(ctx.junctionManager)
		for anc := ctx.parent; anc != nil; anc = anc.parent {
			reg.removeAllFrom(anc.junctionManager)
		}
	}

	for i := len(children) - 1; i >= 0; i-- {
		_ = children[i].SignalShutdown(wait, mode)
	}

	graceful := mode == Graceful
	for _, r := range runnables {
		_ = r.Stop(graceful)
	}

	for i := len(contextMembers) - 1; i >= 0; i-- {
		cm := contextMembers[i]
		if err := callProtected(ctx, func() { cm.NotifyContextTeardown() }); err != nil {
			ctx.logger().Warn("NotifyContextTeardown panicked", zapErrField(err))
		}
	}

	if wait {
		for _, r := range runnables {
			_ = r.Wait()
		}
		if outstanding != nil {
			ctx.mu.Lock()
			for outstanding.Live() {
				ctx.cond.Wait()
			}
			ctx.mu.Unlock()
		}
	}

	ensureMetrics()
	contextsLiveGauge.Dec()
	outstandingLiveGauge.DeleteLabelValues(ctx.id.String())
	ctx.logger().Info("context shut down")
	return nil
}

func (ctx *Context) reportOutstandingMetric() {
	ensureMetrics()
	live := 0.0
	if ctx.outstanding != nil && ctx.outstanding.Live() {
		live = 1
	}
	outstandingLiveGauge.WithLabelValues(ctx.id.String()).Set(live)
}

// registerEventReceiver records reg as a member (snoop=false) or snooper
// (snoop=true) of ctx. Before Initiate it is only held locally; Initiate
// drains it into ctx's manager and every ancestor's.
func (ctx *Context) registerEventReceiver(reg eventReg, snoop bool) {
	ctx.mu.Lock()
	initiated := ctx.state != StateConstructed
	if snoop {
		if initiated {
			ctx.snoopers = append(ctx.snoopers, reg)
		} else {
			ctx.delayedSnoopers = append(ctx.delayedSnoopers, reg)
		}
	} else {
		if initiated {
			ctx.eventReceivers = append(ctx.eventReceivers, reg)
		} else {
			ctx.delayedEventReceivers = append(ctx.delayedEventReceivers, reg)
		}
	}
	ctx.mu.Unlock()

	if initiated {
		reg.install(ctx.junctionManager)
		for anc := ctx.parent; anc != nil; anc = anc.parent {
			reg.install(anc.junctionManager)
		}
	}
}

// unregisterEventReceiver removes receiver's bookkeeping entry from ctx's
// local lists. The caller is responsible for removing it from the actual
// JunctionBoxes (RemoveEventReceiver/Unsnoop do this, since only they know
// the capability type E).
func (ctx *Context) unregisterEventReceiver(receiver any, snoop bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	match := func(regs []eventReg) []eventReg {
		kept := regs[:0]
		for _, r := range regs {
			if any(r.receiver) == receiver {
				continue
			}
			kept = append(kept, r)
		}
		return kept
	}
	if snoop {
		ctx.snoopers = match(ctx.snoopers)
		ctx.delayedSnoopers = match(ctx.delayedSnoopers)
	} else {
		ctx.eventReceivers = match(ctx.eventReceivers)
		ctx.delayedEventReceivers = match(ctx.delayedEventReceivers)
	}
}

// FilterException offers err to ctx's ExceptionFilter chain, ascending to
// the root. Reports whether some filter swallowed it.
func (ctx *Context) FilterException(err error) bool {
	return ctx.filterException(err)
}

// FilterFiringException offers err, thrown by proxy while dispatching to
// recipient, to ctx's ExceptionFilter chain, ascending to the root.
func (ctx *Context) FilterFiringException(err error, proxy any, recipient any) bool {
	return ctx.filterFiringException(err, proxy, recipient)
}
