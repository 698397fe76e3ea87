package corectx

import "reflect"

// Package corectx implements a hierarchical dependency-injection and
// event-dispatch runtime: a tree of Contexts, each holding typed members,
// distributing events to matching listeners, and supervising the lifecycle
// of Runnables declared inside it.
//
// The interfaces in this file are the external contracts spec.md §6
// describes. ContextMember, Runnable, ExceptionFilter and Bolt are
// discovered by type assertion when an object is added to a Context; an
// object never has to declare them.

// Runnable is the external thread-wrapper contract. corectx only issues
// Start/Stop/Wait; it never runs a worker loop itself (spec.md §1).
type Runnable interface {
	// Start begins work, holding token until the work completes. Start
	// must return promptly; long-running work happens on threads the
	// Runnable itself owns.
	Start(token *OutstandingToken) error

	// Stop requests termination. graceful indicates whether the Runnable
	// should finish in-flight work (true) or abandon it (false).
	Stop(graceful bool) error

	// Wait blocks until the Runnable has fully stopped.
	Wait() error
}

// ExceptionFilter lets a context member intercept exceptions propagated
// during event dispatch or user calls.
type ExceptionFilter interface {
	// Filter is offered a user-call exception, which rethrow() returns.
	// Returning nil swallows the exception and ends the chain; returning a
	// non-nil error declines, and that error is offered to the next filter
	// up.
	Filter(rethrow func() error) error

	// FilterFiringException is offered an exception thrown by receiver
	// while dispatching to recipient. Same swallow/decline contract as
	// Filter.
	FilterFiringException(rethrow func() error, proxy any, recipient any) error
}

// ContextMember is invoked once during its owning context's teardown, in
// reverse insertion order.
type ContextMember interface {
	NotifyContextTeardown()
}

// Bolt is invoked when a child context is created under a matching sigil.
type Bolt interface {
	// GetContextSigils returns the sigil types this bolt listens for. A nil
	// or empty slice means "all" (the anonymous void sigil).
	GetContextSigils() []reflect.Type

	// ContextCreated is invoked when a child matching one of
	// GetContextSigils is created.
	ContextCreated(sigil reflect.Type, child *Context)
}

// EventReceiver is a marker capability. Add does not look for it: a
// receiver is registered for an event capability E with
// AddEventReceiver[E] or Snoop[E], which store it in JunctionBox[E], and
// Fire/Defer reach it through the op function they are given.
type EventReceiver interface {
	// IsEventReceiver is never called; it only marks a type as an event
	// receiver.
	IsEventReceiver()
}

// PacketSubscriber is a marker capability reserved for the
// producer/consumer packet subsystem, which spec.md §1 places out of
// scope for the core. Add does not look for it, and corectx keeps no
// bookkeeping or dispatch logic for it.
type PacketSubscriber interface {
	IsPacketSubscriber()
}

// AutowiringStrategy finalizes a deferred field after it has been
// satisfied, or when its deferral is cancelled. Finalize is called exactly
// once per field, outside any Context lock.
type AutowiringStrategy interface {
	Finalize(field DeferrableAutowiring)
}

// DeferrableAutowiring is the external record describing a field wanting
// some type. Concrete implementations (such as the sugar helpers in the
// autowired subpackage) plug into Autowire and the deferred chain
// maintained per Memo.
type DeferrableAutowiring interface {
	// GetType returns the type this field is seeking.
	GetType() reflect.Type

	// GetFlink/SetFlink implement the intrusive singly-linked deferred
	// chain (spec.md §4.3, §9).
	GetFlink() DeferrableAutowiring
	SetFlink(next DeferrableAutowiring)

	// ReleaseDependentChain detaches and returns this field's own
	// downstream chain, if it maintains one, so the resolver can splice it
	// back onto its stack. Most fields return nil.
	ReleaseDependentChain() DeferrableAutowiring

	// SatisfyAutowiring assigns value into the field's slot. Returns false
	// if value is not assignable (a programming error the caller should
	// treat as fatal).
	SatisfyAutowiring(value any) bool

	// GetStrategy returns the optional finalization strategy, or nil.
	GetStrategy() AutowiringStrategy
}
