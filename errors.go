package corectx

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors usable with errors.Is against the concrete kinds below.
var (
	// ErrDuplicateMember is the coarse kind spec.md §7 calls DuplicateMember.
	// Both ErrDuplicateObject and ErrDuplicateType wrap it.
	ErrDuplicateMember = errors.New("duplicate member")

	// ErrDuplicateObject is raised when the exact same pointer is added to
	// a context a second time. Finer-grained than spec.md §7's
	// DuplicateMember; see original_source/CoreContext.cpp.
	ErrDuplicateObject = errors.New("duplicate object")

	// ErrDuplicateType is raised when a second, distinct value of an
	// already-registered type is added.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrShutdownReentry marks an operation attempted on a node mid- or
	// post-teardown that spec.md §7 leaves as "must not corrupt state";
	// corectx surfaces it as an explicit error rather than silently
	// discarding the call.
	ErrShutdownReentry = errors.New("operation on shut-down context")
)

// DuplicateMemberError reports an Add that collided with an existing
// member. Kind distinguishes the original_source-derived object/type cases;
// both satisfy errors.Is(err, ErrDuplicateMember).
type DuplicateMemberError struct {
	Type reflect.Type
	Kind error // ErrDuplicateObject or ErrDuplicateType
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("%v: type %s", e.Kind, e.Type)
}

func (e *DuplicateMemberError) Unwrap() []error {
	return []error{e.Kind, ErrDuplicateMember}
}

// AmbiguousAutowireError reports two members of the same node
// independently satisfying the same sought interface type, raised by
// Autowire/FindByType's fallback scan over concrete members when no exact
// registry entry for Type exists.
type AmbiguousAutowireError struct {
	Type reflect.Type
}

func (e *AmbiguousAutowireError) Error() string {
	return fmt.Sprintf("ambiguous autowire for type %s", e.Type)
}

// CtorAutowireCycleError reports a member's constructor attempting to make
// its own enclosing context current (spec.md §7).
type CtorAutowireCycleError struct {
	Type reflect.Type
}

func (e *CtorAutowireCycleError) Error() string {
	return fmt.Sprintf("constructor autowiring cycle for type %s", e.Type)
}

// ListenerException wraps an exception thrown by a receiver during Fire
// that no filter in the owning context's chain swallowed.
type ListenerException struct {
	EventType reflect.Type
	Recipient any
	Err       error
}

func (e *ListenerException) Error() string {
	return fmt.Sprintf("listener exception firing %s to %T: %v", e.EventType, e.Recipient, e.Err)
}

func (e *ListenerException) Unwrap() error {
	return e.Err
}

// UserException wraps an exception thrown inside a context operation
// outside of event firing that no filter in the FilterException chain
// swallowed.
type UserException struct {
	Err error
}

func (e *UserException) Error() string {
	return fmt.Sprintf("user exception: %v", e.Err)
}

func (e *UserException) Unwrap() error {
	return e.Err
}

// ShutdownReentryError reports a mutating operation (Add, Inject) issued
// against an already shut-down context.
type ShutdownReentryError struct {
	Op string
}

func (e *ShutdownReentryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrShutdownReentry)
}

func (e *ShutdownReentryError) Unwrap() error {
	return ErrShutdownReentry
}
