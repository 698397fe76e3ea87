package corectx

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type widget struct{ name string }

type greeterIface interface {
	Greet() string
}

type greeterImpl struct{ message string }

func (g *greeterImpl) Greet() string { return g.message }

type recordingMember struct {
	tag string
	mu  *sync.Mutex
	log *[]string
}

func (m *recordingMember) NotifyContextTeardown() {
	m.mu.Lock()
	*m.log = append(*m.log, m.tag)
	m.mu.Unlock()
}

type namer interface{ Name() string }

type namerA struct{}

func (*namerA) Name() string { return "a" }

type namerB struct{}

func (*namerB) Name() string { return "b" }

type ContextTestSuite struct {
	suite.Suite
}

func (s *ContextTestSuite) TestAddAndFindByType() {
	root := newRootContext()
	w := &widget{name: "gear"}
	s.NoError(Add(root, w))

	found, ok := FindByType[*widget](root)
	s.True(ok)
	s.Equal(w, found)
}

func (s *ContextTestSuite) TestAddUnderDeclaredInterface() {
	root := newRootContext()
	g := &greeterImpl{message: "hi"}
	s.NoError(Add[greeterIface](root, g))

	byIface, ok := FindByType[greeterIface](root)
	s.True(ok)
	s.Equal("hi", byIface.Greet())

	byConcrete, ok := FindByType[*greeterImpl](root)
	s.True(ok)
	s.Equal(g, byConcrete)
}

func (s *ContextTestSuite) TestDuplicateObjectRejected() {
	root := newRootContext()
	w := &widget{name: "gear"}
	s.NoError(Add(root, w))

	err := Add(root, w)
	s.Error(err)
	s.True(errors.Is(err, ErrDuplicateObject))
	s.True(errors.Is(err, ErrDuplicateMember))
}

func (s *ContextTestSuite) TestDuplicateTypeRejected() {
	root := newRootContext()
	s.NoError(Add(root, &widget{name: "first"}))

	err := Add(root, &widget{name: "second"})
	s.Error(err)
	s.True(errors.Is(err, ErrDuplicateType))
}

func (s *ContextTestSuite) TestAutowireAscendsToAncestor() {
	root := newRootContext()
	child := Create[struct{}](root)

	s.NoError(Add(root, &widget{name: "from-root"}))

	var got *widget
	field := newCapturingField[*widget](func(v *widget) { got = v })
	s.NoError(Autowire[*widget](child, field))
	s.NotNil(got)
	s.Equal("from-root", got.name)
}

func (s *ContextTestSuite) TestAutowireDefersUntilAdd() {
	root := newRootContext()

	var got *widget
	field := newCapturingField[*widget](func(v *widget) { got = v })
	s.NoError(Autowire[*widget](root, field))
	s.Nil(got)

	s.NoError(Add(root, &widget{name: "late"}))
	s.NotNil(got)
	s.Equal("late", got.name)
}

func (s *ContextTestSuite) TestDeferredDownwardBroadcast() {
	root := newRootContext()
	child := Create[struct{}](root)

	var gotInRoot, gotInChild *widget
	rootField := newCapturingField[*widget](func(v *widget) { gotInRoot = v })
	childField := newCapturingField[*widget](func(v *widget) { gotInChild = v })
	s.NoError(Autowire[*widget](root, rootField))
	s.NoError(Autowire[*widget](child, childField))

	w := &widget{name: "shared"}
	s.NoError(Add(root, w))

	s.Equal(w, gotInRoot)
	s.Equal(w, gotInChild)

	only, ok := FindByType[*widget](child)
	s.True(ok)
	s.Equal(w, only)
}

func (s *ContextTestSuite) TestCancelAutowiringNotification() {
	root := newRootContext()
	called := false
	field := newCapturingField[*widget](func(v *widget) { called = true })
	s.NoError(Autowire[*widget](root, field))

	ok := CancelAutowiringNotification(root, field)
	s.True(ok)

	s.NoError(Add(root, &widget{name: "ignored"}))
	s.False(called)
}

func (s *ContextTestSuite) TestAutowireDetectsAmbiguousInterfaceSatisfaction() {
	root := newRootContext()
	s.NoError(Add(root, &namerA{}))
	s.NoError(Add(root, &namerB{}))

	field := newCapturingField[namer](func(namer) {})
	err := Autowire[namer](root, field)
	s.Error(err)
	var ambiguous *AmbiguousAutowireError
	s.True(errors.As(err, &ambiguous))
}

func (s *ContextTestSuite) TestFindByTypeAmbiguousInterfaceSatisfactionPanics() {
	root := newRootContext()
	s.NoError(Add(root, &namerA{}))
	s.NoError(Add(root, &namerB{}))

	s.Panics(func() { FindByType[namer](root) })
}

func (s *ContextTestSuite) TestFindByTypeResolvesSoleInterfaceImplementor() {
	root := newRootContext()
	a := &namerA{}
	s.NoError(Add(root, a))

	found, ok := FindByType[namer](root)
	s.True(ok)
	s.Equal("a", found.Name())
}

func (s *ContextTestSuite) TestInjectAddsConstructedValue() {
	root := newRootContext()
	v, err := Inject(root, func() *widget { return &widget{name: "built"} })
	s.NoError(err)
	s.Equal("built", v.name)

	found, ok := FindByType[*widget](root)
	s.True(ok)
	s.Equal(v, found)
}

func (s *ContextTestSuite) TestInjectDetectsConstructorCycle() {
	root := newRootContext()
	defer EvictCurrent()

	_, err := Inject(root, func() *widget {
		SetCurrent(root)
		return &widget{name: "cyclic"}
	})
	s.Error(err)
	var cyc *CtorAutowireCycleError
	s.True(errors.As(err, &cyc))
}

func (s *ContextTestSuite) TestInitiateIsIdempotentAndOrdersParentFirst() {
	root := newRootContext()
	child := Create[struct{}](root)

	s.NoError(child.Initiate())
	s.Equal(StateInitiated, root.State())
	s.Equal(StateInitiated, child.State())

	s.NoError(child.Initiate())
	s.Equal(StateInitiated, child.State())
}

func (s *ContextTestSuite) TestDelayUntilInitiated() {
	root := newRootContext()
	done := make(chan bool, 1)
	go func() { done <- root.DelayUntilInitiated() }()
	s.NoError(root.Initiate())
	s.True(<-done)
}

func (s *ContextTestSuite) TestSignalShutdownTeardownOrderIsReverseInsertion() {
	root := newRootContext()
	var mu sync.Mutex
	var log []string

	// A context holds at most one member per concrete type, so each
	// member gets a type of its own.
	type firstMember struct{ recordingMember }
	type secondMember struct{ recordingMember }
	type thirdMember struct{ recordingMember }

	s.NoError(Add(root, &firstMember{recordingMember{tag: "first", mu: &mu, log: &log}}))
	s.NoError(Add(root, &secondMember{recordingMember{tag: "second", mu: &mu, log: &log}}))
	s.NoError(Add(root, &thirdMember{recordingMember{tag: "third", mu: &mu, log: &log}}))

	s.NoError(root.Initiate())
	s.NoError(root.SignalShutdown(true, Graceful))

	s.Equal([]string{"third", "second", "first"}, log)
}

func (s *ContextTestSuite) TestSignalShutdownIsIdempotent() {
	root := newRootContext()
	s.NoError(root.Initiate())
	s.NoError(root.SignalShutdown(true, Graceful))
	s.NoError(root.SignalShutdown(true, Graceful))
	s.Equal(StateShutdown, root.State())
}

func (s *ContextTestSuite) TestAddAfterShutdownRejected() {
	root := newRootContext()
	s.NoError(root.Initiate())
	s.NoError(root.SignalShutdown(true, Graceful))

	err := Add(root, &widget{name: "too-late"})
	s.Error(err)
	s.True(errors.Is(err, ErrShutdownReentry))
}

func TestContextSuite(t *testing.T) {
	suite.Run(t, new(ContextTestSuite))
}

// capturingField is a minimal DeferrableAutowiring for tests that only
// need to observe when and with what value a field is satisfied.
type capturingField[T any] struct {
	onSatisfied func(T)
	flink       DeferrableAutowiring
}

func newCapturingField[T any](onSatisfied func(T)) *capturingField[T] {
	return &capturingField[T]{onSatisfied: onSatisfied}
}

func (f *capturingField[T]) GetType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (f *capturingField[T]) GetFlink() DeferrableAutowiring      { return f.flink }
func (f *capturingField[T]) SetFlink(n DeferrableAutowiring)     { f.flink = n }
func (f *capturingField[T]) ReleaseDependentChain() DeferrableAutowiring {
	return nil
}
func (f *capturingField[T]) GetStrategy() AutowiringStrategy { return nil }

func (f *capturingField[T]) SatisfyAutowiring(value any) bool {
	typed, ok := value.(T)
	if !ok {
		return false
	}
	f.onSatisfied(typed)
	return true
}
