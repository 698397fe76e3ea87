// Package mock holds the shared fixtures corectx's own test suites build
// scenarios from — types implementing ContextMember, Runnable,
// ExceptionFilter, Bolt and a couple of event capabilities, in the spirit
// of centraunit-digo/mock/container_test_shared.go's shared Database/Cache
// fixtures.
package mock

import (
	"reflect"
	"sync"

	"github.com/centraunit/corectx"
)

// Widget is a plain concrete member type with no capabilities at all,
// useful for exercising Add/Autowire/FindByType without any dispatch side
// effects.
type Widget struct {
	Name string
}

// Greeter is a small application-level interface used to exercise
// Add[Greeter](ctx, obj) registering under a declared interface type
// distinct from obj's concrete type.
type Greeter interface {
	Greet() string
}

type FakeGreeter struct {
	Message string
}

func (g *FakeGreeter) Greet() string { return g.Message }

// RecordingMember implements corectx.ContextMember and records, into a
// shared *[]string under a shared *sync.Mutex, the order in which
// NotifyContextTeardown fired across every member sharing the same log —
// used to assert SignalShutdown's reverse-insertion-order guarantee.
type RecordingMember struct {
	Tag string
	Mu  *sync.Mutex
	Log *[]string
}

func NewRecordingMember(tag string, mu *sync.Mutex, log *[]string) *RecordingMember {
	return &RecordingMember{Tag: tag, Mu: mu, Log: log}
}

func (m *RecordingMember) NotifyContextTeardown() {
	m.Mu.Lock()
	*m.Log = append(*m.Log, m.Tag)
	m.Mu.Unlock()
}

// ReentrantMember calls SignalShutdown on its own owning context from
// inside NotifyContextTeardown, exercising the reentrant-teardown guard.
type ReentrantMember struct {
	Ctx *corectx.Context
}

func (m *ReentrantMember) NotifyContextTeardown() {
	_ = m.Ctx.SignalShutdown(false, corectx.Graceful)
}

// FakeRunnable is a corectx.Runnable whose Start/Stop/Wait are all under
// test control: StartErr lets a test force Initiate to fail, and Wait
// blocks on a channel Stop closes, so a test can assert ordering between
// SignalShutdown and Wait returning.
type FakeRunnable struct {
	mu       sync.Mutex
	StartErr error
	started  bool
	graceful bool
	stopped  chan struct{}
	token    *corectx.OutstandingToken
}

func NewFakeRunnable() *FakeRunnable {
	return &FakeRunnable{stopped: make(chan struct{})}
}

func (r *FakeRunnable) Start(token *corectx.OutstandingToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StartErr != nil {
		return r.StartErr
	}
	r.started = true
	r.token = token
	return nil
}

func (r *FakeRunnable) Stop(graceful bool) error {
	r.mu.Lock()
	r.graceful = graceful
	r.mu.Unlock()
	close(r.stopped)
	return nil
}

func (r *FakeRunnable) Wait() error {
	<-r.stopped
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	if token != nil {
		token.Release()
	}
	return nil
}

func (r *FakeRunnable) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *FakeRunnable) StoppedGracefully() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graceful
}

// FakeBolt records every ContextCreated call it receives, for sigils in
// Sigils (nil/empty meaning "all", per corectx's Bolt contract).
type FakeBolt struct {
	Sigils []reflect.Type

	mu      sync.Mutex
	Created []BoltEvent
}

type BoltEvent struct {
	Sigil reflect.Type
	Child *corectx.Context
}

func (b *FakeBolt) GetContextSigils() []reflect.Type { return b.Sigils }

func (b *FakeBolt) ContextCreated(sigil reflect.Type, child *corectx.Context) {
	b.mu.Lock()
	b.Created = append(b.Created, BoltEvent{Sigil: sigil, Child: child})
	b.mu.Unlock()
}

func (b *FakeBolt) Events() []BoltEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BoltEvent(nil), b.Created...)
}

// FakeFilter swallows whatever it is offered when Swallow is true;
// otherwise it rethrows unchanged.
type FakeFilter struct {
	Swallow bool
}

func (f *FakeFilter) Filter(rethrow func() error) error {
	if f.Swallow {
		return nil
	}
	return rethrow()
}

func (f *FakeFilter) FilterFiringException(rethrow func() error, proxy any, recipient any) error {
	if f.Swallow {
		return nil
	}
	return rethrow()
}

// Pinger is a synchronous event capability for exercising Fire.
type Pinger interface {
	Ping(n int)
}

// AsyncPinger is an asynchronous event capability for exercising Defer;
// its method returns corectx.Deferred, so an op written as
// func(AsyncPinger) corectx.Deferred fits Defer and is rejected by Fire.
type AsyncPinger interface {
	PingAsync(n int) corectx.Deferred
}

// FakePingReceiver implements both Pinger and AsyncPinger, recording every
// ping it receives (through either path) under Mu, and implements
// junctionbox.go's Dispatcher by running the enqueued closure inline, so
// tests observe Defer's effect without needing real concurrency.
type FakePingReceiver struct {
	mu     sync.Mutex
	Pings  []int
	Panics bool
}

func (p *FakePingReceiver) Ping(n int) {
	if p.Panics {
		panic("ping panic")
	}
	p.mu.Lock()
	p.Pings = append(p.Pings, n)
	p.mu.Unlock()
}

func (p *FakePingReceiver) PingAsync(n int) corectx.Deferred {
	p.Ping(n)
	return corectx.Deferred{}
}

func (p *FakePingReceiver) Enqueue(fn func()) {
	fn()
}

func (p *FakePingReceiver) Received() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.Pings...)
}
