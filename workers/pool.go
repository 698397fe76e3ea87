// Package workers provides a small goroutine pool implementing
// corectx.Runnable and junctionbox.go's Dispatcher, giving corectx's
// lifecycle and Defer machinery a concrete consumer. Grounded on
// jfk9w-hikkabot/preloader.go's goroutine/sync.WaitGroup fan-out, reshaped
// into a long-lived pool draining a job channel rather than one
// WaitGroup per call. No library in the retrieved pack offers a
// general-purpose worker pool, so this stays on the standard library's
// context/sync primitives — the same pairing the teacher itself reaches
// for.
package workers

import (
	"context"
	"sync"

	"github.com/centraunit/corectx"
	"go.uber.org/zap"
)

// Pool runs size goroutines pulling closures off an internal queue until
// Stop is called. Add it to a Context with corectx.Add to have corectx
// start and stop it as part of Initiate/SignalShutdown.
type Pool struct {
	size  int
	queue int
	log   *zap.Logger

	jobs   chan func()
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	token    *corectx.OutstandingToken
	stopOnce sync.Once
}

// New constructs a Pool with size workers and a job queue depth of queue.
// A nil logger defaults to a no-op one.
func New(size, queue int, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	if size < 1 {
		size = 1
	}
	if queue < 1 {
		queue = 1
	}
	return &Pool{size: size, queue: queue, log: log}
}

// Start implements corectx.Runnable: it spins up the pool's goroutines and
// returns immediately, holding token until Wait observes every goroutine
// has exited.
func (p *Pool) Start(token *corectx.OutstandingToken) error {
	p.mu.Lock()
	p.token = token
	p.jobs = make(chan func(), p.queue)
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.loop(runCtx)
	}
	return nil
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(job)
		}
	}
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("job panicked", zap.Any("recovered", r))
		}
	}()
	job()
}

// Enqueue implements junctionbox.go's Dispatcher, letting a Pool receive
// events via Defer. If the queue is full the job still runs, just on its
// own goroutine rather than a pool worker — Defer promises delivery, not
// bounded concurrency.
func (p *Pool) Enqueue(fn func()) {
	p.mu.Lock()
	jobs := p.jobs
	p.mu.Unlock()
	if jobs == nil {
		go p.run(fn)
		return
	}
	select {
	case jobs <- fn:
	default:
		go p.run(fn)
	}
}

// Stop implements corectx.Runnable. graceful=true lets queued jobs drain
// before the workers exit; graceful=false cancels immediately and
// abandons anything still queued.
func (p *Pool) Stop(graceful bool) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		jobs := p.jobs
		cancel := p.cancel
		p.mu.Unlock()
		if graceful && jobs != nil {
			close(jobs)
		} else if cancel != nil {
			cancel()
		}
	})
	return nil
}

// Wait implements corectx.Runnable: it blocks until every worker goroutine
// has exited, then releases the outstanding token acquired in Start.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token != nil {
		token.Release()
	}
	return nil
}
