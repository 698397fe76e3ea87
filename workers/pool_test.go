package workers_test

import (
	"sync"
	"testing"
	"time"

	"github.com/centraunit/corectx"
	"github.com/centraunit/corectx/workers"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEnqueuedJobs(t *testing.T) {
	root := corectx.Create[struct{}](corectx.GlobalContext())
	pool := workers.New(2, 4, nil)
	require.NoError(t, corectx.Add(root, pool))
	require.NoError(t, root.Initiate())

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		pool.Enqueue(func() {
			mu.Lock()
			count++
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	mu.Lock()
	require.Equal(t, 8, count)
	mu.Unlock()
}

func TestPoolGracefulStopDrainsQueueBeforeExit(t *testing.T) {
	pool := workers.New(1, 4, nil)
	root := corectx.Create[struct{}](corectx.GlobalContext())
	require.NoError(t, corectx.Add(root, pool))
	require.NoError(t, root.Initiate())

	ran := make(chan struct{})
	pool.Enqueue(func() { close(ran) })

	require.NoError(t, root.SignalShutdown(true, corectx.Graceful))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job never ran before graceful stop completed")
	}
}

func TestPoolEnqueueFallsBackToOwnGoroutineWhenQueueFull(t *testing.T) {
	pool := workers.New(1, 1, nil)
	root := corectx.Create[struct{}](corectx.GlobalContext())
	require.NoError(t, corectx.Add(root, pool))
	require.NoError(t, root.Initiate())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		pool.Enqueue(func() { wg.Done() })
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every enqueued job ran")
	}

	require.NoError(t, root.SignalShutdown(true, corectx.Graceful))
}
