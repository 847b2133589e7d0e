package threadpool

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_ExactlyOnceExecution(t *testing.T) {
	p := newTestPool(t, 4)

	var c collector
	for i := range 10 {
		require.NoError(t, p.Submit(func() { c.add(i) }))
	}
	p.Shutdown()

	got := c.snapshot()
	sort.Ints(got)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestPool_ExactlyOnce_ManyJobsAndSizes(t *testing.T) {
	for _, size := range []int{1, 2, 7, 32} {
		p := newTestPool(t, size)

		const n = 2000
		counts := make([]atomic.Int32, n)
		for i := range n {
			require.NoError(t, p.Submit(func() { counts[i].Add(1) }))
		}
		p.Shutdown()

		for i := range counts {
			require.EqualValues(t, 1, counts[i].Load(), "size=%d job=%d", size, i)
		}
	}
}

func TestPool_ConstructionValidation(t *testing.T) {
	for _, size := range []int{0, -1, -100} {
		p, err := TryNew(size)
		require.ErrorIs(t, err, ErrInvalidSize)
		require.Nil(t, p)

		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "New(%d) must panic", size)
				perr, ok := r.(error)
				require.True(t, ok)
				require.ErrorIs(t, perr, ErrInvalidSize)
			}()
			New(size)
		}()
	}
}

func TestPool_New_Valid(t *testing.T) {
	_, logger := newTestLogger(t)
	p := New(3, WithLogger(logger), WithName("valid"))
	defer p.Shutdown()

	require.Equal(t, 3, p.Size())
	require.Equal(t, "valid", p.Name())
	require.Equal(t, StateRunning, p.State())
	require.Equal(t, 3, p.Workers())
}

func TestPool_SubmitAfterShutdown_Rejected(t *testing.T) {
	p := newTestPool(t, 2)

	var c collector
	require.NoError(t, p.Submit(func() { c.add(1) }))
	p.Shutdown()
	require.Equal(t, StateTerminated, p.State())

	err := p.Submit(func() { c.add(2) })
	require.ErrorIs(t, err, ErrPoolClosed)
	require.Equal(t, []int{1}, c.snapshot())
}

func TestPool_SubmitNil(t *testing.T) {
	p := newTestPool(t, 1)
	require.ErrorIs(t, p.Submit(nil), ErrNilJob)
	require.ErrorIs(t, p.Submit(JobFromRunner(nil)), ErrNilJob)
}

type countingRunner struct{ n *atomic.Int32 }

func (r countingRunner) Run() { r.n.Add(1) }

func TestPool_SubmitRunner(t *testing.T) {
	p := newTestPool(t, 2)
	var n atomic.Int32
	for range 5 {
		require.NoError(t, p.Submit(JobFromRunner(countingRunner{&n})))
	}
	p.Shutdown()
	require.EqualValues(t, 5, n.Load())
}

func TestPool_DrainBeforeTerminate(t *testing.T) {
	p := newTestPool(t, 1)

	var finished atomic.Bool
	require.NoError(t, p.Submit(func() {
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	}))

	start := time.Now()
	p.Shutdown()
	require.True(t, finished.Load(), "Shutdown returned before the queued job completed")
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestPool_DrainsBacklog(t *testing.T) {
	p := newTestPool(t, 2)

	var n atomic.Int32
	for range 50 {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			n.Add(1)
		}))
	}
	p.Shutdown()
	require.EqualValues(t, 50, n.Load())
	require.Zero(t, p.Pending())
	require.Zero(t, p.Workers())
}

func TestPool_ConcurrentExecution(t *testing.T) {
	const size = 4
	p := newTestPool(t, size)

	var arrived, finished sync.WaitGroup
	arrived.Add(size)
	finished.Add(size)
	release := make(chan struct{})

	for range size {
		require.NoError(t, p.Submit(func() {
			defer finished.Done()
			arrived.Done()
			<-release
		}))
	}

	// The barrier only opens when all jobs run at the same time.
	waitTimeout(t, &arrived, 2*time.Second)
	close(release)
	waitTimeout(t, &finished, 2*time.Second)
}

func TestPool_LockNotHeldDuringExecution(t *testing.T) {
	p := newTestPool(t, 2)

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, p.Submit(func() { <-block }))

	// The first worker is stuck executing; the second must still receive.
	ran := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(ran) }))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("second job not received while first job was executing")
	}
}

func TestPool_FIFOWithSingleWorker(t *testing.T) {
	p := newTestPool(t, 1)

	var c collector
	want := make([]int, 100)
	for i := range want {
		want[i] = i
		require.NoError(t, p.Submit(func() { c.add(i) }))
	}
	p.Shutdown()
	require.Equal(t, want, c.snapshot())
}

func TestPool_IdempotentShutdown(t *testing.T) {
	p := newTestPool(t, 3)

	require.NotPanics(t, p.Shutdown)
	require.NotPanics(t, p.Shutdown)
	require.NoError(t, p.Close())
	require.Equal(t, StateTerminated, p.State())

	p2 := newTestPool(t, 3)
	var n atomic.Int32
	for range 20 {
		require.NoError(t, p2.Submit(func() {
			time.Sleep(time.Millisecond)
			n.Add(1)
		}))
	}

	var wg sync.WaitGroup
	wg.Add(10)
	for range 10 {
		go func() {
			defer wg.Done()
			p2.Shutdown()
			// Every caller returns only after termination.
			if p2.State() != StateTerminated {
				t.Errorf("Shutdown returned in state %s", p2.State())
			}
		}()
	}
	waitTimeout(t, &wg, 5*time.Second)
	require.EqualValues(t, 20, n.Load())
}

func TestPool_ShutdownFromManyGoroutinesWhileSubmitting(t *testing.T) {
	p := newTestPool(t, 4)

	var accepted, executed atomic.Int64
	var producers sync.WaitGroup
	stop := make(chan struct{})

	for range 8 {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				err := p.Submit(func() { executed.Add(1) })
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrPoolClosed):
					return
				default:
					t.Errorf("unexpected submit error: %v", err)
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	p.Shutdown()
	close(stop)
	producers.Wait()

	// Every accepted job ran; nothing rejected ran.
	require.Equal(t, accepted.Load(), executed.Load())
	require.Positive(t, accepted.Load())
}

func TestPool_StateTransitions(t *testing.T) {
	p := newTestPool(t, 1)
	require.Equal(t, StateRunning, p.State())

	block := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-block }))

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	require.Eventually(t, func() bool { return p.State() == StateShuttingDown }, time.Second, time.Millisecond)
	require.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)

	close(block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown did not finish")
	}
	require.Equal(t, StateTerminated, p.State())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "shutting-down", StateShuttingDown.String())
	require.Equal(t, "terminated", StateTerminated.String())
	require.Equal(t, "unknown", State(42).String())
}
