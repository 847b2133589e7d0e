package threadpool

import (
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/mongodb/grip/message"
	"github.com/ygrebnov/errorc"
)

// Pool executes submitted jobs on a fixed set of worker goroutines.
// Pool is safe for concurrent use. The zero value is not usable: construct
// a Pool with New or TryNew and release it with Shutdown (or Close).
type Pool struct {
	// noCopy prevents accidental copying of the pool.
	//go:nocopy
	nc noCopy

	size    int
	env     *runtimeEnv
	workers []*worker
	lc      *lifecycleCoordinator

	terminated atomic.Bool

	// cleanup closes the queue if the Pool is garbage collected without Shutdown.
	cleanup runtime.Cleanup
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
// It works with the "-copylocks" analyzer via the presence of Lock/Unlock methods.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates a Pool with size workers. It panics if size is not positive
// or an option is invalid; use TryNew to get an error instead.
func New(size int, opts ...Option) *Pool {
	p, err := TryNew(size, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// TryNew creates a Pool with size workers, all started before it returns.
// It returns an error wrapping ErrInvalidSize if size is not positive, or the
// error of the first invalid option (wrapping ErrInvalidConfig).
func TryNew(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, errorc.With(ErrInvalidSize, errorc.String("size", strconv.Itoa(size)))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	p := &Pool{size: size}
	p.initialize(&cfg)
	return p, nil
}

// initialize creates the queue and the workers, wires the shutdown sequence
// and starts every worker.
func (p *Pool) initialize(cfg *config) {
	env := &runtimeEnv{
		name:    cfg.Name,
		log:     cfg.Logger,
		policy:  cfg.PanicPolicy,
		onPanic: cfg.PanicHandler,
		instr:   newInstruments(cfg.Metrics, cfg.Name),
		queue:   newDispatchQueue(),
		gone:    make(chan struct{}),
	}

	workers := make([]*worker, p.size)
	joins := make([]func() error, p.size)
	for i := range workers {
		w := newWorker(i, env)
		workers[i] = w
		joins[i] = w.join
	}

	p.env = env
	p.workers = workers
	p.lc = newLifecycleCoordinator(cfg.Name, cfg.Logger, env.queue.close, joins, p.droppedJobs, p.markTerminated)

	for _, w := range workers {
		w.start()
	}

	// Workers only reference env, so an abandoned Pool becomes unreachable.
	// Closing the queue lets the workers drain and exit; joining is not
	// possible from a cleanup.
	p.cleanup = runtime.AddCleanup(p, func(q *dispatchQueue) { q.close() }, env.queue)

	env.log.Info(message.Fields{
		"message": "pool started",
		"pool":    env.name,
		"workers": p.size,
		"policy":  env.policy.String(),
	})
}

func (p *Pool) markTerminated() {
	p.cleanup.Stop()
	p.terminated.Store(true)
	p.env.log.Info(message.Fields{
		"message":  "pool terminated",
		"pool":     p.env.name,
		"workers":  p.size,
		"accepted": p.env.queue.accepted(),
	})
}

// droppedJobs reports the jobs discarded because every worker had stopped.
func (p *Pool) droppedJobs() error {
	n := p.env.dropped.Load()
	if n == 0 {
		return nil
	}
	return errorc.With(ErrNoWorkers, errorc.String("dropped_jobs", strconv.FormatInt(n, 10)))
}

// Submit enqueues job for execution and returns without waiting for it.
//
// Semantics:
//   - Safe for concurrent use by multiple goroutines.
//   - Never blocks on pool capacity: the queue is unbounded.
//   - Returns ErrNilJob for a nil job.
//   - Returns ErrPoolClosed once shutdown has begun, or once every worker was
//     stopped by PanicStopWorker; the job is not executed.
//   - An accepted job runs exactly once, before Shutdown returns, unless every
//     worker stops first. Close reports such jobs with ErrNoWorkers.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	// queued is raised before enqueue and lowered by the worker, never the other way round.
	p.env.instr.queued.Add(1)
	if _, err := p.env.queue.enqueue(job); err != nil {
		p.env.instr.queued.Add(-1)
		p.env.instr.rejected.Add(1)
		return err
	}
	p.env.instr.submitted.Add(1)
	return nil
}

// Shutdown stops accepting jobs, waits for every queued job to run and for
// every worker to exit.
//
// Semantics:
//   - Idempotent and safe for concurrent use; every caller returns once the
//     pool is terminated.
//   - Drains, never aborts: jobs accepted before Shutdown still run.
//   - Never fails. Abnormal worker exits are logged and reported by Close.
func (p *Pool) Shutdown() {
	_ = p.Close()
}

// Close is the io.Closer form of Shutdown. The returned error aggregates
// workers that stopped because of a job panic under PanicStopWorker and, if
// all of them stopped, ErrNoWorkers for the jobs left unrun. The pool is
// terminated regardless.
func (p *Pool) Close() error {
	return p.lc.Close()
}

// State reports the current lifecycle state.
func (p *Pool) State() State {
	switch {
	case p.terminated.Load():
		return StateTerminated
	case p.env.queue.isClosed():
		return StateShuttingDown
	default:
		return StateRunning
	}
}

// Size returns the number of workers the pool was created with.
func (p *Pool) Size() int { return p.size }

// Name returns the pool name used in logs and metrics.
func (p *Pool) Name() string { return p.env.name }

// Workers returns the number of worker goroutines still running.
// It is lower than Size only after workers were stopped by PanicStopWorker
// or while the pool shuts down.
func (p *Pool) Workers() int {
	alive := 0
	for _, w := range p.workers {
		select {
		case <-w.done:
		default:
			alive++
		}
	}
	return alive
}

// Pending returns the number of accepted jobs not yet picked up by a worker.
func (p *Pool) Pending() int { return p.env.queue.pending() }
