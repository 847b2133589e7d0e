package threadpool

import (
	"sync/atomic"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
)

// runtimeEnv is the state shared by all workers of one pool.
// It must not reference the Pool: the release cleanup depends on it.
type runtimeEnv struct {
	name    string
	log     grip.Journaler
	policy  PanicPolicy
	onPanic func(*JobPanicError)
	instr   *instruments
	queue   *dispatchQueue

	// live counts running worker goroutines. gone is closed when the last
	// one exits; after that no queued job can run.
	live    atomic.Int32
	gone    chan struct{}
	dropped atomic.Int64
}

// workerExited is called as each worker goroutine returns. The last worker
// abandons the queue so that later submissions are rejected, and records the
// jobs it discarded for Close.
func (env *runtimeEnv) workerExited(id int) {
	env.instr.alive.Add(-1)
	if env.live.Add(-1) > 0 {
		return
	}

	if n := env.queue.abandon(); n > 0 {
		env.dropped.Add(int64(n))
		env.instr.queued.Add(int64(-n))
		env.log.Error(message.Fields{
			"message": "last worker exited; discarding queued jobs",
			"pool":    env.name,
			"worker":  id,
			"dropped": n,
		})
	}
	close(env.gone)
}

type worker struct {
	id  int
	env *runtimeEnv

	// done is closed when the worker goroutine returns.
	done chan struct{}

	// handle is the join handle; join consumes it so a worker is joined once.
	handle <-chan struct{}

	// err is set before done is closed when the worker stopped because of a
	// job panic under PanicStopWorker. Read it only after done is closed.
	err error
}

func newWorker(id int, env *runtimeEnv) *worker {
	done := make(chan struct{})
	return &worker{id: id, env: env, done: done, handle: done}
}

func (w *worker) start() {
	w.env.instr.alive.Add(1)
	w.env.live.Add(1)
	go w.run()
}

// join waits for the worker goroutine to exit and returns the reason it
// stopped abnormally, if any. Only the first call waits; later calls find no
// handle and return nil. Callers must serialize join.
func (w *worker) join() error {
	h := w.handle
	w.handle = nil
	if h == nil {
		return nil
	}
	<-h
	return w.err
}

// run is the worker loop: receive under the shared receiver lock, then
// execute with the lock released, until the queue is closed and empty.
func (w *worker) run() {
	defer close(w.done)
	defer w.env.workerExited(w.id)

	for {
		e, ok := w.env.queue.receive()
		if !ok {
			w.env.log.Debug(message.Fields{
				"message": "worker disconnected; shutting down",
				"pool":    w.env.name,
				"worker":  w.id,
			})
			return
		}

		w.env.log.Debug(message.Fields{
			"message": "worker got a job; executing",
			"pool":    w.env.name,
			"worker":  w.id,
			"job":     e.index,
		})

		if err := w.execute(e); err != nil && w.env.policy == PanicStopWorker {
			w.err = err
			w.env.log.Warning(message.Fields{
				"message": "worker stopped after job panic",
				"pool":    w.env.name,
				"worker":  w.id,
				"job":     e.index,
			})
			return
		}
	}
}

// execute runs a single job and converts a panic into a *JobPanicError.
func (w *worker) execute(e envelope) (err error) {
	w.env.instr.queued.Add(-1)
	w.env.instr.busy.Add(1)
	start := time.Now()

	defer func() {
		p := recover()

		w.env.instr.duration.Record(time.Since(start).Seconds())
		w.env.instr.busy.Add(-1)
		w.env.instr.completed.Add(1)

		if p == nil {
			return
		}

		w.env.instr.panicked.Add(1)
		perr := recovery.SendMessageWithPanicError(p, nil, w.env.log, message.Fields{
			"message": "job panicked",
			"pool":    w.env.name,
			"worker":  w.id,
			"job":     e.index,
			"policy":  w.env.policy.String(),
		})
		jpe := newJobPanicError(perr, w.id, e.index, p)
		if w.env.onPanic != nil {
			w.env.onPanic(jpe)
		}
		err = jpe
	}()

	e.job()
	return nil
}
