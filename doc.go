// Package threadpool runs submitted jobs on a fixed number of worker goroutines.
//
// Constructors
//   - New(size, opts...): panics if size is not positive or an option is invalid.
//   - TryNew(size, opts...): same, returning an error wrapping ErrInvalidSize or
//     ErrInvalidConfig instead.
//
// All workers are started before the constructor returns.
//
// Defaults
// Unless overridden, the following defaults apply to a newly created pool:
//   - Name: "threadpool"
//   - Logger: the global grip sender at construction time
//   - Metrics: no-op
//   - PanicPolicy: PanicRecover
//
// Dispatch
// Submit never blocks: accepted jobs wait in an unbounded FIFO queue and are
// picked up by idle workers in submission order. With a single worker they also
// complete in submission order. A worker holds the queue's receiver lock only
// while dequeuing, never while a job runs.
//
// Shutdown
// Shutdown (or Close) closes the queue, lets the workers drain every job that
// was already accepted and joins them in index order. It is idempotent and safe
// to call from several goroutines; each caller returns once the pool is
// terminated. Jobs submitted after shutdown began are rejected with
// ErrPoolClosed and never run.
//
// A pool that becomes unreachable without Shutdown has its queue closed by a
// runtime cleanup; its workers drain the queue and exit, but nobody waits for
// them.
//
// Panics
// A panicking job never crashes the process. The panic is logged and reported
// to the handler set with WithPanicHandler as a *JobPanicError. Under
// PanicRecover the worker continues; under PanicStopWorker it exits and Close
// reports it.
//
// When the last worker stops under PanicStopWorker the pool stops accepting
// jobs: Submit returns ErrPoolClosed, jobs still queued are discarded and Close
// reports them with ErrNoWorkers.
//
// Helpers
//   - ForEach: run fn on each item and wait for all of them.
//   - Map: same, collecting results in input order.
package threadpool
