package threadpool

import (
	stderrors "errors"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// lifecycleCoordinator encapsulates the shutdown (drain) sequence of a Pool.
// It doesn't own the queue or the workers; it closes, joins and reports in a
// deterministic order.
//
// Close() is safe for concurrent calls; the sequence executes exactly once and
// every caller returns only after it has completed.
type lifecycleCoordinator struct {
	name       string
	log        grip.Journaler
	closeQueue func() bool
	// joins[i] waits for worker i to exit.
	joins []func() error
	// leftover reports work the joined workers left behind.
	leftover     func() error
	onTerminated func()

	once sync.Once
	err  error
}

func newLifecycleCoordinator(
	name string,
	log grip.Journaler,
	closeQueue func() bool,
	joins []func() error,
	leftover func() error,
	onTerminated func(),
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		name:         name,
		log:          log,
		closeQueue:   closeQueue,
		joins:        joins,
		leftover:     leftover,
		onTerminated: onTerminated,
	}
}

// Close executes the shutdown sequence exactly once:
//  1. close the dispatch queue (the only stop signal workers observe)
//  2. join every worker in index order; the others keep draining meanwhile
//  3. collect abnormal worker exits without abandoning the remaining joins
//  4. collect the leftover report
//  5. mark the pool terminated
//
// The returned error aggregates abnormal worker exits and leftover work; it is
// the same for all callers.
func (lc *lifecycleCoordinator) Close() error {
	lc.once.Do(func() {
		if lc.closeQueue != nil && !lc.closeQueue() {
			// Already closed by the release cleanup or the last exiting worker.
			lc.log.Debug(message.Fields{
				"message": "dispatch queue was already closed",
				"pool":    lc.name,
			})
		}

		catcher := grip.NewBasicCatcher()
		for id, join := range lc.joins {
			lc.log.Info(message.Fields{
				"message": "shutting down worker",
				"pool":    lc.name,
				"worker":  id,
			})
			if join == nil {
				continue
			}
			catcher.Add(errors.Wrapf(join(), "worker %d", id))
		}
		if lc.leftover != nil {
			catcher.Add(lc.leftover())
		}
		// Join keeps the causes reachable through errors.Is and errors.As.
		if catcher.HasErrors() {
			lc.err = stderrors.Join(catcher.Errors()...)
		}

		if lc.onTerminated != nil {
			lc.onTerminated()
		}
	})
	return lc.err
}
