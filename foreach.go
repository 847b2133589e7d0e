package threadpool

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ForEach applies fn to each item on p and waits until every accepted item has
// been processed. It does not shut p down.
//
// Semantics:
//   - One job is submitted per item, in input order.
//   - If p rejects a submission (it is shutting down), ForEach stops submitting,
//     waits for the items already accepted and returns an error wrapping
//     ErrPoolClosed.
//   - A panicking fn is handled by the pool's panic policy; ForEach still returns
//     once the remaining items are done.
//   - If every worker stops under PanicStopWorker before all accepted items ran,
//     ForEach returns an error wrapping ErrNoWorkers instead of waiting forever.
func ForEach[T any](p *Pool, items []T, fn func(T)) error {
	if len(items) == 0 {
		return nil
	}

	// outstanding counts accepted items that have not finished, plus one held
	// by the submitting loop. Whoever brings it to zero closes done.
	var outstanding atomic.Int64
	outstanding.Store(1)
	done := make(chan struct{})
	finish := func() {
		if outstanding.Add(-1) == 0 {
			close(done)
		}
	}

	var err error
	for i := range items {
		item := items[i]
		outstanding.Add(1)
		serr := p.Submit(func() {
			defer finish()
			fn(item)
		})
		if serr != nil {
			finish()
			err = errors.Wrapf(serr, "submitted %d of %d items", i, len(items))
			break
		}
	}
	finish()

	select {
	case <-done:
	case <-p.env.gone:
		// No worker is running, so whatever is still outstanding was discarded.
		if n := outstanding.Load(); n > 0 {
			return errors.Wrapf(ErrNoWorkers, "%d of %d items were not run", n, len(items))
		}
	}
	return err
}
