package threadpool

import "sync"

// dispatchQueue is an unbounded FIFO carrying jobs from submitters to workers.
//
// The sending side (enqueue, close) is safe for any number of concurrent
// producers. The receiving side is shared by all workers; recvMu guarantees
// that only one worker at a time is inside receive. recvMu is released as soon
// as receive returns, so it is never held while a job executes.
//
// Closing prevents further enqueues but never discards jobs already queued:
// receive keeps delivering them and reports closed only once the queue is empty.
type dispatchQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []envelope
	next   uint64
	closed bool

	recvMu sync.Mutex
}

func newDispatchQueue() *dispatchQueue {
	q := &dispatchQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueue appends job and returns its position in the enqueue order.
func (q *dispatchQueue) enqueue(job Job) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrPoolClosed
	}

	idx := q.next
	q.next++
	q.items = append(q.items, envelope{job: job, index: idx})
	// At most one worker waits on cond at a time (recvMu), so Signal is enough.
	q.cond.Signal()
	return idx, nil
}

// receive blocks until a job is available or the queue is closed and empty.
// ok is false only in the latter case.
func (q *dispatchQueue) receive() (e envelope, ok bool) {
	q.recvMu.Lock()
	defer q.recvMu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return envelope{}, false
	}

	e = q.items[0]
	q.items[0] = envelope{} // drop the reference so the closure can be collected
	q.items = q.items[1:]
	return e, true
}

// close transitions the queue to Closed. It reports whether this call
// performed the transition; subsequent calls are no-ops.
func (q *dispatchQueue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true
	q.cond.Broadcast()
	return true
}

// abandon closes the queue and discards every job still queued. It returns
// the number of discarded jobs.
func (q *dispatchQueue) abandon() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
	n := len(q.items)
	clear(q.items)
	q.items = nil
	return n
}

func (q *dispatchQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// pending returns the number of queued, not yet delivered jobs.
func (q *dispatchQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// accepted returns the number of jobs ever enqueued.
func (q *dispatchQueue) accepted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next
}
