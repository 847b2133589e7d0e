package threadpool

// Job is a single unit of work executed by the pool.
// It takes no arguments and returns nothing: whatever data it needs must be
// captured by the closure, and a caller interested in completion or results
// must capture its own signal (a channel, a WaitGroup, a slot in a slice).
//
// A Job is invoked at most once, on exactly one worker.
type Job func()

// Runner is implemented by values that can be executed as a Job.
type Runner interface {
	Run()
}

// JobFromRunner adapts a Runner to a Job. A nil Runner yields a nil Job,
// which Submit rejects.
func JobFromRunner(r Runner) Job {
	if r == nil {
		return nil
	}
	return r.Run
}

// envelope is a Job stamped with its position in the enqueue order.
type envelope struct {
	job   Job
	index uint64
}
