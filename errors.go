package threadpool

import "errors"

const Namespace = "threadpool"

var (
	ErrInvalidSize   = errors.New(Namespace + ": pool size must be greater than zero")
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrPoolClosed    = errors.New(Namespace + ": pool is closed")
	ErrNilJob        = errors.New(Namespace + ": cannot submit a nil job")
	ErrJobPanicked   = errors.New(Namespace + ": job execution panicked")
	ErrNoWorkers     = errors.New(Namespace + ": no workers left to run queued jobs")
)
