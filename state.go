package threadpool

// State is the lifecycle state of a Pool.
type State int

const (
	// StateRunning accepts jobs.
	StateRunning State = iota
	// StateShuttingDown rejects jobs; workers drain the queue and exit.
	// A pool whose last worker stopped under PanicStopWorker is also here
	// until Close.
	StateShuttingDown
	// StateTerminated is final: every worker has exited and been joined.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
