package threadpool

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ygrebnov/errorc"
)

// PanicPolicy decides what a worker does after a job it executed panicked.
type PanicPolicy int

const (
	// PanicRecover reports the panic and keeps the worker running.
	// The pool never loses capacity.
	PanicRecover PanicPolicy = iota

	// PanicStopWorker reports the panic and stops the worker permanently.
	// The pool keeps running with one worker fewer; Close reports the loss.
	PanicStopWorker
)

func (p PanicPolicy) valid() bool { return p == PanicRecover || p == PanicStopWorker }

func (p PanicPolicy) String() string {
	switch p {
	case PanicRecover:
		return "recover"
	case PanicStopWorker:
		return "stop-worker"
	default:
		return "PanicPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePanicPolicy is the inverse of PanicPolicy.String for the known policies.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch s {
	case PanicRecover.String():
		return PanicRecover, nil
	case PanicStopWorker.String():
		return PanicStopWorker, nil
	default:
		return 0, errorc.With(ErrInvalidConfig, errorc.String("panic_policy", s))
	}
}

// JobPanicError describes a recovered job panic.
// It wraps ErrJobPanicked and the recovery error carrying the panic message.
type JobPanicError struct {
	err      error
	workerID int
	index    uint64
	value    any
}

func newJobPanicError(err error, workerID int, index uint64, value any) *JobPanicError {
	return &JobPanicError{err: err, workerID: workerID, index: index, value: value}
}

func (e *JobPanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrJobPanicked.Error(), e.value)
}

// Unwrap exposes both ErrJobPanicked and the underlying recovery error.
func (e *JobPanicError) Unwrap() []error {
	if e.err == nil {
		return []error{ErrJobPanicked}
	}
	return []error{ErrJobPanicked, e.err}
}

// WorkerID returns the index of the worker that executed the job.
func (e *JobPanicError) WorkerID() int { return e.workerID }

// JobIndex returns the job's position in the enqueue order (0-based).
func (e *JobPanicError) JobIndex() uint64 { return e.index }

// Value returns the value the job panicked with.
func (e *JobPanicError) Value() any { return e.value }

func (e *JobPanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "job(index=%d,worker=%d): %+v", e.index, e.workerID, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractWorkerID returns the worker index from err if it carries a JobPanicError.
func ExtractWorkerID(err error) (int, bool) {
	var jpe *JobPanicError
	if errors.As(err, &jpe) {
		return jpe.WorkerID(), true
	}
	return 0, false
}

// ExtractJobIndex returns the job's enqueue position from err if it carries a JobPanicError.
func ExtractJobIndex(err error) (uint64, bool) {
	var jpe *JobPanicError
	if errors.As(err, &jpe) {
		return jpe.JobIndex(), true
	}
	return 0, false
}
