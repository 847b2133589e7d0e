package threadpool

import (
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/threadpool/metrics"
)

// config holds Pool configuration.
type config struct {
	// Name identifies the pool in log messages and metric attributes.
	// Default: "threadpool".
	Name string

	// Logger receives pool and worker lifecycle messages.
	// Default: a journaler writing to the global grip sender at construction time.
	Logger grip.Journaler

	// Metrics constructs the instruments the pool records into.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider

	// PanicPolicy decides what a worker does after a job panics.
	// Default: PanicRecover.
	PanicPolicy PanicPolicy

	// PanicHandler, when set, is called on the worker goroutine for every
	// recovered job panic, before the panic policy is applied.
	// Default: nil.
	PanicHandler func(*JobPanicError)
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Name:        Namespace,
		Logger:      logging.MakeGrip(grip.GetSender()),
		Metrics:     metrics.NewNoopProvider(),
		PanicPolicy: PanicRecover,
	}
}

// validateConfig checks the invariants options cannot enforce on their own.
func validateConfig(cfg *config) error {
	switch {
	case cfg.Name == "":
		return errorc.With(ErrInvalidConfig, errorc.String("", "pool name must not be empty"))
	case cfg.Logger == nil:
		return errorc.With(ErrInvalidConfig, errorc.String("", "logger must not be nil"))
	case cfg.Metrics == nil:
		return errorc.With(ErrInvalidConfig, errorc.String("", "metrics provider must not be nil"))
	case !cfg.PanicPolicy.valid():
		return errorc.With(ErrInvalidConfig, errorc.String("", "unknown panic policy "+cfg.PanicPolicy.String()))
	}
	return nil
}
