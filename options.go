package threadpool

import (
	"github.com/mongodb/grip"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/threadpool/metrics"
)

// Option configures a Pool. Options return an error on invalid input;
// TryNew surfaces it, New panics with it.
type Option func(*config) error

// WithName sets the pool name used in log messages and metric attributes.
func WithName(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithName requires a non-empty name"))
		}
		cfg.Name = name
		return nil
	}
}

// WithLogger sets the journaler receiving pool and worker messages.
func WithLogger(logger grip.Journaler) Option {
	return func(cfg *config) error {
		if logger == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = logger
		return nil
	}
}

// WithMetrics sets the metrics provider used to construct the pool instruments.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithPanicPolicy selects what a worker does after a job panics (default PanicRecover).
func WithPanicPolicy(policy PanicPolicy) Option {
	return func(cfg *config) error {
		if !policy.valid() {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithPanicPolicy: unknown policy "+policy.String()))
		}
		cfg.PanicPolicy = policy
		return nil
	}
}

// WithPanicHandler registers fn to observe recovered job panics.
// fn runs on the worker goroutine that executed the job and must not block for long.
func WithPanicHandler(fn func(*JobPanicError)) Option {
	return func(cfg *config) error {
		if fn == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithPanicHandler requires a non-nil handler"))
		}
		cfg.PanicHandler = fn
		return nil
	}
}
