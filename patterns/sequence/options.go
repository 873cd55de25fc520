package sequence

import (
	"time"

	"github.com/leofalp/sequencer/providers/observability"
)

// Option is a functional option for configuring an Executor.
type Option func(*executorConfig)

type executorConfig struct {
	maxConcurrency int
	nodeTimeout    time.Duration
	observer       observability.Provider
}

// WithMaxConcurrency limits the number of prompt nodes generating in parallel
// within the same topological level. A value of 0 (default) means unlimited
// concurrency.
//
// Example:
//
//	sequence.NewExecutor(provider,
//	    sequence.WithMaxConcurrency(3), // at most 3 model calls at once
//	)
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *executorConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithNodeTimeout bounds every single model call. A value of 0 (default)
// means the call is only bounded by the run context.
func WithNodeTimeout(timeout time.Duration) Option {
	return func(config *executorConfig) {
		config.nodeTimeout = timeout
	}
}

// WithObserver sets the observability provider used for run and node spans.
// Without it the observer found in the run context, if any, is used.
func WithObserver(observer observability.Provider) Option {
	return func(config *executorConfig) {
		config.observer = observer
	}
}
