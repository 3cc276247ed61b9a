package cluster

import "go.uber.org/zap"

// BuilderOption is a function that configures a Builder during construction.
type BuilderOption func(*builderImpl)

// WithWorkers sets the maximum number of pooled workers. Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - BuilderOption: a function that sets the worker count
func WithWorkers(n int) BuilderOption {
	return func(b *builderImpl) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger used for overflow diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - BuilderOption: a function that sets the logger
func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *builderImpl) {
		if log != nil {
			b.log = log
		}
	}
}
