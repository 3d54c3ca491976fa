package promptflow

import "log/slog"

// flowConfig holds configuration for a Flow.
type flowConfig struct {
	maxIterations int
	logger        *slog.Logger
}

// defaultFlowConfig returns the default flow configuration.
func defaultFlowConfig() flowConfig {
	return flowConfig{
		maxIterations: 1000,
	}
}

// FlowOption configures flow resolution.
type FlowOption func(*flowConfig)

// WithMaxIterations sets the maximum number of leaves a Flow yields from
// inside live Loops. Default: 1000
//
// Leaves reached without passing through a Loop are not counted, so a
// chain of plain steps always yields all of them. The limit keeps a Loop
// whose condition never turns false from running forever. Once the limit is hit, Next returns (nil, false) and Err
// returns a *MaxIterationsError.
//
// Example:
//
//	flow := chain.Flow(promptflow.WithMaxIterations(50))
func WithMaxIterations(n int) FlowOption {
	return func(c *flowConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithLogger sets the logger for resolution events (debug level).
// A nil logger disables logging, which is the default.
func WithLogger(logger *slog.Logger) FlowOption {
	return func(c *flowConfig) {
		c.logger = logger
	}
}
