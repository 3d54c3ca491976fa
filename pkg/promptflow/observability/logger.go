// Package observability provides logging, metrics, and tracing for
// promptflow: structured logging via slog, metrics via OpenTelemetry or
// Prometheus, and tracing via OpenTelemetry.
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", 2)
//	enriched.Info("executing") // includes run_id, step
func EnrichLogger(logger *slog.Logger, runID string, step int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.Int("step", step),
	)
}

// LogRunStart logs the start of a chain run.
func LogRunStart(logger *slog.Logger, runID, chain string) {
	if logger == nil {
		return
	}
	logger.Info("chain run starting",
		slog.String("run_id", runID),
		slog.String("chain", chain),
	)
}

// LogRunComplete logs successful chain run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("chain run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
	)
}

// LogRunError logs chain run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, step int) {
	if logger == nil {
		return
	}
	logger.Error("chain run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.Int("step", step),
	)
}

// LogFlowYield logs a leaf returned by flow resolution.
func LogFlowYield(logger *slog.Logger, position int, kind, name string, inLoop bool) {
	if logger == nil {
		return
	}
	logger.Debug("flow yielded leaf",
		slog.Int("position", position),
		slog.String("kind", kind),
		slog.String("name", name),
		slog.Bool("in_loop", inLoop),
	)
}

// LogFlowSkip logs a top-level node that yielded nothing.
func LogFlowSkip(logger *slog.Logger, position int, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("flow skipped node",
		slog.Int("position", position),
		slog.String("reason", reason),
	)
}

// LogFlowExhausted logs a resolution call that found no leaf.
func LogFlowExhausted(logger *slog.Logger, yielded int, done bool) {
	if logger == nil {
		return
	}
	logger.Debug("flow has no leaf",
		slog.Int("yielded", yielded),
		slog.Bool("done", done),
	)
}

// LogAttemptFailed logs a failed execution attempt.
func LogAttemptFailed(logger *slog.Logger, model string, index int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("attempt failed",
		slog.String("model", model),
		slog.Int("model_index", index),
		slog.String("error", err.Error()),
	)
}

// LogRetryScheduled logs the action chosen for a failure.
func LogRetryScheduled(logger *slog.Logger, action string, index int, delay time.Duration, remaining int) {
	if logger == nil {
		return
	}
	logger.Info("retry scheduled",
		slog.String("action", action),
		slog.Int("model_index", index),
		slog.Duration("delay", delay),
		slog.Int("remaining", remaining),
	)
}

// LogRetryAborted logs a failure classified as fatal.
func LogRetryAborted(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("retry aborted",
		slog.String("error", err.Error()),
	)
}

// LogRetryExhausted logs a spent attempt budget.
func LogRetryExhausted(logger *slog.Logger, budget int, err error) {
	if logger == nil {
		return
	}
	logger.Error("retry budget exhausted",
		slog.Int("budget", budget),
		slog.String("error", err.Error()),
	)
}

// LogJournalError logs a journal write failure (non-fatal).
func LogJournalError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal write failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
