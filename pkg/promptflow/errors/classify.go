package errors

import (
	"errors"
	"time"
)

// ActionKind is the recovery strategy chosen for a failure.
type ActionKind int

const (
	// ActionAbort stops recovery and surfaces the failure.
	ActionAbort ActionKind = iota

	// ActionRetrySameModel re-executes with the current model.
	ActionRetrySameModel

	// ActionRetryNextModel re-executes with the next model in the roster.
	ActionRetryNextModel

	// ActionRetryAfterDelay waits, then re-executes with the current model.
	ActionRetryAfterDelay
)

// String returns the action name used in logs and metrics.
func (k ActionKind) String() string {
	switch k {
	case ActionAbort:
		return "abort"
	case ActionRetrySameModel:
		return "retry_same_model"
	case ActionRetryNextModel:
		return "retry_next_model"
	case ActionRetryAfterDelay:
		return "retry_after_delay"
	default:
		return "unknown"
	}
}

// Action is the outcome of classifying a failure.
type Action struct {
	Kind ActionKind

	// Delay is set for ActionRetryAfterDelay.
	Delay time.Duration

	// ResetIndex is set when the retry must start over at model index 0.
	ResetIndex bool
}

// String returns the action kind name.
func (a Action) String() string {
	return a.Kind.String()
}

// Retryable reports whether the action issues another attempt.
func (a Action) Retryable() bool {
	return a.Kind != ActionAbort
}

// NextIndex returns the model index the retry should use.
func (a Action) NextIndex(current, rosterSize int) int {
	switch {
	case a.ResetIndex:
		return 0
	case a.Kind == ActionRetryNextModel && rosterSize > 0:
		return (current + 1) % rosterSize
	default:
		return current
	}
}

// Policy holds the tunable parts of classification.
type Policy struct {
	// RateLimitDelay is waited after a 429 when there is no other model to try.
	RateLimitDelay time.Duration

	// ServerErrorDelay is waited after a 5xx.
	ServerErrorDelay time.Duration

	// HonorRetryAfter uses the server's Retry-After value, when present,
	// instead of the fixed delays.
	HonorRetryAfter bool
}

// DefaultPolicy is the standard recovery policy.
var DefaultPolicy = Policy{
	RateLimitDelay:   30 * time.Second,
	ServerErrorDelay: 40 * time.Second,
}

// Classify determines how a failure should be recovered.
//
// rosterSize is the number of models available to the failing binding.
// Unknown errors abort.
func Classify(err error, rosterSize int, policy Policy) Action {
	if err == nil {
		return Action{Kind: ActionAbort}
	}

	if errors.Is(err, ErrModelNotConfigured) {
		return Action{Kind: ActionAbort}
	}

	var selErr *InvalidModelSelectionError
	if errors.As(err, &selErr) {
		return Action{Kind: ActionRetrySameModel, ResetIndex: true}
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return Action{Kind: ActionAbort}
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		return Action{Kind: ActionAbort}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return Action{Kind: ActionRetrySameModel}
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return classifyRemote(remoteErr, rosterSize, policy)
	}

	return Action{Kind: ActionAbort}
}

func classifyRemote(err *RemoteError, rosterSize int, policy Policy) Action {
	var transportErr *TransportError
	if errors.As(err.Err, &transportErr) {
		return Action{Kind: ActionRetrySameModel}
	}

	var httpErr *HTTPError
	if !errors.As(err.Err, &httpErr) {
		return Action{Kind: ActionAbort}
	}

	switch {
	case httpErr.RateLimited():
		if rosterSize >= 2 {
			return Action{Kind: ActionRetryNextModel}
		}
		return Action{Kind: ActionRetryAfterDelay, Delay: delayFor(httpErr, policy.RateLimitDelay, policy)}
	case httpErr.ServerError():
		return Action{Kind: ActionRetryAfterDelay, Delay: delayFor(httpErr, policy.ServerErrorDelay, policy)}
	default:
		return Action{Kind: ActionAbort}
	}
}

func delayFor(httpErr *HTTPError, fixed time.Duration, policy Policy) time.Duration {
	if policy.HonorRetryAfter && httpErr.RetryAfter != nil {
		return *httpErr.RetryAfter
	}
	return fixed
}

// IsRetryable reports whether a failure would be retried under DefaultPolicy
// with a single-model roster.
func IsRetryable(err error) bool {
	return Classify(err, 1, DefaultPolicy).Retryable()
}
