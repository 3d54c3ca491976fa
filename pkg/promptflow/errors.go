package promptflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for node building.
var (
	// ErrMissingCondition indicates a Conditional or Loop was built without a condition.
	ErrMissingCondition = errors.New("missing condition")

	// ErrMissingThen indicates a Conditional was built without a then branch.
	ErrMissingThen = errors.New("missing then branch")

	// ErrMissingBody indicates a Loop was built without a body.
	ErrMissingBody = errors.New("missing loop body")

	// ErrNotLeaf indicates a render was attempted on a Conditional or Loop.
	ErrNotLeaf = errors.New("node is not a leaf")
)

// Sentinel errors for flow resolution.
var (
	// ErrMaxIterations indicates a flow yielded more leaves than configured.
	ErrMaxIterations = errors.New("exceeded maximum iterations")
)

// BuildError reports which kind of node failed to build.
type BuildError struct {
	// Kind is the node kind being built.
	Kind Kind
	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// MaxIterationsError provides context when the yield limit is exceeded.
type MaxIterationsError struct {
	// Max is the configured limit.
	Max int
	// Position is the top-level index that would have yielded next.
	Position int
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at chain position %d", e.Max, e.Position)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}
