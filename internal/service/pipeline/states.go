package pipeline

import (
	"fmt"
	"time"
)

// State is a pipeline state; every state after Init names the stage that reaches it.
type State string

// Pipeline states in execution order.
const (
	StateInit            State = "Init"
	StateCheckout        State = "Checkout"
	StateVersionResolved State = "VersionResolved"
	StateCleaned         State = "Cleaned"
	StateBuilt           State = "Built"
	StateStaged          State = "Staged"
	StateSymlinked       State = "Symlinked"
	StatePackaged        State = "Packaged"
	StateBindingPackaged State = "BindingPackaged"
	StatePublished       State = "Published"
	StateDone            State = "Done"
)

// Outcome is how a stage ended when it did not fail.
type Outcome string

const (
	// OutcomeCompleted means the stage did its work.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkipped means the stage had nothing to do or was switched off.
	OutcomeSkipped Outcome = "skipped"
)

// StageResult records one finished stage.
type StageResult struct {
	State    State
	Outcome  Outcome
	Duration time.Duration
}

// StageError wraps the failure of a stage.
type StageError struct {
	// Stage is the stage that failed.
	Stage State
	// Err is the underlying cause.
	Err error
}

// Error names the failed stage and its cause.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying failure.
func (e *StageError) Unwrap() error {
	return e.Err
}
