// Package pipeline runs the packaging state machine.
//
// A run moves through Init, Checkout, VersionResolved, Cleaned, Built, Staged,
// Symlinked, Packaged, BindingPackaged, Published and Done. Each stage either
// completes or is skipped; the first failure aborts the run and is returned as
// a *StageError naming the stage. Output of an aborted run stays on disk until
// the next run's Cleaned stage.
//
// All mutable run state lives in a single BuildContext owned by the
// Orchestrator. The nominal version is set once, and the policy decision is
// derived from it and the platform the first time a stage needs it.
package pipeline
