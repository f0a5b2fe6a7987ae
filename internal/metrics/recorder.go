package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	// ResultSuccess marks a stage that completed its work.
	ResultSuccess ResultLabel = "success"
	// ResultSkipped marks a stage bypassed by the run mode or configuration.
	ResultSkipped ResultLabel = "skipped"
	// ResultFailed marks a stage that aborted the run.
	ResultFailed ResultLabel = "failed"
)

// Recorder defines observability hooks for pipeline runs.
type Recorder interface {
	// ObserveStageDuration records how long a single stage ran.
	ObserveStageDuration(stage string, d time.Duration)
	// ObserveRunDuration records the wall time of a whole run.
	ObserveRunDuration(d time.Duration)
	// IncStageResult counts a stage outcome.
	IncStageResult(stage string, result ResultLabel)
	// IncRunOutcome counts a finished run; outcome is success or failed.
	IncRunOutcome(outcome string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

// ObserveStageDuration discards the observation.
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}

// ObserveRunDuration discards the observation.
func (NoopRecorder) ObserveRunDuration(time.Duration) {}

// IncStageResult discards the count.
func (NoopRecorder) IncStageResult(string, ResultLabel) {}

// IncRunOutcome discards the count.
func (NoopRecorder) IncRunOutcome(string) {}
