// Package state persists the record of the last pipeline run.
//
// The record names the stage a run reached and, for aborted runs, the stage
// that failed and why. It is rewritten after every transition so an operator
// inspecting partial output can tell how far the run got.
package state
