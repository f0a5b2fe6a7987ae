// Package metrics records pipeline stage timings and outcomes.
//
// Components receive a Recorder. NoopRecorder is the default; PrometheusRecorder
// is used when a metrics file is configured and is flushed in the Prometheus
// text format at the end of a run so node_exporter's textfile collector can
// pick it up.
package metrics
