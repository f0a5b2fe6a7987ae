package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mesos_packager"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	runDuration   prom.Histogram
	stageResults  *prom.CounterVec
	runOutcome    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600},
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   []float64{1, 60, 300, 900, 1800, 3600, 7200},
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
	}

	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcome)

	return pr
}

// ObserveStageDuration adds d to the stage duration histogram.
func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}

	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRunDuration adds d to the run duration histogram.
func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}

	p.runDuration.Observe(d.Seconds())
}

// IncStageResult increments the stage result counter for stage and result.
func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}

	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

// IncRunOutcome increments the run outcome counter.
func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}

	p.runOutcome.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every registered metric to filename in the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(filename string) error {
	if err := prom.WriteToTextfile(filename, p.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", filename, err)
	}

	return nil
}
