package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// PipelineMetrics records upstream call latency and per-stage outcomes.
type PipelineMetrics struct {
	externalDuration *prometheus.HistogramVec
	stageOutcomes    *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	externalDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storyframe",
		Name:      "external_call_duration_seconds",
		Help:      "Duration of calls to external collaborators in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"service", "outcome"})
	stageOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyframe",
		Name:      "pipeline_stage_total",
		Help:      "Pipeline stage executions by outcome.",
	}, []string{"stage", "outcome"})
	reg.MustRegister(externalDuration, stageOutcomes)
	return &PipelineMetrics{
		externalDuration: externalDuration,
		stageOutcomes:    stageOutcomes,
	}
}

// ObserveExternalCall records one call to service.
func (m *PipelineMetrics) ObserveExternalCall(service string, err error, duration time.Duration) {
	if m == nil || m.externalDuration == nil {
		return
	}
	m.externalDuration.WithLabelValues(normalizeLabel(service), outcomeOf(err)).Observe(duration.Seconds())
}

// IncStage counts one execution of a pipeline stage.
func (m *PipelineMetrics) IncStage(stage string, err error) {
	if m == nil || m.stageOutcomes == nil {
		return
	}
	m.stageOutcomes.WithLabelValues(normalizeLabel(stage), outcomeOf(err)).Inc()
}

// TimeExternal runs fn and records its duration and outcome under service.
func (m *PipelineMetrics) TimeExternal(service string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.ObserveExternalCall(service, err, time.Since(start))
	return err
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
