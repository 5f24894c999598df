package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.ObserveExternalCall("speech", nil, 250*time.Millisecond)
	metrics.IncStage("answer_capture", nil)
	metrics.IncStage("answer_capture", errors.New("codec missing"))
	metrics.IncStage("", nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	labels := map[string]string{"stage": "answer_capture", "outcome": OutcomeSuccess}
	if got, err := fetchCounterValue(mfs, "storyframe_pipeline_stage_total", labels); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	labels["outcome"] = OutcomeFailure
	if got, err := fetchCounterValue(mfs, "storyframe_pipeline_stage_total", labels); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if _, err := fetchCounterValue(mfs, "storyframe_pipeline_stage_total", map[string]string{"stage": "unknown", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("blank stage should be labelled unknown: %v", err)
	}

	if got, err := fetchHistogramSum(mfs, "storyframe_external_call_duration_seconds", map[string]string{"service": "speech", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestTimeExternalPassesThroughError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)
	boom := errors.New("boom")

	if err := metrics.TimeExternal("narrative", func() error { return boom }); err != boom {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "storyframe_external_call_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one histogram series")
	}
	if !matchesLabels(mf.GetMetric()[0].GetLabel(), map[string]string{"outcome": OutcomeFailure}) {
		t.Fatalf("expected failure outcome label")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var metrics *PipelineMetrics
	metrics.IncStage("x", nil)
	metrics.ObserveExternalCall("x", nil, time.Second)
	if err := NewPipelineMetrics(nil).TimeExternal("x", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
