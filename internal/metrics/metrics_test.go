package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveUpdate("message", true, 120*time.Millisecond)
	m.ObserveUpdate("message", true, 30*time.Millisecond)
	m.IncSubscriptionTransition("approved")
	m.IncDraftCommit("item", true)
	m.IncDraftCommit("", false)
	m.SetActiveDrafts(3)
	m.IncNotification(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "wishbot_updates_total", "kind", "message"); err != nil {
		t.Fatalf("fetch updates: %v", err)
	} else if got != 2 {
		t.Fatalf("expected updates=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "wishbot_subscription_transitions_total", "transition", "approved"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "wishbot_draft_commits_total", "kind", "unknown"); err != nil {
		t.Fatalf("fetch draft commits: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown-kind commits=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "wishbot_update_duration_seconds", "kind", "message"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "wishbot_active_drafts")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected active drafts gauge of 3")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveUpdate("message", true, time.Second)
	m.IncSubscriptionTransition("approved")
	m.IncDraftCommit("item", true)
	m.SetActiveDrafts(1)
	m.IncNotification(true)

	unregistered := New(nil)
	unregistered.IncNotification(true)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
