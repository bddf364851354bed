package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveAttempt("completed", 3*time.Second)
	m.ObserveAttempt("completed", time.Second)
	m.ObserveAttempt("verification_failed", time.Second)
	m.ObserveGateway("razorpay", nil, 120*time.Millisecond)
	m.ObserveGateway("razorpay", errors.New("timeout"), time.Second)
	m.IncNotification("sms", errors.New("down"))
	m.AttemptStarted()
	m.AttemptStarted()
	m.AttemptEnded()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_attempts_total", "outcome", "completed"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 2 {
		t.Fatalf("expected completed=2, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "checkout_attempt_duration_seconds", "outcome", "completed"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 4 {
		t.Fatalf("expected duration sum 4, got %f", got)
	}
	if got, err := fetchHistogramCount(mfs, "gateway_request_duration_seconds", "result", "error"); err != nil {
		t.Fatalf("fetch gateway: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one failed gateway call, got %d", got)
	}
	if got, err := fetchCounterValue(mfs, "notifications_total", "result", "error"); err != nil {
		t.Fatalf("fetch notifications: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one failed notification, got %f", got)
	}
	if mf := findMetricFamily(mfs, "checkout_live_attempts"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected one live attempt")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewCheckoutMetrics(nil)
	m.ObserveAttempt("completed", time.Second)
	m.ObserveGateway("razorpay", nil, time.Second)
	m.IncNotification("email", nil)
	m.AttemptStarted()
	m.AttemptEnded()

	var nilMetrics *CheckoutMetrics
	nilMetrics.ObserveAttempt("completed", time.Second)

	NewHTTPMetrics(nil).Observe("/health/live", http.MethodGet, http.StatusOK, time.Millisecond)
}

func TestHTTPMetricsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("/api/v1/cart", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.Observe("", http.MethodGet, http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/cart"); err != nil || got != 1 {
		t.Fatalf("expected one cart request, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unmatched routes under unknown, got %f (%v)", got, err)
	}
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

func fetchHistogramCount(mfs []*dto.MetricFamily, name, label, value string) (uint64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleCount(), nil
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
