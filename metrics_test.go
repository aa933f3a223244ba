package authcore

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshSuccess)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("expected MetricLoginSuccess=2, got %d", got)
	}
	if got := m.Value(MetricRefreshSuccess); got != 1 {
		t.Fatalf("expected MetricRefreshSuccess=1, got %d", got)
	}
	if got := m.Value(MetricLoginFailure); got != 0 {
		t.Fatalf("expected untouched counter to be 0, got %d", got)
	}
	if !m.Enabled() {
		t.Fatal("expected enabled metrics")
	}
}

func TestMetricsDisabledDiscardsIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics must stay at 0, got %d", got)
	}
	if m.Enabled() {
		t.Fatal("expected disabled metrics")
	}
	if got := len(m.Snapshot().Counters); got != 0 {
		t.Fatalf("disabled snapshot must be empty, got %d entries", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must report 0")
	}
	if m.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
	if got := len(m.Snapshot().Counters); got != 0 {
		t.Fatalf("nil snapshot must be empty, got %d entries", got)
	}
}

func TestMetricsOutOfRangeID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(metricIDCount)
	m.Inc(metricIDCount + 100)
	if got := m.Value(metricIDCount); got != 0 {
		t.Fatalf("out-of-range id must be ignored, got %d", got)
	}
}

func TestMetricsSnapshotIsComplete(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricOAuthLogin)

	s := m.Snapshot()
	if got := len(s.Counters); got != int(metricIDCount) {
		t.Fatalf("expected %d counters in snapshot, got %d", metricIDCount, got)
	}
	if s.Counters[MetricOAuthLogin] != 1 {
		t.Fatalf("expected MetricOAuthLogin=1 in snapshot, got %d", s.Counters[MetricOAuthLogin])
	}

	// Snapshot is a copy: later increments do not leak in.
	m.Inc(MetricOAuthLogin)
	if s.Counters[MetricOAuthLogin] != 1 {
		t.Fatal("snapshot must not track later increments")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}
