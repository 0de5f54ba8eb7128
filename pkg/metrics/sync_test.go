package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncMergeApplied()
	m.IncMergeDiscarded()
	m.AddOrdersKeptLocal(3)
	m.IncQueueDropped()
	m.IncStockWarning("flour")
	m.ObservePersist(15 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "sync_orders_kept_local"); err != nil {
		t.Fatalf("fetch kept local: %v", err)
	} else if got != 3 {
		t.Fatalf("expected kept local=3, got %f", got)
	}

	if got, err := counterValue(mfs, "queue_actions_dropped"); err != nil {
		t.Fatalf("fetch dropped: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dropped=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "stock_warnings")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatal("expected one labelled stock warning series")
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.IncMergeApplied()
	m.IncStockWarning("") // must not panic

	unregistered := NewSyncMetrics(nil)
	unregistered.ObservePersist(time.Millisecond)
}

func counterValue(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetCounter().GetValue(), nil
	}
	return 0, fmt.Errorf("metric %q has no samples", name)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
