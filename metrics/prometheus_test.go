package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusProvider_Counter_AccumulatesAndRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg)

	c := p.Counter(TasksCompleted, WithDescription("tasks completed"))
	c.Add(3)
	c.Add(2)

	got, err := testutil.GatherAndCount(reg, TasksCompleted)
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 series for %s, got %d", TasksCompleted, got)
	}
}

func TestPrometheusProvider_Counter_SameNameReused(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg)

	c1 := p.Counter(TasksReady)
	c2 := p.Counter(TasksReady)
	c1.Add(1)
	c2.Add(1)

	got, err := testutil.GatherAndCount(reg, TasksReady)
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected registering the same instrument name twice not to duplicate series, got %d", got)
	}
}

func TestPrometheusProvider_Histogram_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg)

	h := p.Histogram(TaskLatencySecs)
	h.Record(0.5)

	got, err := testutil.GatherAndCount(reg, TaskLatencySecs)
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 series, got %d", got)
	}
}
