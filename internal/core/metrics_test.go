package core

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"storecore/internal/infra/persistence/memory"
)

func TestMetricsCountOperationsAndSettledTotals(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	backend := memory.NewStore(NewDefaultRulesEngine())
	s := NewStore(backend, WithMetrics(metrics))

	member := mustAddMember(t, s)
	mustAddWidget(t, s)
	openTransaction(t, s, member.ID)
	if _, err := s.PurchaseProducts(context.Background(), member.ID, "P1", 2); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := s.GetChange(context.Background(), member.ID, 5.00); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("add_member", StatusCompleted.String())); got != 1 {
		t.Fatalf("add_member count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("get_change", StatusTransactionComplete.String())); got != 1 {
		t.Fatalf("get_change count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.settledTotals); got != 1 {
		t.Fatalf("settled histogram series = %d, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("noop", StatusCompleted)
	m.ObserveSettled(1.0)
}
