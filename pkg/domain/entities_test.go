package domain

import (
	"testing"
	"time"
)

func TestProductStockAndReorderChecks(t *testing.T) {
	p := Product{ID: "P1", Stock: 10, ReorderLevel: 5, Price: 2}
	if !p.CheckStock(10) {
		t.Fatalf("debiting exactly the stock should pass")
	}
	if p.CheckStock(11) {
		t.Fatalf("debiting beyond stock should fail")
	}
	if p.NeedsReorder() {
		t.Fatalf("stock above reorder level should not reorder")
	}
	p.Stock = 5
	if !p.NeedsReorder() {
		t.Fatalf("equality counts as must-reorder")
	}
}

func TestProductSetPriceRejectsNegative(t *testing.T) {
	p := Product{ID: "P1", Price: 3}
	if p.SetPrice(-1) {
		t.Fatalf("negative price should be rejected")
	}
	if p.Price != 3 {
		t.Fatalf("rejected set must not mutate, price=%v", p.Price)
	}
	if !p.SetPrice(0) {
		t.Fatalf("zero price is valid")
	}
}

func TestTransactionItemSnapshotsPrice(t *testing.T) {
	p := Product{ID: "P1", Name: "Widget", Price: 2}
	item := NewTransactionItem(p, 6)
	if item.Total != 12 {
		t.Fatalf("line total = %v, want 12", item.Total)
	}
	p.SetPrice(99)
	if item.Price != 2 {
		t.Fatalf("item must be decoupled from later price changes, price=%v", item.Price)
	}
}

func TestMemberCurrentTransactionLastAppendedWins(t *testing.T) {
	now := time.Now()
	m := Member{ID: "M1"}
	if _, ok := m.CurrentTransaction(); ok {
		t.Fatalf("new member has no current transaction")
	}
	m.OpenTransaction(now)
	second := m.OpenTransaction(now.Add(time.Minute))
	cur, ok := m.CurrentTransaction()
	if !ok || !cur.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("current should be last-appended")
	}

	cur.Payment = 5
	cur.Completed = true
	if _, ok := m.CurrentTransaction(); ok {
		t.Fatalf("settled tail transaction is no longer current")
	}
}

func TestMemberRemoveCurrentTransaction(t *testing.T) {
	m := Member{ID: "M1"}
	if m.RemoveCurrentTransaction() {
		t.Fatalf("nothing to remove")
	}
	m.OpenTransaction(time.Now())
	if !m.RemoveCurrentTransaction() {
		t.Fatalf("open transaction should be removable")
	}
	if len(m.Transactions) != 0 {
		t.Fatalf("transaction list should be empty")
	}
}

func TestTransactionAddItemAccumulatesTotal(t *testing.T) {
	var tr Transaction
	if !tr.Empty() {
		t.Fatalf("fresh transaction is empty")
	}
	tr.AddItem(TransactionItem{Total: 12})
	tr.AddItem(TransactionItem{Total: 3.5})
	if tr.Total != 15.5 {
		t.Fatalf("running total = %v, want 15.5", tr.Total)
	}
	if tr.Empty() {
		t.Fatalf("transaction with items is not empty")
	}
}

func TestTransactionsBetweenDayGranularity(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 13, 30, 0, 0, time.UTC)
	}
	m := Member{ID: "M1", Transactions: []Transaction{
		{CreatedAt: day(2026, time.March, 1)},
		{CreatedAt: day(2026, time.March, 15)},
		{CreatedAt: day(2026, time.April, 2)},
	}}

	got := m.TransactionsBetween(day(2026, time.March, 1), day(2026, time.March, 31))
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions in March, got %d", len(got))
	}
	// Boundaries are inclusive regardless of time-of-day.
	got = m.TransactionsBetween(day(2026, time.April, 2), day(2026, time.April, 2))
	if len(got) != 1 {
		t.Fatalf("single-day range should include its boundary, got %d", len(got))
	}
}
