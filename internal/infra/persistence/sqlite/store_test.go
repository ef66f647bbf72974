package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"storecore/pkg/domain"
)

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storecore.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.AddMember(domain.Member{Name: "Ada", Address: "1 Main"}); err != nil {
			return err
		}
		if _, err := tx.AddProduct(domain.Product{ID: "P1", Name: "Widget", Stock: 10, ReorderLevel: 5, Price: 2}); err != nil {
			return err
		}
		_, err := tx.PlaceOrder(domain.Order{ProductID: "P1", ProductName: "Widget", Quantity: 10, Reason: domain.OrderReasonInitial})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if m, ok := reopened.GetMember("M1"); !ok || m.Name != "Ada" {
		t.Fatalf("member not restored: %+v ok=%v", m, ok)
	}
	if p, ok := reopened.GetProduct("P1"); !ok || p.Stock != 10 {
		t.Fatalf("product not restored: %+v ok=%v", p, ok)
	}
	if len(reopened.ListOrders()) != 1 {
		t.Fatalf("orders not restored")
	}
	// Sequences continue where the previous process stopped.
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Tx) error {
		m, err := tx.AddMember(domain.Member{Name: "Ben"})
		if err != nil {
			return err
		}
		if m.ID != "M2" {
			t.Errorf("member sequence restarted: got %s", m.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("continue: %v", err)
	}
}

func TestFailedTransactionIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storecore.db")
	ctx := context.Background()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.AddMember(domain.Member{Name: "Ada"}); err != nil {
			return err
		}
		return context.Canceled
	}); err == nil {
		t.Fatalf("expected transaction failure")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListMembers()); got != 0 {
		t.Fatalf("rolled back member leaked to disk: %d members", got)
	}
}

func TestPersistWritesCurrentState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storecore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	snap := store.ExportState()
	snap.MemberSeq = 7
	store.ImportState(snap)
	if err := store.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(sqliteBuckets) {
		t.Fatalf("state rows = %d, want %d", count, len(sqliteBuckets))
	}
}
