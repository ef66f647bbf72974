package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"storecore/internal/infra/persistence/bolt"
	"storecore/internal/infra/persistence/memory"
	"storecore/internal/infra/persistence/sqlite"
	"storecore/pkg/domain"
)

func TestOpenPersistentStoreSelectsDriver(t *testing.T) {
	t.Setenv("STORECORE_SQLITE_PATH", filepath.Join(t.TempDir(), "storecore.db"))
	t.Setenv("STORECORE_BOLT_PATH", filepath.Join(t.TempDir(), "storecore.bolt"))

	t.Setenv("STORECORE_STORAGE_DRIVER", "memory")
	ps, err := OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := ps.(*memory.Store); !ok {
		t.Fatalf("memory driver returned %T", ps)
	}

	t.Setenv("STORECORE_STORAGE_DRIVER", "sqlite")
	ps, err = OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if st, ok := ps.(*sqlite.Store); !ok {
		t.Fatalf("sqlite driver returned %T", ps)
	} else {
		_ = st.Close()
	}

	t.Setenv("STORECORE_STORAGE_DRIVER", "bolt")
	ps, err = OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("bolt: %v", err)
	}
	if st, ok := ps.(*bolt.Store); !ok {
		t.Fatalf("bolt driver returned %T", ps)
	} else {
		_ = st.Close()
	}

	t.Setenv("STORECORE_STORAGE_DRIVER", "carrier-pigeon")
	if _, err := OpenPersistentStore(nil); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

// Save followed by a reopen reproduces the collections and the id counters:
// the next generated ids continue the prior sequence instead of restarting.
func TestSaveRetrieveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storecore.db")
	ctx := context.Background()

	backend, err := sqlite.NewStore(path, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := NewStore(backend)
	member := mustAddMember(t, s)
	mustAddWidget(t, s)
	openTransaction(t, s, member.ID)
	if _, err := s.PurchaseProducts(ctx, member.ID, "P1", 6); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.NewStore(path, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	restored := NewStore(reopened)

	if res := restored.SearchMembership(member.ID); res.Status != StatusCompleted {
		t.Fatalf("member missing after reload: %s", res.Status)
	}
	if res := restored.SearchCatalog("P1"); res.Status != StatusCompleted || res.Product.Stock != 4 {
		t.Fatalf("product state lost: %+v", res)
	}
	if got := drain(t, restored.GetOrders()); got != 2 {
		t.Fatalf("orders after reload = %d, want 2", got)
	}
	check, err := restored.CheckTransaction(ctx, member.ID)
	if err != nil || check.Total != 12.00 {
		t.Fatalf("open transaction lost: %+v err=%v", check, err)
	}

	// Counters continue the sequence.
	added, err := restored.AddMember(ctx, "Ben", "2 Main", "555-0101", false, 0)
	if err != nil {
		t.Fatalf("add after reload: %v", err)
	}
	if added.Member.ID != "M2" {
		t.Fatalf("member sequence restarted: got %s", added.Member.ID)
	}
}

func drain(t *testing.T, it *ListingIterator) int {
	t.Helper()
	count := 0
	for {
		_, err := it.Next()
		if errors.Is(err, domain.ErrListingExhausted) {
			return count
		}
		if err != nil {
			t.Fatalf("drain: %v", err)
		}
		count++
	}
}
