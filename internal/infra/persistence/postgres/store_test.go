package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"storecore/internal/sqlbundle"
	"storecore/pkg/domain"
)

// openStubDB returns an in-memory SQLite handle that speaks enough of the
// Postgres dialect used here ($n placeholders, ON CONFLICT upserts) to stand
// in for a real server.
func openStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:pgstub?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open stub: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewStoreAppliesDDLAndRoundTripsSnapshot(t *testing.T) {
	db := openStubDB(t)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.AddMember(domain.Member{Name: "Ada"}); err != nil {
			return err
		}
		_, err := tx.AddProduct(domain.Product{ID: "P1", Name: "Widget", Stock: 10, ReorderLevel: 5, Price: 2})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Schema tables exist alongside the snapshot table.
	for _, table := range []string{"members", "products", "orders", "state"} {
		var name string
		if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// A second store over the same database hydrates from the snapshot.
	rehydrated, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore rehydrate: %v", err)
	}
	if m, ok := rehydrated.GetMember("M1"); !ok || m.Name != "Ada" {
		t.Fatalf("member not hydrated: %+v ok=%v", m, ok)
	}
	if _, err := rehydrated.RunInTransaction(ctx, func(tx domain.Tx) error {
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

func TestSchemaDDLSplitsIntoCreateStatements(t *testing.T) {
	stmts := sqlbundle.SplitStatements(sqlbundle.Postgres())
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(stmts))
	}
	for _, stmt := range stmts {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "CREATE TABLE") {
			t.Fatalf("unexpected statement: %q", stmt)
		}
	}
}
