package domain

import "testing"

func TestCollectionInsertSearchRemove(t *testing.T) {
	var c Collection[Member, string]
	if !c.Insert(Member{ID: "M1", Name: "Ada"}) {
		t.Fatalf("insert should always succeed")
	}
	c.Insert(Member{ID: "M2", Name: "Ben"})
	c.Insert(Member{ID: "M2", Name: "Shadowed"}) // duplicates are the caller's problem

	m, ok := c.Search("M2")
	if !ok || m.Name != "Ben" {
		t.Fatalf("search should return first match in insertion order, got %+v ok=%v", m, ok)
	}
	if _, ok := c.Search("M9"); ok {
		t.Fatalf("search miss should report not found")
	}

	if !c.Remove("M2") {
		t.Fatalf("remove should find first M2")
	}
	m, ok = c.Search("M2")
	if !ok || m.Name != "Shadowed" {
		t.Fatalf("remove should drop only the first match, got %+v ok=%v", m, ok)
	}
	if c.Remove("M9") {
		t.Fatalf("removing a missing key should return false")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entities, got %d", c.Len())
	}
}

func TestCollectionInsertedThenRemovedIsGone(t *testing.T) {
	var c Collection[Member, string]
	c.Insert(Member{ID: "M1"})
	if !c.Remove("M1") {
		t.Fatalf("remove failed")
	}
	if _, ok := c.Search("M1"); ok {
		t.Fatalf("search after remove should miss")
	}
}

func TestCollectionAllPreservesInsertionOrder(t *testing.T) {
	c := NewCollection[Order, string](
		Order{ID: "O1"},
		Order{ID: "O2"},
		Order{ID: "O3"},
	)
	var ids []string
	for o := range c.All() {
		ids = append(ids, o.ID)
	}
	want := []string{"O1", "O2", "O3"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("iteration order %v, want %v", ids, want)
		}
	}

	// Restartable per call.
	count := 0
	for range c.All() {
		count++
		break
	}
	for range c.All() {
		count++
	}
	if count != 4 {
		t.Fatalf("expected restarted iteration, got %d visits", count)
	}
}

func TestCollectionReplace(t *testing.T) {
	var c Collection[Product, string]
	c.Insert(Product{ID: "P1", Price: 1})
	if !c.Replace("P1", Product{ID: "P1", Price: 2}) {
		t.Fatalf("replace should succeed for present key")
	}
	p, _ := c.Search("P1")
	if p.Price != 2 {
		t.Fatalf("replace did not overwrite, price=%v", p.Price)
	}
	if c.Replace("P9", Product{ID: "P9"}) {
		t.Fatalf("replace of missing key should fail")
	}
}
