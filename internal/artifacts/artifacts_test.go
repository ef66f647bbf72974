package artifacts

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv("STORECORE_BLOB_DRIVER", "memory")
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*Memory); !ok {
		t.Fatalf("driver memory opened %T", store)
	}

	t.Setenv("STORECORE_BLOB_DRIVER", "fs")
	t.Setenv("STORECORE_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(ctx)
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if _, ok := store.(*Filesystem); !ok {
		t.Fatalf("driver fs opened %T", store)
	}

	t.Setenv("STORECORE_BLOB_DRIVER", "tape")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestRefValidation(t *testing.T) {
	store := NewMemory()
	bad := []Ref{
		{},
		{Kind: "products", ReportID: "", Format: "csv"},
		{Kind: "../escape", ReportID: "r1", Format: "csv"},
		{Kind: "products", ReportID: "a/b", Format: "csv"},
		{Kind: "products", ReportID: "r1", Format: "tar.gz"},
	}
	for _, ref := range bad {
		if _, err := store.Save(context.Background(), ref, []byte("x"), "text/plain", 1); err == nil {
			t.Fatalf("ref %+v accepted", ref)
		}
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	testRoundTrip(t, NewMemory())
}

func TestFilesystemRoundTrip(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	testRoundTrip(t, store)
}

func TestS3RoundTrip(t *testing.T) {
	testRoundTrip(t, NewS3Mock())
}

func testRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	ref := Ref{Kind: "products", ReportID: "r1", Format: "csv"}
	payload := []byte("id,name\nP1,Widget\n")

	desc, err := store.Save(ctx, ref, payload, "text/csv", 1)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if desc.SizeBytes != int64(len(payload)) || desc.Rows != 1 {
		t.Fatalf("descriptor = %+v", desc)
	}
	if _, err := store.Save(ctx, ref, payload, "text/csv", 1); err == nil {
		t.Fatalf("save over existing artifact succeeded")
	}

	got, rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("payload = %q", data)
	}
	if got.ContentType != "text/csv" || got.Rows != 1 {
		t.Fatalf("opened descriptor = %+v", got)
	}

	descs, err := store.List(ctx, "products")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(descs) != 1 || descs[0].Ref != ref || descs[0].Rows != 1 {
		t.Fatalf("listed = %+v", descs)
	}
	if other, err := store.List(ctx, "orders"); err != nil || len(other) != 0 {
		t.Fatalf("foreign kind listed %+v err %v", other, err)
	}

	existed, err := store.Remove(ctx, ref)
	if err != nil || !existed {
		t.Fatalf("remove = %t, %v", existed, err)
	}
	if _, _, err := store.Open(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("open after remove = %v", err)
	}
	if existed, err := store.Remove(ctx, ref); err != nil || existed {
		t.Fatalf("second remove = %t, %v", existed, err)
	}
}
