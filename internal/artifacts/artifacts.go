// Package artifacts stores rendered report outputs. Artifacts are
// write-once: every report run has a fresh id, so a colliding key is a
// programming error, not a conflict to resolve.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Driver identifies an artifact storage backend.
type Driver string

const (
	// DriverFilesystem stores artifacts under a local directory root.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory, for tests.
	DriverMemory Driver = "memory"
)

// ErrNotFound is returned when the referenced artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Ref addresses one rendered output of one report run.
type Ref struct {
	Kind     string `json:"kind"`      // report kind, e.g. "products"
	ReportID string `json:"report_id"` // id of the run that produced it
	Format   string `json:"format"`    // file extension, e.g. "csv"
}

// Key is the storage key every backend derives paths and object names from.
func (r Ref) Key() string {
	return r.Kind + "/" + r.ReportID + "." + r.Format
}

func (r Ref) validate() error {
	for _, part := range []struct{ name, v string }{
		{"kind", r.Kind}, {"report id", r.ReportID}, {"format", r.Format},
	} {
		if part.v == "" {
			return fmt.Errorf("artifact ref: empty %s", part.name)
		}
		if strings.ContainsAny(part.v, "/\\.") {
			return fmt.Errorf("artifact ref: %s %q contains path characters", part.name, part.v)
		}
	}
	return nil
}

// parseKey inverts Ref.Key. Keys not produced by Key are rejected.
func parseKey(key string) (Ref, error) {
	kind, rest, ok := strings.Cut(key, "/")
	if !ok {
		return Ref{}, fmt.Errorf("artifact key %q: missing kind", key)
	}
	id, format, ok := strings.Cut(rest, ".")
	if !ok {
		return Ref{}, fmt.Errorf("artifact key %q: missing format", key)
	}
	ref := Ref{Kind: kind, ReportID: id, Format: format}
	if err := ref.validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Descriptor records what was stored for an artifact.
type Descriptor struct {
	Ref         Ref       `json:"ref"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Rows        int       `json:"rows"`
	StoredAt    time.Time `json:"stored_at"`
	Location    string    `json:"location,omitempty"` // backend address, informational
}

// Store persists rendered report artifacts.
type Store interface {
	// Save writes a new artifact. It fails if the ref already exists.
	Save(ctx context.Context, ref Ref, payload []byte, contentType string, rows int) (Descriptor, error)
	// Open returns the descriptor and content of a stored artifact.
	Open(ctx context.Context, ref Ref) (Descriptor, io.ReadCloser, error)
	// List returns descriptors for every artifact of a report kind,
	// ordered by key.
	List(ctx context.Context, kind string) ([]Descriptor, error)
	// Remove deletes an artifact, reporting whether it existed.
	Remove(ctx context.Context, ref Ref) (bool, error)
	Driver() Driver
}

// Open selects a Store from the environment.
//
//	STORECORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	STORECORE_BLOB_FS_ROOT: directory root when driver=fs (default ./reportdata)
//	STORECORE_BLOB_S3_*: bucket configuration when driver=s3 (see s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("STORECORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("STORECORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown artifact driver %q", driver)
	}
}
