// Package sqlite persists the in-memory retail state to a single SQLite
// table as JSON snapshots, written after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"storecore/internal/infra/persistence/memory"
	"storecore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)
var _ domain.Persister = (*Store)(nil)

// Store wraps the in-memory engine and snapshots its full state to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "storecore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type sequences struct {
	MemberSeq uint64 `json:"member_seq"`
	OrderSeq  uint64 `json:"order_seq"`
}

var sqliteBuckets = []string{"members", "products", "orders", "sequences"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	snapshot := memory.Snapshot{}
	if data, ok := payloads["members"]; ok {
		if err := json.Unmarshal(data, &snapshot.Members); err != nil {
			return fmt.Errorf("decode members: %w", err)
		}
	}
	if data, ok := payloads["products"]; ok {
		if err := json.Unmarshal(data, &snapshot.Products); err != nil {
			return fmt.Errorf("decode products: %w", err)
		}
	}
	if data, ok := payloads["orders"]; ok {
		if err := json.Unmarshal(data, &snapshot.Orders); err != nil {
			return fmt.Errorf("decode orders: %w", err)
		}
	}
	if data, ok := payloads["sequences"]; ok {
		var seq sequences
		if err := json.Unmarshal(data, &seq); err != nil {
			return fmt.Errorf("decode sequences: %w", err)
		}
		snapshot.MemberSeq = seq.MemberSeq
		snapshot.OrderSeq = seq.OrderSeq
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "members":
			data, err = json.Marshal(snapshot.Members)
		case "products":
			data, err = json.Marshal(snapshot.Products)
		case "orders":
			data, err = json.Marshal(snapshot.Orders)
		case "sequences":
			data, err = json.Marshal(sequences{MemberSeq: snapshot.MemberSeq, OrderSeq: snapshot.OrderSeq})
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn within a transaction, then snapshots the
// committed state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Tx) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Persist forces a snapshot of the current committed state.
func (s *Store) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.persist()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
