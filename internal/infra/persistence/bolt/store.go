// Package bolt persists the in-memory retail state to a bbolt file,
// one bucket per snapshot section.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"storecore/internal/infra/persistence/memory"
	"storecore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)
var _ domain.Persister = (*Store)(nil)

const stateBucket = "state"

var stateKeys = []string{"members", "products", "orders", "sequences"}

// Store wraps the in-memory engine and snapshots its full state to bbolt.
type Store struct {
	*memory.Store
	db   *bolt.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting bbolt-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "storecore.bolt"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	}); err != nil {
		return nil, fmt.Errorf("create state bucket: %w", err)
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

func (s *Store) load() error {
	snapshot := memory.Snapshot{}
	loaded := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		for _, key := range stateKeys {
			data := b.Get([]byte(key))
			if data == nil {
				continue
			}
			loaded = true
			switch key {
			case "members":
				if err := json.Unmarshal(data, &snapshot.Members); err != nil {
					return fmt.Errorf("decode members: %w", err)
				}
			case "products":
				if err := json.Unmarshal(data, &snapshot.Products); err != nil {
					return fmt.Errorf("decode products: %w", err)
				}
			case "orders":
				if err := json.Unmarshal(data, &snapshot.Orders); err != nil {
					return fmt.Errorf("decode orders: %w", err)
				}
			case "sequences":
				var seq sequences
				if err := json.Unmarshal(data, &seq); err != nil {
					return fmt.Errorf("decode sequences: %w", err)
				}
				snapshot.MemberSeq = seq.MemberSeq
				snapshot.OrderSeq = seq.OrderSeq
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		for _, key := range stateKeys {
			var data []byte
			var err error
			switch key {
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
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
		}
		return nil
	})
}

// RunInTransaction applies fn within a transaction, then snapshots the
// committed state to bbolt.
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
